package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/tasks"
)

type mockQueue struct {
	mu    sync.Mutex
	tasks []backlite.Task
	err   error
}

func (m *mockQueue) Enqueue(_ context.Context, task backlite.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.tasks = append(m.tasks, task)
	return "task-1", nil
}

type mockVerifier struct {
	calls  int
	repair bool
}

func (m *mockVerifier) Verify(_ context.Context, repair bool) (*offline.VerifyReport, error) {
	m.calls++
	m.repair = repair
	return &offline.VerifyReport{}, nil
}

type mockPruner struct {
	maxIdle time.Duration
	calls   int
}

func (m *mockPruner) Prune(maxIdle time.Duration) int {
	m.calls++
	m.maxIdle = maxIdle
	return 1
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("30 3 * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 * * * *"))
	assert.Error(t, ValidateCronSchedule("every day"))
	assert.Error(t, ValidateCronSchedule("* * * * * *"))
}

func TestRunVerify_Enqueues(t *testing.T) {
	queue := &mockQueue{}
	verifier := &mockVerifier{}
	s := NewMaintenanceScheduler(Config{VerifyRepair: true}, queue, verifier, nil)

	s.RunVerify()

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, tasks.VerifyStoreTask{Repair: true}, queue.tasks[0])
	assert.Zero(t, verifier.calls)
}

func TestRunVerify_InProcessWithoutQueue(t *testing.T) {
	verifier := &mockVerifier{}
	s := NewMaintenanceScheduler(Config{}, nil, verifier, nil)

	s.RunVerify()

	assert.Equal(t, 1, verifier.calls)
	assert.False(t, verifier.repair)
}

func TestRunVerify_EnqueueFailure(t *testing.T) {
	queue := &mockQueue{err: errors.New("database is locked")}
	s := NewMaintenanceScheduler(Config{}, queue, nil, nil)

	assert.NotPanics(t, s.RunVerify)
}

func TestRunPrune(t *testing.T) {
	pruner := &mockPruner{}
	s := NewMaintenanceScheduler(Config{SessionTTL: time.Hour}, nil, nil, pruner)

	s.RunPrune()

	assert.Equal(t, 1, pruner.calls)
	assert.Equal(t, time.Hour, pruner.maxIdle)
}

func TestStartStop(t *testing.T) {
	s := NewMaintenanceScheduler(Config{
		VerifySchedule: "30 3 * * *",
		PruneSchedule:  "*/15 * * * *",
		SessionTTL:     time.Hour,
	}, &mockQueue{}, nil, &mockPruner{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextVerify())

	cancel()
	require.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
	assert.Nil(t, s.NextVerify())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewMaintenanceScheduler(Config{VerifySchedule: "nope"}, &mockQueue{}, nil, nil)

	err := s.Start(context.Background())

	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestStart_NothingConfigured(t *testing.T) {
	s := NewMaintenanceScheduler(Config{}, nil, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
