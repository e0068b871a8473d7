package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/offlineshelf/internal/offline"
	"github.com/mrlokans/offlineshelf/internal/tasks"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// TaskEnqueuer hands work to the background queue.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// StoreVerifier checks the offline store in-process.
type StoreVerifier interface {
	Verify(ctx context.Context, repair bool) (*offline.VerifyReport, error)
}

// SessionPruner drops idle reader sessions.
type SessionPruner interface {
	Prune(maxIdle time.Duration) int
}

// Config selects the maintenance jobs to schedule. An empty schedule disables a job.
type Config struct {
	VerifySchedule string
	VerifyRepair   bool
	PruneSchedule  string
	SessionTTL     time.Duration
}

// MaintenanceScheduler runs periodic offline store verification and reader
// session pruning.
type MaintenanceScheduler struct {
	config   Config
	queue    TaskEnqueuer
	verifier StoreVerifier
	pruner   SessionPruner

	cron      *cron.Cron
	verifyID  cron.EntryID
	pruneID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	verifying bool
}

// NewMaintenanceScheduler creates a scheduler. queue may be nil, in which case
// verification runs in-process on the cron goroutine.
func NewMaintenanceScheduler(cfg Config, queue TaskEnqueuer, verifier StoreVerifier, pruner SessionPruner) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		config:   cfg,
		queue:    queue,
		verifier: verifier,
		pruner:   pruner,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the configured jobs and starts the cron loop. It stops when ctx is done.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.config.VerifySchedule != "" && (s.queue != nil || s.verifier != nil) {
		if err := ValidateCronSchedule(s.config.VerifySchedule); err != nil {
			return fmt.Errorf("invalid verify schedule '%s': %w", s.config.VerifySchedule, err)
		}
		id, err := s.cron.AddFunc(s.config.VerifySchedule, s.RunVerify)
		if err != nil {
			return fmt.Errorf("failed to schedule verify job: %w", err)
		}
		s.verifyID = id
	}

	if s.config.PruneSchedule != "" && s.pruner != nil {
		if err := ValidateCronSchedule(s.config.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule '%s': %w", s.config.PruneSchedule, err)
		}
		id, err := s.cron.AddFunc(s.config.PruneSchedule, s.RunPrune)
		if err != nil {
			return fmt.Errorf("failed to schedule prune job: %w", err)
		}
		s.pruneID = id
	}

	if len(s.cron.Entries()) == 0 {
		log.Printf("Maintenance scheduler: no jobs configured")
		return nil
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Maintenance scheduler: started (verify '%s', prune '%s')",
		s.config.VerifySchedule, s.config.PruneSchedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops accepting new runs and waits for running jobs to complete.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	log.Printf("Maintenance scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextVerify returns when verification runs next, nil when not scheduled.
func (s *MaintenanceScheduler) NextVerify() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || s.verifyID == 0 {
		return nil
	}
	entry := s.cron.Entry(s.verifyID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// RunVerify enqueues a verification task, or runs it directly without a queue.
func (s *MaintenanceScheduler) RunVerify() {
	s.mu.Lock()
	if s.verifying {
		s.mu.Unlock()
		log.Printf("Offline verify: skipped (already running)")
		return
	}
	s.verifying = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.verifying = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if s.queue != nil {
		id, err := s.queue.Enqueue(ctx, tasks.VerifyStoreTask{Repair: s.config.VerifyRepair})
		if err != nil {
			log.Printf("Offline verify: failed to enqueue: %v", err)
			return
		}
		log.Printf("Offline verify: enqueued task %s", id)
		return
	}

	if _, err := s.verifier.Verify(ctx, s.config.VerifyRepair); err != nil {
		log.Printf("Offline verify: %v", err)
	}
}

// RunPrune drops reader sessions idle for longer than the configured TTL.
func (s *MaintenanceScheduler) RunPrune() {
	ttl := s.config.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if n := s.pruner.Prune(ttl); n > 0 {
		log.Printf("[READER] pruned %d idle sessions", n)
	}
}
