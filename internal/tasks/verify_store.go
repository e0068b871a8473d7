package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlineshelf/internal/offline"
)

// QueueVerifyStore is the queue name of store verification tasks.
const QueueVerifyStore = "verify_store"

// StoreVerifier checks stored offline copies against their payloads.
type StoreVerifier interface {
	Verify(ctx context.Context, repair bool) (*offline.VerifyReport, error)
}

// VerifyStoreTask walks the offline store, fixing derived fields and
// reporting damaged copies.
type VerifyStoreTask struct {
	Repair bool `json:"repair"`
}

// Config returns the queue configuration for store verification tasks.
func (t VerifyStoreTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueVerifyStore,
		MaxAttempts: 1,
		Backoff:     5 * time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// VerifyStoreProcessor creates a processor function for VerifyStoreTask.
func VerifyStoreProcessor(verifier StoreVerifier) backlite.QueueProcessor[VerifyStoreTask] {
	return func(ctx context.Context, task VerifyStoreTask) error {
		if verifier == nil {
			return fmt.Errorf("store verifier not configured")
		}

		report, err := verifier.Verify(ctx, task.Repair)
		if err != nil {
			return fmt.Errorf("verify offline store: %w", err)
		}

		log.Printf("[TASK] verified %d offline copies: %d repaired, %d removed, %d corrupted, %d bytes in use",
			report.Checked, len(report.Repaired), len(report.Removed), len(report.Corrupted), report.UsageBytes)
		return nil
	}
}

// NewVerifyStoreQueue creates a backlite queue for store verification tasks.
func NewVerifyStoreQueue(verifier StoreVerifier) backlite.Queue {
	return backlite.NewQueue(VerifyStoreProcessor(verifier))
}
