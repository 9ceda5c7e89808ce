package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bizpulse/backend/internal/application/erpconn"
	"github.com/bizpulse/backend/internal/domain/erp"
)

// scheduledBy tags history records written by this runner
const scheduledBy = "scheduler"

// SyncRunner is the slice of the sync orchestrator the executor needs
type SyncRunner interface {
	Sync(ctx context.Context, connectionID uuid.UUID, domains []string, syncType erp.SyncType, triggeredBy string) (*erpconn.SyncOutcome, error)
}

// OrchestratorExecutor runs scheduled sync jobs through the sync
// orchestrator, so scheduled runs get the same locking, audit trail and
// connection updates as API-triggered ones.
type OrchestratorExecutor struct {
	runner SyncRunner
}

// NewOrchestratorExecutor creates a new OrchestratorExecutor
func NewOrchestratorExecutor(runner SyncRunner) *OrchestratorExecutor {
	return &OrchestratorExecutor{runner: runner}
}

// Execute runs one connection's scheduled sync. A concurrent-sync conflict
// is not an error: someone else is already doing the work this job wanted.
func (e *OrchestratorExecutor) Execute(ctx context.Context, job *SyncJob) error {
	outcome, err := e.runner.Sync(ctx, job.ConnectionID, job.Domains, erp.SyncTypeScheduled, scheduledBy)
	if err != nil {
		if errors.Is(err, erp.ErrConnectionState) {
			job.Complete(0, 0)
			return nil
		}
		return err
	}

	if !outcome.Success {
		return fmt.Errorf("%w: %s", ErrSyncFailed, outcome.Message)
	}

	processed, skipped := 0, 0
	if outcome.Result != nil {
		processed = outcome.Result.RecordsProcessed
		skipped = outcome.Result.RecordsSkipped
	}
	job.Complete(processed, skipped)
	return nil
}
