package cron

import (
	"context"
	"fmt"

	"github.com/apebear-labs/bearmarket-backend/internal/sync"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

// ReconcileJob runs a full index reconciliation pass on the cron cadence, so
// ownership changes that happen between manual syncs still land in the index.
type ReconcileJob struct {
	logg   *logger.Logger
	driver *sync.Driver
}

// NewReconcileJob builds the reconcile job.
func NewReconcileJob(logg *logger.Logger, driver *sync.Driver) (*ReconcileJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if driver == nil {
		return nil, fmt.Errorf("sync driver required")
	}
	return &ReconcileJob{logg: logg, driver: driver}, nil
}

// Name identifies the job in logs and metrics.
func (j *ReconcileJob) Name() string { return "index_reconcile" }

// Run executes one sync pass. Per-token failures are already absorbed by the
// driver; only enumeration failures surface here.
func (j *ReconcileJob) Run(ctx context.Context) error {
	summary, err := j.driver.Run(ctx)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"synced":  summary.Synced,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}), "index reconcile pass complete")
	return nil
}

var _ Job = (*ReconcileJob)(nil)
