package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

const defaultSweepPageSize = 200

// activeOrderSource lists active orders in stable pages.
type activeOrderSource interface {
	ListActivePage(ctx context.Context, page pagination.Params) ([]models.OrderRecord, error)
}

// lifecycleRecorder applies settlement outcomes observed on chain.
type lifecycleRecorder interface {
	RecordFulfillment(ctx context.Context, orderHash string, buyerAddress *string) error
	RecordCancellation(ctx context.Context, orderHash string) error
}

// SettlementSweepJobParams configure the sweep.
type SettlementSweepJobParams struct {
	Logger   *logger.Logger
	Source   activeOrderSource
	Recorder lifecycleRecorder
	Status   orders.StatusChecker
	PageSize int
}

// SettlementSweepJob walks every active order and reconciles its stored
// status against the marketplace contract. Orders the protocol reports fully
// filled become fulfilled; cancelled orders become cancelled. One order's
// failure never stops the sweep.
type SettlementSweepJob struct {
	logg     *logger.Logger
	source   activeOrderSource
	recorder lifecycleRecorder
	status   orders.StatusChecker
	pageSize int
}

// NewSettlementSweepJob builds the sweep job.
func NewSettlementSweepJob(params SettlementSweepJobParams) (*SettlementSweepJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Source == nil {
		return nil, fmt.Errorf("order source required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("lifecycle recorder required")
	}
	if params.Status == nil {
		return nil, fmt.Errorf("status checker required")
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = defaultSweepPageSize
	}
	return &SettlementSweepJob{
		logg:     params.Logger,
		source:   params.Source,
		recorder: params.Recorder,
		status:   params.Status,
		pageSize: pageSize,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *SettlementSweepJob) Name() string { return "settlement_sweep" }

// Run executes one sweep pass.
func (j *SettlementSweepJob) Run(ctx context.Context) error {
	var swept, settled, cancelled int
	var errs error

	for offset := 0; ; offset += j.pageSize {
		page, err := j.source.ListActivePage(ctx, pagination.Params{Offset: offset, Limit: j.pageSize})
		if err != nil {
			return fmt.Errorf("listing active orders: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, record := range page {
			swept++
			outcome, err := j.sweepOrder(ctx, record)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("order %s: %w", record.OrderHash, err))
				continue
			}
			switch outcome {
			case outcomeFulfilled:
				settled++
			case outcomeCancelled:
				cancelled++
			}
		}

		if len(page) < j.pageSize {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"swept":     swept,
		"settled":   settled,
		"cancelled": cancelled,
	}), "settlement sweep finished")
	return errs
}

type sweepOutcome int

const (
	outcomeUnchanged sweepOutcome = iota
	outcomeFulfilled
	outcomeCancelled
)

func (j *SettlementSweepJob) sweepOrder(ctx context.Context, record models.OrderRecord) (sweepOutcome, error) {
	logCtx := j.logg.WithOrderHash(ctx, record.OrderHash)

	status, err := j.status.GetOrderStatus(ctx, record.OrderHash)
	if err != nil {
		return outcomeUnchanged, fmt.Errorf("reading order status: %w", err)
	}

	switch {
	case status.FullyFilled():
		if err := j.recorder.RecordFulfillment(ctx, record.OrderHash, nil); err != nil {
			return outcomeUnchanged, fmt.Errorf("recording fulfillment: %w", err)
		}
		j.logg.Info(logCtx, "order settled on chain, marked fulfilled")
		return outcomeFulfilled, nil
	case status.Cancelled:
		if err := j.recorder.RecordCancellation(ctx, record.OrderHash); err != nil {
			return outcomeUnchanged, fmt.Errorf("recording cancellation: %w", err)
		}
		j.logg.Info(logCtx, "order cancelled on chain, marked cancelled")
		return outcomeCancelled, nil
	}
	return outcomeUnchanged, nil
}

var _ Job = (*SettlementSweepJob)(nil)
