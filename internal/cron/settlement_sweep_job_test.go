package cron

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apebear-labs/bearmarket-backend/internal/seaport"
	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

type fakeOrderSource struct {
	orders []models.OrderRecord
}

func (f *fakeOrderSource) ListActivePage(_ context.Context, page pagination.Params) ([]models.OrderRecord, error) {
	if page.Offset >= len(f.orders) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(f.orders) {
		end = len(f.orders)
	}
	return f.orders[page.Offset:end], nil
}

type fakeRecorder struct {
	fulfilled []string
	cancelled []string
}

func (f *fakeRecorder) RecordFulfillment(_ context.Context, orderHash string, _ *string) error {
	f.fulfilled = append(f.fulfilled, orderHash)
	return nil
}

func (f *fakeRecorder) RecordCancellation(_ context.Context, orderHash string) error {
	f.cancelled = append(f.cancelled, orderHash)
	return nil
}

type fakeStatusChecker struct {
	statuses map[string]seaport.OrderStatus
	errs     map[string]error
}

func (f *fakeStatusChecker) GetOrderStatus(_ context.Context, orderHash string) (seaport.OrderStatus, error) {
	if err := f.errs[orderHash]; err != nil {
		return seaport.OrderStatus{}, err
	}
	return f.statuses[orderHash], nil
}

func activeOrder(hash string) models.OrderRecord {
	return models.OrderRecord{OrderHash: hash}
}

func filled() seaport.OrderStatus {
	return seaport.OrderStatus{TotalFilled: big.NewInt(1), TotalSize: big.NewInt(1)}
}

func TestSweepMarksFilledAndCancelledOrders(t *testing.T) {
	source := &fakeOrderSource{orders: []models.OrderRecord{
		activeOrder("0xfilled"),
		activeOrder("0xcancelled"),
		activeOrder("0xopen"),
	}}
	recorder := &fakeRecorder{}
	checker := &fakeStatusChecker{statuses: map[string]seaport.OrderStatus{
		"0xfilled":    filled(),
		"0xcancelled": {Cancelled: true},
		"0xopen":      {TotalFilled: big.NewInt(0), TotalSize: big.NewInt(1)},
	}}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Source:   source,
		Recorder: recorder,
		Status:   checker,
		PageSize: 2,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"0xfilled"}, recorder.fulfilled)
	assert.Equal(t, []string{"0xcancelled"}, recorder.cancelled)
}

func TestSweepContinuesPastPerOrderFailures(t *testing.T) {
	source := &fakeOrderSource{orders: []models.OrderRecord{
		activeOrder("0xbroken"),
		activeOrder("0xfilled"),
	}}
	recorder := &fakeRecorder{}
	checker := &fakeStatusChecker{
		statuses: map[string]seaport.OrderStatus{"0xfilled": filled()},
		errs:     map[string]error{"0xbroken": errors.New("rpc down")},
	}

	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Source:   source,
		Recorder: recorder,
		Status:   checker,
		PageSize: 10,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xbroken")
	assert.Equal(t, []string{"0xfilled"}, recorder.fulfilled)
}
