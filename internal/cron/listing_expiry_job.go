package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

const defaultListingTTL = 30 * 24 * time.Hour

// listingExpirer bulk-cancels stale active listings.
type listingExpirer interface {
	ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ListingExpiryJobParams configure the expiry job.
type ListingExpiryJobParams struct {
	Logger  *logger.Logger
	Expirer listingExpirer
	TTL     time.Duration
	Now     func() time.Time
}

// ListingExpiryJob cancels active listings older than the configured TTL so
// the feed never serves orders whose signed window has lapsed.
type ListingExpiryJob struct {
	logg    *logger.Logger
	expirer listingExpirer
	ttl     time.Duration
	now     func() time.Time
}

// NewListingExpiryJob builds the expiry job.
func NewListingExpiryJob(params ListingExpiryJobParams) (*ListingExpiryJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("listing expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultListingTTL
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ListingExpiryJob{
		logg:    params.Logger,
		expirer: params.Expirer,
		ttl:     ttl,
		now:     now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *ListingExpiryJob) Name() string { return "listing_expiry" }

// Run cancels listings past their TTL.
func (j *ListingExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	expired, err := j.expirer.ExpireActiveBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expiring listings: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "stale listings cancelled")
	}
	return nil
}

var _ Job = (*ListingExpiryJob)(nil)
