package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	"github.com/apebear-labs/bearmarket-backend/pkg/enums"
	pkgerrors "github.com/apebear-labs/bearmarket-backend/pkg/errors"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

// Repository persists marketplace orders keyed by order hash.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes one order keyed on order_hash. Re-submitting the same hash
// overwrites the stored listing, keeping client retries idempotent. The
// conflict update deliberately leaves status, on_chain, and buyer_address
// alone: status only moves forward, so a retried save can never resurrect a
// fulfilled or cancelled row.
func (r *Repository) Upsert(ctx context.Context, record *models.OrderRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "order_hash"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"token_id",
				"price_wei",
				"nft_contract",
				"marketplace_contract",
				"seller_address",
				"signed_order",
				"image_uri",
				"updated_at",
			}),
		}).
		Create(record).Error
}

// FindByHash loads one order by its protocol hash.
func (r *Repository) FindByHash(ctx context.Context, orderHash string) (*models.OrderRecord, error) {
	var record models.OrderRecord
	err := r.db.WithContext(ctx).First(&record, "order_hash = ?", orderHash).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent returns the newest active listings for the storefront feed.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListActivePage returns a page of active orders for the settlement sweep,
// ordered by creation time so pages are stable across a pass.
func (r *Repository) ListActivePage(ctx context.Context, page pagination.Params) ([]models.OrderRecord, error) {
	var records []models.OrderRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusActive).
		Order("created_at ASC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ExpireActiveBefore cancels every active order created before the cutoff,
// returning how many rows changed.
func (r *Repository) ExpireActiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderRecord{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusActive, cutoff).
		Update("status", enums.OrderStatusCancelled)
	return result.RowsAffected, result.Error
}

// TransitionToFulfilled flips an active order to fulfilled exactly once.
// Replaying the transition on an already fulfilled order is a no-op; an
// unknown hash is NotFound; a cancelled order is a state conflict.
func (r *Repository) TransitionToFulfilled(ctx context.Context, orderHash string, buyerAddress *string) error {
	updates := map[string]any{
		"status":   enums.OrderStatusFulfilled,
		"on_chain": true,
	}
	if buyerAddress != nil {
		updates["buyer_address"] = *buyerAddress
	}

	result := r.db.WithContext(ctx).
		Model(&models.OrderRecord{}).
		Where("order_hash = ? AND status = ?", orderHash, enums.OrderStatusActive).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	existing, err := r.FindByHash(ctx, orderHash)
	if err != nil {
		return err
	}
	if existing.Status == enums.OrderStatusFulfilled {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not active")
}

// TransitionToCancelled marks an active order cancelled. Already cancelled
// orders are a no-op.
func (r *Repository) TransitionToCancelled(ctx context.Context, orderHash string) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderRecord{}).
		Where("order_hash = ? AND status = ?", orderHash, enums.OrderStatusActive).
		Update("status", enums.OrderStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	existing, err := r.FindByHash(ctx, orderHash)
	if err != nil {
		return err
	}
	if existing.Status == enums.OrderStatusCancelled {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not active")
}
