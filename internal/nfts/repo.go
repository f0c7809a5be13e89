package nfts

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

// Repository persists the mirrored token index.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes one token record keyed on token_id. Re-running the same
// token overwrites the previous row, so sync passes stay idempotent.
func (r *Repository) Upsert(ctx context.Context, record *models.TokenRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"nft_contract",
				"owner_address",
				"name",
				"image_uri",
				"last_synced_at",
				"updated_at",
			}),
		}).
		Create(record).Error
}

// FindByTokenID loads a single token record.
func (r *Repository) FindByTokenID(ctx context.Context, tokenID int64) (*models.TokenRecord, error) {
	var record models.TokenRecord
	if err := r.db.WithContext(ctx).First(&record, "token_id = ?", tokenID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns a page of token records ordered by token id.
func (r *Repository) List(ctx context.Context, page pagination.Params) ([]models.TokenRecord, error) {
	var records []models.TokenRecord
	err := r.db.WithContext(ctx).
		Order("token_id ASC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the number of indexed tokens.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.TokenRecord{}).Count(&total).Error
	return total, err
}
