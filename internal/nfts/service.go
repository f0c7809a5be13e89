package nfts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	pkgerrors "github.com/apebear-labs/bearmarket-backend/pkg/errors"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

// Service exposes the read side of the token index plus the upsert surface
// the sync driver writes through.
type Service interface {
	RecordToken(ctx context.Context, input RecordTokenInput) error
	ListTokens(ctx context.Context, page pagination.Params) (*TokenListResult, error)
	CountTokens(ctx context.Context) (int64, error)
}

// RecordTokenInput is one synced token observation.
type RecordTokenInput struct {
	TokenID      int64
	NFTContract  string
	OwnerAddress string
	Name         string
	ImageURI     string
	SyncedAt     time.Time
}

type service struct {
	repo *Repository
}

// NewService wires the token index service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("nfts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) RecordToken(ctx context.Context, input RecordTokenInput) error {
	if input.TokenID < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "token id cannot be negative")
	}
	if input.OwnerAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner address is required")
	}

	syncedAt := input.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	record := &models.TokenRecord{
		TokenID:      input.TokenID,
		NFTContract:  strings.ToLower(input.NFTContract),
		OwnerAddress: strings.ToLower(input.OwnerAddress),
		Name:         input.Name,
		ImageURI:     input.ImageURI,
		LastSyncedAt: syncedAt,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "upserting token record")
	}
	return nil
}

func (s *service) ListTokens(ctx context.Context, page pagination.Params) (*TokenListResult, error) {
	page = pagination.Normalize(page)

	records, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing token records")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting token records")
	}

	tokens := make([]TokenDTO, 0, len(records))
	for _, record := range records {
		tokens = append(tokens, toTokenDTO(record))
	}
	return &TokenListResult{
		Tokens: tokens,
		Total:  total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}, nil
}

func (s *service) CountTokens(ctx context.Context) (int64, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting token records")
	}
	return total, nil
}
