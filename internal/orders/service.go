package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apebear-labs/bearmarket-backend/internal/seaport"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	pkgerrors "github.com/apebear-labs/bearmarket-backend/pkg/errors"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

// Service exposes the marketplace order lifecycle: operator-signed listing
// creation, storefront-submitted signed orders, the feed, and fulfillment.
type Service interface {
	CreateListing(ctx context.Context, input CreateListingInput) (*OrderDTO, error)
	SaveSignedOrder(ctx context.Context, input SaveSignedOrderInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, limit int) (*OrderListResult, error)
	GetOrder(ctx context.Context, orderHash string) (*OrderDTO, error)
	Fulfill(ctx context.Context, orderHash string, buyerAddress string) (*FulfillmentDTO, error)
	RecordFulfillment(ctx context.Context, orderHash string, buyerAddress *string) error
	RecordCancellation(ctx context.Context, orderHash string) error
}

// CreateListingInput describes an operator-driven listing request.
type CreateListingInput struct {
	SellerAddress string
	TokenID       int64
	PriceWei      decimal.Decimal
}

// SaveSignedOrderInput carries a storefront-signed order to persist verbatim.
type SaveSignedOrderInput struct {
	OrderHash     string
	TokenID       *int64
	PriceWei      *decimal.Decimal
	SellerAddress string
	SignedOrder   json.RawMessage
	ImageURI      *string
}

// ServiceParams wires the lifecycle manager's collaborators.
type ServiceParams struct {
	Logger    *logger.Logger
	Repo      *Repository
	Ownership OwnershipChecker
	Protocol  Protocol
	Config    config.OrdersConfig
	Chain     config.ChainConfig
	Now       func() time.Time
}

type service struct {
	logg      *logger.Logger
	repo      *Repository
	ownership OwnershipChecker
	protocol  Protocol
	cfg       config.OrdersConfig
	chainCfg  config.ChainConfig
	now       func() time.Time
}

// NewService wires the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ownership == nil {
		return nil, fmt.Errorf("ownership checker required")
	}
	if params.Protocol == nil {
		return nil, fmt.Errorf("protocol client required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		logg:      params.Logger,
		repo:      params.Repo,
		ownership: params.Ownership,
		protocol:  params.Protocol,
		cfg:       params.Config,
		chainCfg:  params.Chain,
		now:       now,
	}, nil
}

func (s *service) CreateListing(ctx context.Context, input CreateListingInput) (*OrderDTO, error) {
	seller := strings.ToLower(strings.TrimSpace(input.SellerAddress))
	if seller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sellerAddress is required")
	}
	if input.PriceWei.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}

	owner, err := s.ownership.OwnerOf(ctx, input.TokenID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading token owner")
	}
	if strings.ToLower(owner.Hex()) != seller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller does not own this token")
	}

	if err := s.protocol.EnsureApproval(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensuring marketplace approval")
	}

	priceWei, ok := new(big.Int).SetString(input.PriceWei.String(), 10)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be an integer wei amount")
	}

	startAt := s.now()
	signed, err := s.protocol.CreateOrder(ctx, seaport.CreateOrderInput{
		Offerer:  seller,
		TokenID:  input.TokenID,
		PriceWei: priceWei,
		StartAt:  startAt,
		EndAt:    startAt.Add(s.listingTTL()),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating signed order")
	}

	tokenID := input.TokenID
	record := &models.OrderRecord{
		OrderHash:           strings.ToLower(signed.Hash),
		TokenID:             &tokenID,
		PriceWei:            decimal.NewNullDecimal(input.PriceWei),
		NFTContract:         strings.ToLower(s.chainCfg.NFTContract),
		MarketplaceContract: strings.ToLower(s.chainCfg.SeaportContract),
		SellerAddress:       seller,
		SignedOrder:         signed.Payload,
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting listing")
	}

	stored, err := s.repo.FindByHash(ctx, record.OrderHash)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*stored)
	return &dto, nil
}

func (s *service) SaveSignedOrder(ctx context.Context, input SaveSignedOrderInput) (*OrderDTO, error) {
	orderHash := strings.ToLower(strings.TrimSpace(input.OrderHash))
	seller := strings.ToLower(strings.TrimSpace(input.SellerAddress))

	if orderHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderHash is required")
	}
	if seller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sellerAddress is required")
	}
	if len(input.SignedOrder) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seaportOrder is required")
	}
	if _, err := seaport.DecodeOrder(input.SignedOrder); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "seaportOrder is not a valid signed order")
	}

	record := &models.OrderRecord{
		OrderHash:           orderHash,
		TokenID:             input.TokenID,
		NFTContract:         strings.ToLower(s.chainCfg.NFTContract),
		MarketplaceContract: strings.ToLower(s.chainCfg.SeaportContract),
		SellerAddress:       seller,
		SignedOrder:         input.SignedOrder,
		ImageURI:            input.ImageURI,
	}
	if input.PriceWei != nil {
		record.PriceWei = decimal.NewNullDecimal(*input.PriceWei)
	}
	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting signed order")
	}

	stored, err := s.repo.FindByHash(ctx, orderHash)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*stored)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, limit int) (*OrderListResult, error) {
	limit = pagination.NormalizeLimitMax(limit, s.feedLimit(), s.cfg.FeedLimitMax)

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	dtos := make([]OrderDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, toOrderDTO(record))
	}
	return &OrderListResult{Orders: dtos, Limit: limit}, nil
}

func (s *service) GetOrder(ctx context.Context, orderHash string) (*OrderDTO, error) {
	record, err := s.repo.FindByHash(ctx, strings.ToLower(strings.TrimSpace(orderHash)))
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*record)
	return &dto, nil
}

func (s *service) Fulfill(ctx context.Context, orderHash string, buyerAddress string) (*FulfillmentDTO, error) {
	orderHash = strings.ToLower(strings.TrimSpace(orderHash))
	if orderHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderHash is required")
	}

	record, err := s.repo.FindByHash(ctx, orderHash)
	if err != nil {
		return nil, err
	}
	if !record.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not active")
	}
	if len(record.SignedOrder) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no signed payload to replay")
	}

	txHash, err := s.protocol.FulfillOrder(ctx, record.SignedOrder)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submitting fulfillment")
	}

	var buyer *string
	if trimmed := strings.ToLower(strings.TrimSpace(buyerAddress)); trimmed != "" {
		buyer = &trimmed
	}
	if err := s.repo.TransitionToFulfilled(ctx, orderHash, buyer); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderHash(ctx, orderHash)
	s.logg.Info(s.logg.WithField(logCtx, "tx_hash", txHash), "order fulfillment settled")

	return &FulfillmentDTO{
		OrderHash: orderHash,
		TxHash:    txHash,
		Status:    "fulfilled",
	}, nil
}

func (s *service) RecordFulfillment(ctx context.Context, orderHash string, buyerAddress *string) error {
	return s.repo.TransitionToFulfilled(ctx, strings.ToLower(orderHash), buyerAddress)
}

func (s *service) RecordCancellation(ctx context.Context, orderHash string) error {
	return s.repo.TransitionToCancelled(ctx, strings.ToLower(orderHash))
}

func (s *service) listingTTL() time.Duration {
	if s.cfg.ListingTTL > 0 {
		return s.cfg.ListingTTL
	}
	return 30 * 24 * time.Hour
}

func (s *service) feedLimit() int {
	if s.cfg.FeedLimit > 0 {
		return s.cfg.FeedLimit
	}
	return 500
}
