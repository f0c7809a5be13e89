package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
)

// OrderDTO is the marketplace listing payload returned to clients. PriceWei
// travels as a string so 78-digit values survive JSON number precision.
type OrderDTO struct {
	ID                  uuid.UUID       `json:"id"`
	OrderHash           string          `json:"orderHash"`
	TokenID             *int64          `json:"tokenId"`
	PriceWei            *string         `json:"priceWei"`
	PriceDisplay        *string         `json:"priceDisplay,omitempty"`
	NFTContract         string          `json:"nftContract"`
	MarketplaceContract string          `json:"marketplaceContract"`
	SellerAddress       string          `json:"sellerAddress"`
	BuyerAddress        *string         `json:"buyerAddress,omitempty"`
	SignedOrder         json.RawMessage `json:"signedOrder,omitempty"`
	Image               *string         `json:"image,omitempty"`
	OnChain             bool            `json:"onChain"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// OrderListResult wraps the storefront feed.
type OrderListResult struct {
	Orders []OrderDTO `json:"orders"`
	Limit  int        `json:"limit"`
}

// FulfillmentDTO reports a settlement submission.
type FulfillmentDTO struct {
	OrderHash string `json:"orderHash"`
	TxHash    string `json:"txHash"`
	Status    string `json:"status"`
}

func toOrderDTO(record models.OrderRecord) OrderDTO {
	dto := OrderDTO{
		ID:                  record.ID,
		OrderHash:           record.OrderHash,
		TokenID:             record.TokenID,
		NFTContract:         record.NFTContract,
		MarketplaceContract: record.MarketplaceContract,
		SellerAddress:       record.SellerAddress,
		BuyerAddress:        record.BuyerAddress,
		SignedOrder:         record.SignedOrder,
		Image:               record.ImageURI,
		OnChain:             record.OnChain,
		Status:              record.Status.String(),
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
	if record.PriceWei.Valid {
		wei := record.PriceWei.Decimal.String()
		dto.PriceWei = &wei
		display := record.PriceWei.Decimal.Shift(-18).String()
		dto.PriceDisplay = &display
	}
	return dto
}
