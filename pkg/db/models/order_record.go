package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apebear-labs/bearmarket-backend/pkg/enums"
)

// OrderRecord is one marketplace listing keyed by its protocol order hash.
// The signed payload is stored verbatim as text; jsonb would re-order keys
// and break the byte-for-byte round trip the fulfillment path relies on.
type OrderRecord struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderHash           string              `gorm:"column:order_hash;uniqueIndex;not null" json:"orderHash"`
	TokenID             *int64              `gorm:"column:token_id" json:"tokenId"`
	PriceWei            decimal.NullDecimal `gorm:"column:price_wei;type:numeric(78,0)" json:"priceWei"`
	NFTContract         string              `gorm:"column:nft_contract;not null" json:"nftContract"`
	MarketplaceContract string              `gorm:"column:marketplace_contract;not null" json:"marketplaceContract"`
	SellerAddress       string              `gorm:"column:seller_address;not null" json:"sellerAddress"`
	BuyerAddress        *string             `gorm:"column:buyer_address" json:"buyerAddress"`
	SignedOrder         json.RawMessage     `gorm:"column:signed_order;type:text" json:"signedOrder"`
	ImageURI            *string             `gorm:"column:image_uri" json:"imageUri"`
	OnChain             bool                `gorm:"column:on_chain;not null;default:false" json:"onChain"`
	Status              enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'active'" json:"status"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the legacy table name the storefront reads.
func (OrderRecord) TableName() string { return "orders" }
