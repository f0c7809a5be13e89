package models

import "time"

// TokenRecord mirrors one token of the collection into the metadata table.
// Rows are only ever written by the sync driver, keyed on token_id, so a
// record may carry a stale owner between passes.
type TokenRecord struct {
	TokenID         int64     `gorm:"column:token_id;primaryKey;autoIncrement:false" json:"tokenId"`
	NFTContract     string    `gorm:"column:nft_contract;not null" json:"nftContract"`
	OwnerAddress    string    `gorm:"column:owner_address;not null" json:"ownerAddress"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	ImageURI        string    `gorm:"column:image_uri;not null;default:''" json:"imageUri"`
	LastSyncedAt    time.Time `gorm:"column:last_synced_at;not null" json:"lastSyncedAt"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName keeps the legacy table name the storefront reads.
func (TokenRecord) TableName() string { return "metadata" }
