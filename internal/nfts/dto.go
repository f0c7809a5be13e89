package nfts

import (
	"time"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
)

// TokenDTO is the collection browse payload returned to clients.
type TokenDTO struct {
	TokenID      int64     `json:"tokenId"`
	NFTContract  string    `json:"nftContract"`
	OwnerAddress string    `json:"ownerAddress"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

// TokenListResult wraps a page of tokens with the collection total.
type TokenListResult struct {
	Tokens []TokenDTO `json:"nfts"`
	Total  int64      `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

func toTokenDTO(record models.TokenRecord) TokenDTO {
	return TokenDTO{
		TokenID:      record.TokenID,
		NFTContract:  record.NFTContract,
		OwnerAddress: record.OwnerAddress,
		Name:         record.Name,
		Image:        record.ImageURI,
		LastSyncedAt: record.LastSyncedAt,
	}
}
