package orders

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/apebear-labs/bearmarket-backend/internal/seaport"
)

// OwnershipChecker answers who owns a token right now, straight from the
// ledger rather than the index.
type OwnershipChecker interface {
	OwnerOf(ctx context.Context, tokenID int64) (common.Address, error)
}

// Protocol is the marketplace surface the lifecycle manager drives.
type Protocol interface {
	EnsureApproval(ctx context.Context) error
	CreateOrder(ctx context.Context, input seaport.CreateOrderInput) (seaport.SignedOrder, error)
	FulfillOrder(ctx context.Context, payload []byte) (string, error)
}

// StatusChecker reads on-chain settlement state, used by the sweep.
type StatusChecker interface {
	GetOrderStatus(ctx context.Context, orderHash string) (seaport.OrderStatus, error)
}
