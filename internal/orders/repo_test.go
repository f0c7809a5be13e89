package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apebear-labs/bearmarket-backend/pkg/db/models"
	"github.com/apebear-labs/bearmarket-backend/pkg/enums"
	pkgerrors "github.com/apebear-labs/bearmarket-backend/pkg/errors"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

func testOrder(hash string) *models.OrderRecord {
	tokenID := int64(7)
	return &models.OrderRecord{
		OrderHash:           hash,
		TokenID:             &tokenID,
		PriceWei:            decimal.NewNullDecimal(decimal.RequireFromString("1000000000000000000")),
		NFTContract:         "0xaaa",
		MarketplaceContract: "0xbbb",
		SellerAddress:       "0x111",
		SignedOrder:         []byte(`{"parameters":{},"signature":"0x"}`),
		Status:              enums.OrderStatusActive,
	}
}

func TestUpsertKeyedOnOrderHash(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))

	updated := testOrder("0xhash1")
	updated.PriceWei = decimal.NewNullDecimal(decimal.RequireFromString("2000000000000000000"))
	require.NoError(t, repo.Upsert(ctx, updated))

	var count int64
	require.NoError(t, db.Model(&models.OrderRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := repo.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", got.PriceWei.Decimal.String())
}

func TestUpsertNeverRegressesFulfilledStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))

	buyer := "0x222"
	require.NoError(t, repo.TransitionToFulfilled(ctx, "0xhash1", &buyer))

	// A storefront retry of the original save must not resurrect the
	// sold listing into the active feed.
	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))

	got, err := repo.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFulfilled, got.Status)
	assert.True(t, got.OnChain)
	require.NotNil(t, got.BuyerAddress)
	assert.Equal(t, "0x222", *got.BuyerAddress)
}

func TestUpsertNeverRegressesCancelledStatus(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))
	require.NoError(t, repo.TransitionToCancelled(ctx, "0xhash1"))

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))

	got, err := repo.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
}

func TestFindByHashNotFound(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByHash(context.Background(), "0xmissing")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestTransitionToFulfilledIsIdempotent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))

	buyer := "0x222"
	require.NoError(t, repo.TransitionToFulfilled(ctx, "0xhash1", &buyer))

	// Replaying the settlement is a no-op, not an error.
	require.NoError(t, repo.TransitionToFulfilled(ctx, "0xhash1", &buyer))

	got, err := repo.FindByHash(ctx, "0xhash1")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusFulfilled, got.Status)
	assert.True(t, got.OnChain)
	require.NotNil(t, got.BuyerAddress)
	assert.Equal(t, "0x222", *got.BuyerAddress)
}

func TestTransitionToFulfilledUnknownHash(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	err := repo.TransitionToFulfilled(context.Background(), "0xmissing", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestTransitionToFulfilledRejectsCancelledOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))
	require.NoError(t, repo.TransitionToCancelled(ctx, "0xhash1"))

	err := repo.TransitionToFulfilled(ctx, "0xhash1", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestListRecentReturnsOnlyActive(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash1")))
	require.NoError(t, repo.Upsert(ctx, testOrder("0xhash2")))
	require.NoError(t, repo.TransitionToCancelled(ctx, "0xhash2"))

	records, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xhash1", records[0].OrderHash)
}

func TestListActivePage(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, hash := range []string{"0xhash1", "0xhash2", "0xhash3"} {
		require.NoError(t, repo.Upsert(ctx, testOrder(hash)))
	}

	page, err := repo.ListActivePage(ctx, pagination.Params{Offset: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
