package seaport

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

var (
	testMarketplace = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	testNFT         = common.HexToAddress("0x00000000000000000000000000000000000000f2")
)

type fakeBackend struct {
	statusFilled    *big.Int
	statusSize      *big.Int
	statusCancelled bool
	revert          bool
	sent            []*types.Transaction
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := parseMarketplaceABI()
	if err != nil {
		return nil, err
	}
	status := parsed.Methods["getOrderStatus"]
	if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(status.ID) {
		return status.Outputs.Pack(true, f.statusCancelled, f.statusFilled, f.statusSize)
	}
	counter := parsed.Methods["getCounter"]
	if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(counter.ID) {
		return counter.Outputs.Pack(big.NewInt(0))
	}
	hash := parsed.Methods["getOrderHash"]
	if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(hash.ID) {
		return hash.Outputs.Pack([32]byte{0xab})
	}
	info := parsed.Methods["information"]
	if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(info.ID) {
		return info.Outputs.Pack("1.5", [32]byte{0xcd}, common.Address{})
	}
	approval, err := parseApprovalABI()
	if err != nil {
		return nil, err
	}
	isApproved := approval.Methods["isApprovedForAll"]
	if len(msg.Data) >= 4 && string(msg.Data[:4]) == string(isApproved.ID) {
		return isApproved.Outputs.Pack(true)
	}
	return nil, nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 1, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 200_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if f.revert {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: txHash}, nil
}

func (f *fakeBackend) Close() {}

func newTestClient(t *testing.T, backend Backend) *Client {
	t.Helper()
	pool, err := chain.NewEndpointPool([]string{"fake"})
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	client, err := NewClient(ClientParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Pool:        pool,
		ChainID:     33139,
		Marketplace: testMarketplace,
		NFTContract: testNFT,
		OperatorKey: key,
		Dial: func(context.Context, string) (Backend, error) {
			return backend, nil
		},
	})
	require.NoError(t, err)
	return client
}

func TestGetOrderStatusFullyFilled(t *testing.T) {
	backend := &fakeBackend{statusFilled: big.NewInt(1), statusSize: big.NewInt(1)}
	client := newTestClient(t, backend)

	status, err := client.GetOrderStatus(context.Background(),
		"0xab00000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.True(t, status.FullyFilled())
	assert.False(t, status.Cancelled)
}

func TestGetOrderStatusUnfilled(t *testing.T) {
	backend := &fakeBackend{statusFilled: big.NewInt(0), statusSize: big.NewInt(0)}
	client := newTestClient(t, backend)

	status, err := client.GetOrderStatus(context.Background(),
		"0xab00000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, status.FullyFilled())
}

func TestCreateOrderSignsAndEncodesPayload(t *testing.T) {
	backend := &fakeBackend{statusFilled: big.NewInt(0), statusSize: big.NewInt(0)}
	client := newTestClient(t, backend)

	operator, err := client.OperatorAddress()
	require.NoError(t, err)

	signed, err := client.CreateOrder(context.Background(), CreateOrderInput{
		Offerer:  operator.Hex(),
		TokenID:  7,
		PriceWei: big.NewInt(1_000_000),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Hash)

	order, err := DecodeOrder(signed.Payload)
	require.NoError(t, err)
	assert.Equal(t, "7", order.Parameters.Offer[0].IdentifierOrCriteria)
	assert.Equal(t, "1000000", order.Parameters.Consideration[0].StartAmount)
	assert.NotEmpty(t, order.Signature)
}

func TestCreateOrderRejectsNonPositivePrice(t *testing.T) {
	client := newTestClient(t, &fakeBackend{})

	_, err := client.CreateOrder(context.Background(), CreateOrderInput{
		Offerer:  "0x1111111111111111111111111111111111111111",
		TokenID:  7,
		PriceWei: big.NewInt(0),
	})
	assert.Error(t, err)
}

func TestFulfillOrderSendsValueBearingTransaction(t *testing.T) {
	backend := &fakeBackend{statusFilled: big.NewInt(0), statusSize: big.NewInt(0)}
	client := newTestClient(t, backend)

	operator, err := client.OperatorAddress()
	require.NoError(t, err)

	signed, err := client.CreateOrder(context.Background(), CreateOrderInput{
		Offerer:  operator.Hex(),
		TokenID:  7,
		PriceWei: big.NewInt(1_000_000),
	})
	require.NoError(t, err)

	txHash, err := client.FulfillOrder(context.Background(), signed.Payload)
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	require.Len(t, backend.sent, 1)
	assert.Equal(t, big.NewInt(1_000_000), backend.sent[0].Value())
	assert.Equal(t, testMarketplace, *backend.sent[0].To())
}

func TestFulfillOrderRejectsRevertedTransaction(t *testing.T) {
	backend := &fakeBackend{statusFilled: big.NewInt(0), statusSize: big.NewInt(0), revert: true}
	client := newTestClient(t, backend)

	operator, err := client.OperatorAddress()
	require.NoError(t, err)

	signed, err := client.CreateOrder(context.Background(), CreateOrderInput{
		Offerer:  operator.Hex(),
		TokenID:  7,
		PriceWei: big.NewInt(1_000_000),
	})
	require.NoError(t, err)

	_, err = client.FulfillOrder(context.Background(), signed.Payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
}
