package seaport

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

// ParseOperatorKey decodes a hex-encoded operator private key. An empty value
// is allowed and yields a read-only client.
func ParseOperatorKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(strings.TrimPrefix(hexKey, "0x"))
	if hexKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding operator key: %w", err)
	}
	return key, nil
}

// Backend is the slice of an RPC client the protocol client needs, covering
// both view calls and operator transactions.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

const (
	receiptPollInterval = 2 * time.Second
	receiptWaitTimeout  = 2 * time.Minute
)

// Dialer builds a backend for one endpoint.
type Dialer func(ctx context.Context, endpoint string) (Backend, error)

// EthDialer returns a Dialer backed by go-ethereum's RPC client.
func EthDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, endpoint string) (Backend, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
		return client, nil
	}
}

// OrderStatus is the protocol's on-chain view of one order.
type OrderStatus struct {
	Validated   bool
	Cancelled   bool
	TotalFilled *big.Int
	TotalSize   *big.Int
}

// FullyFilled reports whether the order settled in full.
func (s OrderStatus) FullyFilled() bool {
	if s.TotalFilled == nil || s.TotalSize == nil {
		return false
	}
	return s.TotalSize.Sign() > 0 && s.TotalFilled.Cmp(s.TotalSize) == 0
}

// CreateOrderInput describes the listing an operator order is built from.
type CreateOrderInput struct {
	Offerer  string
	TokenID  int64
	PriceWei *big.Int
	StartAt  time.Time
	EndAt    time.Time
}

// ClientParams configure the protocol client.
type ClientParams struct {
	Logger      *logger.Logger
	Pool        *chain.EndpointPool
	Dial        Dialer
	ChainID     int64
	Marketplace common.Address
	NFTContract common.Address
	OperatorKey *ecdsa.PrivateKey
}

// Client signs, submits, and inspects marketplace orders. View calls and
// transactions rotate through the endpoint pool the same way chain reads do.
// The operator key is optional: without it only the read surface works.
type Client struct {
	logg        *logger.Logger
	pool        *chain.EndpointPool
	dial        Dialer
	chainID     *big.Int
	marketplace common.Address
	nftContract common.Address
	operatorKey *ecdsa.PrivateKey
	abi         abi.ABI
	approvalABI abi.ABI
}

// NewClient builds a protocol client bound to one marketplace deployment.
func NewClient(params ClientParams) (*Client, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pool == nil {
		return nil, fmt.Errorf("endpoint pool required")
	}
	if params.Dial == nil {
		return nil, fmt.Errorf("dialer required")
	}
	if params.Marketplace == (common.Address{}) {
		return nil, fmt.Errorf("marketplace contract address required")
	}
	if params.NFTContract == (common.Address{}) {
		return nil, fmt.Errorf("token contract address required")
	}
	parsed, err := parseMarketplaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse marketplace abi: %w", err)
	}
	approval, err := parseApprovalABI()
	if err != nil {
		return nil, fmt.Errorf("parse approval abi: %w", err)
	}
	return &Client{
		logg:        params.Logger,
		pool:        params.Pool,
		dial:        params.Dial,
		chainID:     big.NewInt(params.ChainID),
		marketplace: params.Marketplace,
		nftContract: params.NFTContract,
		operatorKey: params.OperatorKey,
		abi:         parsed,
		approvalABI: approval,
	}, nil
}

// OperatorAddress returns the address derived from the operator key.
func (c *Client) OperatorAddress() (common.Address, error) {
	if c.operatorKey == nil {
		return common.Address{}, fmt.Errorf("operator key not configured")
	}
	return crypto.PubkeyToAddress(c.operatorKey.PublicKey), nil
}

// EnsureApproval grants the marketplace transfer rights over the operator's
// tokens if it does not hold them already.
func (c *Client) EnsureApproval(ctx context.Context) error {
	operator, err := c.OperatorAddress()
	if err != nil {
		return err
	}

	return c.withBackend(ctx, func(ctx context.Context, backend Backend) error {
		data, err := c.approvalABI.Pack("isApprovedForAll", operator, c.marketplace)
		if err != nil {
			return err
		}
		out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &c.nftContract, Data: data}, nil)
		if err != nil {
			return err
		}
		values, err := c.approvalABI.Unpack("isApprovedForAll", out)
		if err != nil {
			return err
		}
		if values[0].(bool) {
			return nil
		}

		calldata, err := c.approvalABI.Pack("setApprovalForAll", c.marketplace, true)
		if err != nil {
			return err
		}
		txHash, err := c.sendTransaction(ctx, backend, c.nftContract, calldata, nil)
		if err != nil {
			return fmt.Errorf("set approval: %w", err)
		}
		c.logg.Info(c.logg.WithField(ctx, "tx_hash", txHash), "marketplace approval granted")
		return nil
	})
}

// CreateOrder builds, hashes, and signs a fixed-price listing with the
// operator key. The returned payload is the exact document stored and later
// replayed by fulfillment.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (SignedOrder, error) {
	if c.operatorKey == nil {
		return SignedOrder{}, fmt.Errorf("operator key not configured")
	}
	if input.PriceWei == nil || input.PriceWei.Sign() <= 0 {
		return SignedOrder{}, fmt.Errorf("price must be positive")
	}

	salt, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return SignedOrder{}, fmt.Errorf("generate salt: %w", err)
	}

	params := Parameters{
		Offerer: strings.ToLower(input.Offerer),
		Zone:    (common.Address{}).Hex(),
		Offer: []Item{{
			ItemType:             ItemTypeERC721,
			Token:                strings.ToLower(c.nftContract.Hex()),
			IdentifierOrCriteria: fmt.Sprintf("%d", input.TokenID),
			StartAmount:          "1",
			EndAmount:            "1",
		}},
		Consideration: []Item{{
			ItemType:             ItemTypeNative,
			Token:                (common.Address{}).Hex(),
			IdentifierOrCriteria: "0",
			StartAmount:          input.PriceWei.String(),
			EndAmount:            input.PriceWei.String(),
			Recipient:            strings.ToLower(input.Offerer),
		}},
		OrderType:                       OrderTypeFullOpen,
		StartTime:                       fmt.Sprintf("%d", input.StartAt.Unix()),
		EndTime:                         fmt.Sprintf("%d", input.EndAt.Unix()),
		ZoneHash:                        hexutil.Encode(make([]byte, 32)),
		Salt:                            hexutil.EncodeBig(salt),
		ConduitKey:                      hexutil.Encode(make([]byte, 32)),
		TotalOriginalConsiderationItems: 1,
	}

	var signed SignedOrder
	err = c.withBackend(ctx, func(ctx context.Context, backend Backend) error {
		counter, err := c.getCounter(ctx, backend, common.HexToAddress(input.Offerer))
		if err != nil {
			return err
		}
		params.Counter = counter.String()

		components, err := params.toComponents()
		if err != nil {
			return err
		}
		orderHash, err := c.getOrderHash(ctx, backend, components)
		if err != nil {
			return err
		}
		separator, err := c.domainSeparator(ctx, backend)
		if err != nil {
			return err
		}

		digest := crypto.Keccak256Hash([]byte{0x19, 0x01}, separator[:], orderHash[:])
		signature, err := crypto.Sign(digest.Bytes(), c.operatorKey)
		if err != nil {
			return fmt.Errorf("sign order digest: %w", err)
		}
		signature[64] += 27

		order := Order{Parameters: params, Signature: hexutil.Encode(signature)}
		payload, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("encode signed order: %w", err)
		}
		signed = SignedOrder{
			Hash:    hexutil.Encode(orderHash[:]),
			Payload: payload,
		}
		return nil
	})
	if err != nil {
		return SignedOrder{}, err
	}
	return signed, nil
}

// FulfillOrder replays a stored signed payload on chain, attaching the native
// consideration as transaction value, and waits for the settlement receipt.
// A transaction that mines but reverts is an error, not a fulfillment.
func (c *Client) FulfillOrder(ctx context.Context, payload []byte) (string, error) {
	if c.operatorKey == nil {
		return "", fmt.Errorf("operator key not configured")
	}

	order, err := DecodeOrder(payload)
	if err != nil {
		return "", err
	}
	parameters, err := order.Parameters.toParameters()
	if err != nil {
		return "", err
	}
	signature, err := hexutil.Decode(order.Signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	value, err := order.Parameters.totalConsiderationWei()
	if err != nil {
		return "", err
	}

	calldata, err := c.abi.Pack("fulfillOrder",
		abiOrder{Parameters: parameters, Signature: signature},
		[32]byte{},
	)
	if err != nil {
		return "", fmt.Errorf("pack fulfillOrder: %w", err)
	}

	var txHash string
	err = c.withBackend(ctx, func(ctx context.Context, backend Backend) error {
		hash, err := c.sendTransaction(ctx, backend, c.marketplace, calldata, value)
		if err != nil {
			return err
		}
		txHash = hash
		return nil
	})
	if err != nil {
		return "", err
	}

	receipt, err := c.waitForReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("fulfillment transaction %s reverted", txHash)
	}
	return txHash, nil
}

// waitForReceipt polls for the transaction receipt until it appears or the
// wait deadline passes. Each poll attempt rotates endpoints like any other
// view call; a pending transaction just keeps us polling.
func (c *Client) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := c.withBackend(ctx, func(ctx context.Context, backend Backend) error {
			found, err := backend.TransactionReceipt(ctx, txHash)
			if err != nil {
				return err
			}
			receipt = found
			return nil
		})
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetOrderStatus reads the protocol's settlement state for one order hash.
func (c *Client) GetOrderStatus(ctx context.Context, orderHash string) (OrderStatus, error) {
	hash, err := parseHash(orderHash, "orderHash")
	if err != nil {
		return OrderStatus{}, err
	}

	var status OrderStatus
	err = c.withBackend(ctx, func(ctx context.Context, backend Backend) error {
		data, err := c.abi.Pack("getOrderStatus", hash)
		if err != nil {
			return err
		}
		out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &c.marketplace, Data: data}, nil)
		if err != nil {
			return err
		}
		values, err := c.abi.Unpack("getOrderStatus", out)
		if err != nil {
			return err
		}
		status = OrderStatus{
			Validated:   values[0].(bool),
			Cancelled:   values[1].(bool),
			TotalFilled: values[2].(*big.Int),
			TotalSize:   values[3].(*big.Int),
		}
		return nil
	})
	if err != nil {
		return OrderStatus{}, err
	}
	return status, nil
}

func (c *Client) getCounter(ctx context.Context, backend Backend, offerer common.Address) (*big.Int, error) {
	data, err := c.abi.Pack("getCounter", offerer)
	if err != nil {
		return nil, err
	}
	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &c.marketplace, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	values, err := c.abi.Unpack("getCounter", out)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

func (c *Client) getOrderHash(ctx context.Context, backend Backend, components abiOrderComponents) ([32]byte, error) {
	data, err := c.abi.Pack("getOrderHash", components)
	if err != nil {
		return [32]byte{}, err
	}
	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &c.marketplace, Data: data}, nil)
	if err != nil {
		return [32]byte{}, err
	}
	values, err := c.abi.Unpack("getOrderHash", out)
	if err != nil {
		return [32]byte{}, err
	}
	return values[0].([32]byte), nil
}

func (c *Client) domainSeparator(ctx context.Context, backend Backend) ([32]byte, error) {
	data, err := c.abi.Pack("information")
	if err != nil {
		return [32]byte{}, err
	}
	out, err := backend.CallContract(ctx, ethereum.CallMsg{To: &c.marketplace, Data: data}, nil)
	if err != nil {
		return [32]byte{}, err
	}
	values, err := c.abi.Unpack("information", out)
	if err != nil {
		return [32]byte{}, err
	}
	return values[1].([32]byte), nil
}

func (c *Client) sendTransaction(ctx context.Context, backend Backend, to common.Address, calldata []byte, value *big.Int) (string, error) {
	operator, err := c.OperatorAddress()
	if err != nil {
		return "", err
	}

	nonce, err := backend.PendingNonceAt(ctx, operator)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  operator,
		To:    &to,
		Value: value,
		Data:  calldata,
	})
	if err != nil {
		return "", fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.operatorKey)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// withBackend mirrors the chain reader's failover: one attempt per pooled
// endpoint with a fresh backend each time.
func (c *Client) withBackend(ctx context.Context, fn func(ctx context.Context, backend Backend) error) error {
	attempts := c.pool.Size()
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		endpoint := c.pool.Next()
		backend, err := c.dial(ctx, endpoint)
		if err != nil {
			last = err
			logCtx := c.logg.WithFields(ctx, map[string]any{"endpoint": endpoint, "attempt": attempt + 1})
			c.logg.Warn(logCtx, "rpc dial failed, rotating endpoint")
			continue
		}
		err = fn(ctx, backend)
		backend.Close()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last = err
		logCtx := c.logg.WithFields(ctx, map[string]any{"endpoint": endpoint, "attempt": attempt + 1})
		c.logg.Warn(logCtx, "rpc call failed, rotating endpoint")
	}
	return &chain.AllEndpointsFailedError{Attempts: attempts, Last: last}
}
