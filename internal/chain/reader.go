package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

// Caller is the slice of an RPC client the reader needs. A fresh caller is
// dialed per attempt so a failed endpoint leaves no binding state behind.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Dialer builds a caller for one endpoint.
type Dialer func(ctx context.Context, endpoint string) (Caller, error)

// EthDialer returns a Dialer backed by go-ethereum's RPC client.
func EthDialer(timeout time.Duration) Dialer {
	return func(ctx context.Context, endpoint string) (Caller, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
		return &ethCaller{client: client}, nil
	}
}

type ethCaller struct {
	client *ethclient.Client
}

func (c *ethCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.client.CallContract(ctx, msg, blockNumber)
}

func (c *ethCaller) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.client.FilterLogs(ctx, q)
}

func (c *ethCaller) BlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

func (c *ethCaller) Close() {
	c.client.Close()
}

// TokenState is one logical read of a token: current owner plus metadata URI.
type TokenState struct {
	Owner    common.Address
	TokenURI string
}

// ReaderParams configure the chain reader.
type ReaderParams struct {
	Logger   *logger.Logger
	Pool     *EndpointPool
	Contract common.Address
	Dial     Dialer
}

// Reader is a typed, read-only view over the token contract. Every logical
// read rotates through the endpoint pool on failure, dialing a fresh client
// per attempt, up to one attempt per endpoint.
type Reader struct {
	logg     *logger.Logger
	pool     *EndpointPool
	contract common.Address
	dial     Dialer
	abi      abi.ABI
}

// NewReader builds a reader bound to one token contract.
func NewReader(params ReaderParams) (*Reader, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pool == nil {
		return nil, fmt.Errorf("endpoint pool required")
	}
	if params.Dial == nil {
		return nil, fmt.Errorf("dialer required")
	}
	if params.Contract == (common.Address{}) {
		return nil, fmt.Errorf("token contract address required")
	}
	parsed, err := parseERC721ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc721 abi: %w", err)
	}
	return &Reader{
		logg:     params.Logger,
		pool:     params.Pool,
		contract: params.Contract,
		dial:     params.Dial,
		abi:      parsed,
	}, nil
}

// Read returns the owner and token URI for one token, or ErrTokenNotMinted
// when the ledger reports the id does not exist.
func (r *Reader) Read(ctx context.Context, tokenID int64) (TokenState, error) {
	var state TokenState
	err := r.withFailover(ctx, func(ctx context.Context, caller Caller) error {
		owner, err := r.ownerOf(ctx, caller, tokenID)
		if err != nil {
			return err
		}
		uri, err := r.tokenURI(ctx, caller, tokenID)
		if err != nil {
			return err
		}
		state = TokenState{Owner: owner, TokenURI: uri}
		return nil
	})
	return state, err
}

// OwnerOf returns the current owner of one token.
func (r *Reader) OwnerOf(ctx context.Context, tokenID int64) (common.Address, error) {
	var owner common.Address
	err := r.withFailover(ctx, func(ctx context.Context, caller Caller) error {
		got, err := r.ownerOf(ctx, caller, tokenID)
		if err != nil {
			return err
		}
		owner = got
		return nil
	})
	return owner, err
}

// TotalSupply returns the minted token count.
func (r *Reader) TotalSupply(ctx context.Context) (int64, error) {
	var supply int64
	err := r.withFailover(ctx, func(ctx context.Context, caller Caller) error {
		data, err := r.abi.Pack("totalSupply")
		if err != nil {
			return err
		}
		out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
		if err != nil {
			return err
		}
		values, err := r.abi.Unpack("totalSupply", out)
		if err != nil {
			return err
		}
		supply = values[0].(*big.Int).Int64()
		return nil
	})
	return supply, err
}

// TransferredTokenIDs returns the deduplicated, ascending token ids seen in
// Transfer events from fromBlock to the chain head.
func (r *Reader) TransferredTokenIDs(ctx context.Context, fromBlock uint64) ([]int64, error) {
	var ids []int64
	err := r.withFailover(ctx, func(ctx context.Context, caller Caller) error {
		head, err := caller.BlockNumber(ctx)
		if err != nil {
			return err
		}
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(head),
			Addresses: []common.Address{r.contract},
			Topics:    [][]common.Hash{{transferTopic}},
		}
		logs, err := caller.FilterLogs(ctx, query)
		if err != nil {
			return err
		}
		seen := map[int64]struct{}{}
		for _, entry := range logs {
			// ERC-20 Transfer shares the signature but carries only
			// three topics; the token id must be indexed.
			if len(entry.Topics) != 4 {
				continue
			}
			raw := new(big.Int).SetBytes(entry.Topics[3].Bytes())
			// Hashed identifier schemes overflow int64; truncating
			// would alias distinct tokens, so skip instead.
			if !raw.IsInt64() {
				r.logg.Warn(r.logg.WithField(ctx, "raw_token_id", raw.String()),
					"skipping transfer with token id beyond int64 range")
				continue
			}
			seen[raw.Int64()] = struct{}{}
		}
		ids = make([]int64, 0, len(seen))
		for id := range seen {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Reader) ownerOf(ctx context.Context, caller Caller, tokenID int64) (common.Address, error) {
	data, err := r.abi.Pack("ownerOf", big.NewInt(tokenID))
	if err != nil {
		return common.Address{}, err
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	values, err := r.abi.Unpack("ownerOf", out)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

func (r *Reader) tokenURI(ctx context.Context, caller Caller, tokenID int64) (string, error) {
	data, err := r.abi.Pack("tokenURI", big.NewInt(tokenID))
	if err != nil {
		return "", err
	}
	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return "", err
	}
	values, err := r.abi.Unpack("tokenURI", out)
	if err != nil {
		return "", err
	}
	return values[0].(string), nil
}

// withFailover runs one logical read, rotating to the next endpoint on any
// transport or contract error, at most one attempt per pooled endpoint. A
// not-minted revert short-circuits: it is an answer, not a failure.
func (r *Reader) withFailover(ctx context.Context, fn func(ctx context.Context, caller Caller) error) error {
	attempts := r.pool.Size()
	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		endpoint := r.pool.Next()
		caller, err := r.dial(ctx, endpoint)
		if err != nil {
			last = err
			logCtx := r.logg.WithFields(ctx, map[string]any{"endpoint": endpoint, "attempt": attempt + 1})
			r.logg.Warn(logCtx, "rpc dial failed, rotating endpoint")
			continue
		}
		err = fn(ctx, caller)
		caller.Close()
		if err == nil {
			return nil
		}
		if isNotMinted(err) {
			return ErrTokenNotMinted
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last = err
		logCtx := r.logg.WithFields(ctx, map[string]any{"endpoint": endpoint, "attempt": attempt + 1})
		r.logg.Warn(logCtx, "rpc call failed, rotating endpoint")
	}
	return &AllEndpointsFailedError{Attempts: attempts, Last: last}
}
