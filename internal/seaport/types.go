package seaport

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Item types used by the marketplace protocol.
const (
	ItemTypeNative = 0
	ItemTypeERC721 = 2
)

// OrderTypeFullOpen is an unrestricted, non-partial order.
const OrderTypeFullOpen = 0

// Item is one offer or consideration entry in wire form. Amounts and the
// identifier travel as decimal strings the way storefront clients emit them.
type Item struct {
	ItemType             int    `json:"itemType"`
	Token                string `json:"token"`
	IdentifierOrCriteria string `json:"identifierOrCriteria"`
	StartAmount          string `json:"startAmount"`
	EndAmount            string `json:"endAmount"`
	Recipient            string `json:"recipient,omitempty"`
}

// Parameters is the wire form of protocol order parameters.
type Parameters struct {
	Offerer                         string `json:"offerer"`
	Zone                            string `json:"zone"`
	Offer                           []Item `json:"offer"`
	Consideration                   []Item `json:"consideration"`
	OrderType                       int    `json:"orderType"`
	StartTime                       string `json:"startTime"`
	EndTime                         string `json:"endTime"`
	ZoneHash                        string `json:"zoneHash"`
	Salt                            string `json:"salt"`
	ConduitKey                      string `json:"conduitKey"`
	TotalOriginalConsiderationItems int    `json:"totalOriginalConsiderationItems"`
	Counter                         string `json:"counter"`
}

// Order is a signed order as stored and replayed byte-for-byte.
type Order struct {
	Parameters Parameters `json:"parameters"`
	Signature  string     `json:"signature"`
}

// SignedOrder couples the canonical order hash with the exact payload bytes
// the fulfillment path will replay.
type SignedOrder struct {
	Hash    string
	Payload json.RawMessage
}

// DecodeOrder parses a stored signed payload back into an Order.
func DecodeOrder(payload json.RawMessage) (Order, error) {
	var order Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return Order{}, fmt.Errorf("decode signed order: %w", err)
	}
	if len(order.Parameters.Offer) == 0 {
		return Order{}, fmt.Errorf("signed order carries no offer items")
	}
	return order, nil
}

// abiItem mirrors the protocol's OfferItem tuple.
type abiItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// abiConsiderationItem mirrors the protocol's ConsiderationItem tuple.
type abiConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

// abiOrderComponents mirrors the tuple hashed by getOrderHash.
type abiOrderComponents struct {
	Offerer       common.Address
	Zone          common.Address
	Offer         []abiItem
	Consideration []abiConsiderationItem
	OrderType     uint8
	StartTime     *big.Int
	EndTime       *big.Int
	ZoneHash      [32]byte
	Salt          *big.Int
	ConduitKey    [32]byte
	Counter       *big.Int
}

// abiOrderParameters mirrors the tuple accepted by fulfillOrder.
type abiOrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []abiItem
	Consideration                   []abiConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

// abiOrder mirrors the Order tuple (parameters plus signature bytes).
type abiOrder struct {
	Parameters abiOrderParameters
	Signature  []byte
}

func (p Parameters) toComponents() (abiOrderComponents, error) {
	params, err := p.toParameters()
	if err != nil {
		return abiOrderComponents{}, err
	}
	counter, err := parseBig(p.Counter, "counter")
	if err != nil {
		return abiOrderComponents{}, err
	}
	return abiOrderComponents{
		Offerer:       params.Offerer,
		Zone:          params.Zone,
		Offer:         params.Offer,
		Consideration: params.Consideration,
		OrderType:     params.OrderType,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
		ZoneHash:      params.ZoneHash,
		Salt:          params.Salt,
		ConduitKey:    params.ConduitKey,
		Counter:       counter,
	}, nil
}

func (p Parameters) toParameters() (abiOrderParameters, error) {
	offer := make([]abiItem, 0, len(p.Offer))
	for _, item := range p.Offer {
		converted, err := item.toItem()
		if err != nil {
			return abiOrderParameters{}, err
		}
		offer = append(offer, converted)
	}

	consideration := make([]abiConsiderationItem, 0, len(p.Consideration))
	for _, item := range p.Consideration {
		converted, err := item.toItem()
		if err != nil {
			return abiOrderParameters{}, err
		}
		consideration = append(consideration, abiConsiderationItem{
			ItemType:             converted.ItemType,
			Token:                converted.Token,
			IdentifierOrCriteria: converted.IdentifierOrCriteria,
			StartAmount:          converted.StartAmount,
			EndAmount:            converted.EndAmount,
			Recipient:            common.HexToAddress(item.Recipient),
		})
	}

	startTime, err := parseBig(p.StartTime, "startTime")
	if err != nil {
		return abiOrderParameters{}, err
	}
	endTime, err := parseBig(p.EndTime, "endTime")
	if err != nil {
		return abiOrderParameters{}, err
	}
	salt, err := parseBig(p.Salt, "salt")
	if err != nil {
		return abiOrderParameters{}, err
	}
	zoneHash, err := parseHash(p.ZoneHash, "zoneHash")
	if err != nil {
		return abiOrderParameters{}, err
	}
	conduitKey, err := parseHash(p.ConduitKey, "conduitKey")
	if err != nil {
		return abiOrderParameters{}, err
	}

	return abiOrderParameters{
		Offerer:                         common.HexToAddress(p.Offerer),
		Zone:                            common.HexToAddress(p.Zone),
		Offer:                           offer,
		Consideration:                   consideration,
		OrderType:                       uint8(p.OrderType),
		StartTime:                       startTime,
		EndTime:                         endTime,
		ZoneHash:                        zoneHash,
		Salt:                            salt,
		ConduitKey:                      conduitKey,
		TotalOriginalConsiderationItems: big.NewInt(int64(p.TotalOriginalConsiderationItems)),
	}, nil
}

func (i Item) toItem() (abiItem, error) {
	identifier, err := parseBig(i.IdentifierOrCriteria, "identifierOrCriteria")
	if err != nil {
		return abiItem{}, err
	}
	startAmount, err := parseBig(i.StartAmount, "startAmount")
	if err != nil {
		return abiItem{}, err
	}
	endAmount, err := parseBig(i.EndAmount, "endAmount")
	if err != nil {
		return abiItem{}, err
	}
	return abiItem{
		ItemType:             uint8(i.ItemType),
		Token:                common.HexToAddress(i.Token),
		IdentifierOrCriteria: identifier,
		StartAmount:          startAmount,
		EndAmount:            endAmount,
	}, nil
}

// totalConsiderationWei sums the native consideration a fulfiller must attach.
func (p Parameters) totalConsiderationWei() (*big.Int, error) {
	total := new(big.Int)
	for _, item := range p.Consideration {
		if item.ItemType != ItemTypeNative {
			continue
		}
		amount, err := parseBig(item.StartAmount, "startAmount")
		if err != nil {
			return nil, err
		}
		total.Add(total, amount)
	}
	return total, nil
}

func parseBig(value, field string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	if len(value) > 1 && value[0] == '0' && (value[1] == 'x' || value[1] == 'X') {
		parsed, err := hexutil.DecodeBig(value)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", field, value, err)
		}
		return parsed, nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s %q: not a decimal integer", field, value)
	}
	return parsed, nil
}

func parseHash(value, field string) ([32]byte, error) {
	var out [32]byte
	if value == "" {
		return out, nil
	}
	decoded, err := hexutil.Decode(value)
	if err != nil {
		return out, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	if len(decoded) != 32 {
		return out, fmt.Errorf("parse %s: expected 32 bytes, got %d", field, len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}
