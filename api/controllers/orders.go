package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/apebear-labs/bearmarket-backend/api/responses"
	"github.com/apebear-labs/bearmarket-backend/api/validators"
	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	pkgerrors "github.com/apebear-labs/bearmarket-backend/pkg/errors"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

// hex fields are 0x-prefixed: 42 chars for addresses, 66 for hashes.
const maxHexFieldLen = 66

type saveOrderRequest struct {
	OrderHash     string       `json:"orderHash" validate:"required"`
	TokenID       *int64       `json:"tokenId"`
	PriceWei      *string      `json:"priceWei"`
	Price         *json.Number `json:"price"`
	SellerAddress string       `json:"sellerAddress" validate:"required"`
	Image         *string      `json:"image"`

	// Legacy storefront clients disagree on the signed-order field name;
	// all three spellings are accepted here and nowhere else.
	SeaportOrder      json.RawMessage `json:"seaportOrder"`
	SeaportOrderLower json.RawMessage `json:"seaportorder"`
	SeaportOrderSnake json.RawMessage `json:"seaport_order"`
}

func (r saveOrderRequest) signedOrder() json.RawMessage {
	for _, payload := range []json.RawMessage{r.SeaportOrder, r.SeaportOrderLower, r.SeaportOrderSnake} {
		if len(payload) > 0 {
			return payload
		}
	}
	return nil
}

// priceDecimal normalizes the two accepted price forms to integer wei:
// priceWei is taken verbatim, the legacy price field is a whole-coin amount
// and gets shifted 18 decimal places.
func (r saveOrderRequest) priceDecimal() (*decimal.Decimal, error) {
	if r.PriceWei != nil {
		price, err := decimal.NewFromString(*r.PriceWei)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "priceWei must be a decimal integer")
		}
		return &price, nil
	}
	if r.Price != nil {
		price, err := decimal.NewFromString(r.Price.String())
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be numeric")
		}
		wei := price.Shift(18)
		return &wei, nil
	}
	return nil, nil
}

// SaveOrder persists a storefront-signed listing keyed by its order hash.
func SaveOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req saveOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := req.signedOrder()
		if len(payload) == 0 {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "seaportOrder is required"))
			return
		}
		price, err := req.priceDecimal()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.SaveSignedOrderInput{
			OrderHash:     validators.SanitizeString(req.OrderHash, maxHexFieldLen),
			TokenID:       req.TokenID,
			PriceWei:      price,
			SellerAddress: validators.SanitizeString(req.SellerAddress, maxHexFieldLen),
			SignedOrder:   payload,
			ImageURI:      req.Image,
		}

		dto, err := svc.SaveSignedOrder(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ListOrders serves the active listing feed, newest first.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1<<31-1)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListOrders(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetOrder serves one stored order by its protocol hash.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderHash := validators.SanitizeString(chi.URLParam(r, "orderHash"), maxHexFieldLen)
		if orderHash == "" {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "orderHash is required"))
			return
		}

		dto, err := svc.GetOrder(ctx, orderHash)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type createListingRequest struct {
	SellerAddress string `json:"sellerAddress" validate:"required"`
	TokenID       int64  `json:"tokenId" validate:"min=0"`
	PriceWei      string `json:"priceWei" validate:"required"`
}

// CreateListing builds and signs a listing with the operator key after an
// on-ledger ownership check.
func CreateListing(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createListingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		price, err := decimal.NewFromString(req.PriceWei)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "priceWei must be a decimal integer"))
			return
		}

		dto, err := svc.CreateListing(ctx, orders.CreateListingInput{
			SellerAddress: validators.SanitizeString(req.SellerAddress, maxHexFieldLen),
			TokenID:       req.TokenID,
			PriceWei:      price,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

type buyRequest struct {
	OrderHash    string `json:"orderHash" validate:"required"`
	BuyerAddress string `json:"buyerAddress" validate:"required"`
}

// BuyOrder is the settlement callback: the storefront fulfilled the order on
// chain and reports the buyer, so the index flips the row to fulfilled.
func BuyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req buyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderHash := validators.SanitizeString(req.OrderHash, maxHexFieldLen)
		buyer := validators.SanitizeString(req.BuyerAddress, maxHexFieldLen)
		if err := svc.RecordFulfillment(ctx, orderHash, &buyer); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"orderHash": orderHash,
			"status":    "fulfilled",
		})
	}
}

type fulfillRequest struct {
	OrderHash    string `json:"orderHash" validate:"required"`
	BuyerAddress string `json:"buyerAddress"`
}

// FulfillOrder replays the stored signed order on chain with the operator key
// and marks the row fulfilled once the transaction is submitted.
func FulfillOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req fulfillRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderHash := validators.SanitizeString(req.OrderHash, maxHexFieldLen)
		buyer := validators.SanitizeString(req.BuyerAddress, maxHexFieldLen)
		result, err := svc.Fulfill(ctx, orderHash, buyer)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
