package controllers

import (
	"net/http"

	"github.com/apebear-labs/bearmarket-backend/api/responses"
	"github.com/apebear-labs/bearmarket-backend/api/validators"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

// ListNFTs serves the indexed collection, ordered by token id.
func ListNFTs(svc nfts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<31-1)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListTokens(ctx, pagination.Params{Offset: offset, Limit: limit})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
