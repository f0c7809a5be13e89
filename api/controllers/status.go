package controllers

import (
	"net/http"
	"time"

	"github.com/apebear-labs/bearmarket-backend/api/responses"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

// Status reports the service and how much of the collection is indexed.
func Status(cfg *config.Config, logg *logger.Logger, tokens nfts.Service, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		indexed, err := tokens.CountTokens(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":        "ok",
			"env":           cfg.App.Env,
			"chainId":       cfg.Chain.ChainID,
			"nftContract":   cfg.Chain.NFTContract,
			"indexedTokens": indexed,
			"uptimeSeconds": int64(time.Since(startedAt).Seconds()),
		})
	}
}
