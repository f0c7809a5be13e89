package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apebear-labs/bearmarket-backend/api/controllers"
	"github.com/apebear-labs/bearmarket-backend/api/middleware"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

// RouterParams collect everything the HTTP surface depends on.
type RouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        controllers.Pinger
	Redis     controllers.Pinger
	Tokens    nfts.Service
	Orders    orders.Service
	StartedAt time.Time
}

// NewRouter builds the API router: the public storefront surface under /api,
// health probes, and the Prometheus scrape endpoint.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	startedAt := params.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", controllers.Status(cfg, logg, params.Tokens, startedAt))
		r.Get("/nfts", controllers.ListNFTs(params.Tokens, logg))

		r.Get("/orders", controllers.ListOrders(params.Orders, logg))
		r.Get("/orders/{orderHash}", controllers.GetOrder(params.Orders, logg))
		r.Post("/order", controllers.SaveOrder(params.Orders, logg))
		r.Post("/listings", controllers.CreateListing(params.Orders, logg))
		r.Post("/buy", controllers.BuyOrder(params.Orders, logg))
		r.Post("/orders/fulfill", controllers.FulfillOrder(params.Orders, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
