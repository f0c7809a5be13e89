package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type stubTokens struct{}

func (stubTokens) RecordToken(context.Context, nfts.RecordTokenInput) error { return nil }
func (stubTokens) ListTokens(context.Context, pagination.Params) (*nfts.TokenListResult, error) {
	return &nfts.TokenListResult{}, nil
}
func (stubTokens) CountTokens(context.Context) (int64, error) { return 0, nil }

type stubOrders struct{}

func (stubOrders) CreateListing(context.Context, orders.CreateListingInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}
func (stubOrders) SaveSignedOrder(context.Context, orders.SaveSignedOrderInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}
func (stubOrders) ListOrders(context.Context, int) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}
func (stubOrders) GetOrder(context.Context, string) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}
func (stubOrders) Fulfill(context.Context, string, string) (*orders.FulfillmentDTO, error) {
	return &orders.FulfillmentDTO{}, nil
}
func (stubOrders) RecordFulfillment(context.Context, string, *string) error { return nil }
func (stubOrders) RecordCancellation(context.Context, string) error         { return nil }

func TestRouterWiresPublicSurface(t *testing.T) {
	handler := NewRouter(RouterParams{
		Config: &config.Config{
			App: config.AppConfig{Env: "test"},
		},
		Logger:    logger.New(logger.Options{ServiceName: "router-test"}),
		DB:        okPinger{},
		Redis:     okPinger{},
		Tokens:    stubTokens{},
		Orders:    stubOrders{},
		StartedAt: time.Now(),
	})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health/live"},
		{http.MethodGet, "/health/ready"},
		{http.MethodGet, "/api/status"},
		{http.MethodGet, "/api/nfts"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/metrics"},
	}
	for _, route := range routes {
		req := httptest.NewRequest(route.method, route.path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusNotFound || w.Code == http.StatusMethodNotAllowed {
			t.Fatalf("%s %s is not routed (status %d)", route.method, route.path, w.Code)
		}
	}
}
