package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/apebear-labs/bearmarket-backend/api/routes"
	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	"github.com/apebear-labs/bearmarket-backend/internal/seaport"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/db"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/migrate"
	"github.com/apebear-labs/bearmarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pool, err := chain.NewEndpointPool(cfg.Chain.RPCEndpoints)
	if err != nil {
		logg.Error(context.Background(), "failed to build rpc endpoint pool", err)
		os.Exit(1)
	}

	reader, err := chain.NewReader(chain.ReaderParams{
		Logger:   logg,
		Pool:     pool,
		Contract: common.HexToAddress(cfg.Chain.NFTContract),
		Dial:     chain.EthDialer(cfg.Chain.DialTimeout),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chain reader", err)
		os.Exit(1)
	}

	operatorKey, err := seaport.ParseOperatorKey(cfg.Chain.OperatorKey)
	if err != nil {
		logg.Error(context.Background(), "failed to parse operator key", err)
		os.Exit(1)
	}

	protocol, err := seaport.NewClient(seaport.ClientParams{
		Logger:      logg,
		Pool:        pool,
		Dial:        seaport.EthDialer(cfg.Chain.DialTimeout),
		ChainID:     cfg.Chain.ChainID,
		Marketplace: common.HexToAddress(cfg.Chain.SeaportContract),
		NFTContract: common.HexToAddress(cfg.Chain.NFTContract),
		OperatorKey: operatorKey,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace client", err)
		os.Exit(1)
	}

	tokensService, err := nfts.NewService(nfts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create token index service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Logger:    logg,
		Repo:      orders.NewRepository(dbClient.DB()),
		Ownership: reader,
		Protocol:  protocol,
		Config:    cfg.Orders,
		Chain:     cfg.Chain,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"chainId": cfg.Chain.ChainID,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Tokens:    tokensService,
			Orders:    ordersService,
			StartedAt: time.Now().UTC(),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
