package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/internal/cron"
	"github.com/apebear-labs/bearmarket-backend/internal/metadata"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/internal/orders"
	"github.com/apebear-labs/bearmarket-backend/internal/seaport"
	syncer "github.com/apebear-labs/bearmarket-backend/internal/sync"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/db"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/metrics"
	"github.com/apebear-labs/bearmarket-backend/pkg/migrate"
	"github.com/apebear-labs/bearmarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(orders.ServiceParams{
		Logger:    logg,
		Repo:      ordersRepo,
		Ownership: reader,
		Protocol:  protocol,
		Config:    cfg.Orders,
		Chain:     cfg.Chain,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	resolver, err := metadata.NewResolver(metadata.ResolverParams{
		Logger: logg,
		Config: cfg.Metadata,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create metadata resolver", err)
		os.Exit(1)
	}

	driver, err := syncer.NewDriver(syncer.DriverParams{
		Logger:   logg,
		Reader:   reader,
		Resolver: resolver,
		Index:    tokensService,
		Metrics:  metrics.NewSyncMetrics(prometheus.DefaultRegisterer),
		Sync:     cfg.Sync,
		Chain:    cfg.Chain,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync driver", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
		Logger:   logg,
		Source:   ordersRepo,
		Recorder: ordersService,
		Status:   protocol,
		PageSize: cfg.Cron.SweepPageSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweep job", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewListingExpiryJob(cron.ListingExpiryJobParams{
		Logger:  logg,
		Expirer: ordersRepo,
		TTL:     cfg.Orders.ListingTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listing expiry job", err)
		os.Exit(1)
	}

	reconcileJob, err := cron.NewReconcileJob(logg, driver)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(sweepJob)
	registry.Register(expiryJob)
	registry.Register(reconcileJob)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
