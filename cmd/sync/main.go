package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/internal/metadata"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	syncer "github.com/apebear-labs/bearmarket-backend/internal/sync"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/db"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/metrics"
	"github.com/apebear-labs/bearmarket-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sync"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync"

	logg = logger.New(logger.Options{
		ServiceName: "sync",
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

	resolver, err := metadata.NewResolver(metadata.ResolverParams{
		Logger: logg,
		Config: cfg.Metadata,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create metadata resolver", err)
		os.Exit(1)
	}

	tokensService, err := nfts.NewService(nfts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create token index service", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"strategy": cfg.Sync.Strategy,
	})
	logg.Info(ctx, "starting sync pass")

	summary, err := driver.Run(ctx)
	if err != nil {
		logg.Error(ctx, "sync pass aborted", err)
		os.Exit(1)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"total":     summary.Total,
		"synced":    summary.Synced,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"elapsedMs": summary.Elapsed.Milliseconds(),
	}), "sync pass finished")
}
