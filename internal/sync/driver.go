package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/internal/metadata"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/enums"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/metrics"
)

// TokenReader is the ledger surface the driver enumerates and reads through.
type TokenReader interface {
	Read(ctx context.Context, tokenID int64) (chain.TokenState, error)
	TotalSupply(ctx context.Context) (int64, error)
	TransferredTokenIDs(ctx context.Context, fromBlock uint64) ([]int64, error)
}

// Resolver turns token URIs into display metadata.
type Resolver interface {
	Resolve(ctx context.Context, tokenID int64, tokenURI string) metadata.Descriptor
}

// Summary reports one full reconciliation pass.
type Summary struct {
	Strategy string
	Total    int
	Synced   int
	Skipped  int
	Failed   int
	Elapsed  time.Duration
}

// DriverParams wire the sync driver's collaborators.
type DriverParams struct {
	Logger   *logger.Logger
	Reader   TokenReader
	Resolver Resolver
	Index    nfts.Service
	Metrics  *metrics.SyncMetrics
	Sync     config.SyncConfig
	Chain    config.ChainConfig
}

// Driver reconciles the full collection into the index. Tokens are processed
// in fixed-size batches: every token in a batch runs concurrently, and the
// next batch starts only after the previous one fully settles. A failing
// token never aborts its batch; enumeration failures abort the pass.
type Driver struct {
	logg     *logger.Logger
	reader   TokenReader
	resolver Resolver
	index    nfts.Service
	metrics  *metrics.SyncMetrics
	syncCfg  config.SyncConfig
	chainCfg config.ChainConfig
}

// NewDriver builds a sync driver.
func NewDriver(params DriverParams) (*Driver, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("token reader required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("metadata resolver required")
	}
	if params.Index == nil {
		return nil, fmt.Errorf("token index service required")
	}
	if params.Sync.BatchSize <= 0 {
		params.Sync.BatchSize = 20
	}
	strategy := enums.SyncStrategy(params.Sync.Strategy)
	if params.Sync.Strategy == "" {
		strategy = enums.SyncStrategyEvents
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown sync strategy %q", params.Sync.Strategy)
	}
	params.Sync.Strategy = string(strategy)
	return &Driver{
		logg:     params.Logger,
		reader:   params.Reader,
		resolver: params.Resolver,
		index:    params.Index,
		metrics:  params.Metrics,
		syncCfg:  params.Sync,
		chainCfg: params.Chain,
	}, nil
}

// Run executes one full reconciliation pass and returns its summary. The
// returned error is non-nil only when enumeration itself fails; individual
// token failures are logged, counted, and skipped.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	started := time.Now()

	ids, err := d.enumerate(ctx)
	if err != nil {
		return Summary{Strategy: d.syncCfg.Strategy}, fmt.Errorf("enumerating tokens: %w", err)
	}

	summary := Summary{Strategy: d.syncCfg.Strategy, Total: len(ids)}
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"strategy": d.syncCfg.Strategy,
		"tokens":   len(ids),
		"batch":    d.syncCfg.BatchSize,
	}), "sync pass starting")

	for start := 0; start < len(ids); start += d.syncCfg.BatchSize {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		end := start + d.syncCfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		batchStarted := time.Now()
		synced, skipped, failed := d.runBatch(ctx, ids[start:end])
		d.metrics.ObserveBatch(time.Since(batchStarted))

		summary.Synced += synced
		summary.Skipped += skipped
		summary.Failed += failed
	}

	summary.Elapsed = time.Since(started)
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"synced":  summary.Synced,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}), "sync pass finished")
	return summary, nil
}

// runBatch fans the batch out and waits for every token to settle before
// returning, keeping batches strictly sequential.
func (d *Driver) runBatch(ctx context.Context, ids []int64) (synced, skipped, failed int) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range ids {
		wg.Add(1)
		go func(tokenID int64) {
			defer wg.Done()
			err := d.syncToken(ctx, tokenID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				synced++
			case errors.Is(err, chain.ErrTokenNotMinted):
				skipped++
			default:
				failed++
			}
		}(id)
	}
	wg.Wait()
	return synced, skipped, failed
}

func (d *Driver) syncToken(ctx context.Context, tokenID int64) error {
	logCtx := d.logg.WithTokenID(ctx, tokenID)

	state, err := d.reader.Read(ctx, tokenID)
	if errors.Is(err, chain.ErrTokenNotMinted) {
		d.metrics.IncSkipped()
		return err
	}
	if err != nil {
		d.metrics.IncFailure("read")
		d.logg.Error(logCtx, "token read failed", err)
		return err
	}

	descriptor := d.resolver.Resolve(ctx, tokenID, state.TokenURI)

	err = d.index.RecordToken(ctx, nfts.RecordTokenInput{
		TokenID:      tokenID,
		NFTContract:  strings.ToLower(d.chainCfg.NFTContract),
		OwnerAddress: strings.ToLower(state.Owner.Hex()),
		Name:         descriptor.Name,
		ImageURI:     descriptor.ImageURI,
		SyncedAt:     time.Now().UTC(),
	})
	if err != nil {
		d.metrics.IncFailure("upsert")
		d.logg.Error(logCtx, "token upsert failed", err)
		return err
	}

	d.metrics.IncSynced(d.syncCfg.Strategy)
	return nil
}

// enumerate lists the token ids this pass will reconcile. The supply strategy
// walks 0..totalSupply-1; the events strategy collects ids from Transfer
// logs, which also covers collections with non-contiguous ids.
func (d *Driver) enumerate(ctx context.Context) ([]int64, error) {
	switch enums.SyncStrategy(d.syncCfg.Strategy) {
	case enums.SyncStrategySupply:
		supply, err := d.reader.TotalSupply(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, supply)
		for id := int64(0); id < supply; id++ {
			ids = append(ids, id)
		}
		return ids, nil
	default:
		return d.reader.TransferredTokenIDs(ctx, d.chainCfg.FromBlock)
	}
}
