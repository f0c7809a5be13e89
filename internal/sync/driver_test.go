package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apebear-labs/bearmarket-backend/internal/chain"
	"github.com/apebear-labs/bearmarket-backend/internal/metadata"
	"github.com/apebear-labs/bearmarket-backend/internal/nfts"
	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
	"github.com/apebear-labs/bearmarket-backend/pkg/pagination"
)

type fakeReader struct {
	supply    int64
	eventIDs  []int64
	notMinted map[int64]bool
	readErrs  map[int64]error
	enumErr   error
	owner     common.Address
}

func (f *fakeReader) Read(_ context.Context, tokenID int64) (chain.TokenState, error) {
	if f.notMinted[tokenID] {
		return chain.TokenState{}, chain.ErrTokenNotMinted
	}
	if err := f.readErrs[tokenID]; err != nil {
		return chain.TokenState{}, err
	}
	return chain.TokenState{
		Owner:    f.owner,
		TokenURI: fmt.Sprintf("ipfs://Qm/%d.json", tokenID),
	}, nil
}

func (f *fakeReader) TotalSupply(context.Context) (int64, error) {
	if f.enumErr != nil {
		return 0, f.enumErr
	}
	return f.supply, nil
}

func (f *fakeReader) TransferredTokenIDs(context.Context, uint64) ([]int64, error) {
	if f.enumErr != nil {
		return nil, f.enumErr
	}
	return f.eventIDs, nil
}

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, tokenID int64, _ string) metadata.Descriptor {
	return metadata.Descriptor{
		Name:     fmt.Sprintf("Bear #%d", tokenID),
		ImageURI: "https://ipfs.io/ipfs/Qm/img.png",
	}
}

type recordingIndex struct {
	mu      sync.Mutex
	records map[int64]nfts.RecordTokenInput
	failOn  map[int64]error
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{records: map[int64]nfts.RecordTokenInput{}}
}

func (r *recordingIndex) RecordToken(_ context.Context, input nfts.RecordTokenInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[input.TokenID]; err != nil {
		return err
	}
	r.records[input.TokenID] = input
	return nil
}

func (r *recordingIndex) ListTokens(context.Context, pagination.Params) (*nfts.TokenListResult, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingIndex) CountTokens(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.records)), nil
}

func newTestDriver(t *testing.T, reader *fakeReader, index *recordingIndex, cfg config.SyncConfig) *Driver {
	t.Helper()
	driver, err := NewDriver(DriverParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Reader:   reader,
		Resolver: staticResolver{},
		Index:    index,
		Sync:     cfg,
		Chain:    config.ChainConfig{NFTContract: "0xAAA", FromBlock: 0},
	})
	require.NoError(t, err)
	return driver
}

func TestRunSupplyStrategySyncsEveryToken(t *testing.T) {
	reader := &fakeReader{supply: 45, owner: common.HexToAddress("0x1")}
	index := newRecordingIndex()
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "supply", BatchSize: 20})

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, summary.Total)
	assert.Equal(t, 45, summary.Synced)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, index.records, 45)
	assert.Equal(t, "0xaaa", index.records[0].NFTContract)
}

func TestRunEventsStrategyUsesTransferLog(t *testing.T) {
	reader := &fakeReader{eventIDs: []int64{1, 4, 9000}, owner: common.HexToAddress("0x1")}
	index := newRecordingIndex()
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "events", BatchSize: 20})

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Synced)
	assert.Contains(t, index.records, int64(9000))
}

func TestRunSkipsUnmintedTokensWithoutAbortingBatch(t *testing.T) {
	reader := &fakeReader{
		supply:    10,
		owner:     common.HexToAddress("0x1"),
		notMinted: map[int64]bool{4: true},
	}
	index := newRecordingIndex()
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "supply", BatchSize: 5})

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, summary.Synced)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.NotContains(t, index.records, int64(4))
}

func TestRunIsolatesPerTokenFailures(t *testing.T) {
	reader := &fakeReader{
		supply:   6,
		owner:    common.HexToAddress("0x1"),
		readErrs: map[int64]error{2: errors.New("rpc exploded")},
	}
	index := newRecordingIndex()
	index.failOn = map[int64]error{5: errors.New("db write failed")}
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "supply", BatchSize: 3})

	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Synced)
	assert.Equal(t, 2, summary.Failed)
}

func TestRunFailsWhenEnumerationFails(t *testing.T) {
	reader := &fakeReader{enumErr: errors.New("all endpoints down")}
	index := newRecordingIndex()
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "events", BatchSize: 20})

	_, err := driver.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, index.records, 0)
}

func TestRunIsIdempotent(t *testing.T) {
	reader := &fakeReader{supply: 5, owner: common.HexToAddress("0x1")}
	index := newRecordingIndex()
	driver := newTestDriver(t, reader, index, config.SyncConfig{Strategy: "supply", BatchSize: 2})

	_, err := driver.Run(context.Background())
	require.NoError(t, err)
	_, err = driver.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, index.records, 5)
}

func TestNewDriverRejectsUnknownStrategy(t *testing.T) {
	_, err := NewDriver(DriverParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Reader:   &fakeReader{},
		Resolver: staticResolver{},
		Index:    newRecordingIndex(),
		Sync:     config.SyncConfig{Strategy: "guesswork"},
	})
	require.Error(t, err)
}
