package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

func newTestResolver(t *testing.T, cfg config.MetadataConfig) *Resolver {
	t.Helper()
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 16
	}
	if cfg.PlaceholderImage == "" {
		cfg.PlaceholderImage = "https://ipfs.io/ipfs/QmExampleNFTImage/default.png"
	}
	resolver, err := NewResolver(ResolverParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Config: cfg,
	})
	require.NoError(t, err)
	return resolver
}

func TestGatewayURLRewritesIPFSScheme(t *testing.T) {
	resolver := newTestResolver(t, config.MetadataConfig{IPFSGateway: "https://ipfs.io/ipfs/"})

	assert.Equal(t,
		"https://ipfs.io/ipfs/QmHash/3.json",
		resolver.GatewayURL("ipfs://QmHash/3.json"),
	)
	assert.Equal(t,
		"https://example.com/3.json",
		resolver.GatewayURL("https://example.com/3.json"),
	)
	assert.Equal(t, "", resolver.GatewayURL(""))
}

func TestResolveHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Grumpy Bear","image":"ipfs://QmImg/3.png"}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, config.MetadataConfig{IPFSGateway: "https://ipfs.io/ipfs/"})

	desc := resolver.Resolve(context.Background(), 3, server.URL+"/3.json")
	assert.Equal(t, "Grumpy Bear", desc.Name)
	assert.Equal(t, "https://ipfs.io/ipfs/QmImg/3.png", desc.ImageURI)
}

func TestResolveFallsBackOnMalformedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	resolver := newTestResolver(t, config.MetadataConfig{})

	desc := resolver.Resolve(context.Background(), 42, server.URL+"/42.json")
	assert.Equal(t, "Bear #42", desc.Name)
	assert.Equal(t, "https://ipfs.io/ipfs/QmExampleNFTImage/default.png", desc.ImageURI)
}

func TestResolveFallsBackOnUnreachableHost(t *testing.T) {
	resolver := newTestResolver(t, config.MetadataConfig{})

	desc := resolver.Resolve(context.Background(), 7, "http://127.0.0.1:1/7.json")
	assert.Equal(t, "Bear #7", desc.Name)
}

func TestResolveFallsBackOnBlankURI(t *testing.T) {
	resolver := newTestResolver(t, config.MetadataConfig{})

	desc := resolver.Resolve(context.Background(), 9, "")
	assert.Equal(t, "Bear #9", desc.Name)
	assert.Equal(t, "https://ipfs.io/ipfs/QmExampleNFTImage/default.png", desc.ImageURI)
}

func TestResolveFillsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"attributes":[]}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, config.MetadataConfig{})

	desc := resolver.Resolve(context.Background(), 12, server.URL+"/12.json")
	assert.Equal(t, "Bear #12", desc.Name)
	assert.Equal(t, "https://ipfs.io/ipfs/QmExampleNFTImage/default.png", desc.ImageURI)
}

func TestResolveCachesByURI(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"name":"Cached Bear","image":"ipfs://QmImg/1.png"}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, config.MetadataConfig{})

	first := resolver.Resolve(context.Background(), 1, server.URL+"/1.json")
	second := resolver.Resolve(context.Background(), 1, server.URL+"/1.json")
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"name":"Recovered Bear","image":"ipfs://QmImg/2.png"}`))
	}))
	defer server.Close()

	resolver := newTestResolver(t, config.MetadataConfig{})

	first := resolver.Resolve(context.Background(), 2, server.URL+"/2.json")
	assert.Equal(t, "Bear #2", first.Name)

	second := resolver.Resolve(context.Background(), 2, server.URL+"/2.json")
	assert.Equal(t, "Recovered Bear", second.Name)
}
