package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apebear-labs/bearmarket-backend/pkg/config"
	"github.com/apebear-labs/bearmarket-backend/pkg/logger"
)

const maxMetadataBody = 1 << 20

// Descriptor is the resolved display metadata for one token.
type Descriptor struct {
	Name     string
	ImageURI string
}

// ResolverParams configure the metadata resolver.
type ResolverParams struct {
	Logger *logger.Logger
	Config config.MetadataConfig
	Client *http.Client
}

// Resolver turns token URIs into display metadata. Fetches go over HTTP with
// ipfs:// URIs rewritten to the configured gateway, and resolved descriptors
// are cached by URI. Resolution never fails: any fetch or decode problem
// degrades to a deterministic placeholder descriptor.
type Resolver struct {
	logg   *logger.Logger
	cfg    config.MetadataConfig
	client *http.Client
	cache  *lru.Cache[string, Descriptor]
}

// NewResolver builds a resolver with an LRU cache sized from config.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	size := params.Config.CacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, Descriptor](size)
	if err != nil {
		return nil, fmt.Errorf("metadata cache: %w", err)
	}
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: params.Config.FetchTimeout}
	}
	return &Resolver{
		logg:   params.Logger,
		cfg:    params.Config,
		client: client,
		cache:  cache,
	}, nil
}

// Resolve fetches and decodes the metadata document behind tokenURI. A blank
// URI, an unreachable host, or a malformed document all yield the fallback
// descriptor for tokenID instead of an error.
func (r *Resolver) Resolve(ctx context.Context, tokenID int64, tokenURI string) Descriptor {
	if tokenURI == "" {
		return r.fallback(tokenID)
	}

	fetchURL := r.GatewayURL(tokenURI)
	if cached, ok := r.cache.Get(fetchURL); ok {
		return cached
	}

	doc, err := r.fetch(ctx, fetchURL)
	if err != nil {
		logCtx := r.logg.WithTokenID(ctx, tokenID)
		r.logg.Warn(r.logg.WithField(logCtx, "token_uri", tokenURI), "metadata fetch failed, using placeholder")
		return r.fallback(tokenID)
	}

	desc := Descriptor{Name: doc.Name, ImageURI: r.GatewayURL(doc.Image)}
	if desc.Name == "" {
		desc.Name = fallbackName(tokenID)
	}
	if desc.ImageURI == "" {
		desc.ImageURI = r.cfg.PlaceholderImage
	}

	r.cache.Add(fetchURL, desc)
	return desc
}

// GatewayURL rewrites ipfs:// URIs to the configured HTTP gateway and passes
// everything else through untouched.
func (r *Resolver) GatewayURL(uri string) string {
	const scheme = "ipfs://"
	if !strings.HasPrefix(uri, scheme) {
		return uri
	}
	gateway := r.cfg.IPFSGateway
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + strings.TrimPrefix(uri, scheme)
}

type document struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (r *Resolver) fetch(ctx context.Context, url string) (document, error) {
	var doc document

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return doc, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return doc, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return doc, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBody))
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return doc, fmt.Errorf("decode metadata: %w", err)
	}
	return doc, nil
}

func (r *Resolver) fallback(tokenID int64) Descriptor {
	return Descriptor{
		Name:     fallbackName(tokenID),
		ImageURI: r.cfg.PlaceholderImage,
	}
}

func fallbackName(tokenID int64) string {
	return fmt.Sprintf("Bear #%d", tokenID)
}
