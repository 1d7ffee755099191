package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/metrics"
	pkgsecrets "github.com/aadarsh2904/GoQunat-Project/pkg/secrets"
	"github.com/aadarsh2904/GoQunat-Project/pkg/utils"
)

// FeedEndpoint holds a venue's market-data connection settings.
type FeedEndpoint struct {
	BaseURL string
	WSURL   string
	APIKey  string
}

// ParseFeedEndpoint extracts an endpoint from a raw secret map. At least one
// of base_url and ws_url is required.
func ParseFeedEndpoint(m map[string]string) (FeedEndpoint, error) {
	ep := FeedEndpoint{
		BaseURL: strings.TrimSpace(m["base_url"]),
		WSURL:   strings.TrimSpace(m["ws_url"]),
		APIKey:  m["api_key"],
	}
	if ep.BaseURL == "" && ep.WSURL == "" {
		return FeedEndpoint{}, fmt.Errorf("secret has neither base_url nor ws_url")
	}
	return ep, nil
}

// Resolver resolves per-venue feed endpoints from a secrets provider, caching
// results locally to reduce API calls.
//
// Secret naming convention: {env}/market-data/{venue}
type Resolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[FeedEndpoint]
}

func NewResolver(logger *zap.Logger, env string, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[FeedEndpoint]) *Resolver {
	return &Resolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
	}
}

func (r *Resolver) prefix() string {
	return strings.ToLower(fmt.Sprintf("%s/market-data/", r.env))
}

func (r *Resolver) secretName(venue string) string {
	return r.prefix() + strings.ToLower(venue)
}

// Resolve fetches or returns the cached endpoint for venue.
func (r *Resolver) Resolve(ctx context.Context, venue string) (FeedEndpoint, error) {
	name := r.secretName(venue)

	if ep, ok := r.cache.Get(name); ok {
		metrics.IncCacheHit("hit")
		return ep, nil
	}
	metrics.IncCacheHit("miss")

	raw, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		r.logger.Warn("secrets.fetch_failed", zap.String("key", name), zap.Error(err))
		return FeedEndpoint{}, fmt.Errorf("resolve feed endpoint for %q: %w", venue, err)
	}
	ep, err := ParseFeedEndpoint(raw)
	if err != nil {
		return FeedEndpoint{}, fmt.Errorf("parse secret %q: %w", name, err)
	}
	r.cache.Put(name, ep)

	r.logger.Info("secrets.feed_endpoint_resolved",
		zap.String("venue", venue),
		zap.String("base_url", utils.MaskURL(ep.BaseURL)),
		zap.String("ws_url", utils.MaskURL(ep.WSURL)))
	return ep, nil
}

// ResolveOr resolves venue and fills any missing field from fallback. A
// failed lookup is logged and yields fallback unchanged.
func (r *Resolver) ResolveOr(ctx context.Context, venue string, fallback FeedEndpoint) FeedEndpoint {
	ep, err := r.Resolve(ctx, venue)
	if err != nil {
		r.logger.Warn("secrets.using_static_endpoint", zap.String("venue", venue), zap.Error(err))
		return fallback
	}
	if ep.BaseURL == "" {
		ep.BaseURL = fallback.BaseURL
	}
	if ep.WSURL == "" {
		ep.WSURL = fallback.WSURL
	}
	if ep.APIKey == "" {
		ep.APIKey = fallback.APIKey
	}
	return ep
}

// Invalidate drops the cached endpoint, e.g. after rotation.
func (r *Resolver) Invalidate(venue string) {
	r.cache.Bust(r.secretName(venue))
}

// DiscoverVenues lists venues that have an endpoint secret under {env}/market-data/.
func (r *Resolver) DiscoverVenues(ctx context.Context) ([]string, error) {
	prefix := r.prefix()
	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover venues: %w", err)
	}

	var venues []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		v := strings.TrimPrefix(lower, prefix)
		if v != "" && !strings.Contains(v, "/") {
			venues = append(venues, strings.ToUpper(v))
		}
	}

	r.logger.Info("secrets.venues_discovered", zap.Strings("venues", venues))
	return venues, nil
}
