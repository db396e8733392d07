package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// CacheFormatVersion defines the version of the cached PR collection format.
// Bump it whenever schema.PullRequest changes shape.
const CacheFormatVersion = 1

// CachedProvider serves repository collections from a CacheStore and falls back to the
// wrapped provider on a miss.
type CachedProvider struct {
	provider contract.PRProvider
	store    contract.CacheStore
	ttl      time.Duration
	now      func() time.Time
}

var _ contract.PRProvider = &CachedProvider{} // Compile-time check

// NewCachedProvider wraps provider with store. A nil store returns provider unchanged.
func NewCachedProvider(provider contract.PRProvider, store contract.CacheStore) contract.PRProvider {
	if store == nil {
		return provider
	}
	return &CachedProvider{provider: provider, store: store, ttl: contract.CacheTTL, now: time.Now}
}

// BaseURL implements the PRProvider interface.
func (c *CachedProvider) BaseURL() string {
	return c.provider.BaseURL()
}

// CollectRepository implements the PRProvider interface. The collection is fetched and
// cached for the aligned window, then narrowed back to window.
func (c *CachedProvider) CollectRepository(ctx context.Context, repo string, window schema.ActivityWindow) ([]schema.PullRequest, error) {
	aligned := contract.AlignWindow(window)
	key := generateCacheKey(c.provider.BaseURL(), repo, aligned)

	prs, ok := c.checkCacheHit(key)
	if ok {
		contract.Logger.WithField("repository", repo).Debug("response cache hit")
	} else {
		var err error
		if prs, err = c.computeAndStore(ctx, repo, aligned, key); err != nil {
			return nil, err
		}
	}
	return filterCreated(prs, window), nil
}

// filterCreated keeps the pull requests created inside window.
func filterCreated(prs []schema.PullRequest, window schema.ActivityWindow) []schema.PullRequest {
	out := make([]schema.PullRequest, 0, len(prs))
	for _, pr := range prs {
		if window.Contains(pr.CreatedAt) {
			out = append(out, pr)
		}
	}
	return out
}

// checkCacheHit attempts to retrieve and validate a cached collection.
func (c *CachedProvider) checkCacheHit(key string) ([]schema.PullRequest, bool) {
	data, version, ts, err := c.store.Get(key)
	if err != nil {
		return nil, false
	}
	if version != CacheFormatVersion {
		return nil, false
	}
	if c.now().Sub(time.Unix(ts, 0)) > c.ttl {
		return nil, false
	}
	var prs []schema.PullRequest
	if err := json.Unmarshal(data, &prs); err != nil {
		return nil, false
	}
	return prs, true
}

// computeAndStore collects from the provider and stores the result. Store failures are
// logged and never fail the run.
func (c *CachedProvider) computeAndStore(ctx context.Context, repo string, window schema.ActivityWindow, key string) ([]schema.PullRequest, error) {
	prs, err := c.provider.CollectRepository(ctx, repo, window)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(prs)
	if err != nil {
		contract.Logger.WithError(err).Warn("could not encode collection for the response cache")
		return prs, nil
	}
	if err := c.store.Set(key, data, CacheFormatVersion, c.now().Unix()); err != nil {
		contract.Logger.WithError(err).WithField("repository", repo).Warn("could not write response cache")
	}
	return prs, nil
}

// generateCacheKey creates a unique key from the API, the repository and the aligned window.
func generateCacheKey(baseURL, repo string, window schema.ActivityWindow) string {
	window = contract.AlignWindow(window)
	bound := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	key := fmt.Sprintf("%s:%s:%s:%s", baseURL, repo, bound(window.Since), bound(window.Until))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
