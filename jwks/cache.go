// Package jwks fetches and caches an identity provider's signing keys.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/fina4you/entitlement-api/internal/observability"
)

var (
	// ErrKeyNotFound is returned when no key in the published set matches the kid
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrRateLimited is returned when a fetch is needed but the per-minute ceiling is spent
	ErrRateLimited = errors.New("key set fetch rate limit exceeded")

	// ErrFetchFailed is returned when the key set endpoint cannot be read
	ErrFetchFailed = errors.New("failed to fetch key set")
)

const maxKeySetBytes = 1 << 20

// Config holds configuration for Cache
type Config struct {
	URL               string
	TTL               time.Duration
	RequestsPerMinute int
	HTTPTimeout       time.Duration
	HTTPClient        *http.Client
	Logger            *zap.Logger
	Metrics           *observability.Metrics
}

type cachedKey struct {
	key       *rsa.PublicKey
	expiresAt time.Time
}

// Cache resolves key identifiers to RSA public keys, fetching the key set
// from the identity provider only on a miss. Safe for concurrent use.
type Cache struct {
	url        string
	httpClient *http.Client
	ttl        time.Duration
	limiter    *rate.Limiter
	group      singleflight.Group
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]cachedKey
	lastFetch time.Time
}

// New creates a key set cache
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Cache{
		url:        cfg.URL,
		httpClient: cfg.HTTPClient,
		ttl:        cfg.TTL,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
		keys:       make(map[string]cachedKey),
	}
}

// URLForDomain returns the well-known key set location for an identity domain
func URLForDomain(domain string) string {
	return "https://" + domain + "/.well-known/jwks.json"
}

// PublicKey returns the key for kid, fetching the key set when it is not
// cached. Concurrent misses for the same kid share a single fetch.
func (c *Cache) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}

	v, err, _ := c.group.Do(kid, func() (interface{}, error) {
		if key, ok := c.lookup(kid); ok {
			return key, nil
		}

		if !c.limiter.AllowN(c.now(), 1) {
			c.metrics.KeySetFetch("rate_limited")
			c.logger.Warn("key set fetch rate limited", zap.String("kid", kid))
			return nil, ErrRateLimited
		}

		// The fetch result is shared by every waiter, so one caller going
		// away must not cancel it for the rest.
		if err := c.refresh(context.WithoutCancel(ctx)); err != nil {
			c.metrics.KeySetFetch("error")
			return nil, err
		}
		c.metrics.KeySetFetch("success")

		if key, ok := c.lookup(kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rsa.PublicKey), nil
}

func (c *Cache) lookup(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.keys[kid]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.key, true
}

// refresh downloads the key set and inserts every usable signing key
func (c *Cache) refresh(ctx context.Context) error {
	start := c.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status code %d", ErrFetchFailed, resp.StatusCode)
	}

	var set KeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetBytes)).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrFetchFailed, err)
	}

	now := c.now()
	expiresAt := now.Add(c.ttl)
	added := 0

	c.mu.Lock()
	// Keys the provider stopped publishing age out instead of being renewed.
	for kid, entry := range c.keys {
		if !now.Before(entry.expiresAt) {
			delete(c.keys, kid)
		}
	}
	for i := range set.Keys {
		jwk := &set.Keys[i]
		if !jwk.usableForSignatures() {
			continue
		}
		pub, err := jwk.RSAPublicKey()
		if err != nil {
			c.logger.Warn("skipping malformed signing key", zap.String("kid", jwk.Kid), zap.Error(err))
			continue
		}
		c.keys[jwk.Kid] = cachedKey{key: pub, expiresAt: expiresAt}
		added++
	}
	c.lastFetch = c.now()
	c.mu.Unlock()

	c.logger.Info("key set fetched",
		zap.String("url", c.url),
		zap.Int("keys", added),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
	return nil
}

// Stats describes the cache contents
type Stats struct {
	CachedKeys int       `json:"cached_keys"`
	LastFetch  time.Time `json:"last_fetch,omitempty"`
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{CachedKeys: len(c.keys), LastFetch: c.lastFetch}
}

// Invalidate drops all cached keys. The fetch ceiling is not reset.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = make(map[string]cachedKey)
}
