package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 15 * time.Minute
)

// Response is the outcome of a session GET.
type Response struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
	FromCache  bool
}

type cachedResponse struct {
	statusCode int
	body       []byte
}

// Session owns the HTTP client shared across many fetches in a run, with
// a bounded-TTL cache of successful GETs keyed by URL. Repeated lookups of
// the same register page within a batch hit the cache instead of the
// regulator's servers. A Session is constructed explicitly by the caller
// (CLI entry point or batch processor) and passed down; there is no
// package-level default.
type Session struct {
	http  *http.Client
	cache *expirable.LRU[string, cachedResponse]
}

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	client    *http.Client
	cacheSize int
	cacheTTL  time.Duration
}

func WithHTTPClient(client *http.Client) SessionOption {
	return func(c *sessionConfig) {
		c.client = client
	}
}

func WithCacheSize(size int) SessionOption {
	return func(c *sessionConfig) {
		c.cacheSize = size
	}
}

func WithCacheTTL(ttl time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.cacheTTL = ttl
	}
}

func NewSession(opts ...SessionOption) *Session {
	cfg := sessionConfig{
		client:    http.DefaultClient,
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		http:  cfg.client,
		cache: expirable.NewLRU[string, cachedResponse](cfg.cacheSize, nil, cfg.cacheTTL),
	}
}

// Get fetches a URL, serving 2xx responses from the cache when present.
func (s *Session) Get(ctx context.Context, url string) (*Response, error) {
	if cached, ok := s.cache.Get(url); ok {
		log.Debugf("used cache: %s", url)
		return &Response{
			StatusCode: cached.statusCode,
			Body:       cached.body,
			FromCache:  true,
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %v", err)
	}

	start := time.Now()
	res, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to perform HTTP request: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %v", err)
	}
	elapsed := time.Since(start)

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		s.cache.Add(url, cachedResponse{statusCode: res.StatusCode, body: body})
	}

	return &Response{
		StatusCode: res.StatusCode,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}
