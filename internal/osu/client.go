package osu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"golang.org/x/time/rate"
)

// User is the subset of the osu! user object the bot consumes.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	CountryCode string `json:"country_code"`
}

// TokenSource hands out bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CacheMetrics records cache hit ratios per key namespace.
type CacheMetrics interface {
	RecordCacheLookup(namespace string, hit bool)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Cache             *cache.Cache[User]
	Metrics           CacheMetrics
	Logger            *slog.Logger
}

// Client is a rate limited osu! API v2 client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache[User]
	metrics    CacheMetrics
	logger     *slog.Logger
}

// NewClient creates a Client authenticating through tokens.
func NewClient(tokens TokenSource, cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	c := cfg.Cache
	if c == nil {
		c = cache.New[User](cache.WithDefaultTTL(10 * time.Minute))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics CacheMetrics = noopCacheMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cache:      c,
		metrics:    metrics,
		logger:     logger,
	}
}

// GetUser fetches an osu! standard profile by id. Responses are cached under
// OSU_API_<id>.
func (c *Client) GetUser(ctx context.Context, osuID int64) (*User, error) {
	key := cache.OsuAPIKey(osuID)
	if u, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheLookup(cache.NamespaceOsuAPI, true)
		return &u, nil
	}
	c.metrics.RecordCacheLookup(cache.NamespaceOsuAPI, false)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("osu.GetUser: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("osu.GetUser: %w", err)
	}

	id := strconv.FormatInt(osuID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v2/users/"+id+"/osu?key=id", nil)
	if err != nil {
		return nil, fmt.Errorf("osu.GetUser: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osu.GetUser: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("osu.GetUser: %w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("osu.GetUser: unexpected status %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("osu.GetUser: decode: %w", err)
	}

	c.cache.Set(key, u)
	c.logger.DebugContext(ctx, "Fetched osu! user",
		slog.Int64("osu_id", u.ID),
		slog.String("username", u.Username),
	)
	return &u, nil
}

type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordCacheLookup(string, bool) {}
