// Package osustats fetches top-N leaderboard placement counts from osu!stats.
package osustats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shigeru22/snipeid-calc-bot-sub001/internal/cache"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrMalformedResponse indicates osu!stats answered with an unexpected body.
var ErrMalformedResponse = errors.New("osustats: malformed response")

// StandardThresholds are the cut-offs fetched for a full rank table.
var StandardThresholds = []int{1, 8, 15, 25, 50}

// RankCount is the number of leaderboard placements at or above Rank.
type RankCount struct {
	Rank  int
	Count int
}

// CacheMetrics records cache hit ratios per key namespace.
type CacheMetrics interface {
	RecordCacheLookup(namespace string, hit bool)
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Cache             *cache.Cache[int]
	Metrics           CacheMetrics
	Logger            *slog.Logger
}

// Client queries the osu!stats score search.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache[int]
	metrics    CacheMetrics
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
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
		c = cache.New[int](cache.WithDefaultTTL(10 * time.Minute))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics CacheMetrics = noopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), len(StandardThresholds)),
		cache:      c,
		metrics:    metrics,
		logger:     logger,
	}
}

// RankCounts returns one RankCount per threshold, sorted ascending by rank.
func (c *Client) RankCounts(ctx context.Context, username string, thresholds []int) ([]RankCount, error) {
	counts := make([]RankCount, len(thresholds))

	g, gctx := errgroup.WithContext(ctx)
	for i, rank := range thresholds {
		g.Go(func() error {
			n, err := c.CountTopRanks(gctx, username, rank)
			if err != nil {
				return err
			}
			counts[i] = RankCount{Rank: rank, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// CountTopRanks returns how many of username's scores rank between 1 and
// maxRank. Results are cached under OSU_STATS_<username>_<maxRank>.
func (c *Client) CountTopRanks(ctx context.Context, username string, maxRank int) (int, error) {
	key := cache.OsuStatsKey(username, maxRank)
	if n, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheLookup(cache.NamespaceOsuStats, true)
		return n, nil
	}
	c.metrics.RecordCacheLookup(cache.NamespaceOsuStats, false)

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("osustats.CountTopRanks: %w", err)
	}

	form := url.Values{}
	form.Set("u1", username)
	form.Set("rankMin", "1")
	form.Set("rankMax", strconv.Itoa(maxRank))
	form.Set("gamemode", "0")
	form.Set("page", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/getScores", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, fmt.Errorf("osustats.CountTopRanks: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("osustats.CountTopRanks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("osustats.CountTopRanks: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("osustats.CountTopRanks: %w", err)
	}

	// The body is a heterogeneous array: [scores, total, ...].
	total := gjson.GetBytes(body, "1")
	if !gjson.ValidBytes(body) || total.Type != gjson.Number {
		return 0, fmt.Errorf("osustats.CountTopRanks: %w", ErrMalformedResponse)
	}

	n := int(total.Int())
	c.cache.Set(key, n)
	c.logger.DebugContext(ctx, "Fetched osu!stats count",
		slog.String("username", username),
		slog.Int("max_rank", maxRank),
		slog.Int("count", n),
	)
	return n, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordCacheLookup(string, bool) {}
