// Package osu talks to the osu! API v2: it keeps the client-credentials
// bearer token alive and looks up players.
package osu

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath  = "/oauth/token"
	revokePath = "/api/v2/oauth/tokens/current"

	// expirySkew is subtracted from the lifetime the server reports.
	expirySkew = 30 * time.Second

	// defaultTokenLifetime applies when the response carries no expires_in.
	defaultTokenLifetime = 24 * time.Hour
)

// TokenMetrics records token refresh outcomes.
type TokenMetrics interface {
	RecordTokenRefresh(success bool)
}

// TokenManagerConfig configures a TokenManager.
type TokenManagerConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Logger       *slog.Logger
	Metrics      TokenMetrics
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// TokenManager holds the single osu! API bearer token for the process.
//
// The manager is either Absent (no token) or Live (token with an expiry in
// the future). Token refreshes lazily; concurrent callers that find the
// manager Absent share one request.
type TokenManager struct {
	credentials clientcredentials.Config
	revokeURL   string
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     TokenMetrics
	now         func() time.Time

	mu        sync.RWMutex
	token     *oauth2.Token
	expiresAt time.Time

	group singleflight.Group
}

// NewTokenManager creates an Absent TokenManager.
func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	base := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	var metrics TokenMetrics = noopTokenMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	return &TokenManager{
		credentials: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     base + tokenPath,
			Scopes:       []string{"public"},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		revokeURL:  base + revokePath,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
		now:        now,
	}
}

// Token returns the live bearer token, requesting a new one when the manager
// is Absent or the current token has expired. A failed request leaves the
// manager Absent and returns an error matching ErrAuth.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.live(); ok {
		return tok, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		// Another flight may have finished between live() and Do.
		if tok, ok := m.live(); ok {
			return tok, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Live reports whether the manager holds an unexpired token.
func (m *TokenManager) Live() bool {
	_, ok := m.live()
	return ok
}

func (m *TokenManager) live() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil || !m.now().Before(m.expiresAt) {
		return "", false
	}
	return m.token.AccessToken, true
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.credentials.Token(ctx)
	if err != nil {
		m.clear()
		m.metrics.RecordTokenRefresh(false)
		m.logger.WarnContext(ctx, "osu! token request failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", ErrAuth, err)
	}

	lifetime := defaultTokenLifetime
	if !tok.Expiry.IsZero() {
		lifetime = time.Until(tok.Expiry)
	}
	expiresAt := m.now().Add(lifetime - expirySkew)

	m.mu.Lock()
	m.token = tok
	m.expiresAt = expiresAt
	m.mu.Unlock()

	m.metrics.RecordTokenRefresh(true)
	m.logger.DebugContext(ctx, "osu! token refreshed", slog.Time("expires_at", expiresAt))
	return tok.AccessToken, nil
}

func (m *TokenManager) clear() {
	m.mu.Lock()
	m.token = nil
	m.expiresAt = time.Time{}
	m.mu.Unlock()
}

// Revoke revokes the live token and leaves the manager Absent whatever the
// server answers. Revoking an Absent manager returns ErrInvalidState.
func (m *TokenManager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	tok := m.token
	live := tok != nil && m.now().Before(m.expiresAt)
	m.token = nil
	m.expiresAt = time.Time{}
	m.mu.Unlock()

	if !live {
		m.logger.ErrorContext(ctx, "Revoke called without a live osu! token")
		return ErrInvalidState
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, m.revokeURL, nil)
	if err != nil {
		return fmt.Errorf("osu.Revoke: %w", err)
	}

	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, m.httpClient),
		oauth2.StaticTokenSource(tok),
	)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("osu.Revoke: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.logger.WarnContext(ctx, "osu! token revoke rejected",
			slog.Int("status", resp.StatusCode),
		)
		return nil
	}

	m.logger.InfoContext(ctx, "osu! token revoked")
	return nil
}

type noopTokenMetrics struct{}

func (noopTokenMetrics) RecordTokenRefresh(bool) {}
