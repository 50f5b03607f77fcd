package telstra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// Scope requested with every client-credentials grant. Covers the
// free-trial number, message and report endpoints.
const tokenScope = "free-trial-numbers:read free-trial-numbers:write messages:read messages:write virtual-numbers:read virtual-numbers:write reports:read reports:write"

// tokenExpiryBuffer is subtracted from the provider's declared TTL so a
// token is never handed out when it is about to expire mid-request.
const tokenExpiryBuffer = 60 * time.Second

// defaultTokenTTL applies when the token response carries no usable
// expiry at all.
const defaultTokenTTL = time.Hour

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
	TokenType   string      `json:"token_type"`
}

// TokenSource acquires and caches an OAuth2 client-credentials bearer
// token. The cache is owned by this struct and guarded by a mutex so
// concurrent requests share a single grant per expiry window. A failed
// grant clears the cache and surfaces domain.ErrAuthentication;
// callers must not retry internally.
type TokenSource struct {
	logger       *slog.Logger
	httpClient   *http.Client
	authURL      string
	clientID     string
	clientSecret string

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

func NewTokenSource(logger *slog.Logger, authURL, clientID, clientSecret string, httpClient *http.Client) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenSource{
		logger:       logger.With("component", "token_source"),
		httpClient:   httpClient,
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// AccessToken returns a bearer token valid for at least
// tokenExpiryBuffer, fetching a fresh one only when the cached token is
// missing or inside the buffer window.
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiresAt) {
		return ts.token, nil
	}

	ts.logger.InfoContext(ctx, "Fetching new Telstra API access token")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", ts.clientID)
	form.Set("client_secret", ts.clientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		ts.clearLocked()
		return "", fmt.Errorf("building token request: %w", domain.ErrAuthentication)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		ts.logger.ErrorContext(ctx, "Token request failed", "error", err)
		ts.clearLocked()
		return "", fmt.Errorf("token request failed: %v: %w", err, domain.ErrAuthentication)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.clearLocked()
		return "", fmt.Errorf("reading token response: %v: %w", err, domain.ErrAuthentication)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ts.logger.ErrorContext(ctx, "Token endpoint rejected credentials", "status_code", resp.StatusCode, "body", string(body))
		ts.clearLocked()
		return "", fmt.Errorf("token endpoint returned status %d: %w", resp.StatusCode, domain.ErrAuthentication)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		ts.logger.ErrorContext(ctx, "Unparseable token response", "error", err)
		ts.clearLocked()
		return "", fmt.Errorf("unparseable token response: %w", domain.ErrAuthentication)
	}

	issuedAt := ts.now()
	ts.token = tr.AccessToken
	ts.expiresAt = issuedAt.Add(tokenTTL(tr, issuedAt) - tokenExpiryBuffer)

	ts.logger.InfoContext(ctx, "Successfully fetched new Telstra API access token", "expires_at", ts.expiresAt)
	return ts.token, nil
}

func (ts *TokenSource) clearLocked() {
	ts.token = ""
	ts.expiresAt = time.Time{}
}

// tokenTTL resolves the token lifetime: the declared expires_in wins
// (Telstra sends it as a string), then the exp claim of the token
// itself, then defaultTokenTTL.
func tokenTTL(tr tokenResponse, issuedAt time.Time) time.Duration {
	if secs, err := tr.ExpiresIn.Int64(); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if exp, ok := jwtExpiry(tr.AccessToken); ok && exp.After(issuedAt) {
		return exp.Sub(issuedAt)
	}
	return defaultTokenTTL
}

// jwtExpiry pulls the exp claim out of a JWT-shaped access token
// without verifying the signature; we only need the expiry hint, not
// trust in the claims.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
