package telstra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// Client wraps authenticated calls to the Telstra Messaging API. It
// owns no number state; every method is a fresh round trip against the
// provider's source of truth.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	tokens     *TokenSource
}

func NewClient(logger *slog.Logger, baseURL string, tokens *TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:     logger.With("component", "telstra_client"),
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     tokens,
	}
}

// Call issues one authenticated JSON request. Non-2xx responses come
// back as *domain.ProviderError carrying the provider's status and
// payload; local transport failures map to status 500. When out is
// non-nil the response body is decoded into it.
func (c *Client) Call(ctx context.Context, method, path string, body any, query url.Values, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil && method != http.MethodGet {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Language", "en-au")
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	c.logger.DebugContext(ctx, "Calling Telstra API", "method", method, "url", u)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Provider request failed", "method", method, "url", u, "error", err)
		return &domain.ProviderError{StatusCode: http.StatusInternalServerError, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ProviderError{StatusCode: http.StatusInternalServerError, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Provider returned error status", "method", method, "url", u, "status_code", resp.StatusCode, "body", string(respBody))
		return &domain.ProviderError{StatusCode: resp.StatusCode, Body: respBody}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding provider response: %w", err)
		}
	}
	return nil
}

type virtualNumberEntry struct {
	VirtualNumber string `json:"virtualNumber"`
	ExpiryDate    string `json:"expiryDate"`
}

type virtualNumbersResponse struct {
	VirtualNumbers []virtualNumberEntry `json:"virtualNumbers"`
}

type messagesResponse struct {
	Messages []map[string]any `json:"messages"`
}

// ListVirtualNumbers returns the live set of numbers leased on the account.
func (c *Client) ListVirtualNumbers(ctx context.Context) ([]domain.VirtualNumber, error) {
	var resp virtualNumbersResponse
	if err := c.Call(ctx, http.MethodGet, "/virtual-numbers", nil, nil, &resp); err != nil {
		return nil, err
	}
	numbers := make([]domain.VirtualNumber, 0, len(resp.VirtualNumbers))
	for _, vn := range resp.VirtualNumbers {
		numbers = append(numbers, domain.VirtualNumber{Number: vn.VirtualNumber, ExpiryDate: vn.ExpiryDate})
	}
	return numbers, nil
}

// CreateVirtualNumber leases one new number from the provider.
func (c *Client) CreateVirtualNumber(ctx context.Context) (domain.VirtualNumber, error) {
	var resp virtualNumberEntry
	if err := c.Call(ctx, http.MethodPost, "/virtual-numbers", map[string]any{}, nil, &resp); err != nil {
		return domain.VirtualNumber{}, err
	}
	return domain.VirtualNumber{Number: resp.VirtualNumber, ExpiryDate: resp.ExpiryDate}, nil
}

// DeleteVirtualNumber releases a leased number. A provider 404 is
// returned as-is (a *domain.ProviderError); the caller decides whether
// already-gone counts as success.
func (c *Client) DeleteVirtualNumber(ctx context.Context, number string) error {
	return c.Call(ctx, http.MethodDelete, "/virtual-numbers/"+url.PathEscape(number), nil, nil, nil)
}

// ListMessages fetches up to limit of the account's most recent
// messages. Entries stay untyped because the provider is inconsistent
// about field names; normalization happens in the app layer.
func (c *Client) ListMessages(ctx context.Context, limit int) ([]map[string]any, error) {
	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	var resp messagesResponse
	if err := c.Call(ctx, http.MethodGet, "/messages", nil, query, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
