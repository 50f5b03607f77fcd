package telstra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logan-han/sms-otp-burner/internal/domain"
)

// newTestClient stands up one server handling both the token endpoint
// and the messaging API, and returns a Client pointed at it.
func newTestClient(t *testing.T, api http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "test-token", "expires_in": "3600"})
	})
	mux.HandleFunc("/messaging/v3/", api)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tokens := NewTokenSource(discardLogger(), server.URL+"/v2/oauth/token", "id", "secret", server.Client())
	client := NewClient(discardLogger(), server.URL+"/messaging/v3", tokens, server.Client())
	return client, server
}

func TestClient_Call_SetsHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "en-au", r.Header.Get("Content-Language"))
		assert.NotEmpty(t, r.Header.Get("X-Correlation-ID"))
		w.Write([]byte(`{}`))
	})

	err := client.Call(context.Background(), http.MethodGet, "/virtual-numbers", nil, nil, nil)
	require.NoError(t, err)
}

func TestClient_ListVirtualNumbers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/messaging/v3/virtual-numbers", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"virtualNumbers": []map[string]string{
				{"virtualNumber": "+61411111111", "expiryDate": "2025-01-30"},
				{"virtualNumber": "+61422222222"},
			},
		})
	})

	numbers, err := client.ListVirtualNumbers(context.Background())
	require.NoError(t, err)
	require.Len(t, numbers, 2)
	assert.Equal(t, domain.VirtualNumber{Number: "+61411111111", ExpiryDate: "2025-01-30"}, numbers[0])
	assert.Equal(t, "+61422222222", numbers[1].Number)
}

func TestClient_ListMessages_QueryAndUntypedDecode(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{"sourceNumber": "+61400000001", "messageContent": "code 1234", "createTimestamp": "2024-01-01T00:00:00Z"},
			},
		})
	})

	messages, err := client.ListMessages(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "code 1234", messages[0]["messageContent"])
}

func TestClient_DeleteVirtualNumber_EscapesPath(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/messaging/v3/virtual-numbers/%2B61411111111", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.DeleteVirtualNumber(context.Background(), "+61411111111")
	require.NoError(t, err)
}

func TestClient_Call_NonSuccessBecomesProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":"THROTTLED"}`))
	})

	err := client.Call(context.Background(), http.MethodPost, "/virtual-numbers", map[string]any{}, nil, nil)
	require.Error(t, err)

	var perr *domain.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	assert.JSONEq(t, `{"code":"THROTTLED"}`, string(perr.Body))
}

func TestClient_Call_TransportFailureIsStatus500(t *testing.T) {
	// Seed a valid cached token so the failure comes from the API call
	// itself, then point the client at a dead address.
	tokens := NewTokenSource(discardLogger(), "http://127.0.0.1:1/token", "id", "secret", nil)
	tokens.token = "cached"
	tokens.expiresAt = time.Now().Add(time.Hour)
	client := NewClient(discardLogger(), "http://127.0.0.1:1", tokens, nil)

	err := client.Call(context.Background(), http.MethodGet, "/virtual-numbers", nil, nil, nil)
	require.Error(t, err)

	var perr *domain.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusInternalServerError, perr.StatusCode)
}
