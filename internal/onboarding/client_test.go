package onboarding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelayServer(t *testing.T, handler http.HandlerFunc) *HTTPRelayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPRelayClient(srv.URL+"/", srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestHTTPRelayClientDefaultTimeoutOutlastsRelayRetries(t *testing.T) {
	c := NewHTTPRelayClient("http://localhost:8002", nil)
	assert.Equal(t, DefaultRelayTimeout, c.http.Timeout)
	// authenticate plus wallet candidates, three attempts each, 15s per attempt
	assert.Greater(t, c.http.Timeout, 5*3*15*time.Second)
}

func TestHTTPRelayClientSendLoginCode(t *testing.T) {
	var got map[string]string
	client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/send-login-code", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})

	require.NoError(t, client.SendLoginCode(context.Background(), "a@b.com"))
	assert.Equal(t, map[string]string{"email": "a@b.com"}, got)
}

func TestHTTPRelayClientVerifyCode(t *testing.T) {
	t.Run("with wallet", func(t *testing.T) {
		client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/verify-code", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"userId":  "did:privy:u1",
				"user":    map[string]any{"id": "did:privy:u1"},
				"wallet":  map[string]any{"id": "w1", "address": "0xabc", "chain_type": "ethereum"},
			})
		})

		v, err := client.VerifyCode(context.Background(), "a@b.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, Verification{UserID: "did:privy:u1", WalletAddress: "0xabc"}, v)
	})

	t.Run("wallet failed", func(t *testing.T) {
		client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"userId":  "did:privy:u1",
				"wallet":  nil,
				"error":   "Failed to create wallet",
				"message": "User authenticated successfully, but wallet creation failed",
			})
		})

		v, err := client.VerifyCode(context.Background(), "a@b.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, "did:privy:u1", v.UserID)
		assert.Empty(t, v.WalletAddress)
		assert.Equal(t, "Failed to create wallet", v.WalletError)
	})
}

func TestHTTPRelayClientErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Email and code are required"}`, "Email and code are required"},
		{"forwarded object", http.StatusUnauthorized, `{"error":{"code":"invalid_code"}}`, `{"error":{"code":"invalid_code"}}`},
		{"plain text", http.StatusBadGateway, "bad gateway", "bad gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			err := client.SendLoginCode(context.Background(), "a@b.com")
			var relayErr *RelayError
			require.ErrorAs(t, err, &relayErr)
			assert.Equal(t, tc.status, relayErr.Status)
			assert.Equal(t, tc.message, relayErr.Message)
		})
	}
}

func TestHTTPRelayClientHonoursContext(t *testing.T) {
	client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.SendLoginCode(ctx, "a@b.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionOverHTTPRelay(t *testing.T) {
	client := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/send-login-code":
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		case "/verify-code":
			var req map[string]string
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["code"] != "424242" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid code"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"userId":  "did:privy:u9",
				"wallet":  map[string]any{"address": "0xfeed"},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Endpoint not found"})
		}
	})

	s := atCodeStep(t, client)
	ctx := context.Background()

	require.NoError(t, s.PasteCode("111111"))
	require.Error(t, s.Advance(ctx))
	assert.Equal(t, "Invalid code", s.Snapshot().Error)

	require.NoError(t, s.PasteCode("424242"))
	require.NoError(t, s.Advance(ctx))
	result, err := s.Complete()
	require.NoError(t, err)
	assert.Equal(t, "did:privy:u9", result.UserID)
	assert.Equal(t, "0xfeed", result.WalletAddress)
	assert.Equal(t, "ada@example.com", result.Email)
}
