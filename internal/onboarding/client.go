package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxRelayBody = 1 << 20

// DefaultRelayTimeout covers a relay working through every provider candidate
// with retries before it answers.
const DefaultRelayTimeout = 10 * time.Minute

// RelayClient is the relay API as seen by a session.
type RelayClient interface {
	SendLoginCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (Verification, error)
}

// Verification is the outcome of a successful code check.
type Verification struct {
	UserID        string
	WalletAddress string
	// WalletError is set when the relay verified the code but could not
	// provision a wallet.
	WalletError string
}

// HTTPRelayClient talks to the relay over HTTP.
type HTTPRelayClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPRelayClient builds a client for the relay at baseURL. A nil hc gets
// a client with DefaultRelayTimeout. Callers wanting a shorter bound pass a
// context deadline per request.
func NewHTTPRelayClient(baseURL string, hc *http.Client) *HTTPRelayClient {
	if hc == nil {
		hc = &http.Client{Timeout: DefaultRelayTimeout}
	}
	return &HTTPRelayClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type relayResponse struct {
	Success bool           `json:"success"`
	UserID  string         `json:"userId"`
	Wallet  map[string]any `json:"wallet"`
	Error   string         `json:"error"`
}

// SendLoginCode asks the relay to email a code to email.
func (c *HTTPRelayClient) SendLoginCode(ctx context.Context, email string) error {
	_, err := c.post(ctx, "/send-login-code", map[string]string{"email": email})
	return err
}

// VerifyCode checks code for email.
func (c *HTTPRelayClient) VerifyCode(ctx context.Context, email, code string) (Verification, error) {
	resp, err := c.post(ctx, "/verify-code", map[string]string{"email": email, "code": code})
	if err != nil {
		return Verification{}, err
	}
	v := Verification{UserID: resp.UserID, WalletError: resp.Error}
	if addr, ok := resp.Wallet["address"].(string); ok {
		v.WalletAddress = addr
	}
	return v, nil
}

func (c *HTTPRelayClient) post(ctx context.Context, path string, payload any) (relayResponse, error) {
	var out relayResponse

	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("call relay %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return out, fmt.Errorf("read relay %s response: %w", path, err)
	}
	// Error bodies are {error: string} but a forwarded provider error may
	// carry any shape, so decode failures are tolerated there.
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return out, &RelayError{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return out, fmt.Errorf("decode relay %s response: %w", path, decodeErr)
	}
	return out, nil
}
