package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribe-app/tribe_auth/internal/config"
	"github.com/tribe-app/tribe_auth/internal/onboarding"
)

func fakeRelay(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/send-login-code":
			_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
		case "/verify-code":
			_, _ = w.Write([]byte(`{"success":true,"userId":"did:privy:cli","wallet":{"address":"0xcli"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRunCompletesOnboarding(t *testing.T) {
	s := onboarding.NewSession(onboarding.NewHTTPRelayClient(fakeRelay(t), nil))
	defer s.Close()

	in := strings.NewReader("\nAda\nnot-an-email\nada@example.com\n123\n456\n")
	var out bytes.Buffer

	result, err := run(context.Background(), s, in, &out, time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "did:privy:cli", result.UserID)
	assert.Equal(t, "0xcli", result.WalletAddress)
	assert.Equal(t, "Ada", result.DisplayName)

	transcript := out.String()
	assert.Contains(t, transcript, "Please enter your display name")
	assert.Contains(t, transcript, "Please enter a valid email address")
	assert.Contains(t, transcript, "Please enter the 6-digit code")
}

func TestRunGuestExit(t *testing.T) {
	s := onboarding.NewSession(onboarding.NewHTTPRelayClient(fakeRelay(t), nil))
	defer s.Close()

	result, err := run(context.Background(), s, strings.NewReader("Ada\n:guest\n"), &bytes.Buffer{}, time.Second)
	require.NoError(t, err)
	assert.Nil(t, result)
	reason, ended := s.Ended()
	assert.True(t, ended)
	assert.Equal(t, onboarding.EndGuest, reason)
}

func TestDefaultRelayURLMatchesRelayPort(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(defaultRelayURL, cfg.Address()), "%s does not target %s", defaultRelayURL, cfg.Address())
}
