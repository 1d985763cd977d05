package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribe-app/tribe_auth/internal/logging"
	"github.com/tribe-app/tribe_auth/internal/notification"
	"github.com/tribe-app/tribe_auth/internal/privy"
)

type fakeProvider struct {
	configured bool

	initResp   privy.Response
	initErr    error
	authResp   privy.Response
	authErr    error
	walletResp privy.Response
	walletErr  error

	initEmails  []string
	authCalls   [][2]string
	walletCalls []string
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) InitPasswordless(_ context.Context, email string) (privy.Response, error) {
	f.initEmails = append(f.initEmails, email)
	return f.initResp, f.initErr
}

func (f *fakeProvider) Authenticate(_ context.Context, email, code string) (privy.Response, error) {
	f.authCalls = append(f.authCalls, [2]string{email, code})
	return f.authResp, f.authErr
}

func (f *fakeProvider) CreateWallet(_ context.Context, chain string) (privy.Response, error) {
	f.walletCalls = append(f.walletCalls, chain)
	return f.walletResp, f.walletErr
}

func okResponse(body string) privy.Response {
	return privy.Response{Status: http.StatusOK, Body: []byte(body)}
}

func newService(p Provider, opts ...Option) *Service {
	return NewService(p, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func TestSendLoginCodeNormalizesEmail(t *testing.T) {
	p := &fakeProvider{configured: true, initResp: okResponse(`{"success":true}`)}
	svc := newService(p)

	res, err := svc.SendLoginCode(context.Background(), "  A@B.com ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.com"}, p.initEmails)
	assert.Equal(t, map[string]any{"success": true}, res.Data)
}

func TestSendLoginCodeValidation(t *testing.T) {
	p := &fakeProvider{configured: true}
	_, err := newService(p).SendLoginCode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmailRequired)
	assert.Empty(t, p.initEmails)
}

func TestMissingCredentialsSkipsProvider(t *testing.T) {
	p := &fakeProvider{configured: false}
	svc := newService(p)

	_, err := svc.SendLoginCode(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.VerifyCode(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.Empty(t, p.initEmails)
	assert.Empty(t, p.authCalls)
}

func TestProviderRejectionForwarded(t *testing.T) {
	p := &fakeProvider{configured: true, authResp: privy.Response{Status: http.StatusUnauthorized, Body: []byte(`invalid code`)}}

	_, err := newService(p).VerifyCode(context.Background(), "a@b.com", "000000")
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusUnauthorized, providerErr.Status)
	assert.Equal(t, "invalid code", string(providerErr.Body))
	assert.Empty(t, p.walletCalls)
}

func TestUpstreamErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"dns", &privy.TransportError{Err: &net.DNSError{Err: "no such host", Name: "auth.privy.io"}}, msgDNS},
		{"connectivity", &privy.TransportError{Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, msgConnectivity},
		{"not found", privy.ErrEndpointNotFound, msgEndpointNotFound},
		{"generic", errors.New("boom"), msgSendFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{configured: true, initErr: tt.err}
			_, err := newService(p).SendLoginCode(context.Background(), "a@b.com")

			var upstreamErr *UpstreamError
			require.ErrorAs(t, err, &upstreamErr)
			assert.Equal(t, tt.want, upstreamErr.Message())
		})
	}
}

func TestVerifyGenericFailureMessage(t *testing.T) {
	p := &fakeProvider{configured: true, authErr: errors.New("boom")}
	_, err := newService(p).VerifyCode(context.Background(), "a@b.com", "123456")

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, msgVerifyFailed, upstreamErr.Message())
}

func TestVerifyCodeProvisionsWallet(t *testing.T) {
	rec := &notification.Recorder{}
	p := &fakeProvider{
		configured: true,
		authResp:   okResponse(`{"user":{"id":"did:privy:1","email":"a@b.com"}}`),
		walletResp: okResponse(`{"id":"w1","address":"So1anaAddr","chain_type":"solana"}`),
	}

	res, err := newService(p, WithNotifier(rec)).VerifyCode(context.Background(), " A@B.com", " 123456 ")
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"a@b.com", "123456"}}, p.authCalls)
	assert.Equal(t, []string{"solana"}, p.walletCalls)
	assert.Equal(t, "did:privy:1", res.UserID)
	assert.Equal(t, "a@b.com", res.User["email"])
	assert.Equal(t, "So1anaAddr", res.Wallet["address"])
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, notification.KindWalletProvisioned, rec.Messages[0].Kind)
	assert.Equal(t, "So1anaAddr", rec.Messages[0].Body)
}

func TestVerifyCodeWalletFailureIsPartialSuccess(t *testing.T) {
	rec := &notification.Recorder{}
	p := &fakeProvider{
		configured: true,
		authResp:   okResponse(`{"userId":"did:privy:2"}`),
		walletResp: privy.Response{Status: http.StatusInternalServerError, Body: []byte("wallet service down")},
	}

	res, err := newService(p, WithNotifier(rec)).VerifyCode(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, "did:privy:2", res.UserID)
	assert.Nil(t, res.Wallet)
	assert.Equal(t, "wallet service down", res.WalletError)
	require.Len(t, rec.Messages, 1)
	assert.Equal(t, notification.KindWalletProvisioningFailed, rec.Messages[0].Kind)
}

func TestVerifyCodeWalletTransportFailureIsPartialSuccess(t *testing.T) {
	p := &fakeProvider{
		configured: true,
		authResp:   okResponse(`{"id":"did:privy:3"}`),
		walletErr:  &privy.TransportError{Endpoint: "wallets", Attempts: 3, Err: errors.New("reset")},
	}

	res, err := newService(p).VerifyCode(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.Nil(t, res.Wallet)
	assert.NotEmpty(t, res.WalletError)
}

func TestVerifyCodeMissingUserID(t *testing.T) {
	p := &fakeProvider{configured: true, authResp: okResponse(`{"token":"abc"}`)}

	_, err := newService(p).VerifyCode(context.Background(), "a@b.com", "123456")
	assert.ErrorIs(t, err, ErrUserIDMissing)
	assert.Empty(t, p.walletCalls)
}

func TestVerifyCodeReusesCachedWallet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisWalletCache(client, time.Hour, logging.Discard())
	p := &fakeProvider{
		configured: true,
		authResp:   okResponse(`{"user":{"id":"did:privy:4"}}`),
		walletResp: okResponse(`{"address":"addr-4"}`),
	}
	svc := newService(p, WithWalletCache(cache))

	first, err := svc.VerifyCode(context.Background(), "a@b.com", "123456")
	require.NoError(t, err)
	assert.False(t, first.WalletCached)

	second, err := svc.VerifyCode(context.Background(), "a@b.com", "654321")
	require.NoError(t, err)
	assert.True(t, second.WalletCached)
	assert.Equal(t, "addr-4", second.Wallet["address"])
	assert.Len(t, p.walletCalls, 1)

	mr.FastForward(2 * time.Hour)
	_, ok := cache.Lookup(context.Background(), "did:privy:4")
	assert.False(t, ok)
}

func TestSendLoginCodeThroughCandidateProbing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/c3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	client := privy.NewClient(
		privy.Credentials{AppID: "id", AppSecret: "secret"},
		privy.WithLogger(logging.Discard()),
		privy.WithEndpoints(privy.Candidates{Init: []privy.Endpoint{
			{Name: "c1", URL: srv.URL + "/c1"},
			{Name: "c2", URL: srv.URL + "/c2"},
			{Name: "c3", URL: srv.URL + "/c3"},
		}}),
	)

	res, err := newService(client).SendLoginCode(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, true, res.Data["success"])
}
