package relay

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tribe-app/tribe_auth/internal/logging"
	"github.com/tribe-app/tribe_auth/internal/metrics"
	"github.com/tribe-app/tribe_auth/internal/notification"
	"github.com/tribe-app/tribe_auth/internal/privy"
)

const defaultWalletChain = "solana"

// Wallet outcome labels.
const (
	walletCreated = "created"
	walletCached  = "cached"
	walletFailed  = "failed"
)

// Provider is the identity provider surface used by the relay.
type Provider interface {
	Configured() bool
	InitPasswordless(ctx context.Context, email string) (privy.Response, error)
	Authenticate(ctx context.Context, email, code string) (privy.Response, error)
	CreateWallet(ctx context.Context, chainType string) (privy.Response, error)
}

// SendResult is the provider payload of a successful code request.
type SendResult struct {
	Data map[string]any
}

// VerifyResult describes a verified user. Wallet is nil when provisioning
// failed, in which case WalletError holds the provider's reason.
type VerifyResult struct {
	UserID       string
	User         map[string]any
	Wallet       map[string]any
	WalletError  string
	WalletCached bool
}

// Service relays passwordless login calls to the provider and provisions a
// wallet once a code is verified. It holds no per-request state.
type Service struct {
	provider Provider
	wallets  WalletCache
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	chain    string
}

// Option customises a Service.
type Option func(*Service)

// WithWalletCache enables wallet de-duplication per provider user.
func WithWalletCache(cache WalletCache) Option {
	return func(s *Service) {
		if cache != nil {
			s.wallets = cache
		}
	}
}

// WithNotifier sets where wallet events are sent.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records wallet outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithWalletChain overrides the chain wallets are created on.
func WithWalletChain(chain string) Option {
	return func(s *Service) {
		if chain != "" {
			s.chain = chain
		}
	}
}

// NewService builds a relay service over provider.
func NewService(provider Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		wallets:  noopWalletCache{},
		logger:   slog.Default(),
		chain:    defaultWalletChain,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendLoginCode asks the provider to email a one-time code to email.
func (s *Service) SendLoginCode(ctx context.Context, email string) (SendResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return SendResult{}, ErrEmailRequired
	}
	if !s.provider.Configured() {
		return SendResult{}, ErrNotConfigured
	}

	resp, err := s.provider.InitPasswordless(ctx, email)
	if err != nil {
		return SendResult{}, s.upstream(opSend, email, err)
	}
	if !resp.OK() {
		s.logger.Warn("provider rejected login code request",
			logging.Email(email),
			slog.Int("status", resp.Status),
		)
		return SendResult{}, &ProviderError{Status: resp.Status, Body: resp.Body}
	}

	s.logger.Info("login code sent", logging.Email(email), slog.String("endpoint", resp.Endpoint.Name))
	return SendResult{Data: privy.Decode(resp.Body)}, nil
}

// VerifyCode checks code with the provider and provisions a wallet for the
// resulting user. A wallet failure does not fail the verification.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (VerifyResult, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return VerifyResult{}, ErrEmailAndCodeRequired
	}
	if !s.provider.Configured() {
		return VerifyResult{}, ErrNotConfigured
	}

	resp, err := s.provider.Authenticate(ctx, email, code)
	if err != nil {
		return VerifyResult{}, s.upstream(opVerify, email, err)
	}
	if !resp.OK() {
		s.logger.Warn("provider rejected code",
			logging.Email(email),
			slog.Int("status", resp.Status),
		)
		return VerifyResult{}, &ProviderError{Status: resp.Status, Body: resp.Body}
	}

	payload := privy.Decode(resp.Body)
	userID := privy.ExtractUserID(payload)
	if userID == "" {
		s.logger.Error("provider response has no user id", logging.Email(email))
		return VerifyResult{}, ErrUserIDMissing
	}

	result := VerifyResult{UserID: userID, User: privy.UserObject(payload)}
	if wallet, ok := s.wallets.Lookup(ctx, userID); ok {
		s.logger.Info("reusing provisioned wallet", slog.String("user_id", userID))
		s.metrics.ObserveWallet(walletCached)
		result.Wallet = wallet
		result.WalletCached = true
		return result, nil
	}

	s.provisionWallet(ctx, &result)
	return result, nil
}

func (s *Service) provisionWallet(ctx context.Context, result *VerifyResult) {
	resp, err := s.provider.CreateWallet(ctx, s.chain)
	switch {
	case err != nil:
		result.WalletError = err.Error()
	case !resp.OK():
		result.WalletError = string(resp.Body)
	default:
		result.Wallet = privy.Decode(resp.Body)
	}

	if result.Wallet == nil {
		s.logger.Warn("wallet provisioning failed",
			slog.String("user_id", result.UserID),
			slog.String("chain", s.chain),
			slog.String("reason", result.WalletError),
		)
		s.metrics.ObserveWallet(walletFailed)
		s.notify(ctx, notification.KindWalletProvisioningFailed, result.UserID, result.WalletError)
		return
	}

	s.logger.Info("wallet provisioned", slog.String("user_id", result.UserID), slog.String("chain", s.chain))
	s.metrics.ObserveWallet(walletCreated)
	s.wallets.Store(ctx, result.UserID, result.Wallet)
	s.notify(ctx, notification.KindWalletProvisioned, result.UserID, walletAddress(result.Wallet))
}

func (s *Service) upstream(op operation, email string, err error) error {
	if errors.Is(err, privy.ErrCredentialsMissing) {
		return ErrNotConfigured
	}
	s.logger.Error("provider call failed",
		slog.String("operation", op.String()),
		logging.Email(email),
		slog.String("class", privy.Classify(err).String()),
		slog.Any("error", err),
	)
	return &UpstreamError{op: op, Err: err}
}

func (s *Service) notify(ctx context.Context, kind, userID, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: userID, Body: body}); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func walletAddress(wallet map[string]any) string {
	if addr, ok := wallet["address"].(string); ok {
		return addr
	}
	return ""
}
