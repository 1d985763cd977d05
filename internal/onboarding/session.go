package onboarding

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/tribe-app/tribe_auth/internal/logging"
)

// AuthResult is handed to the application when onboarding completes.
type AuthResult struct {
	UserID        string
	Email         string
	DisplayName   string
	WalletAddress string
	// WalletPending is true when the code was verified but no wallet was
	// provisioned.
	WalletPending bool
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	ID              string
	Step            Step
	DisplayName     string
	Email           string
	Code            [CodeLength]string
	Focus           int
	CooldownSeconds int
	CanVerify       bool
	CanResend       bool
	Busy            bool
	UserID          string
	WalletAddress   string
	WalletPending   bool
	Ended           EndReason
	Error           string
}

// Session drives one user through name, email, code and verification. It is
// safe for concurrent use. Network calls never run under the session lock.
type Session struct {
	id       string
	relay    RelayClient
	logger   *slog.Logger
	cooldown *cooldown
	flight   *semaphore.Weighted

	requireWallet   bool
	cooldownSeconds int
	tickInterval    time.Duration
	onTick          func(remaining int)

	// done is cancelled when the session ends so in-flight calls abort.
	done   context.Context
	finish context.CancelFunc

	mu            sync.Mutex
	step          Step
	ended         EndReason
	busy          bool
	displayName   string
	email         string
	sentTo        string
	code          CodeInput
	userID        string
	walletAddress string
	walletPending bool
	lastErr       error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequireWallet makes Complete fail when verification produced no wallet.
func WithRequireWallet(require bool) Option {
	return func(s *Session) { s.requireWallet = require }
}

// WithCooldown overrides how many ticks resend stays disabled.
func WithCooldown(seconds int) Option {
	return func(s *Session) {
		if seconds >= 0 {
			s.cooldownSeconds = seconds
		}
	}
}

// WithTickInterval overrides the cooldown tick period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithOnTick registers a callback run on every cooldown tick. It runs on the
// timer goroutine and must not call Close, Cancel, SkipAsGuest or Complete.
func WithOnTick(fn func(remaining int)) Option {
	return func(s *Session) { s.onTick = fn }
}

// NewSession starts a session at the name step.
func NewSession(relay RelayClient, opts ...Option) *Session {
	s := &Session{
		id:              uuid.NewString(),
		relay:           relay,
		logger:          logging.Discard(),
		flight:          semaphore.NewWeighted(1),
		cooldownSeconds: DefaultCooldownSeconds,
		tickInterval:    time.Second,
		step:            StepName,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cooldown = newCooldown(s.tickInterval, s.onTick)
	s.done, s.finish = context.WithCancel(context.Background())
	s.logger = s.logger.With(slog.String("session_id", s.id))
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Ended reports whether the session is over and why.
func (s *Session) Ended() (EndReason, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended, s.ended != EndNone
}

// LastError returns the most recent failure surfaced to the user.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SetDisplayName stores name, cut to MaxDisplayNameRunes runes.
func (s *Session) SetDisplayName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("set display name", StepName); err != nil {
		return err
	}
	s.displayName = NormalizeDisplayName(name)
	return nil
}

// SetEmail stores the address to send a code to. Once a user has been
// verified the address is fixed and a different one returns
// ErrAlreadyVerified.
func (s *Session) SetEmail(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("set email", StepEmail); err != nil {
		return err
	}
	if s.userID != "" && NormalizeEmail(email) != s.sentTo {
		return ErrAlreadyVerified
	}
	s.email = email
	return nil
}

// EnterDigit writes d into the focused code slot.
func (s *Session) EnterDigit(d rune) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("enter digit", StepCode); err != nil {
		return err
	}
	if !s.code.Enter(d) {
		return ErrInvalidDigit
	}
	return nil
}

// Backspace clears the focused slot or moves focus back.
func (s *Session) Backspace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("backspace", StepCode); err != nil {
		return err
	}
	s.code.Backspace()
	return nil
}

// PasteCode fills slots from the digits in text.
func (s *Session) PasteCode(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("paste code", StepCode); err != nil {
		return err
	}
	if s.code.Paste(text) == 0 {
		return ErrInvalidDigit
	}
	return nil
}

// FocusSlot moves code focus to slot i.
func (s *Session) FocusSlot(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("focus slot", StepCode); err != nil {
		return err
	}
	s.code.SetFocus(i)
	return nil
}

// CanVerify reports whether all six code slots are filled.
func (s *Session) CanVerify() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended == EndNone && s.step == StepCode && s.code.Complete()
}

// CanResend reports whether a new code may be requested.
func (s *Session) CanResend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended == EndNone && s.step == StepCode && s.cooldown.Remaining() == 0
}

// CooldownRemaining returns the seconds until resend is allowed.
func (s *Session) CooldownRemaining() int {
	return s.cooldown.Remaining()
}

// Advance moves the session forward from its current step. From the email
// step it sends a code and from the code step it verifies.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.ended != EndNone {
		s.mu.Unlock()
		return ErrEnded
	}
	step := s.step
	switch step {
	case StepName:
		defer s.mu.Unlock()
		if !ValidDisplayName(s.displayName) {
			return s.fail(ErrDisplayNameRequired)
		}
		s.lastErr = nil
		s.step = StepEmail
		return nil
	case StepEmail:
		s.mu.Unlock()
		return s.sendCode(ctx)
	case StepCode:
		s.mu.Unlock()
		return s.verify(ctx)
	default:
		s.mu.Unlock()
		return &StepError{Op: "advance", Step: step}
	}
}

// Resend requests a new code once the cooldown has elapsed.
func (s *Session) Resend(ctx context.Context) error {
	s.mu.Lock()
	if err := s.expect("resend", StepCode); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cooldown.Remaining() > 0 {
		s.mu.Unlock()
		return ErrCooldownActive
	}
	email := s.sentTo
	s.mu.Unlock()

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()
	if s.cooldown.Remaining() > 0 {
		return ErrCooldownActive
	}

	err = s.call(ctx, func(ctx context.Context) error {
		return s.relay.SendLoginCode(ctx, email)
	})

	s.mu.Lock()
	if gone := s.superseded(StepCode); gone != nil {
		s.mu.Unlock()
		return gone
	}
	if err != nil {
		s.logger.Warn("resend login code failed", logging.Email(email), slog.Any("error", err))
		defer s.mu.Unlock()
		return s.fail(err)
	}
	s.lastErr = nil
	s.code.Clear()
	s.mu.Unlock()

	s.cooldown.Start(s.cooldownSeconds)
	s.logger.Info("login code resent", logging.Email(email))
	return nil
}

// Back returns to the previous step, keeping what was entered there. From
// the name step it cancels the session.
func (s *Session) Back() error {
	s.mu.Lock()
	if s.ended != EndNone {
		s.mu.Unlock()
		return ErrEnded
	}
	if s.step == StepName {
		s.mu.Unlock()
		s.end(EndCancelled)
		return nil
	}
	s.step--
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// SkipAsGuest discards everything entered and ends the session.
func (s *Session) SkipAsGuest() {
	s.end(EndGuest)
}

// Cancel ends the session without a result.
func (s *Session) Cancel() {
	s.end(EndCancelled)
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	s.end(EndCancelled)
}

// Complete hands the verified identity to the caller and ends the session.
func (s *Session) Complete() (AuthResult, error) {
	s.mu.Lock()
	if err := s.expect("complete", StepVerified); err != nil {
		s.mu.Unlock()
		return AuthResult{}, err
	}
	if s.requireWallet && s.walletPending {
		s.mu.Unlock()
		return AuthResult{}, ErrWalletMissing
	}
	result := AuthResult{
		UserID:        s.userID,
		Email:         s.sentTo,
		DisplayName:   strings.TrimSpace(s.displayName),
		WalletAddress: s.walletAddress,
		WalletPending: s.walletPending,
	}
	s.mu.Unlock()

	s.end(EndCompleted)
	s.logger.Info("onboarding completed", slog.String("user_id", result.UserID), slog.Bool("wallet_pending", result.WalletPending))
	return result, nil
}

// Snapshot returns the current state for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.cooldown.Remaining()
	return Snapshot{
		ID:              s.id,
		Step:            s.step,
		DisplayName:     s.displayName,
		Email:           s.email,
		Code:            s.code.Slots(),
		Focus:           s.code.Focus(),
		CooldownSeconds: remaining,
		CanVerify:       s.ended == EndNone && s.step == StepCode && s.code.Complete(),
		CanResend:       s.ended == EndNone && s.step == StepCode && remaining == 0,
		Busy:            s.busy,
		UserID:          s.userID,
		WalletAddress:   s.walletAddress,
		WalletPending:   s.walletPending,
		Ended:           s.ended,
		Error:           UserMessage(s.lastErr),
	}
}

func (s *Session) sendCode(ctx context.Context) error {
	s.mu.Lock()
	if strings.TrimSpace(s.email) == "" {
		defer s.mu.Unlock()
		return s.fail(ErrEmailRequired)
	}
	if !ValidEmail(s.email) {
		defer s.mu.Unlock()
		return s.fail(ErrInvalidEmail)
	}
	email := NormalizeEmail(s.email)
	if s.userID != "" {
		defer s.mu.Unlock()
		if email != s.sentTo {
			return s.fail(ErrAlreadyVerified)
		}
		s.lastErr = nil
		s.step = StepVerified
		return nil
	}
	// Returning to this step while a code for the same address is still
	// cooling down must not send another one.
	if email == s.sentTo && s.cooldown.Remaining() > 0 {
		defer s.mu.Unlock()
		s.lastErr = nil
		s.step = StepCode
		return nil
	}
	s.mu.Unlock()

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	err = s.call(ctx, func(ctx context.Context) error {
		return s.relay.SendLoginCode(ctx, email)
	})

	s.mu.Lock()
	if gone := s.superseded(StepEmail); gone != nil {
		s.mu.Unlock()
		return gone
	}
	if err != nil {
		s.logger.Warn("send login code failed", logging.Email(email), slog.Any("error", err))
		defer s.mu.Unlock()
		return s.fail(err)
	}
	s.sentTo = email
	s.lastErr = nil
	s.code.Clear()
	s.step = StepCode
	s.mu.Unlock()

	s.cooldown.Start(s.cooldownSeconds)
	s.logger.Info("login code sent", logging.Email(email))
	return nil
}

func (s *Session) verify(ctx context.Context) error {
	s.mu.Lock()
	if s.userID != "" {
		defer s.mu.Unlock()
		s.lastErr = nil
		s.step = StepVerified
		return nil
	}
	if !s.code.Complete() {
		defer s.mu.Unlock()
		return s.fail(ErrCodeIncomplete)
	}
	email, code := s.sentTo, s.code.Code()
	s.mu.Unlock()

	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	var v Verification
	err = s.call(ctx, func(ctx context.Context) error {
		var callErr error
		v, callErr = s.relay.VerifyCode(ctx, email, code)
		return callErr
	})
	if err == nil && v.UserID == "" {
		err = ErrUserIDMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gone := s.superseded(StepCode); gone != nil {
		return gone
	}
	if err != nil {
		s.logger.Warn("code verification failed", logging.Email(email), slog.Any("error", err))
		s.code.Clear()
		return s.fail(err)
	}

	s.userID = v.UserID
	s.walletAddress = v.WalletAddress
	s.walletPending = v.WalletAddress == ""
	s.lastErr = nil
	s.step = StepVerified
	if s.walletPending {
		s.logger.Warn("verified without wallet", slog.String("user_id", v.UserID), slog.String("wallet_error", v.WalletError))
	} else {
		s.logger.Info("code verified", slog.String("user_id", v.UserID))
	}
	return nil
}

// acquire takes the single in-flight slot or fails with ErrBusy.
func (s *Session) acquire() (func(), error) {
	if !s.flight.TryAcquire(1) {
		return nil, ErrBusy
	}
	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		s.flight.Release(1)
	}, nil
}

// call runs fn with a context that is also cancelled when the session ends.
func (s *Session) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.done, cancel)
	defer stop()
	return fn(ctx)
}

// superseded reports why a network result must be dropped. Callers hold mu.
func (s *Session) superseded(step Step) error {
	if s.ended != EndNone {
		return ErrEnded
	}
	if s.step != step {
		return ErrStale
	}
	return nil
}

// expect checks the session is live and at step. Callers hold mu.
func (s *Session) expect(op string, step Step) error {
	if s.ended != EndNone {
		return ErrEnded
	}
	if s.step != step {
		return &StepError{Op: op, Step: s.step}
	}
	return nil
}

// fail records err as the surfaced error. Callers hold mu.
func (s *Session) fail(err error) error {
	s.lastErr = err
	return err
}

func (s *Session) end(reason EndReason) {
	s.mu.Lock()
	if s.ended != EndNone {
		s.mu.Unlock()
		return
	}
	s.ended = reason
	s.displayName, s.email, s.sentTo = "", "", ""
	s.userID, s.walletAddress, s.walletPending = "", "", false
	s.code.Clear()
	s.lastErr = nil
	s.mu.Unlock()

	s.finish()
	s.cooldown.Close()
	s.logger.Debug("onboarding session ended", slog.String("reason", reason.String()))
}
