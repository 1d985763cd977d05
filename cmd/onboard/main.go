// Command onboard walks through the email code sign-in against a running
// relay from the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tribe-app/tribe_auth/internal/logging"
	"github.com/tribe-app/tribe_auth/internal/onboarding"
)

const help = `commands: <text> to answer, :back, :resend, :guest, :quit`

const defaultRelayURL = "http://localhost:8002"

func main() {
	relayURL := flag.String("relay", defaultRelayURL, "relay base URL")
	requireWallet := flag.Bool("require-wallet", false, "refuse to finish without a wallet")
	timeout := flag.Duration("timeout", onboarding.DefaultRelayTimeout, "per request timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := onboarding.NewSession(
		onboarding.NewHTTPRelayClient(*relayURL, nil),
		onboarding.WithLogger(logging.New(*logLevel)),
		onboarding.WithRequireWallet(*requireWallet),
	)
	defer session.Close()

	result, err := run(ctx, session, os.Stdin, os.Stdout, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if result == nil {
		reason, _ := session.Ended()
		fmt.Printf("onboarding %s\n", reason)
		return
	}
	fmt.Printf("welcome %s\n  user:   %s\n  email:  %s\n", result.DisplayName, result.UserID, result.Email)
	if result.WalletPending {
		fmt.Println("  wallet: pending")
	} else {
		fmt.Printf("  wallet: %s\n", result.WalletAddress)
	}
}

func run(ctx context.Context, s *onboarding.Session, in io.Reader, out io.Writer, timeout time.Duration) (*onboarding.AuthResult, error) {
	fmt.Fprintln(out, help)
	lines := bufio.NewScanner(in)

	for {
		if _, ended := s.Ended(); ended {
			return nil, nil
		}

		snap := s.Snapshot()
		if snap.Step == onboarding.StepVerified {
			result, err := s.Complete()
			if err != nil {
				return nil, err
			}
			return &result, nil
		}

		fmt.Fprint(out, prompt(snap))
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return nil, err
			}
			s.Cancel()
			continue
		}
		if ctx.Err() != nil {
			s.Cancel()
			continue
		}

		err := handle(ctx, s, strings.TrimSpace(lines.Text()), timeout)
		switch {
		case err == nil:
		case errors.Is(err, onboarding.ErrEnded):
		default:
			fmt.Fprintf(out, "! %s\n", onboarding.UserMessage(err))
		}
	}
}

func handle(ctx context.Context, s *onboarding.Session, line string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch line {
	case ":back":
		return s.Back()
	case ":guest":
		s.SkipAsGuest()
		return nil
	case ":quit":
		s.Cancel()
		return nil
	case ":resend":
		return s.Resend(ctx)
	}

	switch s.Step() {
	case onboarding.StepName:
		if err := s.SetDisplayName(line); err != nil {
			return err
		}
	case onboarding.StepEmail:
		if err := s.SetEmail(line); err != nil {
			return err
		}
	case onboarding.StepCode:
		if err := s.PasteCode(line); err != nil {
			return err
		}
	}
	return s.Advance(ctx)
}

func prompt(snap onboarding.Snapshot) string {
	switch snap.Step {
	case onboarding.StepName:
		return "display name: "
	case onboarding.StepEmail:
		return "email: "
	case onboarding.StepCode:
		resend := "resend available"
		if snap.CooldownSeconds > 0 {
			resend = fmt.Sprintf("resend in %ds", snap.CooldownSeconds)
		}
		return fmt.Sprintf("6-digit code sent to %s (%s): ", snap.Email, resend)
	default:
		return "> "
	}
}
