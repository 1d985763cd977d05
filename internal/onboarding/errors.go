package onboarding

import (
	"errors"
	"fmt"
)

var (
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrInvalidEmail        = errors.New("invalid email address")
	ErrInvalidDigit        = errors.New("code digits must be 0-9")
	ErrCodeIncomplete      = errors.New("code is incomplete")
	ErrCooldownActive      = errors.New("resend is cooling down")
	ErrBusy                = errors.New("a request is already in flight")
	ErrEnded               = errors.New("onboarding session has ended")
	ErrStale               = errors.New("session moved on before the response arrived")
	ErrUserIDMissing       = errors.New("verification returned no user id")
	ErrWalletMissing       = errors.New("wallet has not been provisioned")
	ErrAlreadyVerified     = errors.New("email cannot change after verification")
)

// StepError is returned when an operation is not valid in the current step.
type StepError struct {
	Op   string
	Step Step
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s not allowed in step %s", e.Op, e.Step)
}

// RelayError is a non-2xx answer from the relay API.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("relay responded with status %d", e.Status)
	}
	return e.Message
}

// UserMessage turns err into text suitable for showing on screen.
func UserMessage(err error) string {
	var relayErr *RelayError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDisplayNameRequired):
		return "Please enter your display name"
	case errors.Is(err, ErrEmailRequired):
		return "Please enter your email address"
	case errors.Is(err, ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(err, ErrCodeIncomplete):
		return "Please enter the 6-digit code"
	case errors.Is(err, ErrCooldownActive):
		return "Please wait before requesting a new code"
	case errors.Is(err, ErrAlreadyVerified):
		return "This email is already verified"
	case errors.As(err, &relayErr):
		return relayErr.Error()
	default:
		return "Something went wrong. Please try again."
	}
}
