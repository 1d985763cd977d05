package onboarding

// Step is a position in the onboarding flow. Steps only move forward except
// through Back.
type Step int

const (
	StepName Step = iota
	StepEmail
	StepCode
	StepVerified
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "NAME"
	case StepEmail:
		return "EMAIL"
	case StepCode:
		return "OTP_SENT"
	case StepVerified:
		return "VERIFIED"
	default:
		return "UNKNOWN"
	}
}

// EndReason records how a session finished.
type EndReason int

const (
	EndNone EndReason = iota
	EndCompleted
	EndCancelled
	EndGuest
)

func (r EndReason) String() string {
	switch r {
	case EndCompleted:
		return "completed"
	case EndCancelled:
		return "cancelled"
	case EndGuest:
		return "guest"
	default:
		return "active"
	}
}
