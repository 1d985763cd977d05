package privy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Operation names an upstream call and labels its metrics.
type Operation string

const (
	OpInit         Operation = "passwordless_init"
	OpAuthenticate Operation = "passwordless_authenticate"
	OpWallet       Operation = "wallet_create"
	OpHealth       Operation = "health"
)

// Endpoint is one candidate URL for an upstream operation.
type Endpoint struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// EndpointSource yields the ordered candidates for an operation. The provider
// does not pin its paths, so callers probe the list until one answers with
// anything other than 404.
type EndpointSource interface {
	Endpoints(op Operation) []Endpoint
}

// Candidates is the static EndpointSource used by the relay.
type Candidates struct {
	Init         []Endpoint `yaml:"init"`
	Authenticate []Endpoint `yaml:"authenticate"`
	Wallet       []Endpoint `yaml:"wallet"`
	Health       []Endpoint `yaml:"health"`
}

// Endpoints implements EndpointSource.
func (c Candidates) Endpoints(op Operation) []Endpoint {
	switch op {
	case OpInit:
		return c.Init
	case OpAuthenticate:
		return c.Authenticate
	case OpWallet:
		return c.Wallet
	case OpHealth:
		return c.Health
	default:
		return nil
	}
}

// DefaultCandidates returns the known provider routes, most likely first.
func DefaultCandidates() Candidates {
	return Candidates{
		Init: []Endpoint{
			{Name: "auth-passwordless", URL: "https://auth.privy.io/api/v1/passwordless/init"},
			{Name: "auth-email", URL: "https://auth.privy.io/api/v1/email/init"},
			{Name: "api-passwordless", URL: "https://api.privy.io/v1/passwordless/init"},
			{Name: "api-email", URL: "https://api.privy.io/v1/email/init"},
		},
		Authenticate: []Endpoint{
			{Name: "auth-passwordless", URL: "https://auth.privy.io/api/v1/passwordless/authenticate"},
			{Name: "auth-email", URL: "https://auth.privy.io/api/v1/email/authenticate"},
			{Name: "api-passwordless", URL: "https://api.privy.io/v1/passwordless/authenticate"},
			{Name: "api-email", URL: "https://api.privy.io/v1/email/authenticate"},
		},
		Wallet: []Endpoint{
			{Name: "api-wallets", URL: "https://api.privy.io/v1/wallets"},
		},
		Health: []Endpoint{
			{Name: "auth-apps-me", URL: "https://auth.privy.io/api/v1/apps/me"},
			{Name: "api-apps-me", URL: "https://api.privy.io/v1/apps/me"},
			{Name: "auth-health", URL: "https://auth.privy.io/api/v1/health"},
			{Name: "api-health", URL: "https://api.privy.io/v1/health"},
		},
	}
}

// LoadCandidates reads a YAML candidate file. Sections left out of the file
// keep the defaults.
func LoadCandidates(path string) (Candidates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Candidates{}, fmt.Errorf("read endpoints file: %w", err)
	}
	var file Candidates
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Candidates{}, fmt.Errorf("parse endpoints file: %w", err)
	}

	merged := DefaultCandidates()
	if len(file.Init) > 0 {
		merged.Init = file.Init
	}
	if len(file.Authenticate) > 0 {
		merged.Authenticate = file.Authenticate
	}
	if len(file.Wallet) > 0 {
		merged.Wallet = file.Wallet
	}
	if len(file.Health) > 0 {
		merged.Health = file.Health
	}

	for _, list := range [][]Endpoint{merged.Init, merged.Authenticate, merged.Wallet, merged.Health} {
		for _, ep := range list {
			if ep.URL == "" {
				return Candidates{}, fmt.Errorf("endpoint %q has no url", ep.Name)
			}
		}
	}
	return merged, nil
}
