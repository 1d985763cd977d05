package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "TribeAuthRelay"
	defaultAppEnv          = "development"
	defaultPort            = "8002"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultWalletCacheTTL  = 24 * time.Hour
	defaultSendCodeLimit   = 5
	defaultCORSOrigins     = "*"
	defaultWalletChain     = "solana"
	defaultRequestTimeout  = 15 * time.Second
	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = time.Second
	defaultDiagnosticsURL  = "https://httpbin.org/get"
	defaultProviderHealth  = "https://auth.privy.io/api/v1/health"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	walletCacheTTLEnvVar   = "WALLET_CACHE_TTL"
	requestTimeoutEnvVar   = "PRIVY_REQUEST_TIMEOUT"
	retryBaseDelayEnvVar   = "PRIVY_RETRY_BASE_DELAY"
	retryAttemptsEnvVar    = "PRIVY_RETRY_ATTEMPTS"
	sendCodeLimitEnvVar    = "SEND_CODE_LIMIT_PER_MINUTE"
	diagnosticsScheduleVar = "DIAGNOSTICS_SCHEDULE"
	diagnosticsBasicURLVar = "DIAGNOSTICS_BASIC_URL"
	diagnosticsPrivyURLVar = "DIAGNOSTICS_PRIVY_URL"
	endpointsFileEnvVar    = "PRIVY_ENDPOINTS_FILE"
)

// Privy holds the identity provider settings. Missing credentials are not a
// load error: every provider-bound request fails fast instead.
type Privy struct {
	AppID          string
	AppSecret      string
	EndpointsFile  string
	WalletChain    string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
}

// Configured reports whether both service credentials are present.
func (p Privy) Configured() bool {
	return p.AppID != "" && p.AppSecret != ""
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	RedisURL            string
	CORSOrigins         string
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	WalletCacheTTL      time.Duration
	SendCodeLimit       int
	DiagnosticsSchedule string
	DiagnosticsBasicURL string
	DiagnosticsPrivyURL string
	Privy               Privy
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		RedisURL:            os.Getenv("REDIS_URL"),
		CORSOrigins:         getEnv("CORS_ALLOW_ORIGINS", defaultCORSOrigins),
		ShutdownPeriod:      defaultShutdownDelay,
		IdempotencyTTL:      defaultIdempotencyTTL,
		WalletCacheTTL:      defaultWalletCacheTTL,
		SendCodeLimit:       defaultSendCodeLimit,
		DiagnosticsSchedule: os.Getenv(diagnosticsScheduleVar),
		DiagnosticsBasicURL: getEnv(diagnosticsBasicURLVar, defaultDiagnosticsURL),
		DiagnosticsPrivyURL: getEnv(diagnosticsPrivyURLVar, defaultProviderHealth),
		Privy: Privy{
			AppID:          strings.TrimSpace(os.Getenv("PRIVY_APP_ID")),
			AppSecret:      strings.TrimSpace(os.Getenv("PRIVY_APP_SECRET")),
			EndpointsFile:  os.Getenv(endpointsFileEnvVar),
			WalletChain:    getEnv("PRIVY_WALLET_CHAIN", defaultWalletChain),
			RequestTimeout: defaultRequestTimeout,
			RetryAttempts:  defaultRetryAttempts,
			RetryBaseDelay: defaultRetryBaseDelay,
		},
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.WalletCacheTTL, err = durationFromEnv("", walletCacheTTLEnvVar, cfg.WalletCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.Privy.RequestTimeout, err = durationFromEnv("", requestTimeoutEnvVar, cfg.Privy.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Privy.RetryBaseDelay, err = durationFromEnv("", retryBaseDelayEnvVar, cfg.Privy.RetryBaseDelay); err != nil {
		return Config{}, err
	}
	if cfg.Privy.RetryAttempts, err = intFromEnv(retryAttemptsEnvVar, cfg.Privy.RetryAttempts); err != nil {
		return Config{}, err
	}
	if cfg.SendCodeLimit, err = intFromEnv(sendCodeLimitEnvVar, cfg.SendCodeLimit); err != nil {
		return Config{}, err
	}

	if cfg.Privy.RetryAttempts < 1 {
		return Config{}, fmt.Errorf("%s must be at least 1", retryAttemptsEnvVar)
	}
	if cfg.Privy.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("%s must be positive", requestTimeoutEnvVar)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers the integer-seconds variable over the Go duration one.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
