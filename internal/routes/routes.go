package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tribe-app/tribe_auth/internal/config"
	"github.com/tribe-app/tribe_auth/internal/diagnostics"
	"github.com/tribe-app/tribe_auth/internal/metrics"
	"github.com/tribe-app/tribe_auth/internal/middleware"
	"github.com/tribe-app/tribe_auth/internal/notification"
	"github.com/tribe-app/tribe_auth/internal/privy"
	"github.com/tribe-app/tribe_auth/internal/relay"
)

const metricsNamespace = "tribe_auth"

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg         config.Config
	Cache       *redis.Client
	Logger      *slog.Logger
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	Provider    *privy.Client
	Diagnostics *diagnostics.Runner
}

// NewDeps builds the provider client, metrics and diagnostics runner from
// cfg. cache may be nil.
func NewDeps(cfg config.Config, cache *redis.Client, logger *slog.Logger) (Deps, error) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metricsNamespace, reg)

	var endpoints privy.EndpointSource = privy.DefaultCandidates()
	if cfg.Privy.EndpointsFile != "" {
		loaded, err := privy.LoadCandidates(cfg.Privy.EndpointsFile)
		if err != nil {
			return Deps{}, err
		}
		endpoints = loaded
	}

	provider := privy.NewClient(
		privy.Credentials{AppID: cfg.Privy.AppID, AppSecret: cfg.Privy.AppSecret},
		privy.WithEndpoints(endpoints),
		privy.WithTimeout(cfg.Privy.RequestTimeout),
		privy.WithRetryPolicy(privy.RetryPolicy{
			MaxAttempts: cfg.Privy.RetryAttempts,
			BaseDelay:   cfg.Privy.RetryBaseDelay,
		}),
		privy.WithMetrics(m),
		privy.WithLogger(logger),
	)

	runner := diagnostics.NewRunner(provider,
		diagnostics.WithBasicURL(cfg.DiagnosticsBasicURL),
		diagnostics.WithProviderURL(cfg.DiagnosticsPrivyURL),
		diagnostics.WithMetrics(m),
		diagnostics.WithLogger(logger),
	)

	return Deps{
		Cfg:         cfg,
		Cache:       cache,
		Logger:      logger,
		Registry:    reg,
		Metrics:     m,
		Provider:    provider,
		Diagnostics: runner,
	}, nil
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.Cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization,Idempotency-Key,X-Request-ID",
	}))
	app.Use(middleware.Audit(d.Logger, d.Metrics))

	// Health and diagnostics
	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	// Relay
	opts := []relay.Option{
		relay.WithNotifier(notification.NewLoggerNotifier(d.Logger)),
		relay.WithMetrics(d.Metrics),
		relay.WithLogger(d.Logger),
		relay.WithWalletChain(d.Cfg.Privy.WalletChain),
	}
	if d.Cache != nil {
		opts = append(opts, relay.WithWalletCache(relay.NewRedisWalletCache(d.Cache, d.Cfg.WalletCacheTTL, d.Logger)))
	} else {
		opts = append(opts, relay.WithWalletCache(relay.NewMemoryWalletCache(d.Cfg.WalletCacheTTL)))
	}
	handler := relay.NewHandler(relay.NewService(d.Provider, opts...))
	RegisterRelayRoutes(app, handler,
		middleware.SendCodeRateLimit(d.Cache, d.Cfg.SendCodeLimit, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)

	app.Use(middleware.NotFound())
	return nil
}
