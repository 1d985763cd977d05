package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tribe-app/tribe_auth/internal/infra"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// RegisterHealthRoutes adds the health check and diagnostics endpoints.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		network := d.Diagnostics.Network(ctx)
		if d.Cache != nil {
			network["redis"] = infra.RedisStatus(ctx, d.Cache)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(timestampLayout),
			"env": fiber.Map{
				"PRIVY_APP_ID":     presence(d.Cfg.Privy.AppID),
				"PRIVY_APP_SECRET": presence(d.Cfg.Privy.AppSecret),
			},
			"network": network,
		})
	})

	app.Get("/test-network", func(c *fiber.Ctx) error {
		report := d.Diagnostics.Run(c.UserContext())
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Network diagnostics completed",
			"healthy": report.Healthy(),
			"report":  report,
		})
	})

	app.Get("/test-privy-config", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(d.Diagnostics.CheckConfig(c.UserContext()))
	})
}

func presence(v string) string {
	if v == "" {
		return "Missing"
	}
	return "Set"
}
