package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tribe-app/tribe_auth/internal/relay"
)

// RegisterRelayRoutes wires the passwordless login endpoints.
func RegisterRelayRoutes(r fiber.Router, h *relay.Handler, rateLimiter, idempotency fiber.Handler) {
	r.Post("/send-login-code", idempotency, rateLimiter, h.SendLoginCode)
	r.Post("/verify-code", idempotency, h.VerifyCode)
}
