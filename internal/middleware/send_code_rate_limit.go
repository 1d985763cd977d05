package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tribe-app/tribe_auth/internal/logging"
)

const sendCodeLimitPrefix = "rl:send-code:"

// SendCodeRateLimit limits code requests per email (or IP when the body has
// none) using Redis if available. Emails are keyed by fingerprint.
func SendCodeRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := c.IP()
		if email := strings.TrimSpace(req.Email); email != "" {
			subject = logging.Fingerprint(email)
		}
		key := sendCodeLimitPrefix + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			logger.Warn("send-code rate limit unavailable", slog.Any("error", err))
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "Too many code requests. Please try again later.")
		}
		return c.Next()
	}
}
