package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studyhub/adserver/internal/ratelimit"
)

// Rate-limit key scopes. Global shapes all public traffic; click protects
// the billing-relevant click redirect with a much tighter window.
const (
	ScopeGlobal = "global"
	ScopeClick  = "click"
)

// ClientIP identifies the caller for rate limiting: first entry of
// X-Forwarded-For when behind a proxy, the socket address otherwise, and a
// literal "unknown" bucket when neither is usable.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if ip := c.IP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimitMiddleware gates requests through the counter store with keys
// of the form {scope}:{ip}. Store errors fail open: rate limiting is abuse
// mitigation, not a correctness guarantee, and must not take the site down
// with it.
func RateLimitMiddleware(store ratelimit.Store, scope string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := scope + ":" + ClientIP(c)

		res, err := store.CheckAndConsume(c.Context(), key, limit, window)
		if err != nil {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			c.Set("Retry-After", strconv.Itoa(int(res.ResetIn.Seconds())+1))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}

		return c.Next()
	}
}
