package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studyhub/adserver/internal/ratelimit"
)

func TestClientIP(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = ClientIP(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"forwarded single", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain uses first", "203.0.113.7, 10.0.0.1, 10.0.0.2", "203.0.113.7"},
		{"forwarded with spaces", "  203.0.113.7 , 10.0.0.1", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("X-Forwarded-For", tt.forwarded)
			if _, err := app.Test(req); err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("no forwarded header falls back to socket ip", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		if _, err := app.Test(req); err != nil {
			t.Fatal(err)
		}
		if got == "" || got == "unknown" {
			t.Errorf("ClientIP() = %q, want socket address", got)
		}
	})
}

func TestRateLimitMiddleware_ScopesAreIndependent(t *testing.T) {
	store := ratelimit.NewMemoryStore(time.Hour)
	defer store.Close()

	app := fiber.New()
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/a", RateLimitMiddleware(store, ScopeClick, 1, time.Minute), ok)
	app.Get("/b", RateLimitMiddleware(store, ScopeGlobal, 1, time.Minute), ok)

	// Exhaust the click scope.
	for i := 0; i < 2; i++ {
		if _, err := app.Test(httptest.NewRequest("GET", "/a", nil)); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := app.Test(httptest.NewRequest("GET", "/a", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("click scope status = %d, want 429", resp.StatusCode)
	}

	// The same caller still has global budget.
	resp, err = app.Test(httptest.NewRequest("GET", "/b", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("global scope status = %d, want 200", resp.StatusCode)
	}
}

func TestRateLimitMiddleware_SetsHeaders(t *testing.T) {
	store := ratelimit.NewMemoryStore(time.Hour)
	defer store.Close()

	app := fiber.New()
	app.Get("/", RateLimitMiddleware(store, ScopeGlobal, 10, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	if got := resp.Header.Get("X-RateLimit-Limit"); got != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", got)
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "9" {
		t.Errorf("X-RateLimit-Remaining = %q, want 9", got)
	}
}
