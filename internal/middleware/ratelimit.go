package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// AttemptLimit caps form submissions per client in a fixed window. Only POSTs
// count, so rendering the form is never limited.
type AttemptLimit struct {
	Name   string
	Max    int
	Window time.Duration
	// KeyFields are form values appended to the client key, so "username"
	// on login limits guesses per account as well as per address.
	KeyFields []string
	// FailClosed rejects requests with 503 while Redis is unreachable.
	FailClosed bool
}

var errNoStore = errors.New("attempt limiter has no redis client")

// attempt counts one hit against key and reports the running total and the
// time left in the window.
func attempt(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	if rdb == nil {
		return 0, 0, errNoStore
	}
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

func attemptKey(c *fiber.Ctx, l AttemptLimit) string {
	var b strings.Builder
	b.WriteString("attempts:")
	b.WriteString(l.Name)
	b.WriteString(":")
	b.WriteString(c.IP())
	for _, f := range l.KeyFields {
		b.WriteString(":")
		b.WriteString(strings.ToLower(strings.TrimSpace(c.FormValue(f))))
	}
	return b.String()
}

// LimitAttempts enforces l. Development and test environments are not limited.
func LimitAttempts(rdb *redis.Client, env string, l AttemptLimit) fiber.Handler {
	if env == "development" || env == "test" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		n, ttl, err := attempt(c.UserContext(), rdb, attemptKey(c, l), l.Window)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "attempt limiter unavailable",
				slog.String("limit", l.Name), slog.Bool("fail_closed", l.FailClosed), slog.String("error", err.Error()))
			if l.FailClosed {
				return fiber.NewError(fiber.StatusServiceUnavailable, "Please try again shortly.")
			}
			return c.Next()
		}

		if n > int64(l.Max) {
			if ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			}
			Logger.InfoContext(c.UserContext(), "attempt limit reached", slog.String("limit", l.Name))
			return fiber.NewError(fiber.StatusTooManyRequests,
				fmt.Sprintf("Too many attempts, please try again in %s.", ttl.Round(time.Minute)))
		}
		return c.Next()
	}
}
