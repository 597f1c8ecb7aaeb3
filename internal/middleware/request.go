package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"eduplatform/internal/domain"
	"eduplatform/internal/pkg/logger"
)

const (
	RequestIDHeader     = "X-Request-Id"
	RequestIDContextKey = "request_id"
	loggerContextKey    = "logger"
)

// RequestID tags every request with an id, reusing the caller's header when
// present, and scopes the request logger to it.
func RequestID(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := strings.TrimSpace(c.Get(RequestIDHeader))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		c.Set(RequestIDHeader, reqID)
		c.Locals(RequestIDContextKey, reqID)

		if log != nil {
			c.Locals(loggerContextKey, log)
			c.SetUserContext(log.WithRequestID(c.UserContext(), reqID))
		}

		return c.Next()
	}
}

// Logging writes one line per completed request. Errors are rendered through
// the app's error handler first so the logged status is the one sent.
func Logging(log *logger.Logger, skip ...string) fiber.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skipped[c.Path()]; ok || log == nil {
			return c.Next()
		}

		ctx := log.WithFields(c.UserContext(), map[string]any{
			"method": c.Method(),
			"path":   c.Path(),
		})
		c.SetUserContext(ctx)
		start := time.Now()

		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		ctx = log.WithFields(c.UserContext(), map[string]any{
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		log.Info(ctx, "request.complete")
		return nil
	}
}

// RequestMeta captures the client details recorded on audit entries and
// sessions. CF-Connecting-IP wins when the API sits behind Cloudflare.
func RequestMeta(c *fiber.Ctx) *domain.RequestMeta {
	ip := strings.TrimSpace(c.Get("CF-Connecting-IP"))
	if ip == "" {
		ip = c.IP()
	}
	return &domain.RequestMeta{
		IPAddress: ip,
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func loggerFrom(c *fiber.Ctx) *logger.Logger {
	log, _ := c.Locals(loggerContextKey).(*logger.Logger)
	return log
}
