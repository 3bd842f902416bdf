package server

import (
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// cachedPage serves view from the response cache. The key is the view name
// and the raw page parameter only, so every viewer shares an entry and writes
// stay invisible until it expires.
func (s *Server) cachedPage(view string, next fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		key := cache.PageKey(view, c.Query("page"))

		if body, ok := s.pageCache.Get(ctx, key); ok {
			observability.RecordCacheLookup(view, true)
			c.Set("X-Cache", "HIT")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Status(fiber.StatusOK).Send(body)
		}
		observability.RecordCacheLookup(view, false)

		if err := next(c); err != nil {
			return err
		}
		c.Set("X-Cache", "MISS")

		if c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		body := append([]byte(nil), c.Response().Body()...)
		if err := s.pageCache.Set(ctx, key, body); err != nil {
			middleware.Logger.WarnContext(ctx, "page cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return nil
	}
}
