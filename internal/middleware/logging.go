package middleware

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"inkwell/internal/access"
	"inkwell/internal/config"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. It writes text until
// InitLogger picks a format for the configured environment.
var Logger = NewLogger(os.Stdout, false)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	UsernameKey  contextKey = "username"
	TraceIDKey   contextKey = "trace_id"
)

// IdentityLocal is the fiber local holding the requester's *access.Identity.
const IdentityLocal = "identity"

// IdentityFrom returns the requester attached to c, or nil when anonymous.
func IdentityFrom(c *fiber.Ctx) *access.Identity {
	id, _ := c.Locals(IdentityLocal).(*access.Identity)
	return id
}

// ctxHandler copies request-scoped values from the context onto each record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok {
		r.AddAttrs(slog.Any("user_id", uid))
	}
	if name, ok := ctx.Value(UsernameKey).(string); ok {
		r.AddAttrs(slog.String("username", name))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a context-aware logger writing JSON or text to w.
func NewLogger(w io.Writer, jsonFormat bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// InitLogger switches Logger to JSON for production profiles.
func InitLogger(cfg *config.Config) {
	Logger = NewLogger(os.Stdout, cfg != nil && cfg.IsProduction())
}

// ContextMiddleware moves the request id, the requester and the trace id
// from fiber locals into the request context so service code logs them.
// It must run after identity resolution and tracing.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
		}
		if id := IdentityFrom(c); id != nil {
			ctx = context.WithValue(ctx, UserIDKey, id.UserID)
			ctx = context.WithValue(ctx, UsernameKey, id.Username)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request. Server errors log at error
// level, everything else at info.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
		}
		if page := c.Query("page"); page != "" {
			fields = append(fields, slog.String("page", page))
		}
		if cached := c.GetRespHeader("X-Cache"); cached != "" {
			fields = append(fields, slog.String("cache", cached))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else if status >= fiber.StatusInternalServerError {
			Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}
