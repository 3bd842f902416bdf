package middleware

import (
	"net/http/httptest"
	"testing"

	"inkwell/internal/access"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })
	return rec
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpanByRoute(t *testing.T) {
	rec := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Use(withIdentity(&access.Identity{UserID: 5, Username: "anna"}))
	app.Get("/posts/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for _, target := range []string{"/posts/1", "/posts/2"} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
		_ = resp.Body.Close()
	}

	spans := rec.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, "GET /posts/:id", span.Name())

		route, ok := spanAttr(span.Attributes(), "http.route")
		require.True(t, ok)
		assert.Equal(t, "/posts/:id", route.AsString())

		user, ok := spanAttr(span.Attributes(), "enduser.id")
		require.True(t, ok)
		assert.Equal(t, "5", user.AsString())
	}
}

func TestTracingMiddleware_AnonymousHasNoUser(t *testing.T) {
	rec := recordSpans(t)

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	_, ok := spanAttr(spans[0].Attributes(), "enduser.id")
	assert.False(t, ok)
}
