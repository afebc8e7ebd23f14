// Package middleware provides net/http middleware for the status server.
// Every middleware has the func(http.Handler) http.Handler shape, so it
// plugs into a chi router as is.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	base ctxKey = iota + 1
)

const tracerName = "github.com/adamwoolhether/pakfetch/web/middleware"

// Values are shared across the middleware of one request.
type Values struct {
	TraceID string
	Now     time.Time
}

// GetValues retrieves the Values from ctx, or fresh ones carrying the nil
// trace ID when Trace did not run.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(base).(*Values)
	if !ok {
		return &Values{
			TraceID: uuid.Nil.String(),
			Now:     time.Now(),
		}
	}

	return v
}

func setValues(ctx context.Context, v *Values) context.Context {
	return context.WithValue(ctx, base, v)
}

// Trace starts a span per request and stores the request Values. The
// trace ID is the span's when valid and a random UUID otherwise, and is
// echoed in the X-Trace-Id response header.
func Trace(tp trace.TracerProvider) func(http.Handler) http.Handler {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, "pakfetch.http")
			defer span.End()
			span.SetAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("path", r.URL.Path),
			)

			otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(w.Header()))

			traceID := span.SpanContext().TraceID().String()
			if !span.SpanContext().TraceID().IsValid() {
				traceID = uuid.New().String()
			}
			w.Header().Set("X-Trace-Id", traceID)

			v := Values{
				TraceID: traceID,
				Now:     time.Now().UTC(),
			}

			next.ServeHTTP(w, r.WithContext(setValues(ctx, &v)))
		})
	}
}
