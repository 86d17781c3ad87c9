package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps handlers with otelhttp instrumentation under the given
// service name. Probe endpoints are not instrumented.
func Telemetry(service string) func(http.Handler) http.Handler {
	return otelhttp.NewMiddleware(service,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !isProbe(r.URL.Path)
		}),
	)
}

func isProbe(path string) bool {
	return path == "/health" || path == "/metrics"
}
