package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/MattK1989/Peripherals-and-Embedded-OS/internal/logging"
)

// HTTPLoggingMiddleware logs each request once it completes. The status API
// is polled, so successful reads log at debug; failures are raised to warn
// and error.
func HTTPLoggingMiddleware(ctx huma.Context, next func(huma.Context)) {
	start := time.Now()
	next(ctx)

	logger := logging.GetLogger(logging.ModuleHTTP)
	method := ctx.Method()
	status := ctx.Status()
	u := ctx.URL()
	level := requestLevel(method, u.Path, status)
	if !logger.Enabled(ctx.Context(), level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
		slog.String("remote_addr", ctx.RemoteAddr()),
	}
	if query := redactQuery(u.Query()); query != "" {
		attrs = append(attrs, slog.String("query", query))
	}
	logger.LogAttrs(ctx.Context(), level, "HTTP request completed", attrs...)
}

// requestLevel picks the log level for a finished request.
func requestLevel(method, path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case method == http.MethodOptions:
		return slog.LevelDebug
	case strings.HasSuffix(path, "/stream") || path == "/api/events" || path == "/api/metrics":
		// SSE connections end when the client goes away.
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// redactQuery renders the query string with the auth parameter masked.
func redactQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	q := make(url.Values, len(values))
	for k, v := range values {
		if k == "auth" {
			v = []string{"REDACTED"}
		}
		q[k] = v
	}
	return q.Encode()
}
