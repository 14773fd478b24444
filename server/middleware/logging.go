package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/gostream/logger"
)

var probePaths = map[string]bool{
	"/health": true,
	"/alive":  true,
	"/ready":  true,
}

// RequestLogger returns middleware that logs every request with method,
// path, status code and duration. Probe paths are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      sw.status,
				"bytes":       sw.written,
				"duration_ms": duration.Milliseconds(),
			}
			if id := RequestIDFrom(r.Context()); id != "" {
				fields["request_id"] = id
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			logByStatus(log, fields, sw.status)
		})
	}
}

// logByStatus logs at error for 5xx, warn for 4xx and debug otherwise.
// A nil log uses the global logger.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
