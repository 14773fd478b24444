package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/logger"
)

// Recovery returns middleware that turns handler panics into a 500 error
// envelope. http.ErrAbortHandler is re-raised so the server drops the
// connection, which is how handlers abort a response already in flight.
func Recovery(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					log.Debug("Response aborted", map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
					})
					panic(rec)
				}
				log.Error("Panic recovered", map[string]interface{}{
					"error":  fmt.Sprintf("%v", rec),
					"stack":  string(debug.Stack()),
					"method": r.Method,
					"path":   r.URL.Path,
				})
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(errors.Internal(nil).ToResponse())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
