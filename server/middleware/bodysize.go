package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gostream/util"
)

const defaultMaxBodySize = 10 * 1024 * 1024

// BodySizeLimit restricts request bodies to maxSize ("10MB", "512KB", ...).
// Unparseable sizes fall back to 10MB.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}

// GinBodySizeLimit applies BodySizeLimit to a single Gin route.
func GinBodySizeLimit(maxSize string) gin.HandlerFunc {
	return GinWrap(BodySizeLimit(maxSize))
}
