package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/gostream/errors"
	"github.com/kbukum/gostream/sysinfo"
)

// System returns a one-shot sample of host memory, CPU and load.
func System() gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := sysinfo.Sample(c.Request.Context())
		if err != nil {
			appErr := errors.Internal(err)
			_ = c.Error(err)
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"summary": stats.Summary(),
			"stats":   stats,
		})
	}
}
