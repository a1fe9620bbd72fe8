package middleware

import (
	"errors"
	"net/http"

	"vaultbooks/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached with c.Error as the JSON error
// envelope. Non domain errors become a 500 without leaking the cause.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		var be errutil.BaseError
		if errors.As(last.Err, &be) {
			c.JSON(be.Code.HTTPStatus(), be.JSON())
			return
		}

		zap.L().Error("unhandled request error",
			zap.String("path", c.FullPath()),
			zap.String("trace_id", TraceID(c.Request.Context())),
			zap.Error(last.Err),
		)
		c.JSON(http.StatusInternalServerError, errutil.BaseError{
			Code:    errutil.StatusInternal,
			Message: "internal error",
		}.JSON())
	}
}
