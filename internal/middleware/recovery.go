package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into the same INTERNAL_ERROR envelope the
// handlers use for unexpected failures.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
		}()
		c.Next()
	}
}
