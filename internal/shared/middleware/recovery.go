package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nwitter-backend/internal/shared/response"
)

// Recovery turns a handler panic into a 500 envelope. Panics after the
// response was written (e.g. inside a websocket stream) are only logged.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			log.Error().
				Str("request_id", c.GetString("request_id")).
				Str("principal_id", GetPrincipalID(c)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Panic recovered")

			if !c.Writer.Written() {
				response.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
			}
			c.Abort()
		}()

		c.Next()
	}
}
