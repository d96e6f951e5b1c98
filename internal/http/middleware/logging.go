// README: Request logging middleware; attaches a request-scoped zerolog logger to the context.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logging logs one line per request and stores a logger carrying the request id in the
// request context, where handlers pick it up with zerolog.Ctx.
func Logging(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := log.With().Str("request_id", RequestIDFrom(c)).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Warn()
		default:
			ev = reqLog.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
