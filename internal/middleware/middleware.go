package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gpt-relay-bot/pkg/log"
)

// Trace puts a trace id on the request context so every log line of the
// request, including background work it spawns, can be correlated.
func (m Middleware) Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if id := c.GetHeader(HeaderRequestID); validRequestID(id) {
			ctx = log.WithTraceID(ctx, id)
		} else {
			ctx = log.NewTraceContext(ctx)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, log.TraceID(ctx))
		c.Next()
	}
}

// Logging writes one line per request. Health check endpoints are logged at debug.
func (m Middleware) Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		latency := time.Since(start)

		switch {
		case status >= 500:
			m.l.Errorf(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
		case status >= 400:
			m.l.Warnf(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
		case isHealthCheck(c.Request.URL.Path):
			m.l.Debugf(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
		default:
			m.l.Infof(ctx, "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, status, latency)
		}
	}
}

// validRequestID accepts caller ids of at most maxRequestIDLen characters
// drawn from [A-Za-z0-9._-]; anything else is replaced by a generated id.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch ch := id[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}

func isHealthCheck(path string) bool {
	return path == "/health" || path == "/ready" || path == "/live"
}
