package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gpt-relay-bot/pkg/response"
)

// Health response constants (single source for version and service identity).
const (
	HealthVersion = "1.0.0"
	ServiceName   = "gpt-relay-bot"
)

// healthCheck reports that the process is serving.
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "healthy",
		"version": HealthVersion,
		"service": ServiceName,
	})
}

// readyCheck returns 503 while the Telegram API is unreachable.
func (srv *HTTPServer) readyCheck(c *gin.Context) {
	if srv.readiness != nil && !srv.readiness.Healthy() {
		response.ServiceUnavailable(c, gin.H{
			"status":  "not_ready",
			"service": ServiceName,
		})
		return
	}

	response.OK(c, gin.H{
		"status":  "ready",
		"version": HealthVersion,
		"service": ServiceName,
	})
}

func (srv *HTTPServer) liveCheck(c *gin.Context) {
	c.JSON(http.StatusOK, response.NewOKResp(gin.H{
		"status":  "alive",
		"service": ServiceName,
	}))
}
