package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/service"
)

const unmatchedRoute = "unmatched"

// Metrics observes every panel request. Requests that match no route share a
// single path label; refused requests are also counted by reason.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, status, time.Since(start))

		switch status {
		case http.StatusUnauthorized:
			metricsSvc.ObserveAccessDenied("unauthenticated", route)
		case http.StatusForbidden:
			metricsSvc.ObserveAccessDenied("forbidden", route)
		}
	}
}
