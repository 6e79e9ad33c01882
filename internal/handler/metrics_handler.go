package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
)

type sessionStateReader interface {
	State() models.SessionState
}

// MetricsHandler serves the health probe and the Prometheus endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	session sessionStateReader
}

// NewMetricsHandler constructs a MetricsHandler. session may be nil.
func NewMetricsHandler(metrics *service.MetricsService, session sessionStateReader) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, session: session}
}

// Prometheus serves the scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health reports liveness and whether the panel holds an operator session.
func (h *MetricsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.session != nil {
		body["session"] = h.session.State()
	}
	c.JSON(http.StatusOK, body)
}

// Snapshot returns the in-process counters.
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
