package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type sessionService interface {
	Login(ctx context.Context, req service.LoginRequest) (*models.SessionSnapshot, error)
	Logout(ctx context.Context) error
	Snapshot(ctx context.Context) models.SessionSnapshot
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service sessionService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc sessionService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Sign in
// @Description Authenticate the operator against the municipal API and persist the session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body service.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "datos de inicio de sesión inválidos"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Sign out
// @Description Clear the stored tokens and operator
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Session godoc
// @Summary Current session
// @Description Returns the session state, operator and access token expiry
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(c.Request.Context()), nil)
}
