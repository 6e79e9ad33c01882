package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type userManager interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, cedula string, req service.UpdateUserRequest) (*models.User, error)
	ToggleActive(ctx context.Context, cedula string) (*models.User, error)
	Delete(ctx context.Context, cedula string, actor *models.User) error
}

// UserHandler handles operator account endpoints.
type UserHandler struct {
	service userManager
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc userManager) *UserHandler {
	return &UserHandler{service: svc}
}

// List godoc
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	response.JSON(c, http.StatusOK, users, nil)
}

// Create godoc
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "datos de usuario inválidos"))
		return
	}
	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param cedula path string true "User cedula"
// @Param payload body service.UpdateUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Router /users/{cedula} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "datos de usuario inválidos"))
		return
	}
	user, err := h.service.Update(c.Request.Context(), c.Param("cedula"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// ToggleActive godoc
// @Summary Toggle user active flag
// @Tags Users
// @Produce json
// @Param cedula path string true "User cedula"
// @Success 200 {object} response.Envelope
// @Router /users/{cedula}/active [patch]
func (h *UserHandler) ToggleActive(c *gin.Context) {
	user, err := h.service.ToggleActive(c.Request.Context(), c.Param("cedula"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Delete user
// @Tags Users
// @Param cedula path string true "User cedula"
// @Success 204 {object} response.Envelope
// @Router /users/{cedula} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("cedula"), userFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
