package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/repository"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type referenceManager interface {
	Catalog() []models.ReferenceMeta
	List(ctx context.Context, kind models.ReferenceKind, parent *int64) ([]models.Reference, error)
	Create(ctx context.Context, kind models.ReferenceKind, ref models.Reference) (*models.Reference, error)
	Update(ctx context.Context, kind models.ReferenceKind, id int64, ref models.Reference) (*models.Reference, error)
	Delete(ctx context.Context, kind models.ReferenceKind, id int64) error
}

// ReferenceHandler serves the reference catalogues.
type ReferenceHandler struct {
	service referenceManager
}

// NewReferenceHandler constructs a ReferenceHandler.
func NewReferenceHandler(svc referenceManager) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// Catalog godoc
// @Summary List catalogues
// @Tags References
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /references [get]
func (h *ReferenceHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Catalog(), nil)
}

// List godoc
// @Summary List catalogue entries
// @Tags References
// @Produce json
// @Param kind path string true "Catalogue"
// @Param parent query int false "Parent ID"
// @Success 200 {object} response.Envelope
// @Router /references/{kind} [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	var parent *int64
	if raw := c.Query("parent"); raw != "" {
		id, err := repository.ParseID(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "parent inválido"))
			return
		}
		parent = &id
	}
	refs, err := h.service.List(c.Request.Context(), models.ReferenceKind(c.Param("kind")), parent)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, refs, nil)
}

// Create godoc
// @Summary Create catalogue entry
// @Tags References
// @Accept json
// @Produce json
// @Param kind path string true "Catalogue"
// @Param payload body models.Reference true "Entry"
// @Success 201 {object} response.Envelope
// @Router /references/{kind} [post]
func (h *ReferenceHandler) Create(c *gin.Context) {
	var ref models.Reference
	if err := c.ShouldBindJSON(&ref); err != nil {
		response.Error(c, bindError(err, "datos inválidos"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), models.ReferenceKind(c.Param("kind")), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update catalogue entry
// @Tags References
// @Accept json
// @Produce json
// @Param kind path string true "Catalogue"
// @Param id path int true "Entry ID"
// @Param payload body models.Reference true "Entry"
// @Success 200 {object} response.Envelope
// @Router /references/{kind}/{id} [put]
func (h *ReferenceHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var ref models.Reference
	if err := c.ShouldBindJSON(&ref); err != nil {
		response.Error(c, bindError(err, "datos inválidos"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), models.ReferenceKind(c.Param("kind")), id, ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Delete godoc
// @Summary Delete catalogue entry
// @Tags References
// @Param kind path string true "Catalogue"
// @Param id path int true "Entry ID"
// @Success 204 {object} response.Envelope
// @Router /references/{kind}/{id} [delete]
func (h *ReferenceHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), models.ReferenceKind(c.Param("kind")), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
