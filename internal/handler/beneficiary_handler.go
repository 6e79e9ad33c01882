package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type beneficiaryLookup interface {
	Lookup(ctx context.Context, cedula string) (*models.Beneficiary, error)
}

// BeneficiaryHandler prefills the record form from the civil registry.
type BeneficiaryHandler struct {
	service beneficiaryLookup
}

// NewBeneficiaryHandler constructs a BeneficiaryHandler.
func NewBeneficiaryHandler(svc beneficiaryLookup) *BeneficiaryHandler {
	return &BeneficiaryHandler{service: svc}
}

// Lookup godoc
// @Summary Look up a beneficiary
// @Tags Beneficiaries
// @Produce json
// @Param cedula path string true "Cedula"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /beneficiaries/{cedula} [get]
func (h *BeneficiaryHandler) Lookup(c *gin.Context) {
	b, err := h.service.Lookup(c.Request.Context(), c.Param("cedula"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b, nil)
}
