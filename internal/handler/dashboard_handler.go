package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/middleware"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type recordWorkflow interface {
	Current(ctx context.Context) ([]models.AidRecord, error)
	Load(ctx context.Context, force bool) ([]models.AidRecord, error)
	VisibilityChanged(ctx context.Context, visible bool)
	Reconcile(ctx context.Context) (string, error)
	NextCode(ctx context.Context) (string, error)
	RepeatCheck(ctx context.Context, cedula string) (*service.RepeatStatus, error)
	Find(ctx context.Context, id int64) (*models.AidRecord, error)
	Create(ctx context.Context, req service.CreateRecordRequest, user *models.User) (*models.AidRecord, error)
	Update(ctx context.Context, id int64, record models.AidRecord, user *models.User) (*models.AidRecord, error)
	Finalize(ctx context.Context, id int64, observation string, user *models.User) (*models.AidRecord, error)
	Delete(ctx context.Context, id int64) error
}

type actionGate interface {
	Request(recordID int64, action models.SensitiveAction) (models.GateState, error)
	Confirm(pin string) (models.GateState, error)
	Cancel()
	State() models.GateState
}

// DashboardHandler serves the record table and the record workflows.
type DashboardHandler struct {
	records recordWorkflow
	gate    actionGate
}

// NewDashboardHandler constructs a DashboardHandler. gate may be nil for
// read-only dashboards.
func NewDashboardHandler(records recordWorkflow, gate actionGate) *DashboardHandler {
	return &DashboardHandler{records: records, gate: gate}
}

// List godoc
// @Summary List aid records
// @Description Filter, sort and paginate the working set of aid records
// @Tags Records
// @Produce json
// @Param codigo query string false "Code filter"
// @Param q query string false "Free text"
// @Param sort query string false "Sort column"
// @Param dir query string false "asc or desc"
// @Param page query int false "Page number"
// @Param page_size query int false "10, 25, 50 or 100"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *DashboardHandler) List(c *gin.Context) {
	var q dto.RecordQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, bindError(err, "parámetros de consulta inválidos"))
		return
	}
	records, err := h.records.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	page := service.TableView(records, q)
	middleware.SetMeta(c, "total_registros", len(records))
	response.JSON(c, http.StatusOK, page.Records, toPagination(page.Pagination), middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get aid record
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	record, err := h.records.Find(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Refresh godoc
// @Summary Reload records from the remote
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /records/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	records, err := h.records.Load(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"total": len(records)}, nil)
}

// Reconcile godoc
// @Summary Run one reconciliation pass
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /records/reconcile [post]
func (h *DashboardHandler) Reconcile(c *gin.Context) {
	outcome, err := h.records.Reconcile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ReconcileResponse{Outcome: outcome}, nil)
}

// Visibility godoc
// @Summary Report panel visibility
// @Description A visible panel triggers a background reconciliation
// @Tags Records
// @Accept json
// @Param payload body dto.VisibilityRequest true "Visibility"
// @Success 202 {object} response.Envelope
// @Router /records/visibility [post]
func (h *DashboardHandler) Visibility(c *gin.Context) {
	var req dto.VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "solicitud inválida"))
		return
	}
	h.records.VisibilityChanged(c.Request.Context(), req.Visible)
	response.JSON(c, http.StatusAccepted, req, nil)
}

// NextCode godoc
// @Summary Next record code
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /records/next-code [get]
func (h *DashboardHandler) NextCode(c *gin.Context) {
	code, err := h.records.NextCode(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NextCodeResponse{Codigo: code}, nil)
}

// RepeatCheck godoc
// @Summary Repeat applicant check
// @Description Counts recent registrations of a cedula and whether a PIN is needed
// @Tags Records
// @Produce json
// @Param cedula query string true "Cedula"
// @Success 200 {object} response.Envelope
// @Router /records/repeat-check [get]
func (h *DashboardHandler) RepeatCheck(c *gin.Context) {
	cedula := c.Query("cedula")
	if cedula == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "cedula requerida"))
		return
	}
	status, err := h.records.RepeatCheck(c.Request.Context(), cedula)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Create godoc
// @Summary Register aid record
// @Description The record is shown at once and removed again if the remote rejects it
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body service.CreateRecordRequest true "Record"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /records [post]
func (h *DashboardHandler) Create(c *gin.Context) {
	var req service.CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "datos de la ayuda inválidos"))
		return
	}
	record, err := h.records.Create(c.Request.Context(), req, userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Update godoc
// @Summary Update aid record
// @Description Needs an edit authorization from the PIN gate
// @Tags Records
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body models.AidRecord true "Record"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Router /records/{id} [put]
func (h *DashboardHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var record models.AidRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		response.Error(c, bindError(err, "datos de la ayuda inválidos"))
		return
	}
	updated, err := h.records.Update(c.Request.Context(), id, record, userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Finalize godoc
// @Summary Finalize aid record
// @Description Needs a finalize authorization from the PIN gate
// @Tags Records
// @Accept json
// @Produce json
// @Param id path int true "Record ID"
// @Param payload body dto.FinalizeRequest false "Closing observation"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/finalize [post]
func (h *DashboardHandler) Finalize(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req dto.FinalizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "solicitud inválida"))
			return
		}
	}
	record, err := h.records.Finalize(c.Request.Context(), id, req.Observacion, userFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete aid record
// @Description Needs a delete authorization from the PIN gate
// @Tags Records
// @Param id path int true "Record ID"
// @Success 204 {object} response.Envelope
// @Router /records/{id} [delete]
func (h *DashboardHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.records.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RequestAction godoc
// @Summary Request a sensitive action
// @Description Opens a PIN challenge for edit, delete or finalize on a record
// @Tags Records
// @Produce json
// @Param id path int true "Record ID"
// @Param action path string true "edit, delete or finalize"
// @Success 200 {object} response.Envelope
// @Router /records/{id}/actions/{action} [post]
func (h *DashboardHandler) RequestAction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.records.Find(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	state, err := h.gate.Request(id, models.SensitiveAction(c.Param("action")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// ConfirmAction godoc
// @Summary Confirm the pending action
// @Tags Records
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmActionRequest true "PIN"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /records/actions/confirm [post]
func (h *DashboardHandler) ConfirmAction(c *gin.Context) {
	var req dto.ConfirmActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "solicitud inválida"))
		return
	}
	state, err := h.gate.Confirm(req.PIN)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// ActionState godoc
// @Summary Pending action state
// @Tags Records
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /records/actions [get]
func (h *DashboardHandler) ActionState(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.gate.State(), nil)
}

// CancelAction godoc
// @Summary Cancel the pending action
// @Tags Records
// @Success 204 {object} response.Envelope
// @Router /records/actions [delete]
func (h *DashboardHandler) CancelAction(c *gin.Context) {
	h.gate.Cancel()
	response.NoContent(c)
}
