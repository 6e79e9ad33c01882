package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/pkg/response"
)

type reportQuerier interface {
	Records(ctx context.Context, filter dto.ReportFilter) ([]models.AidRecord, error)
	Summary(ctx context.Context, filter dto.ReportFilter) (*dto.ReportSummary, error)
}

type reportExporter interface {
	Export(ctx context.Context, filter dto.ReportFilter, format string) (*dto.ReportExport, error)
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports  reportQuerier
	exporter reportExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportQuerier, exporter reportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter}
}

// Summary godoc
// @Summary Report summary
// @Description Totals per status, aid type, institution, parish, structure and sex
// @Tags Reports
// @Produce json
// @Param desde query string false "From date YYYY-MM-DD"
// @Param hasta query string false "To date YYYY-MM-DD"
// @Param estructura query string false "Structure"
// @Param tipo_ayuda query string false "Aid type"
// @Param estatus query string false "Status"
// @Param institucion query string false "Institution"
// @Param q query string false "Free text"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	summary, err := h.reports.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Records godoc
// @Summary Report records
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/records [get]
func (h *ReportHandler) Records(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	records, err := h.reports.Records(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"total": len(records)})
}

// Export godoc
// @Summary Export report
// @Description Renders the filtered records as csv, pdf or xlsx
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /reports/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filter, ok := bindReportFilter(c)
	if !ok {
		return
	}
	doc, err := h.exporter.Export(c.Request.Context(), filter, c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, doc.Filename, doc.ContentType, doc.Payload)
}

func bindReportFilter(c *gin.Context) (dto.ReportFilter, bool) {
	var filter dto.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, bindError(err, "filtros inválidos"))
		return filter, false
	}
	return filter, true
}
