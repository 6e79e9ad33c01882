package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/export"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

var reportHeaders = []string{
	"Código", "Cédula", "Nombre", "Sexo", "Teléfono", "Parroquia", "Estructura",
	"Institución", "Tipo de ayuda", "Subtipo", "Estatus", "Fecha de registro", "Responsable",
}

// ExportService renders filtered report records into documents.
type ExportService struct {
	reports   *ReportService
	renderers map[export.Format]export.Renderer
	storage   fileStorage
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. storage may be nil when
// documents are only streamed.
func NewExportService(reports *ReportService, storage fileStorage, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports:   reports,
		renderers: export.Renderers(),
		storage:   storage,
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders the records matching filter in format.
func (s *ExportService) Export(ctx context.Context, filter dto.ReportFilter, format string) (*dto.ReportExport, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "formato de exportación no soportado")
	}
	records, err := s.reports.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	renderer := s.renderers[f]
	payload, err := renderer.Render(BuildDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo generar el reporte")
	}
	s.logger.Info("report exported", zap.String("format", string(f)), zap.Int("records", len(records)))
	return &dto.ReportExport{
		Filename:    fmt.Sprintf("reporte_ayudas_%s.%s", s.now().Format("20060102_150405"), f),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

// Save renders the report and writes it to storage, returning its path.
func (s *ExportService) Save(ctx context.Context, filter dto.ReportFilter, format string) (string, error) {
	if s.storage == nil {
		return "", appErrors.Clone(appErrors.ErrFeatureDisabled, "almacenamiento de reportes no configurado")
	}
	doc, err := s.Export(ctx, filter, format)
	if err != nil {
		return "", err
	}
	rel, err := s.storage.Save(doc.Filename, doc.Payload)
	if err != nil {
		return "", err
	}
	return s.storage.Path(rel), nil
}

// BuildDataset turns records into the report table.
func BuildDataset(records []models.AidRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"Código":            r.Codigo,
			"Cédula":            r.Cedula,
			"Nombre":            r.Nombre,
			"Sexo":              r.Sexo,
			"Teléfono":          r.Telefono,
			"Parroquia":         r.Parroquia,
			"Estructura":        r.Estructura,
			"Institución":       r.Institucion,
			"Tipo de ayuda":     r.TipoAyuda,
			"Subtipo":           r.SubtipoAyuda,
			"Estatus":           string(r.Estatus),
			"Fecha de registro": NormalizeDate(r.FechaRegistro),
			"Responsable":       r.Responsable,
		})
	}
	return export.Dataset{
		Title:   "Reporte de ayudas sociales",
		Headers: reportHeaders,
		Rows:    rows,
	}
}
