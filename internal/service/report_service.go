package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type recordSource interface {
	Current(ctx context.Context) ([]models.AidRecord, error)
}

// ReportService filters the working set and aggregates it for reporting.
type ReportService struct {
	records recordSource
}

// NewReportService constructs a ReportService.
func NewReportService(records recordSource) *ReportService {
	return &ReportService{records: records}
}

// Records returns the records matching filter.
func (s *ReportService) Records(ctx context.Context, filter dto.ReportFilter) ([]models.AidRecord, error) {
	if err := validateReportFilter(filter); err != nil {
		return nil, err
	}
	all, err := s.records.Current(ctx)
	if err != nil {
		return nil, err
	}
	return FilterReport(all, filter), nil
}

// Summary aggregates the records matching filter.
func (s *ReportService) Summary(ctx context.Context, filter dto.ReportFilter) (*dto.ReportSummary, error) {
	records, err := s.Records(ctx, filter)
	if err != nil {
		return nil, err
	}
	summary := Summarize(records)
	return &summary, nil
}

// FilterReport applies every report filter conjunctively.
func FilterReport(records []models.AidRecord, f dto.ReportFilter) []models.AidRecord {
	from, hasFrom := parseDay(f.From, time.UTC)
	to, hasTo := parseDay(f.To, time.UTC)

	out := make([]models.AidRecord, 0, len(records))
	for _, r := range records {
		if hasFrom || hasTo {
			day, ok := parseDay(r.FechaRegistro, time.UTC)
			if !ok || (hasFrom && day.Before(from)) || (hasTo && day.After(to)) {
				continue
			}
		}
		if !equalFoldOrEmpty(f.Estructura, r.Estructura) ||
			!equalFoldOrEmpty(f.TipoAyuda, r.TipoAyuda) ||
			!equalFoldOrEmpty(f.Estatus, string(r.Estatus)) ||
			!equalFoldOrEmpty(f.Institucion, r.Institucion) {
			continue
		}
		if !matchesReportSearch(r, f.Search) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Summarize counts records per status, aid type, institution, parish,
// structure and sex.
func Summarize(records []models.AidRecord) dto.ReportSummary {
	return dto.ReportSummary{
		Total:         len(records),
		ByStatus:      countBy(records, func(r models.AidRecord) string { return string(r.Estatus) }),
		ByAidType:     countBy(records, func(r models.AidRecord) string { return r.TipoAyuda }),
		ByInstitution: countBy(records, func(r models.AidRecord) string { return r.Institucion }),
		ByParish:      countBy(records, func(r models.AidRecord) string { return r.Parroquia }),
		ByStructure:   countBy(records, func(r models.AidRecord) string { return r.Estructura }),
		BySex:         countBy(records, func(r models.AidRecord) string { return r.Sexo }),
	}
}

func countBy(records []models.AidRecord, key func(models.AidRecord) string) []dto.CountEntry {
	counts := make(map[string]int)
	for _, r := range records {
		label := strings.TrimSpace(key(r))
		if label == "" {
			label = "Sin especificar"
		}
		counts[label]++
	}
	out := make([]dto.CountEntry, 0, len(counts))
	for label, n := range counts {
		out = append(out, dto.CountEntry{Label: label, Count: n})
	}
	col := collate.New(language.Spanish, collate.IgnoreCase)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return col.CompareString(out[i].Label, out[j].Label) < 0
	})
	return out
}

func matchesReportSearch(r models.AidRecord, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for _, field := range []string{r.Codigo, r.Cedula, r.Nombre, r.TipoAyuda, r.SubtipoAyuda, r.Institucion, string(r.Estatus), r.Estructura, r.Parroquia, r.Responsable, r.Observacion} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func equalFoldOrEmpty(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

func validateReportFilter(f dto.ReportFilter) error {
	from, hasFrom := parseDay(f.From, time.UTC)
	to, hasTo := parseDay(f.To, time.UTC)
	if (f.From != "" && !hasFrom) || (f.To != "" && !hasTo) {
		return appErrors.Clone(appErrors.ErrValidation, "fecha inválida, use AAAA-MM-DD")
	}
	if hasFrom && hasTo && from.After(to) {
		return appErrors.Clone(appErrors.ErrValidation, "la fecha inicial es posterior a la final")
	}
	return nil
}
