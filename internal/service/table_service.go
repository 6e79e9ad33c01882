package service

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/ayudas-panel/internal/dto"
	"github.com/noah-isme/ayudas-panel/internal/models"
)

// PageSizes lists the accepted table page sizes.
var PageSizes = []int{10, 25, 50, 100}

const pageWindowSize = 5

// sortKeys maps sortable columns to their accessors.
var sortKeys = map[string]func(models.AidRecord) string{
	"codigo":         func(r models.AidRecord) string { return r.Codigo },
	"cedula":         func(r models.AidRecord) string { return r.Cedula },
	"nombre":         func(r models.AidRecord) string { return r.Nombre },
	"tipo_ayuda":     func(r models.AidRecord) string { return r.TipoAyuda },
	"institucion":    func(r models.AidRecord) string { return r.Institucion },
	"estatus":        func(r models.AidRecord) string { return string(r.Estatus) },
	"estructura":     func(r models.AidRecord) string { return r.Estructura },
	"parroquia":      func(r models.AidRecord) string { return r.Parroquia },
	"responsable":    func(r models.AidRecord) string { return r.Responsable },
	"fecha_registro": func(r models.AidRecord) string { return r.FechaRegistro },
}

// TableView filters, sorts and paginates records the way the record table does.
func TableView(records []models.AidRecord, q dto.RecordQuery) dto.RecordPage {
	filtered := make([]models.AidRecord, 0, len(records))
	for _, r := range records {
		if MatchesCode(r, q.Code) && MatchesText(r, q.Search) {
			filtered = append(filtered, r)
		}
	}
	SortRecords(filtered, q.SortBy, strings.EqualFold(q.SortDir, "desc"))
	pageRecords, pagination := Paginate(filtered, q.Page, q.PageSize)
	return dto.RecordPage{Records: pageRecords, Pagination: pagination}
}

// MatchesCode applies the code filter. "AYU-12", "12" and "012" all match
// AYU-012; input without digits matches as a substring.
func MatchesCode(r models.AidRecord, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	digits := filter
	if len(digits) >= len(models.CodePrefix) && strings.EqualFold(digits[:len(models.CodePrefix)], models.CodePrefix) {
		digits = digits[len(models.CodePrefix):]
	}
	if n, err := strconv.Atoi(digits); err == nil {
		code, ok := models.CodeNumber(r.Codigo)
		return ok && code == n
	}
	return strings.Contains(strings.ToLower(r.Codigo), strings.ToLower(filter))
}

// MatchesText is the free-text filter over the visible columns.
func MatchesText(r models.AidRecord, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for _, field := range []string{r.Codigo, r.Cedula, r.Nombre, r.TipoAyuda, r.Institucion, string(r.Estatus), r.Estructura} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

// SortRecords orders records in place by key. Codes sort by their number,
// other text columns with Spanish collation. Unknown keys keep the order.
func SortRecords(records []models.AidRecord, key string, desc bool) {
	get, ok := sortKeys[key]
	if !ok {
		return
	}
	var less func(a, b models.AidRecord) int
	switch key {
	case "codigo":
		less = func(a, b models.AidRecord) int {
			na, _ := models.CodeNumber(a.Codigo)
			nb, _ := models.CodeNumber(b.Codigo)
			return na - nb
		}
	case "fecha_registro":
		less = func(a, b models.AidRecord) int { return strings.Compare(get(a), get(b)) }
	default:
		col := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
		less = func(a, b models.AidRecord) int { return col.CompareString(get(a), get(b)) }
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := less(records[i], records[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// Paginate slices records into the requested page. Unknown sizes fall back
// to the smallest one and pages are clamped to the valid range.
func Paginate(records []models.AidRecord, page, size int) ([]models.AidRecord, models.Pagination) {
	if !validPageSize(size) {
		size = PageSizes[0]
	}
	total := len(records)
	totalPages := (total + size - 1) / size
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	out := make([]models.AidRecord, end-start)
	copy(out, records[start:end])
	return out, models.Pagination{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: totalPages,
		Window:     PageWindow(page, totalPages),
	}
}

// PageWindow returns up to five page numbers around current, plus the first
// and last page when they fall outside, with 0 standing for an ellipsis.
func PageWindow(current, totalPages int) []int {
	if totalPages < 1 {
		return nil
	}
	start := current - pageWindowSize/2
	if start < 1 {
		start = 1
	}
	end := start + pageWindowSize - 1
	if end > totalPages {
		end = totalPages
		start = end - pageWindowSize + 1
		if start < 1 {
			start = 1
		}
	}

	window := make([]int, 0, pageWindowSize+4)
	if start > 1 {
		window = append(window, 1)
		if start > 2 {
			window = append(window, 0)
		}
	}
	for p := start; p <= end; p++ {
		window = append(window, p)
	}
	if end < totalPages {
		if end < totalPages-1 {
			window = append(window, 0)
		}
		window = append(window, totalPages)
	}
	return window
}

func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}
