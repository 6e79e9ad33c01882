package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

const dateLayout = "2006-01-02"

// NormalizeRecord fills derived fields so cached and fresh records compare
// on equal terms. It is idempotent.
func NormalizeRecord(r models.AidRecord) models.AidRecord {
	r.Cedula = strings.TrimSpace(r.Cedula)
	if r.Nacionalidad == "" {
		r.Nacionalidad = nationalityFromCedula(r.Cedula)
	}
	r.Sexo = SexLabel(r.Sexo)
	r.FechaNacimiento = NormalizeDate(r.FechaNacimiento)
	if strings.TrimSpace(r.TipoAyuda) == "" {
		r.TipoAyuda = models.UnknownAidType
	}
	return r
}

// NormalizeRecords normalizes every record into a new slice.
func NormalizeRecords(records []models.AidRecord) []models.AidRecord {
	out := make([]models.AidRecord, len(records))
	for i, r := range records {
		out[i] = NormalizeRecord(r)
	}
	return out
}

func nationalityFromCedula(cedula string) string {
	if strings.HasPrefix(strings.ToUpper(cedula), "E") {
		return "E"
	}
	return "V"
}

// SexLabel turns the M/F code into its display label.
func SexLabel(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M":
		return "Masculino"
	case "F":
		return "Femenino"
	}
	return code
}

// SexCode turns a display label back into the M/F code the remote stores.
func SexCode(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "masculino", "m":
		return "M"
	case "femenino", "f":
		return "F"
	}
	return label
}

// NormalizeDate accepts YYYY-MM-DD, an RFC3339 timestamp, DD-MM-YYYY,
// DD/MM/YYYY or YYYY/MM/DD, with or without zero padding, and returns
// YYYY-MM-DD, or "" when the value cannot be read.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if len(raw) >= 10 && raw[4] == '-' {
		if d, err := time.Parse(dateLayout, raw[:10]); err == nil {
			return d.Format(dateLayout)
		}
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) != 3 {
		return ""
	}
	dayPart, yearPart := parts[0], parts[2]
	if len(parts[0]) == 4 {
		dayPart, yearPart = parts[2], parts[0]
	}
	day, errD := strconv.Atoi(dayPart)
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(yearPart)
	if errD != nil || errM != nil || errY != nil || len(yearPart) != 4 || len(dayPart) > 2 {
		return ""
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// parseDay reads the calendar day of a date or timestamp in loc.
func parseDay(raw string, loc *time.Location) (time.Time, bool) {
	norm := NormalizeDate(raw)
	if norm == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(dateLayout, norm, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// toRemote prepares a cached record for a write.
func toRemote(r models.AidRecord) models.AidRecord {
	r.Sexo = SexCode(r.Sexo)
	if r.TipoAyuda == models.UnknownAidType {
		r.TipoAyuda = ""
	}
	return r
}
