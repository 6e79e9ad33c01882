package service

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// NewValidator returns a validator aware of the panel's custom tags.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// NextCode returns the code following the highest AYU-### already known.
// Concurrent creators can compute the same value; the remote decides.
func NextCode(records []models.AidRecord) string {
	highest := 0
	for _, r := range records {
		if n, ok := models.CodeNumber(r.Codigo); ok && n > highest {
			highest = n
		}
	}
	return models.FormatCode(highest + 1)
}

// RecentRegistrations counts records for cedula registered within the last
// three months, day granularity, today included.
func RecentRegistrations(records []models.AidRecord, cedula string, now time.Time) int {
	cedula = strings.TrimSpace(cedula)
	if cedula == "" {
		return 0
	}
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	from := today.AddDate(0, -3, 0)

	count := 0
	for _, r := range records {
		if !strings.EqualFold(strings.TrimSpace(r.Cedula), cedula) {
			continue
		}
		day, ok := parseDay(r.FechaRegistro, loc)
		if !ok {
			continue
		}
		if !day.Before(from) && !day.After(today) {
			count++
		}
	}
	return count
}

// RequiresPIN reports whether a new record for cedula is a repeat application.
func RequiresPIN(records []models.AidRecord, cedula string, now time.Time) bool {
	return RecentRegistrations(records, cedula, now) >= 2
}
