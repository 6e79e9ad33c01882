package models

import (
	"fmt"
	"regexp"
	"strconv"
)

// Status is the workflow state of an aid record.
type Status string

const (
	StatusRegistered Status = "REGISTRADO / RECIBIDO"
	StatusInProgress Status = "EN PROCESO"
	StatusApproved   Status = "APROBADA"
	StatusDelivered  Status = "ENTREGADA"
	StatusRejected   Status = "RECHAZADA"
	StatusFinalized  Status = "FINALIZADA"
)

// UnknownAidType labels records whose aid type is missing.
const UnknownAidType = "Desconocido"

// CodePrefix starts every aid record code.
const CodePrefix = "AYU-"

var codePattern = regexp.MustCompile(`AYU-(\d+)`)

// Statuses lists every status in workflow order.
func Statuses() []Status {
	return []Status{StatusRegistered, StatusInProgress, StatusApproved, StatusDelivered, StatusRejected, StatusFinalized}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further change is allowed.
func (s Status) Terminal() bool {
	return s == StatusFinalized
}

// CanEditTo reports whether an edit may move a record from s to next.
// FINALIZADA is only reachable through finalize and never left. Legacy
// values read from the remote may move to any open status.
func (s Status) CanEditTo(next Status) bool {
	if s.Terminal() || !next.Valid() || next.Terminal() {
		return false
	}
	return true
}

// CanFinalize reports whether a record in s may be closed.
func (s Status) CanFinalize() bool {
	return !s.Terminal()
}

// AidRecord is one social-aid request as exchanged with the remote API.
type AidRecord struct {
	ID                 int64  `json:"id"`
	Codigo             string `json:"codigo"`
	Cedula             string `json:"cedula" validate:"required"`
	Nacionalidad       string `json:"nacionalidad" validate:"required,oneof=V E"`
	Nombre             string `json:"nombre" validate:"required"`
	Sexo               string `json:"sexo" validate:"required,oneof=M F"`
	FechaNacimiento    string `json:"fecha_nacimiento"`
	Telefono           string `json:"telefono" validate:"omitempty,phone"`
	Municipio          string `json:"municipio" validate:"required"`
	Parroquia          string `json:"parroquia" validate:"required"`
	Estructura         string `json:"estructura"`
	Calle              string `json:"calle"`
	Direccion          string `json:"direccion"`
	Institucion        string `json:"institucion" validate:"required"`
	Responsable        string `json:"responsable" validate:"required"`
	TipoAyuda          string `json:"tipo_ayuda" validate:"required"`
	SubtipoAyuda       string `json:"subtipo_ayuda"`
	Observacion        string `json:"observacion"`
	Estatus            Status `json:"estatus" validate:"required"`
	FechaRegistro      string `json:"fecha_registro"`
	FechaActualizacion string `json:"fecha_actualizacion"`
}

// CodeNumber returns the numeric suffix of an AYU-### code.
func CodeNumber(code string) (int, bool) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatCode renders n as an AYU-### code.
func FormatCode(n int) string {
	return fmt.Sprintf("%s%03d", CodePrefix, n)
}

// CacheEntry is the persisted snapshot of the record list.
type CacheEntry struct {
	Data      []AidRecord `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Beneficiary is the civil registry data used to prefill the record form.
type Beneficiary struct {
	Cedula          string `json:"cedula"`
	Nacionalidad    string `json:"nacionalidad"`
	Nombre          string `json:"nombre"`
	Sexo            string `json:"sexo"`
	FechaNacimiento string `json:"fecha_nacimiento"`
	Telefono        string `json:"telefono"`
	Municipio       string `json:"municipio"`
	Parroquia       string `json:"parroquia"`
	Direccion       string `json:"direccion"`
}

// Pagination describes a page of an in-memory collection. Window lists the
// page buttons to show; 0 marks an ellipsis.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int   `json:"total_count"`
	TotalPages int   `json:"total_pages"`
	Window     []int `json:"window,omitempty"`
}
