package dto

import "github.com/noah-isme/ayudas-panel/internal/models"

// RecordQuery captures GET /records query parameters.
type RecordQuery struct {
	Code     string `form:"codigo"`
	Search   string `form:"q"`
	SortBy   string `form:"sort"`
	SortDir  string `form:"dir"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// RecordPage is one page of the filtered record table.
type RecordPage struct {
	Records    []models.AidRecord
	Pagination models.Pagination
}

// ConfirmActionRequest carries the PIN for the pending action.
type ConfirmActionRequest struct {
	PIN string `json:"pin" validate:"required"`
}

// FinalizeRequest carries the optional closing observation.
type FinalizeRequest struct {
	Observacion string `json:"observacion"`
}

// VisibilityRequest reports whether the panel is visible.
type VisibilityRequest struct {
	Visible bool `json:"visible"`
}

// ReconcileResponse reports the outcome of a reconciliation pass.
type ReconcileResponse struct {
	Outcome string `json:"outcome"`
}

// NextCodeResponse is returned by GET /records/next-code.
type NextCodeResponse struct {
	Codigo string `json:"codigo"`
}
