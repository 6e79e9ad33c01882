package dto

// ReportFilter captures report query parameters. Dates use YYYY-MM-DD.
type ReportFilter struct {
	From        string `form:"desde"`
	To          string `form:"hasta"`
	Estructura  string `form:"estructura"`
	TipoAyuda   string `form:"tipo_ayuda"`
	Estatus     string `form:"estatus"`
	Institucion string `form:"institucion"`
	Search      string `form:"q"`
}

// CountEntry is one bucket of a report breakdown.
type CountEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ReportSummary aggregates the filtered records.
type ReportSummary struct {
	Total         int          `json:"total"`
	ByStatus      []CountEntry `json:"por_estatus"`
	ByAidType     []CountEntry `json:"por_tipo_ayuda"`
	ByInstitution []CountEntry `json:"por_institucion"`
	ByParish      []CountEntry `json:"por_parroquia"`
	ByStructure   []CountEntry `json:"por_estructura"`
	BySex         []CountEntry `json:"por_sexo"`
}

// ReportExport is a rendered report document.
type ReportExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}
