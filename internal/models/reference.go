package models

// ReferenceKind identifies a reference-data catalogue.
type ReferenceKind string

const (
	KindInstitution ReferenceKind = "instituciones"
	KindAidType     ReferenceKind = "tipos-ayuda"
	KindAidSubtype  ReferenceKind = "subtipos-ayuda"
	KindParish      ReferenceKind = "parroquias"
	KindBlock       ReferenceKind = "bloques"
	KindSector      ReferenceKind = "sectores"
	KindStructure   ReferenceKind = "estructuras"
	KindStreet      ReferenceKind = "calles"
)

// ReferenceMeta describes where a catalogue lives and what it hangs from.
type ReferenceMeta struct {
	Kind        ReferenceKind `json:"kind"`
	Label       string        `json:"label"`
	Path        string        `json:"path"`
	ParentKind  ReferenceKind `json:"parent_kind,omitempty"`
	ParentField string        `json:"parent_field,omitempty"`
}

var referenceCatalog = []ReferenceMeta{
	{Kind: KindInstitution, Label: "Instituciones", Path: "/instituciones/"},
	{Kind: KindAidType, Label: "Tipos de ayuda", Path: "/tipos-ayuda/"},
	{Kind: KindAidSubtype, Label: "Subtipos de ayuda", Path: "/subtipos-ayuda/", ParentKind: KindAidType, ParentField: "tipo_ayuda"},
	{Kind: KindParish, Label: "Parroquias", Path: "/parroquias/"},
	{Kind: KindBlock, Label: "Bloques", Path: "/bloques/", ParentKind: KindParish, ParentField: "parroquia"},
	{Kind: KindSector, Label: "Sectores", Path: "/sectores/", ParentKind: KindBlock, ParentField: "bloque"},
	{Kind: KindStructure, Label: "Estructuras", Path: "/estructuras/", ParentKind: KindSector, ParentField: "sector"},
	{Kind: KindStreet, Label: "Calles", Path: "/calles/", ParentKind: KindStructure, ParentField: "estructura"},
}

// ReferenceCatalog returns metadata for every catalogue.
func ReferenceCatalog() []ReferenceMeta {
	out := make([]ReferenceMeta, len(referenceCatalog))
	copy(out, referenceCatalog)
	return out
}

// LookupReference returns the metadata of kind.
func LookupReference(kind ReferenceKind) (ReferenceMeta, bool) {
	for _, meta := range referenceCatalog {
		if meta.Kind == kind {
			return meta, true
		}
	}
	return ReferenceMeta{}, false
}

// Reference is one entry of a catalogue.
type Reference struct {
	ID     int64  `json:"id"`
	Codigo string `json:"codigo"`
	Nombre string `json:"nombre" validate:"required"`
	Parent *int64 `json:"parent,omitempty"`
}
