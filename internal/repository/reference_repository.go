package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

// ReferenceRepository manages the reference catalogues on the remote API.
type ReferenceRepository struct {
	api RemoteAPI
}

// NewReferenceRepository constructs a reference repository.
func NewReferenceRepository(api RemoteAPI) *ReferenceRepository {
	return &ReferenceRepository{api: api}
}

// List returns every entry of the catalogue.
func (r *ReferenceRepository) List(ctx context.Context, meta models.ReferenceMeta) ([]models.Reference, error) {
	var raw json.RawMessage
	if err := r.api.Get(ctx, meta.Path, nil, &raw); err != nil {
		return nil, err
	}
	var items []map[string]json.RawMessage
	if err := decodeList(raw, &items); err != nil {
		return nil, err
	}
	out := make([]models.Reference, 0, len(items))
	for _, item := range items {
		out = append(out, decodeReference(meta, item))
	}
	return out, nil
}

// Get returns one entry.
func (r *ReferenceRepository) Get(ctx context.Context, meta models.ReferenceMeta, id int64) (*models.Reference, error) {
	var item map[string]json.RawMessage
	if err := r.api.Get(ctx, itemPath(meta.Path, id), nil, &item); err != nil {
		return nil, err
	}
	ref := decodeReference(meta, item)
	return &ref, nil
}

// Create adds an entry.
func (r *ReferenceRepository) Create(ctx context.Context, meta models.ReferenceMeta, ref models.Reference) (*models.Reference, error) {
	var item map[string]json.RawMessage
	if err := r.api.Post(ctx, meta.Path, encodeReference(meta, ref), &item); err != nil {
		return nil, err
	}
	created := decodeReference(meta, item)
	return &created, nil
}

// Update replaces an entry.
func (r *ReferenceRepository) Update(ctx context.Context, meta models.ReferenceMeta, id int64, ref models.Reference) (*models.Reference, error) {
	var item map[string]json.RawMessage
	if err := r.api.Put(ctx, itemPath(meta.Path, id), encodeReference(meta, ref), &item); err != nil {
		return nil, err
	}
	updated := decodeReference(meta, item)
	return &updated, nil
}

// Delete removes an entry.
func (r *ReferenceRepository) Delete(ctx context.Context, meta models.ReferenceMeta, id int64) error {
	return r.api.Delete(ctx, itemPath(meta.Path, id))
}

func encodeReference(meta models.ReferenceMeta, ref models.Reference) map[string]interface{} {
	body := map[string]interface{}{
		"codigo": ref.Codigo,
		"nombre": ref.Nombre,
	}
	if meta.ParentField != "" && ref.Parent != nil {
		body[meta.ParentField] = *ref.Parent
	}
	return body
}

func decodeReference(meta models.ReferenceMeta, item map[string]json.RawMessage) models.Reference {
	ref := models.Reference{}
	if id, ok := looseID(item["id"]); ok {
		ref.ID = id
	}
	_ = json.Unmarshal(item["codigo"], &ref.Codigo)
	_ = json.Unmarshal(item["nombre"], &ref.Nombre)
	if meta.ParentField != "" {
		if parent, ok := looseID(item[meta.ParentField]); ok {
			ref.Parent = &parent
		}
	}
	return ref
}

// looseID reads an identifier sent as a number, a numeric string or a nested
// object carrying an id.
func looseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}
	var nested struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested.ID) > 0 {
		return looseID(nested.ID)
	}
	return 0, false
}

// ParseID converts a path parameter into a reference identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
