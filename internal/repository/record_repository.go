package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

// RecordRepository reads and writes aid records on the remote API.
type RecordRepository struct {
	api  RemoteAPI
	path string
}

// NewRecordRepository constructs a record repository rooted at path.
func NewRecordRepository(api RemoteAPI, path string) *RecordRepository {
	return &RecordRepository{api: api, path: path}
}

// List fetches every aid record.
func (r *RecordRepository) List(ctx context.Context) ([]models.AidRecord, error) {
	var raw json.RawMessage
	if err := r.api.Get(ctx, r.path, nil, &raw); err != nil {
		return nil, err
	}
	records := []models.AidRecord{}
	if err := decodeList(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Create posts a new record and returns the remote version.
func (r *RecordRepository) Create(ctx context.Context, record models.AidRecord) (*models.AidRecord, error) {
	body := toRecordPayload(record)
	var created models.AidRecord
	if err := r.api.Post(ctx, r.path, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces record id and returns the remote version.
func (r *RecordRepository) Update(ctx context.Context, id int64, record models.AidRecord) (*models.AidRecord, error) {
	body := toRecordPayload(record)
	var updated models.AidRecord
	if err := r.api.Put(ctx, itemPath(r.path, id), body, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes record id.
func (r *RecordRepository) Delete(ctx context.Context, id int64) error {
	return r.api.Delete(ctx, itemPath(r.path, id))
}

// toRecordPayload drops the identifier the remote assigns itself.
func toRecordPayload(record models.AidRecord) map[string]interface{} {
	raw, _ := json.Marshal(record)
	body := map[string]interface{}{}
	_ = json.Unmarshal(raw, &body)
	delete(body, "id")
	return body
}
