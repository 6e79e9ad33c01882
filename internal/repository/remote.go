package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// RemoteAPI is the subset of the remote client the repositories rely on.
type RemoteAPI interface {
	Get(ctx context.Context, path string, query map[string]string, result interface{}) error
	Post(ctx context.Context, path string, body, result interface{}) error
	Put(ctx context.Context, path string, body, result interface{}) error
	Patch(ctx context.Context, path string, body, result interface{}) error
	Delete(ctx context.Context, path string) error
}

// itemPath joins a collection path and an identifier keeping the trailing slash.
func itemPath(collection string, id interface{}) string {
	return fmt.Sprintf("%s/%v/", strings.TrimRight(collection, "/"), id)
}

type pagedList struct {
	Results json.RawMessage `json:"results"`
}

// decodeList accepts either a bare JSON array or a paged {"results": [...]}
// envelope.
func decodeList(raw json.RawMessage, dest interface{}) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '{' {
		var paged pagedList
		if err := json.Unmarshal(trimmed, &paged); err != nil {
			return fmt.Errorf("decode paged list: %w", err)
		}
		trimmed = paged.Results
		if len(trimmed) == 0 {
			return nil
		}
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	return nil
}
