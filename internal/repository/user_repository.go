package repository

import (
	"context"
	"encoding/json"

	"github.com/noah-isme/ayudas-panel/internal/models"
)

// UserRepository manages operator accounts on the remote API.
type UserRepository struct {
	api  RemoteAPI
	path string
}

// NewUserRepository constructs a user repository rooted at path.
func NewUserRepository(api RemoteAPI, path string) *UserRepository {
	return &UserRepository{api: api, path: path}
}

// List returns every account.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var raw json.RawMessage
	if err := r.api.Get(ctx, r.path, nil, &raw); err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := decodeList(raw, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Create registers a new account.
func (r *UserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	if err := r.api.Post(ctx, r.path, user, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces the account keyed by cedula. An empty password keeps the
// current one.
func (r *UserRepository) Update(ctx context.Context, cedula string, user models.User) (*models.User, error) {
	var updated models.User
	if err := r.api.Put(ctx, itemPath(r.path, cedula), user, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(ctx context.Context, cedula string, active bool) (*models.User, error) {
	var updated models.User
	if err := r.api.Patch(ctx, itemPath(r.path, cedula), map[string]bool{"activo": active}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the account keyed by cedula.
func (r *UserRepository) Delete(ctx context.Context, cedula string) error {
	return r.api.Delete(ctx, itemPath(r.path, cedula))
}
