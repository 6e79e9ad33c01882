package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

// Token store keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// TokenStore persists the credentials of the signed-in operator.
type TokenStore struct {
	store KVStore
}

// NewTokenStore wraps a KV backend.
func NewTokenStore(store KVStore) *TokenStore {
	return &TokenStore{store: store}
}

// AccessToken returns the stored access token or "" when absent.
func (s *TokenStore) AccessToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyAccessToken)
}

// RefreshToken returns the stored refresh token or "" when absent.
func (s *TokenStore) RefreshToken(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyRefreshToken)
}

// SetAccessToken replaces the access token.
func (s *TokenStore) SetAccessToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, KeyAccessToken, []byte(token))
}

// SetRefreshToken replaces the refresh token.
func (s *TokenStore) SetRefreshToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, KeyRefreshToken, []byte(token))
}

// User decodes the stored operator. A missing entry yields ErrCacheMiss and
// a corrupt one a decode error.
func (s *TokenStore) User(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := GetJSON(ctx, s.store, KeyUser, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Save writes access token, refresh token and user as three entries.
func (s *TokenStore) Save(ctx context.Context, access, refresh string, user models.User) error {
	user.Password = ""
	if err := s.SetAccessToken(ctx, access); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if err := s.SetRefreshToken(ctx, refresh); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if err := SetJSON(ctx, s.store, KeyUser, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Clear removes the three session entries.
func (s *TokenStore) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyUser} {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *TokenStore) getString(ctx context.Context, key string) (string, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return "", nil
		}
		return "", err
	}
	return string(raw), nil
}
