package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type sessionTokenStore interface {
	AccessToken(ctx context.Context) (string, error)
	User(ctx context.Context) (*models.User, error)
	Save(ctx context.Context, access, refresh string, user models.User) error
	Clear(ctx context.Context) error
}

type authClient interface {
	Post(ctx context.Context, path string, body, result interface{}) error
	Refresh(ctx context.Context) error
	LoginPath() string
}

// LoginRequest is the credential payload accepted by Login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthConfig tunes the session lifecycle.
type AuthConfig struct {
	RefreshInterval time.Duration
}

// AuthService owns the operator session: it restores it from the token
// store, signs in and out, and refreshes the access token periodically
// while authenticated.
type AuthService struct {
	tokens    sessionTokenStore
	client    authClient
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig

	mu    sync.RWMutex
	state models.SessionState
	user  *models.User

	timerMu sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewAuthService constructs an AuthService in the loading state.
func NewAuthService(tokens sessionTokenStore, client authClient, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = 15 * time.Minute
	}
	return &AuthService{
		tokens:    tokens,
		client:    client,
		validator: validate,
		logger:    logger,
		config:    config,
		state:     models.SessionLoading,
	}
}

// Init restores the session from the token store. A stored access token and
// a readable user mean authenticated; an unreadable user clears the store.
func (s *AuthService) Init(ctx context.Context) models.SessionState {
	access, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.logger.Warn("read access token failed", zap.Error(err))
	}
	user, userErr := s.tokens.User(ctx)

	switch {
	case access != "" && userErr == nil:
		s.setState(models.SessionAuthenticated, user)
		s.startRefresher()
	case userErr != nil && !errors.Is(userErr, appErrors.ErrCacheMiss):
		s.logger.Warn("stored user is unreadable, clearing session", zap.Error(userErr))
		if err := s.tokens.Clear(ctx); err != nil {
			s.logger.Warn("clear token store failed", zap.Error(err))
		}
		s.setState(models.SessionUnauthenticated, nil)
	default:
		s.setState(models.SessionUnauthenticated, nil)
	}
	return s.State()
}

// Login authenticates against the remote API and persists the session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*models.SessionSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "usuario y contraseña son obligatorios")
	}

	var result models.LoginResult
	if err := s.client.Post(ctx, s.client.LoginPath(), req, &result); err != nil {
		if errors.Is(err, appErrors.ErrUnauthorized) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, appErrors.FromError(err).Message)
		}
		return nil, err
	}
	if result.Access == "" {
		return nil, appErrors.Clone(appErrors.ErrRemote, "el servidor no devolvió un token de acceso")
	}

	if err := s.tokens.Save(ctx, result.Access, result.Refresh, result.User); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo guardar la sesión")
	}
	user := result.User
	user.Password = ""
	s.setState(models.SessionAuthenticated, &user)
	s.startRefresher()
	s.logger.Info("operator signed in", zap.String("username", user.Username), zap.String("rol", string(user.Rol)))

	snap := s.Snapshot(ctx)
	return &snap, nil
}

// Logout clears the stored session and stops the refresher.
func (s *AuthService) Logout(ctx context.Context) error {
	s.stopRefresher()
	s.setState(models.SessionUnauthenticated, nil)
	if err := s.tokens.Clear(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "no se pudo cerrar la sesión")
	}
	return nil
}

// Expire marks the session as lost after the client failed to refresh. The
// client has already cleared the store.
func (s *AuthService) Expire() {
	s.stopRefresher()
	s.setState(models.SessionUnauthenticated, nil)
	s.logger.Warn("session expired")
}

// State returns the current session state.
func (s *AuthService) State() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentUser returns the signed-in operator.
func (s *AuthService) CurrentUser() (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != models.SessionAuthenticated || s.user == nil {
		return nil, appErrors.ErrUnauthorized
	}
	u := *s.user
	return &u, nil
}

// Snapshot describes the session including the access token expiry.
func (s *AuthService) Snapshot(ctx context.Context) models.SessionSnapshot {
	s.mu.RLock()
	snap := models.SessionSnapshot{State: s.state}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	s.mu.RUnlock()

	if snap.State == models.SessionAuthenticated {
		if access, err := s.tokens.AccessToken(ctx); err == nil && access != "" {
			snap.AccessExpires = TokenExpiry(access)
		}
	}
	return snap
}

// Close stops the refresher and waits for it to exit.
func (s *AuthService) Close() {
	s.stopRefresher()
	s.wg.Wait()
}

// TokenExpiry reads the exp claim of a JWT without verifying it.
func TokenExpiry(token string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}

func (s *AuthService) setState(state models.SessionState, user *models.User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	s.mu.Unlock()
}

func (s *AuthService) startRefresher() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.wg.Add(1)
	go s.refreshLoop(stop)
}

func (s *AuthService) stopRefresher() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *AuthService) refreshLoop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := s.client.Refresh(ctx)
			if err != nil {
				s.logger.Warn("periodic token refresh failed, signing out", zap.Error(err))
				if logoutErr := s.Logout(ctx); logoutErr != nil {
					s.logger.Warn("logout after refresh failure", zap.Error(logoutErr))
				}
				cancel()
				return
			}
			cancel()
		}
	}
}
