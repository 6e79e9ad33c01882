package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user models.User) (*models.User, error)
	Update(ctx context.Context, cedula string, user models.User) (*models.User, error)
	SetActive(ctx context.Context, cedula string, active bool) (*models.User, error)
	Delete(ctx context.Context, cedula string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Cedula   string          `json:"cedula" validate:"required"`
	Nombre   string          `json:"nombre" validate:"required"`
	Username string          `json:"username" validate:"required"`
	Rol      models.UserRole `json:"rol" validate:"required,oneof=admin supervisor recepcion consultor seguimiento auditor basico"`
	Activo   *bool           `json:"activo"`
	Password string          `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest payload for updating users. An empty password keeps the current one.
type UpdateUserRequest struct {
	Nombre   string          `json:"nombre" validate:"required"`
	Username string          `json:"username" validate:"required"`
	Rol      models.UserRole `json:"rol" validate:"required,oneof=admin supervisor recepcion consultor seguimiento auditor basico"`
	Activo   *bool           `json:"activo"`
	Password string          `json:"password" validate:"omitempty,min=6"`
}

// UserService handles operator account management.
type UserService struct {
	repo      userRepository
	notifier  *Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, notifier *Notifier, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}

// Create adds a new account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	active := true
	if req.Activo != nil {
		active = *req.Activo
	}
	user, err := s.repo.Create(ctx, models.User{
		Cedula:   strings.TrimSpace(req.Cedula),
		Nombre:   req.Nombre,
		Username: strings.TrimSpace(req.Username),
		Rol:      req.Rol,
		Activo:   active,
		Password: req.Password,
	})
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	user.Password = ""
	s.notifier.Success("Usuario creado correctamente")
	s.logger.Info("user created", zap.String("cedula", user.Cedula), zap.String("rol", string(user.Rol)))
	return user, nil
}

// Update modifies the account keyed by cedula.
func (s *UserService) Update(ctx context.Context, cedula string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	current, err := s.find(ctx, cedula)
	if err != nil {
		return nil, err
	}
	active := current.Activo
	if req.Activo != nil {
		active = *req.Activo
	}
	user, err := s.repo.Update(ctx, cedula, models.User{
		Cedula:   cedula,
		Nombre:   req.Nombre,
		Username: strings.TrimSpace(req.Username),
		Rol:      req.Rol,
		Activo:   active,
		Password: req.Password,
	})
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	user.Password = ""
	s.notifier.Success("Usuario actualizado correctamente")
	return user, nil
}

// ToggleActive flips the active flag of the account keyed by cedula.
func (s *UserService) ToggleActive(ctx context.Context, cedula string) (*models.User, error) {
	current, err := s.find(ctx, cedula)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.SetActive(ctx, cedula, !current.Activo)
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	if user.Activo {
		s.notifier.Success("Usuario activado")
	} else {
		s.notifier.Success("Usuario desactivado")
	}
	return user, nil
}

// Delete removes the account keyed by cedula. Operators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, cedula string, actor *models.User) error {
	if actor != nil && actor.Cedula == cedula {
		return appErrors.Clone(appErrors.ErrForbidden, "no puede eliminar su propio usuario")
	}
	if err := s.repo.Delete(ctx, cedula); err != nil {
		s.notifier.Error(errorMessage(err))
		return err
	}
	s.notifier.Success("Usuario eliminado correctamente")
	return nil
}

func (s *UserService) find(ctx context.Context, cedula string) (*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Cedula == cedula {
			return &u, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
}

// IsNotFound reports whether err means the resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, appErrors.ErrNotFound)
}
