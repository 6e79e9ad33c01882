package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

type referenceRepository interface {
	List(ctx context.Context, meta models.ReferenceMeta) ([]models.Reference, error)
	Get(ctx context.Context, meta models.ReferenceMeta, id int64) (*models.Reference, error)
	Create(ctx context.Context, meta models.ReferenceMeta, ref models.Reference) (*models.Reference, error)
	Update(ctx context.Context, meta models.ReferenceMeta, id int64, ref models.Reference) (*models.Reference, error)
	Delete(ctx context.Context, meta models.ReferenceMeta, id int64) error
}

// ReferenceService manages the reference catalogues. Remote error messages
// reach the operator unchanged.
type ReferenceService struct {
	repo      referenceRepository
	notifier  *Notifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(repo referenceRepository, notifier *Notifier, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReferenceService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Catalog lists the available catalogues.
func (s *ReferenceService) Catalog() []models.ReferenceMeta {
	return models.ReferenceCatalog()
}

// List returns every entry of kind, optionally restricted to a parent.
func (s *ReferenceService) List(ctx context.Context, kind models.ReferenceKind, parent *int64) ([]models.Reference, error) {
	meta, err := lookupKind(kind)
	if err != nil {
		return nil, err
	}
	refs, err := s.repo.List(ctx, meta)
	if err != nil {
		return nil, err
	}
	if parent == nil || meta.ParentKind == "" {
		return refs, nil
	}
	out := make([]models.Reference, 0, len(refs))
	for _, r := range refs {
		if r.Parent != nil && *r.Parent == *parent {
			out = append(out, r)
		}
	}
	return out, nil
}

// Create adds an entry after checking its parent exists.
func (s *ReferenceService) Create(ctx context.Context, kind models.ReferenceKind, ref models.Reference) (*models.Reference, error) {
	meta, err := s.prepare(ctx, kind, &ref)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, meta, ref)
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	s.notifier.Success("Registro creado correctamente")
	return created, nil
}

// Update replaces an entry after checking its parent exists.
func (s *ReferenceService) Update(ctx context.Context, kind models.ReferenceKind, id int64, ref models.Reference) (*models.Reference, error) {
	meta, err := s.prepare(ctx, kind, &ref)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, meta, id, ref)
	if err != nil {
		s.notifier.Error(errorMessage(err))
		return nil, err
	}
	s.notifier.Success("Registro actualizado correctamente")
	return updated, nil
}

// Delete removes an entry.
func (s *ReferenceService) Delete(ctx context.Context, kind models.ReferenceKind, id int64) error {
	meta, err := lookupKind(kind)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, meta, id); err != nil {
		s.notifier.Error(errorMessage(err))
		return err
	}
	s.notifier.Success("Registro eliminado correctamente")
	return nil
}

func (s *ReferenceService) prepare(ctx context.Context, kind models.ReferenceKind, ref *models.Reference) (models.ReferenceMeta, error) {
	meta, err := lookupKind(kind)
	if err != nil {
		return meta, err
	}
	ref.Nombre = strings.TrimSpace(ref.Nombre)
	ref.Codigo = strings.TrimSpace(ref.Codigo)
	if err := s.validator.Struct(ref); err != nil {
		return meta, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "el nombre es obligatorio")
	}
	if meta.ParentKind == "" {
		ref.Parent = nil
		return meta, nil
	}
	if ref.Parent == nil {
		return meta, appErrors.Clone(appErrors.ErrValidation, "debe seleccionar el elemento superior")
	}
	parentMeta, _ := models.LookupReference(meta.ParentKind)
	if _, err := s.repo.Get(ctx, parentMeta, *ref.Parent); err != nil {
		if IsNotFound(err) {
			return meta, appErrors.Clone(appErrors.ErrValidation, "el elemento superior no existe")
		}
		return meta, err
	}
	return meta, nil
}

func lookupKind(kind models.ReferenceKind) (models.ReferenceMeta, error) {
	meta, ok := models.LookupReference(kind)
	if !ok {
		return meta, appErrors.Clone(appErrors.ErrNotFound, "catálogo desconocido")
	}
	return meta, nil
}
