package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
)

var cedulaPattern = regexp.MustCompile(`^[VEve]?-?\d{5,10}$`)

type registryLookup interface {
	Lookup(ctx context.Context, cedula string) (*models.Beneficiary, error)
}

// BeneficiaryService prefills the record form from the civil registry.
type BeneficiaryService struct {
	registry registryLookup
}

// NewBeneficiaryService constructs a BeneficiaryService.
func NewBeneficiaryService(registry registryLookup) *BeneficiaryService {
	return &BeneficiaryService{registry: registry}
}

// Lookup returns registry data for cedula with display-ready fields.
func (s *BeneficiaryService) Lookup(ctx context.Context, cedula string) (*models.Beneficiary, error) {
	cedula = strings.TrimSpace(cedula)
	if !cedulaPattern.MatchString(cedula) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cédula inválida")
	}
	b, err := s.registry.Lookup(ctx, cedula)
	if err != nil {
		return nil, err
	}
	if b.Nacionalidad == "" {
		b.Nacionalidad = nationalityFromCedula(cedula)
	}
	b.FechaNacimiento = NormalizeDate(b.FechaNacimiento)
	return b, nil
}
