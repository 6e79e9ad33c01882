package repository

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/models"
	appErrors "github.com/noah-isme/ayudas-panel/pkg/errors"
	"github.com/noah-isme/ayudas-panel/pkg/middleware/requestid"
)

// RegistryRepository queries the external civil registry by cedula.
type RegistryRepository struct {
	http    *resty.Client
	enabled bool
	logger  *zap.Logger
}

// NewRegistryRepository builds a lookup client. An empty baseURL disables it.
func NewRegistryRepository(baseURL string, timeout time.Duration, logger *zap.Logger) *RegistryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(logger.Sugar()).
		SetHeader("Accept", "application/json")
	return &RegistryRepository{http: client, enabled: baseURL != "", logger: logger}
}

// Lookup returns the registry entry for cedula.
func (r *RegistryRepository) Lookup(ctx context.Context, cedula string) (*models.Beneficiary, error) {
	if !r.enabled {
		return nil, appErrors.ErrFeatureDisabled
	}
	var out models.Beneficiary
	req := r.http.R().SetContext(ctx).SetResult(&out)
	if id := requestid.FromContext(ctx); id != "" {
		req.SetHeader(requestid.Header, id)
	}
	resp, err := req.Get("/" + url.PathEscape(cedula))
	if err != nil {
		r.logger.Warn("registry lookup failed", zap.String("cedula", cedula), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUnreachable.Code, appErrors.ErrUnreachable.Status, appErrors.ErrUnreachable.Message)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cédula no encontrada en el registro")
	case resp.IsError():
		return nil, appErrors.Clone(appErrors.ErrRemote, "el registro respondió con un error")
	}
	if out.Cedula == "" {
		out.Cedula = cedula
	}
	return &out, nil
}
