package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/handler"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/repository"
	"github.com/noah-isme/ayudas-panel/internal/service"
	"github.com/noah-isme/ayudas-panel/pkg/apiclient"
	"github.com/noah-isme/ayudas-panel/pkg/cache"
	"github.com/noah-isme/ayudas-panel/pkg/config"
	"github.com/noah-isme/ayudas-panel/pkg/database"
	"github.com/noah-isme/ayudas-panel/pkg/logger"
	"github.com/noah-isme/ayudas-panel/pkg/storage"
)

// app holds every long-lived component of the panel.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *service.MetricsService

	tokens   *repository.TokenStore
	client   *apiclient.Client
	notifier *service.Notifier
	gate     *service.ActionGate

	auth       *service.AuthService
	dashboard  *service.DashboardService
	sectorial  *service.DashboardService
	webhook    *service.WebhookService
	reports    *service.ReportService
	exports    *service.ExportService
	users      *service.UserService
	references *service.ReferenceService
	registry   *service.BeneficiaryService

	closers []func() error
}

// buildApp loads the configuration and wires the component graph. exportDir
// enables report persistence when not empty.
func buildApp(ctx context.Context, exportDir string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logr, metrics: service.NewMetricsService()}

	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	store = repository.WithNamespace(store, cfg.Store.Namespace)

	a.tokens = repository.NewTokenStore(store)
	a.client = apiclient.New(apiclient.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Timeout:     cfg.Remote.Timeout,
		LoginPath:   cfg.Remote.LoginPath,
		RefreshPath: cfg.Remote.RefreshPath,
		Logger:      logr.Named("remote"),
		Observer:    a.metrics,
	}, a.tokens)

	records := repository.NewRecordRepository(a.client, cfg.Remote.RecordsPath)
	userRepo := repository.NewUserRepository(a.client, cfg.Remote.UsersPath)
	referenceRepo := repository.NewReferenceRepository(a.client)
	registryRepo := repository.NewRegistryRepository(cfg.Remote.RegistryURL, cfg.Remote.Timeout, logr.Named("registry"))

	validate := service.NewValidator()
	a.notifier = service.NewNotifier(cfg.Notifications.TTL, time.Now)

	verifier, err := service.NewPINVerifier(cfg.Security.PIN, cfg.Security.PINHash)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("security pin: %w", err)
	}
	a.gate = service.NewActionGate(verifier, a.notifier, cfg.Security.GrantTTL, time.Now)

	a.webhook = service.NewWebhookService(cfg.Remote.WebhookURL, cfg.Remote.Timeout, a.metrics, logr.Named("webhook"))

	newDashboard := func(name, key string, scope func(models.AidRecord) bool) *service.DashboardService {
		cacheCfg := service.RecordCacheConfig{
			Key:              key,
			TTL:              cfg.Records.CacheTTL,
			ReconcileTimeout: cfg.Records.ReconcileTimeout,
			Scope:            scope,
		}
		recordCache := service.NewRecordCache(records, store, a.notifier, a.metrics, logr.Named(name), cacheCfg)
		return service.NewDashboardService(service.DashboardServiceParams{
			Cache:     recordCache,
			Writer:    records,
			Gate:      a.gate,
			Verifier:  verifier,
			Notifier:  a.notifier,
			Webhook:   a.webhook,
			Validator: validate,
			Logger:    logr.Named(name),
			Config:    service.DashboardServiceConfig{ReconcileInterval: cfg.Records.ReconcileInterval},
		})
	}

	a.dashboard = newDashboard("records", cfg.Records.CacheKey, nil)
	if len(cfg.Records.SectorialStructures) > 0 {
		a.sectorial = newDashboard("sectorial", cfg.Records.SectorialCacheKey, service.StructureScope(cfg.Records.SectorialStructures))
	}

	a.reports = service.NewReportService(a.dashboard)
	a.exports = service.NewExportService(a.reports, nil, logr.Named("export"))
	if exportDir != "" {
		files, err := storage.NewLocalStorage(exportDir)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("export dir: %w", err)
		}
		a.exports = service.NewExportService(a.reports, files, logr.Named("export"))
	}

	a.users = service.NewUserService(userRepo, a.notifier, validate, logr.Named("users"))
	a.references = service.NewReferenceService(referenceRepo, a.notifier, validate, logr.Named("references"))
	a.registry = service.NewBeneficiaryService(registryRepo)

	a.auth = service.NewAuthService(a.tokens, a.client, validate, logr.Named("auth"), service.AuthConfig{
		RefreshInterval: cfg.Session.RefreshInterval,
	})
	a.client.OnSessionExpired(a.auth.Expire)
	a.auth.Init(ctx)

	return a, nil
}

// openStore connects the configured key-value backend.
func (a *app) openStore(ctx context.Context) (repository.KVStore, error) {
	switch a.cfg.Store.Backend {
	case config.StoreRedis:
		client, err := cache.NewRedis(ctx, a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store := repository.NewRedisStore(client)
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("prepare store schema: %w", err)
		}
		return store, nil
	case config.StoreMemory, "":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}

// router mounts the HTTP API over the wired services.
func (a *app) router() *gin.Engine {
	deps := handler.RouterDeps{
		Session:       a.auth,
		Metrics:       a.metrics,
		Logger:        a.logger,
		Auth:          handler.NewAuthHandler(a.auth),
		Records:       handler.NewDashboardHandler(a.dashboard, a.gate),
		Beneficiaries: handler.NewBeneficiaryHandler(a.registry),
		Reports:       handler.NewReportHandler(a.reports, a.exports),
		References:    handler.NewReferenceHandler(a.references),
		Users:         handler.NewUserHandler(a.users),
		Notifications: handler.NewNotificationHandler(a.notifier),
		Observability: handler.NewMetricsHandler(a.metrics, a.auth),
	}
	if a.sectorial != nil {
		deps.Sectorial = handler.NewDashboardHandler(a.sectorial, nil)
	}
	return handler.NewRouter(handler.RouterConfig{
		APIPrefix:      a.cfg.APIPrefix,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		EnableDocs:     a.cfg.Env != config.EnvProduction,
	}, deps)
}

// close stops background loops and releases connections.
func (a *app) close() {
	if a.dashboard != nil {
		a.dashboard.Stop()
	}
	if a.sectorial != nil {
		a.sectorial.Stop()
	}
	if a.webhook != nil {
		a.webhook.Stop()
	}
	if a.auth != nil {
		a.auth.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
