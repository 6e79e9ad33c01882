package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ayudas-panel/internal/middleware"
	"github.com/noah-isme/ayudas-panel/internal/models"
	"github.com/noah-isme/ayudas-panel/internal/service"
	"github.com/noah-isme/ayudas-panel/pkg/logger"
	corsmiddleware "github.com/noah-isme/ayudas-panel/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ayudas-panel/pkg/middleware/requestid"
)

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
}

// RouterDeps groups the handlers mounted by NewRouter. Sectorial is optional.
type RouterDeps struct {
	Session       middleware.SessionSource
	Metrics       *service.MetricsService
	Logger        *zap.Logger
	Auth          *AuthHandler
	Records       *DashboardHandler
	Sectorial     *DashboardHandler
	Beneficiaries *BeneficiaryHandler
	Reports       *ReportHandler
	References    *ReferenceHandler
	Users         *UserHandler
	Notifications *NotificationHandler
	Observability *MetricsHandler
}

// NewRouter builds the panel HTTP API.
func NewRouter(cfg RouterConfig, deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.Observability.Health)
	r.GET("/metrics", deps.Observability.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/logout", deps.Auth.Logout)
	api.GET("/auth/session", deps.Auth.Session)

	secured := api.Group("")
	secured.Use(middleware.Session(deps.Session), middleware.WithResponseMeta())

	writers := middleware.RequireRoles(models.WriterRoles...)
	closers := middleware.RequireRoles(models.CloserRoles...)
	reporters := middleware.RequireRoles(models.ReporterRoles...)
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(log, action, "ayuda") }

	records := secured.Group("/records")
	records.GET("", deps.Records.List)
	records.POST("/refresh", deps.Records.Refresh)
	records.POST("/reconcile", deps.Records.Reconcile)
	records.POST("/visibility", deps.Records.Visibility)
	records.GET("/next-code", writers, deps.Records.NextCode)
	records.GET("/repeat-check", writers, deps.Records.RepeatCheck)
	records.GET("/actions", writers, deps.Records.ActionState)
	records.POST("/actions/confirm", writers, deps.Records.ConfirmAction)
	records.DELETE("/actions", writers, deps.Records.CancelAction)
	records.POST("", writers, audit("create"), deps.Records.Create)
	records.GET("/:id", deps.Records.Get)
	records.PUT("/:id", writers, audit("update"), deps.Records.Update)
	records.POST("/:id/actions/:action", writers, deps.Records.RequestAction)
	records.POST("/:id/finalize", closers, audit("finalize"), deps.Records.Finalize)
	records.DELETE("/:id", closers, audit("delete"), deps.Records.Delete)

	if deps.Sectorial != nil {
		sectorial := secured.Group("/sectorial/records")
		sectorial.GET("", deps.Sectorial.List)
		sectorial.GET("/:id", deps.Sectorial.Get)
		sectorial.POST("/refresh", deps.Sectorial.Refresh)
		sectorial.POST("/visibility", deps.Sectorial.Visibility)
	}

	secured.GET("/beneficiaries/:cedula", writers, deps.Beneficiaries.Lookup)

	reports := secured.Group("/reports", reporters)
	reports.GET("/summary", deps.Reports.Summary)
	reports.GET("/records", deps.Reports.Records)
	reports.GET("/export", deps.Reports.Export)

	refWriters := middleware.RequireRoles(models.ReferenceRoles...)
	secured.GET("/references", deps.References.Catalog)
	secured.GET("/references/:kind", deps.References.List)
	secured.POST("/references/:kind", refWriters, deps.References.Create)
	secured.PUT("/references/:kind/:id", refWriters, deps.References.Update)
	secured.DELETE("/references/:kind/:id", refWriters, deps.References.Delete)

	users := secured.Group("/users", middleware.RequireRoles(models.UserAdminRoles...))
	users.GET("", deps.Users.List)
	users.POST("", deps.Users.Create)
	users.PUT("/:cedula", deps.Users.Update)
	users.PATCH("/:cedula/active", deps.Users.ToggleActive)
	users.DELETE("/:cedula", deps.Users.Delete)

	secured.GET("/notifications", deps.Notifications.List)
	secured.DELETE("/notifications/:id", deps.Notifications.Dismiss)
	secured.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), deps.Observability.Snapshot)

	return r
}
