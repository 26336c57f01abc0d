package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/laporpak-api/internal/handler"
	"github.com/noah-isme/laporpak-api/internal/middleware"
	"github.com/noah-isme/laporpak-api/internal/models"
	"github.com/noah-isme/laporpak-api/internal/service"
	"github.com/noah-isme/laporpak-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/laporpak-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/laporpak-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Reports   *handler.ReportHandler
	Workflow  *handler.WorkflowHandler
	RTReview  *handler.ReviewHandler
	Admin     *handler.ReviewHandler
	Dashboard *handler.DashboardHandler
	Export    *handler.ExportHandler
	Petugas   *handler.PetugasHandler
	Photos    *handler.PhotoHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the cross-cutting collaborators of the router.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	EnableMetrics  bool
	Tokens         middleware.TokenValidator
	MetricsService *service.MetricsService
	Logger         *zap.Logger
}

// New builds the gin engine with middleware and the full route table.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.EnableMetrics {
		r.Use(middleware.Metrics(opts.MetricsService))
	}

	r.GET("/health", h.Metrics.Health)
	if opts.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	r.GET("/photos/:token", h.Photos.Show)

	api := r.Group(opts.APIPrefix, middleware.JWT(opts.Tokens))

	reports := api.Group("/reports")
	reports.GET("", h.Reports.List)
	reports.POST("", h.Reports.Create)
	reports.GET("/statistics", h.Reports.Statistics)
	reports.GET("/:id", h.Reports.Show)
	reports.GET("/:id/history", h.Reports.History)
	reports.POST("/:id/update-status", h.Reports.UpdateStatus)
	reports.DELETE("/:id", h.Reports.Delete)

	rt := api.Group("/rt", middleware.RequireRoles(models.RoleRT))
	rt.GET("/reports", h.RTReview.Index)
	rt.GET("/reports/by-date", h.RTReview.ByDate)
	rt.GET("/reports/approval", h.RTReview.Approval)
	rt.GET("/reports/dashboard-stats", h.Dashboard.RT)
	rt.POST("/reports/:id/confirm-recommend", h.Workflow.Recommend)
	rt.POST("/reports/:id/reject", h.Workflow.Reject)
	rt.POST("/reports/:id/confirm", h.Workflow.Confirm)
	rt.POST("/reports/:id/complete", h.Workflow.Complete)
	rt.POST("/reports/:id/update-status", h.Workflow.UpdateStatus)

	admin := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/reports", h.Admin.Index)
	admin.GET("/reports/by-date", h.Admin.ByDate)
	admin.GET("/reports/need-approval", h.Admin.Approval)
	admin.GET("/reports/dashboard-stats", h.Dashboard.Admin)
	admin.GET("/reports/export", h.Export.MonthlyRecap)
	admin.POST("/reports/:id/confirm", h.Workflow.Confirm)
	admin.POST("/reports/:id/complete", h.Workflow.Complete)
	admin.POST("/reports/:id/assign", h.Workflow.Assign)
	admin.POST("/reports/:id/update-status", h.Workflow.UpdateStatus)
	admin.GET("/petugas/available", h.Petugas.Available)

	return r
}
