package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/laporpak-api/api/swagger"
	"github.com/noah-isme/laporpak-api/internal/handler"
	"github.com/noah-isme/laporpak-api/internal/repository"
	"github.com/noah-isme/laporpak-api/internal/routes"
	"github.com/noah-isme/laporpak-api/internal/service"
	"github.com/noah-isme/laporpak-api/internal/workflow"
	"github.com/noah-isme/laporpak-api/pkg/cache"
	"github.com/noah-isme/laporpak-api/pkg/config"
	"github.com/noah-isme/laporpak-api/pkg/database"
	"github.com/noah-isme/laporpak-api/pkg/jobs"
	"github.com/noah-isme/laporpak-api/pkg/logger"
	"github.com/noah-isme/laporpak-api/pkg/storage"
)

// @title LaporPak API
// @version 1.0.0
// @description Citizen complaint reports and their RT/admin approval workflow.
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
	}

	photos, err := newPhotoStore(ctx, cfg.Photos)
	if err != nil {
		logr.Fatal("failed to init photo storage", zap.Error(err))
	}
	defer closePhotoStore(photos, logr)

	mode, err := workflow.ParseMode(cfg.Workflow.Mode)
	if err != nil {
		logr.Fatal("invalid workflow mode", zap.Error(err))
	}
	policy := workflow.NewPolicy(mode)
	machine := workflow.NewMachine(mode)

	historyRepo := repository.NewReportHistoryRepository(db)
	reportRepo := repository.NewReportRepository(db, historyRepo, cfg.Workflow.LockTimeout)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo.Enabled())
	signer := storage.NewSignedURLSigner(cfg.Photos.SignedURLSecret, cfg.Photos.SignedURLTTL)
	janitor := jobs.NewPhotoJanitor(photos, jobs.Config{Logger: logr})
	janitor.Start(ctx)
	defer janitor.Stop()

	reportSvc := service.NewReportService(reportRepo, historyRepo, photos, signer, policy, machine, cacheSvc, metrics,
		service.ReportServiceConfig{MaxPhotoSize: cfg.Photos.MaxFileSize}, logr, service.WithPhotoJanitor(janitor))
	workflowSvc := service.NewWorkflowService(reportRepo, userRepo, policy, machine, cacheSvc, metrics, logr)
	querySvc := service.NewReportQueryService(reportRepo, logr)
	dashboardSvc := service.NewDashboardService(reportRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(reportRepo, logr)
	petugasSvc := service.NewPetugasService(userRepo)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)

	workflowHandler := handler.NewWorkflowHandler(workflowSvc)
	router := routes.New(routes.Handlers{
		Reports:   handler.NewReportHandler(reportSvc, querySvc, dashboardSvc, workflowHandler),
		Workflow:  workflowHandler,
		RTReview:  handler.NewReviewHandler(service.PerspectiveRT, querySvc),
		Admin:     handler.NewReviewHandler(service.PerspectiveAdmin, querySvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Export:    handler.NewExportHandler(exportSvc),
		Petugas:   handler.NewPetugasHandler(petugasSvc),
		Photos:    handler.NewPhotoHandler(reportSvc),
		Metrics:   handler.NewMetricsHandler(metrics),
	}, routes.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Docs.Enabled && cfg.Env != config.EnvProduction,
		EnableMetrics:  cfg.Metrics.Enabled,
		Tokens:         tokens,
		MetricsService: metrics,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("workflow_mode", string(mode)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func newPhotoStore(ctx context.Context, cfg config.PhotoConfig) (storage.PhotoStore, error) {
	switch cfg.Driver {
	case config.PhotoDriverGCS:
		return storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	default:
		return storage.NewLocalStorage(cfg.StorageDir)
	}
}

// closePhotoStore releases backends holding a client, such as GCS.
func closePhotoStore(store storage.PhotoStore, logr *zap.Logger) {
	closer, ok := store.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logr.Warn("failed to close photo storage", zap.Error(err))
	}
}
