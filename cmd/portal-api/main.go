package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/escolare/portal-api/api/swagger"
	"github.com/escolare/portal-api/internal/handler"
	"github.com/escolare/portal-api/internal/middleware"
	"github.com/escolare/portal-api/internal/repository"
	"github.com/escolare/portal-api/internal/service"
	"github.com/escolare/portal-api/pkg/cache"
	"github.com/escolare/portal-api/pkg/config"
	"github.com/escolare/portal-api/pkg/database"
	"github.com/escolare/portal-api/pkg/logger"
	corsmiddleware "github.com/escolare/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/escolare/portal-api/pkg/middleware/requestid"
)

// @title Portal Escolar API
// @version 0.1.0
// @description School portal backend: student/guardian import reconciliation and roster reads
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Progress snapshots are an enhancement; imports run without them.
		logr.Sugar().Warnw("redis unavailable, import progress disabled", "error", err)
		redisClient = nil
	}

	companyRepo := repository.NewCompanyRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	guardianRepo := repository.NewGuardianRepository(db)
	linkRepo := repository.NewStudentGuardianRepository(db)
	logRepo := repository.NewImportLogRepository(db)
	progressRepo := repository.NewProgressRepository(redisClient, cfg.Import.ProgressTTL, logr)

	metricsSvc := service.NewMetricsService()
	importSvc := service.NewImportService(
		service.ImportStores{
			Companies: companyRepo,
			Classes:   classRepo,
			Students:  studentRepo,
			Guardians: guardianRepo,
			Links:     linkRepo,
			Logs:      logRepo,
		},
		nil,
		logr,
		service.WithImportProgress(progressRepo),
		service.WithImportMetrics(metricsSvc),
		service.WithMaxRecords(cfg.Import.MaxRecords),
	)
	importWorker := service.NewImportWorker(importSvc, cfg.Import, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)
	guardianSvc := service.NewGuardianService(guardianRepo, logr)
	classSvc := service.NewClassService(classRepo, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(logRepo, cfg.Exports.Title, logr)
	}

	importHandler := handler.NewImportHandler(importSvc, importWorker, exportSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	guardianHandler := handler.NewGuardianHandler(guardianSvc)
	classHandler := handler.NewClassHandler(classSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/imports/students", importHandler.Submit)
		api.POST("/imports/students/sync", importHandler.RunSync)
		api.GET("/imports/logs", importHandler.ListLogs)
		api.GET("/imports/logs/:id", importHandler.GetLog)
		api.GET("/imports/logs/:id/progress", importHandler.GetProgress)
		api.GET("/imports/logs/:id/report", importHandler.DownloadReport)

		api.GET("/students", studentHandler.List)
		api.GET("/students/:id", studentHandler.Get)
		api.GET("/guardians", guardianHandler.List)
		api.GET("/guardians/:id", guardianHandler.Get)
		api.GET("/classes", classHandler.List)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	importWorker.Start(ctx)
	defer importWorker.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
