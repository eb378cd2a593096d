package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/SidA7MD/archiv-api/api/swagger"
	"github.com/SidA7MD/archiv-api/internal/handler"
	"github.com/SidA7MD/archiv-api/internal/middleware"
	"github.com/SidA7MD/archiv-api/internal/repository"
	"github.com/SidA7MD/archiv-api/internal/service"
	"github.com/SidA7MD/archiv-api/pkg/cache"
	"github.com/SidA7MD/archiv-api/pkg/config"
	"github.com/SidA7MD/archiv-api/pkg/database"
	"github.com/SidA7MD/archiv-api/pkg/logger"
	corsmiddleware "github.com/SidA7MD/archiv-api/pkg/middleware/cors"
	reqidmiddleware "github.com/SidA7MD/archiv-api/pkg/middleware/requestid"
	"github.com/SidA7MD/archiv-api/pkg/storage"
)

// @title Archiv API
// @version 1.0.0
// @description PDF document archive with semester/type/subject/year metadata
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	contentStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init document storage", "error", err)
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("cache disabled, redis unavailable", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
		}
	}

	docRepo := repository.NewDocumentRepository(db)
	docSvc := service.NewDocumentService(docRepo, contentStore, cacheSvc, metricsSvc, logr, service.DocumentServiceConfig{
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
	})

	docHandler := handler.NewDocumentHandler(docSvc, cfg.Uploads.MaxFileSizeBytes)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
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
		files := api.Group("/files")
		files.POST("", docHandler.Upload)
		files.GET("", docHandler.List)
		if cfg.Exports.Enabled {
			exportSvc := service.NewExportService(docRepo, logr)
			exportHandler := handler.NewExportHandler(exportSvc)
			files.GET("/export", exportHandler.Export)
		}
		files.GET("/:id", docHandler.Get)
		files.GET("/:id/content", docHandler.Download)
		files.PATCH("/:id", docHandler.Rename)
		files.PATCH("/:id/metadata", docHandler.UpdateMetadata)
		files.DELETE("/:id", docHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
