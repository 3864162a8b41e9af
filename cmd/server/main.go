// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vanchoco/backend-go/internal/api"
	"github.com/vanchoco/backend-go/internal/backend"
	"github.com/vanchoco/backend-go/internal/cache"
	"github.com/vanchoco/backend-go/internal/config"
	"github.com/vanchoco/backend-go/internal/repository/postgres"
	"github.com/vanchoco/backend-go/internal/service"
	"github.com/vanchoco/backend-go/internal/storage"
	"github.com/vanchoco/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.Server.Mode, cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Amounts are served as JSON numbers, like the sales backend sends them
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, continuing without it")
		reportCache = cache.NewNoopReportCache()
	}

	store, err := storage.New(ctx, cfg.Storage, cfg.App.ExportDir)
	if err != nil {
		logger.Log.Warn().Err(err).Str("driver", cfg.Storage.Driver).Msg("Object storage unavailable, uploads disabled")
		store = nil
	}

	reportService := service.NewReportService(
		backend.NewClient(cfg.Backend),
		postgres.NewSnapshotRepository(db),
		reportCache,
		store,
		cfg.Storage.Prefix,
		cfg.Reports.Location(),
	)
	catalogService := service.NewCatalogService(postgres.NewCatalogRepository(db))

	router := api.NewRouter(&api.Services{
		ReportService:  reportService,
		CatalogService: catalogService,
		Ping:           db.PingContext,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("backend", cfg.Backend.BaseURL).
			Str("timezone", cfg.Reports.Timezone).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
