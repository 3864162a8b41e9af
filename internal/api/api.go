// internal/api/api.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vanchoco/backend-go/internal/api/handlers"
	"github.com/vanchoco/backend-go/internal/api/middleware"
	"github.com/vanchoco/backend-go/internal/service"
)

type Services struct {
	ReportService  *service.ReportService
	CatalogService *service.CatalogService
	// Ping reports storage health for /health; nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler(services))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ReportService != nil {
			reportHandler := handlers.NewReportHandler(services.ReportService)
			reportGroup := apiGroup.Group("/reports")
			{
				reportGroup.GET("/sales", reportHandler.GetSalesHistory)
				reportGroup.GET("/consolidated-invoices", reportHandler.GetConsolidatedInvoices)
				reportGroup.GET("/consolidated-invoices/:client/pdf", reportHandler.GetInvoicePDF)
				reportGroup.GET("/stock-summary", reportHandler.GetStockSummary)

				dailyGroup := reportGroup.Group("/daily-movement")
				{
					dailyGroup.GET("", reportHandler.GetDailyMovement)
					dailyGroup.GET("/totals", reportHandler.GetDailyTotals)
					dailyGroup.GET("/export", reportHandler.ExportDailyMovement)
					dailyGroup.GET("/exports", reportHandler.ListExports)
				}

				reportGroup.GET("/snapshots", reportHandler.ListSnapshots)
				reportGroup.POST("/snapshots", reportHandler.CaptureSnapshot)
				reportGroup.POST("/cache/refresh", reportHandler.RefreshCache)
			}

			apiGroup.POST("/sales/:id/validate-edit", reportHandler.ValidateSaleEdit)
		}

		if services.CatalogService != nil {
			catalogHandler := handlers.NewCatalogHandler(services.CatalogService)
			catalogGroup := apiGroup.Group("/catalog")
			{
				catalogGroup.GET("/brands", catalogHandler.ListBrands)
				catalogGroup.GET("/brands/:brand/models", catalogHandler.ListModels)
				catalogGroup.POST("/brands/:brand/models", catalogHandler.AddModel)
			}
		}
	}

	return router
}

func healthHandler(services *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if services != nil && services.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := services.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
