package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vanchoco/backend-go/internal/backend"
	"github.com/vanchoco/backend-go/internal/export"
	"github.com/vanchoco/backend-go/internal/reconcile"
	"github.com/vanchoco/backend-go/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func search(c *gin.Context) string {
	return strings.TrimSpace(c.Query("search"))
}

// upstreamStatus maps a backend failure to the status we answer with.
func upstreamStatus(err error) int {
	if errors.Is(err, backend.ErrNotFound) {
		return http.StatusNotFound
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, status int, message string, err error) {
	body := gin.H{"error": message}
	if err != nil {
		body["details"] = err.Error()
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
		}
	}
	c.JSON(status, body)
}

func (h *ReportHandler) GetSalesHistory(c *gin.Context) {
	rows, err := h.service.SalesHistory(c.Request.Context(), search(c))
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to fetch sales history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": rows,
		"total": len(rows),
	})
}

func (h *ReportHandler) GetConsolidatedInvoices(c *gin.Context) {
	groups, err := h.service.ConsolidatedInvoices(c.Request.Context(), search(c))
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to fetch consolidated invoices", err)
		return
	}

	c.JSON(http.StatusOK, groups)
}

func (h *ReportHandler) GetInvoicePDF(c *gin.Context) {
	client := c.Param("client")
	pdf, err := h.service.InvoicePDF(c.Request.Context(), client)
	if err != nil {
		if errors.Is(err, service.ErrClientMissing) {
			respondError(c, http.StatusBadRequest, "client name is required", nil)
			return
		}
		respondError(c, upstreamStatus(err), "failed to fetch invoice", err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="facture_consolidee.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *ReportHandler) GetDailyMovement(c *gin.Context) {
	day, err := h.service.ParseDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	report, err := h.service.DailyMovement(c.Request.Context(), day, search(c))
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to build daily movement", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) GetDailyTotals(c *gin.Context) {
	day, err := h.service.ParseDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	report, err := h.service.DailyMovement(c.Request.Context(), day, search(c))
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to build daily totals", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":   report.Date,
		"totals": report.Totals,
	})
}

// ExportDailyMovement streams the report file, or uploads it when upload=true.
func (h *ReportHandler) ExportDailyMovement(c *gin.Context) {
	day, err := h.service.ParseDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	upload, _ := strconv.ParseBool(c.DefaultQuery("upload", "false"))

	result, err := h.service.ExportDaily(c.Request.Context(), day, format, upload)
	if err != nil {
		if errors.Is(err, service.ErrNoStorage) {
			respondError(c, http.StatusServiceUnavailable, "object storage is not configured", err)
			return
		}
		respondError(c, upstreamStatus(err), "failed to export daily movement", err)
		return
	}

	if upload {
		c.JSON(http.StatusCreated, result)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *ReportHandler) ListExports(c *gin.Context) {
	objects, err := h.service.ListExports(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoStorage) {
			respondError(c, http.StatusServiceUnavailable, "object storage is not configured", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to list exports", err)
		return
	}

	c.JSON(http.StatusOK, objects)
}

func (h *ReportHandler) GetStockSummary(c *gin.Context) {
	rows, err := h.service.StockSummary(c.Request.Context(), search(c))
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to fetch stock summary", err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) ListSnapshots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	infos, err := h.service.ListSnapshots(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list snapshots", err)
		return
	}

	c.JSON(http.StatusOK, infos)
}

func (h *ReportHandler) CaptureSnapshot(c *gin.Context) {
	day, err := h.service.ParseDay(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	n, err := h.service.CaptureSnapshot(c.Request.Context(), day)
	if err != nil {
		respondError(c, upstreamStatus(err), "failed to capture snapshot", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"date": day.Format("2006-01-02"),
		"rows": n,
	})
}

func (h *ReportHandler) RefreshCache(c *gin.Context) {
	if err := h.service.Refresh(c.Request.Context()); err != nil {
		respondError(c, http.StatusInternalServerError, "failed to refresh cache", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type saleEditRequest struct {
	PaidAmount  *decimal.Decimal `json:"paid_amount"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
}

// ValidateSaleEdit checks new paid/total amounts before the client submits them to the backend.
func (h *ReportHandler) ValidateSaleEdit(c *gin.Context) {
	var req saleEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.PaidAmount == nil || req.TotalAmount == nil {
		respondError(c, http.StatusBadRequest, "paid_amount and total_amount are required", nil)
		return
	}

	current, err := h.service.ValidateSaleEdit(c.Request.Context(), c.Param("id"), *req.PaidAmount, *req.TotalAmount)
	if err != nil {
		var editErr *reconcile.EditError
		switch {
		case errors.As(err, &editErr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"valid":   false,
				"rule":    editErr.Rule,
				"error":   editErr.Message,
				"current": current,
			})
		case errors.Is(err, service.ErrSaleNotFound):
			respondError(c, http.StatusNotFound, "sale not found", err)
		default:
			respondError(c, upstreamStatus(err), "failed to validate sale edit", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"current": current,
	})
}
