package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vanchoco/backend-go/internal/service"
)

type CatalogHandler struct {
	service *service.CatalogService
}

func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) ListBrands(c *gin.Context) {
	brands, err := h.service.Brands(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to fetch brands", err)
		return
	}
	c.JSON(http.StatusOK, brands)
}

func (h *CatalogHandler) ListModels(c *gin.Context) {
	models, err := h.service.Models(c.Request.Context(), c.Param("brand"))
	if err != nil {
		if errors.Is(err, service.ErrCatalogInput) {
			respondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to fetch models", err)
		return
	}
	c.JSON(http.StatusOK, models)
}

type addModelRequest struct {
	Model string `json:"model" binding:"required"`
}

func (h *CatalogHandler) AddModel(c *gin.Context) {
	var req addModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "model is required", err)
		return
	}

	entry, created, err := h.service.AddModel(c.Request.Context(), c.Param("brand"), req.Model)
	if err != nil {
		if errors.Is(err, service.ErrCatalogInput) {
			respondError(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to add model", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, entry)
}
