package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/repository"
)

var ErrCatalogInput = errors.New("brand and model are required")

// CatalogService serves the brand -> model reference list used when entering products.
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Brands(ctx context.Context) ([]string, error) {
	brands, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, err
	}
	if brands == nil {
		brands = make([]string, 0)
	}
	return brands, nil
}

func (s *CatalogService) Models(ctx context.Context, brand string) ([]domain.CatalogModel, error) {
	if strings.TrimSpace(brand) == "" {
		return nil, ErrCatalogInput
	}
	models, err := s.repo.ListModels(ctx, brand)
	if err != nil {
		return nil, err
	}
	if models == nil {
		models = make([]domain.CatalogModel, 0)
	}
	return models, nil
}

// AddModel registers a model under brand. Adding an existing pair is not an error.
func (s *CatalogService) AddModel(ctx context.Context, brand, model string) (domain.CatalogModel, bool, error) {
	if strings.TrimSpace(brand) == "" || strings.TrimSpace(model) == "" {
		return domain.CatalogModel{}, false, ErrCatalogInput
	}

	entry, created, err := s.repo.AddModel(ctx, brand, model)
	if err != nil {
		return domain.CatalogModel{}, false, err
	}
	if created {
		log.Info().Str("brand", entry.Brand).Str("model", entry.Model).Msg("catalog model added")
	}
	return entry, created, nil
}
