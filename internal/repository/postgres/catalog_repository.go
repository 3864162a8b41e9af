package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vanchoco/backend-go/internal/domain"
	"github.com/vanchoco/backend-go/internal/repository"
)

type catalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) repository.CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListBrands(ctx context.Context) ([]string, error) {
	var brands []string
	if err := r.db.SelectContext(ctx, &brands, `SELECT DISTINCT brand FROM catalog_models ORDER BY brand`); err != nil {
		return nil, fmt.Errorf("error listing brands: %w", err)
	}
	return brands, nil
}

func (r *catalogRepository) ListModels(ctx context.Context, brand string) ([]domain.CatalogModel, error) {
	query := `
		SELECT brand, model, created_at
		FROM catalog_models
		WHERE LOWER(brand) = LOWER($1)
		ORDER BY model
	`

	var models []domain.CatalogModel
	if err := r.db.SelectContext(ctx, &models, query, strings.TrimSpace(brand)); err != nil {
		return nil, fmt.Errorf("error listing models for %s: %w", brand, err)
	}
	return models, nil
}

func (r *catalogRepository) AddModel(ctx context.Context, brand, model string) (domain.CatalogModel, bool, error) {
	brand = strings.TrimSpace(brand)
	model = strings.TrimSpace(model)

	var entry domain.CatalogModel
	err := r.db.GetContext(ctx, &entry, `
		INSERT INTO catalog_models (brand, model, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (brand, model) DO NOTHING
		RETURNING brand, model, created_at
	`, brand, model)
	if err == nil {
		return entry, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogModel{}, false, fmt.Errorf("failed to add model: %w", err)
	}

	// Conflict: return the stored row
	if err := r.db.GetContext(ctx, &entry, `
		SELECT brand, model, created_at FROM catalog_models WHERE brand = $1 AND model = $2
	`, brand, model); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CatalogModel{}, false, repository.ErrNotFound
		}
		return domain.CatalogModel{}, false, fmt.Errorf("failed to load model: %w", err)
	}
	return entry, false, nil
}
