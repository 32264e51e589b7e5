package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/yardbook/capacity-service/internal/models"
)

// CatalogRepo reads and writes the product-type capacity catalog.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) GetProductType(ctx context.Context, id int) (*models.ProductType, error) {
	query := `
		SELECT id, name, daily_capacity, tolerance_pct, created_at, updated_at
		FROM product_types
		WHERE id = $1;
	`

	var pt models.ProductType
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pt.ID,
		&pt.Name,
		&pt.DailyCapacity,
		&pt.TolerancePct,
		&pt.CreatedAt,
		&pt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pt, nil
}

func (r *CatalogRepo) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	return r.listProductTypes(ctx, r.db)
}

// ListProductTypesTx is ListProductTypes reading through an open transaction,
// used by the commit-time re-check.
func (r *CatalogRepo) ListProductTypesTx(ctx context.Context, tx *sql.Tx) ([]models.ProductType, error) {
	return r.listProductTypes(ctx, tx)
}

func (r *CatalogRepo) listProductTypes(ctx context.Context, q queryer) ([]models.ProductType, error) {
	query := `
		SELECT id, name, daily_capacity, tolerance_pct, created_at, updated_at
		FROM product_types
		ORDER BY id;
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []models.ProductType
	for rows.Next() {
		var pt models.ProductType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.DailyCapacity, &pt.TolerancePct, &pt.CreatedAt, &pt.UpdatedAt); err != nil {
			return nil, err
		}
		types = append(types, pt)
	}
	return types, rows.Err()
}

func (r *CatalogRepo) CreateProductType(ctx context.Context, pt *models.ProductType) error {
	query := `
		INSERT INTO product_types (name, daily_capacity, tolerance_pct, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, pt.Name, pt.DailyCapacity, pt.TolerancePct).
		Scan(&pt.ID, &pt.CreatedAt, &pt.UpdatedAt)
}

func (r *CatalogRepo) UpdateProductType(ctx context.Context, pt *models.ProductType) error {
	query := `
		UPDATE product_types
		SET name = $2, daily_capacity = $3, tolerance_pct = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	return r.db.QueryRowContext(ctx, query, pt.ID, pt.Name, pt.DailyCapacity, pt.TolerancePct).
		Scan(&pt.UpdatedAt)
}
