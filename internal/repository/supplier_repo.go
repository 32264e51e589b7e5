package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yardbook/capacity-service/internal/models"
)

// SupplierRuleRepo reads and writes per-supplier reserved-capacity rules.
type SupplierRuleRepo struct {
	db *sql.DB
}

func NewSupplierRuleRepo(db *sql.DB) *SupplierRuleRepo {
	return &SupplierRuleRepo{db: db}
}

func (r *SupplierRuleRepo) List(ctx context.Context) ([]models.SupplierRule, error) {
	return r.list(ctx, r.db)
}

// ListTx is List reading through an open transaction, used by the
// commit-time re-check.
func (r *SupplierRuleRepo) ListTx(ctx context.Context, tx *sql.Tx) ([]models.SupplierRule, error) {
	return r.list(ctx, tx)
}

func (r *SupplierRuleRepo) list(ctx context.Context, q queryer) ([]models.SupplierRule, error) {
	query := `
		SELECT id, supplier_name, weekday, allocated_capacity, tolerance_pct,
		       delivery_email, created_at, updated_at
		FROM supplier_rules
		ORDER BY id;
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.SupplierRule
	for rows.Next() {
		var rule models.SupplierRule
		var weekday int
		if err := rows.Scan(
			&rule.ID,
			&rule.SupplierName,
			&weekday,
			&rule.AllocatedCapacity,
			&rule.TolerancePct,
			&rule.DeliveryEmail,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		rule.Weekday = time.Weekday(weekday)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SupplierRuleRepo) Get(ctx context.Context, id int) (*models.SupplierRule, error) {
	query := `
		SELECT id, supplier_name, weekday, allocated_capacity, tolerance_pct,
		       delivery_email, created_at, updated_at
		FROM supplier_rules
		WHERE id = $1;
	`
	var rule models.SupplierRule
	var weekday int
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rule.ID,
		&rule.SupplierName,
		&weekday,
		&rule.AllocatedCapacity,
		&rule.TolerancePct,
		&rule.DeliveryEmail,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rule.Weekday = time.Weekday(weekday)
	return &rule, nil
}

func (r *SupplierRuleRepo) Create(ctx context.Context, rule *models.SupplierRule) error {
	query := `
		INSERT INTO supplier_rules
		(supplier_name, weekday, allocated_capacity, tolerance_pct, delivery_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		rule.SupplierName,
		int(rule.Weekday),
		rule.AllocatedCapacity,
		rule.TolerancePct,
		rule.DeliveryEmail,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}
