package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/yardbook/capacity-service/internal/availability"
	"github.com/yardbook/capacity-service/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so booked-sum reads can
// run inside or outside the commit transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// BookingRepo owns the booking ledger.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	query := `
		SELECT id, booking_date, status, yard_id, supplier_name, rescheduled_from,
		       created_at, updated_at
		FROM bookings
		WHERE id = $1;
	`
	var b models.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.BookingDate,
		&b.Status,
		&b.YardID,
		&b.SupplierName,
		&b.RescheduledFrom,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	goods, err := r.goodsFor(ctx, r.db, b.ID)
	if err != nil {
		return nil, err
	}
	b.Goods = goods
	return &b, nil
}

func (r *BookingRepo) goodsFor(ctx context.Context, q queryer, bookingID uuid.UUID) ([]models.Goods, error) {
	query := `
		SELECT product_type_id, quantity, number_of_pallets
		FROM booking_goods
		WHERE booking_id = $1
		ORDER BY id;
	`
	rows, err := q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goods []models.Goods
	for rows.Next() {
		var g models.Goods
		if err := rows.Scan(&g.ProductTypeID, &g.Quantity, &g.NumberOfPallets); err != nil {
			return nil, err
		}
		goods = append(goods, g)
	}
	return goods, rows.Err()
}

// BookedSums aggregates non-cancelled booked quantities over [start, end],
// optionally excluding one booking (the one being moved by a reschedule).
// Sums come back keyed three ways: per (date, product), per date, and per
// (date, supplier) so tranche consumption can be netted against the rules.
func (r *BookingRepo) BookedSums(ctx context.Context, start, end time.Time, exclude uuid.UUID) (availability.LedgerSums, error) {
	return r.bookedSums(ctx, r.db, start, end, exclude)
}

// BookedSumsTx is BookedSums running inside the commit transaction, so the
// re-check sees exactly the rows the insert will contend with.
func (r *BookingRepo) BookedSumsTx(ctx context.Context, tx *sql.Tx, start, end time.Time, exclude uuid.UUID) (availability.LedgerSums, error) {
	return r.bookedSums(ctx, tx, start, end, exclude)
}

func (r *BookingRepo) bookedSums(ctx context.Context, q queryer, start, end time.Time, exclude uuid.UUID) (availability.LedgerSums, error) {
	query := `
		SELECT b.booking_date, b.supplier_name, g.product_type_id, COALESCE(SUM(g.quantity), 0)
		FROM bookings b
		JOIN booking_goods g ON g.booking_id = b.id
		WHERE b.booking_date >= $1 AND b.booking_date <= $2
		  AND b.status <> 'cancelled'
		  AND ($3::uuid IS NULL OR b.id <> $3)
		GROUP BY b.booking_date, b.supplier_name, g.product_type_id;
	`

	var excludeArg any
	if exclude != uuid.Nil {
		excludeArg = exclude
	}

	sums := availability.NewLedgerSums()
	rows, err := q.QueryContext(ctx, query, start, end, excludeArg)
	if err != nil {
		return sums, err
	}
	defer rows.Close()

	for rows.Next() {
		var date time.Time
		var supplier string
		var productTypeID, qty int
		if err := rows.Scan(&date, &supplier, &productTypeID, &qty); err != nil {
			return sums, err
		}
		key := models.DateKey(date)
		sums.ByDateProduct[availability.BookedKey{Date: key, ProductTypeID: productTypeID}] += qty
		sums.ByDate[key] += qty
		if supplier != "" {
			sums.BySupplierDate[availability.SupplierDayKey{Date: key, Supplier: supplier}] += qty
		}
	}
	return sums, rows.Err()
}

// LockProductTypes locks the catalog rows for the given product types inside
// tx. Dates without a schedule row are serialized through these locks instead.
func (r *BookingRepo) LockProductTypes(ctx context.Context, tx *sql.Tx, productTypeIDs []int) error {
	query := `SELECT id FROM product_types WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, pq.Array(productTypeIDs))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Insert writes a booking and its goods inside tx.
func (r *BookingRepo) Insert(ctx context.Context, tx *sql.Tx, b *models.Booking) error {
	query := `
		INSERT INTO bookings
		(id, booking_date, status, yard_id, supplier_name, rescheduled_from, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := tx.QueryRowContext(ctx, query,
		b.ID,
		b.BookingDate,
		b.Status,
		b.YardID,
		b.SupplierName,
		b.RescheduledFrom,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}

	insertGoods := `
		INSERT INTO booking_goods (booking_id, product_type_id, quantity, number_of_pallets)
		VALUES ($1, $2, $3, $4)
	`
	for _, g := range b.Goods {
		if _, err := tx.ExecContext(ctx, insertGoods, b.ID, g.ProductTypeID, g.Quantity, g.NumberOfPallets); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDate moves a booking to a new date inside tx, recording where it
// came from.
func (r *BookingRepo) UpdateDate(ctx context.Context, tx *sql.Tx, id uuid.UUID, newDate, oldDate time.Time) error {
	query := `
		UPDATE bookings
		SET booking_date = $2, rescheduled_from = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, id, newDate, oldDate)
	return err
}

// UpdateStatus changes a booking's status inside tx.
func (r *BookingRepo) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := tx.ExecContext(ctx, query, id, status)
	return err
}
