package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yardbook/capacity-service/internal/models"
)

// ScheduleRepo reads and writes weekly delivery schedules and their days.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) GetWeek(ctx context.Context, isoWeek string) (*models.DeliverySchedule, error) {
	query := `
		SELECT id, iso_week, total_capacity, created_at, updated_at
		FROM delivery_schedules
		WHERE iso_week = $1;
	`

	var s models.DeliverySchedule
	err := r.db.QueryRowContext(ctx, query, isoWeek).Scan(
		&s.ID,
		&s.ISOWeek,
		&s.TotalCapacity,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	days, err := r.daysForSchedule(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Days = days
	return &s, nil
}

func (r *ScheduleRepo) daysForSchedule(ctx context.Context, scheduleID int) ([]models.ScheduleDay, error) {
	query := `
		SELECT id, date, capacity, is_saved
		FROM schedule_days
		WHERE schedule_id = $1
		ORDER BY date;
	`
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []models.ScheduleDay
	for rows.Next() {
		var d models.ScheduleDay
		if err := rows.Scan(&d.ID, &d.Date, &d.Capacity, &d.IsSaved); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// DaysInRange returns all configured schedule days in [start, end] keyed by
// date, plus whether any schedule data exists at all. The calculator treats
// "no schedule rows anywhere" and "this date missing from the schedule"
// differently.
func (r *ScheduleRepo) DaysInRange(ctx context.Context, start, end time.Time) (map[string]models.ScheduleDay, bool, error) {
	return r.daysInRange(ctx, r.db, start, end)
}

// DaysInRangeTx is DaysInRange reading through an open transaction, used by
// the commit-time re-check.
func (r *ScheduleRepo) DaysInRangeTx(ctx context.Context, tx *sql.Tx, start, end time.Time) (map[string]models.ScheduleDay, bool, error) {
	return r.daysInRange(ctx, tx, start, end)
}

func (r *ScheduleRepo) daysInRange(ctx context.Context, q queryer, start, end time.Time) (map[string]models.ScheduleDay, bool, error) {
	var hasAny bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM schedule_days)`).Scan(&hasAny); err != nil {
		return nil, false, err
	}

	query := `
		SELECT id, date, capacity, is_saved
		FROM schedule_days
		WHERE date >= $1 AND date <= $2
		ORDER BY date;
	`
	rows, err := q.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	days := make(map[string]models.ScheduleDay)
	for rows.Next() {
		var d models.ScheduleDay
		if err := rows.Scan(&d.ID, &d.Date, &d.Capacity, &d.IsSaved); err != nil {
			return nil, false, err
		}
		days[models.DateKey(d.Date)] = d
	}
	return days, hasAny, rows.Err()
}

// UpsertWeek replaces a week's schedule and its days in one transaction.
// One schedule exists per (year, ISO week).
func (r *ScheduleRepo) UpsertWeek(ctx context.Context, s *models.DeliverySchedule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	upsert := `
		INSERT INTO delivery_schedules (iso_week, total_capacity, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (iso_week)
		DO UPDATE SET total_capacity = EXCLUDED.total_capacity, updated_at = NOW()
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, upsert, s.ISOWeek, s.TotalCapacity).Scan(&s.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_days WHERE schedule_id = $1`, s.ID); err != nil {
		return err
	}

	insertDay := `
		INSERT INTO schedule_days (schedule_id, date, capacity, is_saved)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	for i := range s.Days {
		d := &s.Days[i]
		if err := tx.QueryRowContext(ctx, insertDay, s.ID, d.Date, d.Capacity, d.IsSaved).Scan(&d.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LockDay takes a row lock on the schedule day covering date, serializing
// concurrent capacity checks for that date. Returns false when the date has
// no schedule row (the lock then falls back to the product_types rows the
// booking touches, handled by the caller).
func (r *ScheduleRepo) LockDay(ctx context.Context, tx *sql.Tx, date time.Time) (bool, error) {
	var id int
	query := `SELECT id FROM schedule_days WHERE date = $1 FOR UPDATE`
	err := tx.QueryRowContext(ctx, query, date).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
