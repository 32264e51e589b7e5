package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yardbook/capacity-service/internal/availability"
	"github.com/yardbook/capacity-service/internal/models"
	"github.com/yardbook/capacity-service/pkg/db"
)

// Ledger operations the booking service needs. The transactional variants
// run inside the commit transaction so the re-check and the insert see the
// same rows.
type BookingLedger interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	BookedSumsTx(ctx context.Context, tx *sql.Tx, start, end time.Time, exclude uuid.UUID) (availability.LedgerSums, error)
	LockProductTypes(ctx context.Context, tx *sql.Tx, productTypeIDs []int) error
	Insert(ctx context.Context, tx *sql.Tx, b *models.Booking) error
	UpdateDate(ctx context.Context, tx *sql.Tx, id uuid.UUID, newDate, oldDate time.Time) error
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status models.BookingStatus) error
}

type ScheduleLocker interface {
	DaysInRangeTx(ctx context.Context, tx *sql.Tx, start, end time.Time) (map[string]models.ScheduleDay, bool, error)
	LockDay(ctx context.Context, tx *sql.Tx, date time.Time) (bool, error)
}

// Catalog and rule reads for the commit-time re-check run through the open
// transaction, so the verdict and the insert see one consistent database
// state.
type TxCatalogSource interface {
	ListProductTypesTx(ctx context.Context, tx *sql.Tx) ([]models.ProductType, error)
}

type TxSupplierRuleSource interface {
	ListTx(ctx context.Context, tx *sql.Tx) ([]models.SupplierRule, error)
}

// CommitRequest is one booking attempt.
type CommitRequest struct {
	Date     time.Time
	Goods    []models.Goods
	Supplier string
	YardID   int
}

// BookingService owns every capacity-affecting write. Each write is one
// Serializable transaction: lock the date, re-read booked sums, re-run the
// calculator, then mutate the ledger. Client-side availability checks are
// never trusted.
type BookingService struct {
	db        *sql.DB
	calc      *availability.Calculator
	catalog   TxCatalogSource
	rules     TxSupplierRuleSource
	schedules ScheduleLocker
	ledger    BookingLedger
	log       *logrus.Logger
}

func NewBookingService(
	sqlDB *sql.DB,
	calc *availability.Calculator,
	catalog TxCatalogSource,
	rules TxSupplierRuleSource,
	schedules ScheduleLocker,
	ledger BookingLedger,
	log *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:        sqlDB,
		calc:      calc,
		catalog:   catalog,
		rules:     rules,
		schedules: schedules,
		ledger:    ledger,
		log:       log,
	}
}

// Commit validates the requested date against live capacity and appends the
// booking, all inside one transaction. Any unavailable product rejects the
// whole request; there are no partial commits.
func (s *BookingService) Commit(ctx context.Context, req CommitRequest) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	if len(req.Goods) == 0 {
		return nil, &Rejection{Message: "no goods requested"}
	}
	date := models.Midnight(req.Date)

	booking := &models.Booking{
		ID:           uuid.New(),
		BookingDate:  date,
		Status:       models.BookingStatusPending,
		YardID:       req.YardID,
		SupplierName: req.Supplier,
		Goods:        req.Goods,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkDateTx(ctx, tx, date, req.Goods, req.Supplier, uuid.Nil); err != nil {
			return err
		}
		return s.ledger.Insert(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"date":       models.DateKey(date),
		"supplier":   req.Supplier,
	}).Info("booking committed")
	return booking, nil
}

// Reschedule moves a booking to a new date. The availability re-check for
// the new date excludes the booking itself, so its quantities neither block
// the move nor double-count on the old date afterwards.
func (s *BookingService) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	booking, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, &Rejection{Message: "cannot reschedule a cancelled booking"}
	}

	newDate = models.Midnight(newDate)
	oldDate := models.Midnight(booking.BookingDate)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.checkDateTx(ctx, tx, newDate, booking.Goods, booking.SupplierName, booking.ID); err != nil {
			return err
		}
		return s.ledger.UpdateDate(ctx, tx, booking.ID, newDate, oldDate)
	})
	if err != nil {
		return nil, err
	}

	booking.RescheduledFrom = &oldDate
	booking.BookingDate = newDate
	s.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"from":       models.DateKey(oldDate),
		"to":         models.DateKey(newDate),
	}).Info("booking rescheduled")
	return booking, nil
}

// Confirm re-checks capacity before marking the booking confirmed. The old
// admin flow silently trusted the client's stale check here; now skipping
// the re-check requires an explicit forceOverride, which may oversell the
// date and is logged as such.
func (s *BookingService) Confirm(ctx context.Context, id uuid.UUID, forceOverride bool) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	booking, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil, &Rejection{Message: "cannot confirm a cancelled booking"}
	}

	date := models.Midnight(booking.BookingDate)

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if !forceOverride {
			// the booking's own rows are excluded, so this asks whether
			// its goods still fit the date today
			if err := s.checkDateTx(ctx, tx, date, booking.Goods, booking.SupplierName, booking.ID); err != nil {
				return err
			}
		} else {
			s.log.WithFields(logrus.Fields{
				"booking_id": booking.ID,
				"date":       models.DateKey(date),
			}).Warn("capacity re-check skipped by force override")
		}
		return s.ledger.UpdateStatus(ctx, tx, booking.ID, models.BookingStatusConfirmed)
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusConfirmed
	return booking, nil
}

// Cancel frees the booking's capacity. Cancelling never needs a capacity
// check.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	booking, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		return s.ledger.UpdateStatus(ctx, tx, booking.ID, models.BookingStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	booking.Status = models.BookingStatusCancelled
	return booking, nil
}

// inTx runs fn inside one Serializable transaction, mapping serialization
// failures to ErrConflictRetry.
func (s *BookingService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if db.IsSerializationFailure(err) {
			return ErrConflictRetry
		}
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}

// checkDateTx is the transactional availability re-check shared by commit,
// reschedule and confirm. It locks the date's capacity rows, re-reads booked
// sums inside tx and runs the calculator on the result.
func (s *BookingService) checkDateTx(ctx context.Context, tx *sql.Tx, date time.Time, goods []models.Goods, supplier string, exclude uuid.UUID) error {
	locked, err := s.schedules.LockDay(ctx, tx, date)
	if err != nil {
		return fmt.Errorf("%w: lock schedule day: %v", ErrDataSourceUnavailable, err)
	}
	if !locked {
		// no schedule row for this date; serialize through the catalog rows
		ids := make([]int, 0, len(goods))
		for _, g := range goods {
			ids = append(ids, g.ProductTypeID)
		}
		if err := s.ledger.LockProductTypes(ctx, tx, ids); err != nil {
			return fmt.Errorf("%w: lock product types: %v", ErrDataSourceUnavailable, err)
		}
	}

	snap, err := s.loadSnapshotTx(ctx, tx, date, exclude)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}

	reqGoods := make([]availability.GoodsRequest, 0, len(goods))
	for _, g := range goods {
		reqGoods = append(reqGoods, availability.GoodsRequest{ProductTypeID: g.ProductTypeID, Quantity: g.Quantity})
	}

	verdicts := s.calc.Compute(snap, availability.Request{
		Start:    date,
		End:      date,
		Goods:    reqGoods,
		Supplier: supplier,
		AsOf:     time.Now().UTC(),
	})

	entries := verdicts[models.DateKey(date)]
	if !availability.DateAvailable(entries) {
		return rejectionFrom(entries)
	}
	return nil
}

func (s *BookingService) loadSnapshotTx(ctx context.Context, tx *sql.Tx, date time.Time, exclude uuid.UUID) (*availability.Snapshot, error) {
	snap := availability.NewSnapshot()

	types, err := s.catalog.ListProductTypesTx(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("load product types: %w", err)
	}
	for _, pt := range types {
		snap.Products[pt.ID] = pt
	}

	rules, err := s.rules.ListTx(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("load supplier rules: %w", err)
	}
	snap.Rules = rules

	days, hasSchedule, err := s.schedules.DaysInRangeTx(ctx, tx, date, date)
	if err != nil {
		return nil, fmt.Errorf("load schedule days: %w", err)
	}
	snap.ScheduleDays = days
	snap.HasSchedule = hasSchedule

	sums, err := s.ledger.BookedSumsTx(ctx, tx, date, date, exclude)
	if err != nil {
		return nil, fmt.Errorf("load booked sums: %w", err)
	}
	snap.Booked = sums.ByDateProduct
	snap.DayBooked = sums.ByDate
	snap.SupplierBooked = sums.BySupplierDate

	return snap, nil
}
