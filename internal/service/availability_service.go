package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yardbook/capacity-service/internal/availability"
	"github.com/yardbook/capacity-service/internal/cache"
	"github.com/yardbook/capacity-service/internal/concurrency"
	"github.com/yardbook/capacity-service/internal/models"
)

// Repos required by the availability service (interfaces to allow mocking).
type CatalogSource interface {
	ListProductTypes(ctx context.Context) ([]models.ProductType, error)
}

type SupplierRuleSource interface {
	List(ctx context.Context) ([]models.SupplierRule, error)
}

type ScheduleSource interface {
	DaysInRange(ctx context.Context, start, end time.Time) (map[string]models.ScheduleDay, bool, error)
}

type LedgerSource interface {
	BookedSums(ctx context.Context, start, end time.Time, exclude uuid.UUID) (availability.LedgerSums, error)
}

// QueryInput is one availability query. ExcludeBookingID is set by the
// reschedule flow so the moved booking stops counting against its old date.
type QueryInput struct {
	Start            time.Time
	End              time.Time
	Goods            []availability.GoodsRequest
	Supplier         string
	ExcludeBookingID uuid.UUID
}

// AvailabilityService is the one shared availability computation behind the
// admin calendar, the supplier booking calendar and the reschedule dialog.
type AvailabilityService struct {
	calc      *availability.Calculator
	catalog   CatalogSource
	rules     SupplierRuleSource
	schedules ScheduleSource
	ledger    LedgerSource
	cache     *cache.CatalogCache
	log       *logrus.Logger
}

func NewAvailabilityService(
	calc *availability.Calculator,
	catalog CatalogSource,
	rules SupplierRuleSource,
	schedules ScheduleSource,
	ledger LedgerSource,
	log *logrus.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		calc:      calc,
		catalog:   catalog,
		rules:     rules,
		schedules: schedules,
		ledger:    ledger,
		cache:     cache.NewCatalogCache(30 * time.Second),
		log:       log,
	}
}

// InvalidateCatalog drops the cached catalog after an admin write.
func (s *AvailabilityService) InvalidateCatalog() {
	s.cache.Invalidate()
}

// Query computes availability for the requested range. On any data-source
// failure it fails closed: every date comes back unavailable, and the error
// is surfaced so the caller never mistakes missing data for free capacity.
func (s *AvailabilityService) Query(ctx context.Context, in QueryInput) (map[string][]models.AvailabilityEntry, error) {
	req := availability.Request{
		Start:    models.Midnight(in.Start),
		End:      models.Midnight(in.End),
		Goods:    in.Goods,
		Supplier: in.Supplier,
		AsOf:     time.Now().UTC(),
	}

	snap, err := s.loadSnapshot(ctx, req.Start, req.End, in.ExcludeBookingID)
	if err != nil {
		s.log.WithError(err).Warn("availability snapshot load failed, failing closed")
		return s.calc.FailClosed(req), fmt.Errorf("%w: %v", ErrDataSourceUnavailable, err)
	}

	return s.compute(ctx, snap, req), nil
}

// compute fans the date range out over a few workers for long ranges
// (calendar views ask for 60 days at a time). The calculator is pure, so
// partitions share the snapshot safely.
func (s *AvailabilityService) compute(ctx context.Context, snap *availability.Snapshot, req availability.Request) map[string][]models.AvailabilityEntry {
	days := int(req.End.Sub(req.Start).Hours()/24) + 1
	const chunkDays = 16
	if days <= chunkDays {
		return s.calc.Compute(snap, req)
	}

	workers := (days + chunkDays - 1) / chunkDays
	parts := make([]map[string][]models.AvailabilityEntry, workers)
	concurrency.SimpleWorkerPool(ctx, workers, func(ctx context.Context, idx int) {
		start := req.Start.AddDate(0, 0, idx*chunkDays)
		end := start.AddDate(0, 0, chunkDays-1)
		if end.After(req.End) {
			end = req.End
		}
		sub := req
		sub.Start, sub.End = start, end
		parts[idx] = s.calc.Compute(snap, sub)
	})

	out := make(map[string][]models.AvailabilityEntry, days)
	for _, part := range parts {
		for k, v := range part {
			out[k] = v
		}
	}
	return out
}

func (s *AvailabilityService) loadSnapshot(ctx context.Context, start, end time.Time, exclude uuid.UUID) (*availability.Snapshot, error) {
	snap := availability.NewSnapshot()

	products, rules, ok := s.cache.Get()
	if !ok {
		types, err := s.catalog.ListProductTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("load product types: %w", err)
		}
		products = make(map[int]models.ProductType, len(types))
		for _, pt := range types {
			products[pt.ID] = pt
		}
		rules, err = s.rules.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load supplier rules: %w", err)
		}
		s.cache.Set(products, rules)
	}
	snap.Products = products
	snap.Rules = rules

	days, hasSchedule, err := s.schedules.DaysInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load schedule days: %w", err)
	}
	snap.ScheduleDays = days
	snap.HasSchedule = hasSchedule

	sums, err := s.ledger.BookedSums(ctx, start, end, exclude)
	if err != nil {
		return nil, fmt.Errorf("load booked sums: %w", err)
	}
	snap.Booked = sums.ByDateProduct
	snap.DayBooked = sums.ByDate
	snap.SupplierBooked = sums.BySupplierDate

	return snap, nil
}
