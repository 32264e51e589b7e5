package availability

import (
	"time"

	"github.com/yardbook/capacity-service/internal/models"
)

// GoodsRequest is one requested product line in an availability query.
type GoodsRequest struct {
	ProductTypeID int
	Quantity      int
}

// Request describes one availability computation over an inclusive date range.
type Request struct {
	Start time.Time
	End   time.Time
	Goods []GoodsRequest
	// Supplier tags the request with a supplier name so reserved tranches
	// can be consumed. Empty means an ad-hoc booker.
	Supplier string
	// AsOf anchors "today" for past-date and horizon checks.
	AsOf time.Time
}

// BookedKey addresses the booked-quantity sum for one (date, product type).
type BookedKey struct {
	Date          string // models.DateKey format
	ProductTypeID int
}

// SupplierDayKey addresses one supplier's booked total on one date.
type SupplierDayKey struct {
	Date     string
	Supplier string
}

// LedgerSums is the booked-quantity aggregate a snapshot loader pulls from
// the booking ledger in one pass.
type LedgerSums struct {
	ByDateProduct  map[BookedKey]int
	ByDate         map[string]int
	BySupplierDate map[SupplierDayKey]int
}

// NewLedgerSums returns an empty aggregate ready to be filled.
func NewLedgerSums() LedgerSums {
	return LedgerSums{
		ByDateProduct:  make(map[BookedKey]int),
		ByDate:         make(map[string]int),
		BySupplierDate: make(map[SupplierDayKey]int),
	}
}

// Snapshot is everything the calculator needs, loaded once per request from
// the capacity source and the booking ledger. The calculator is a pure
// function of (Snapshot, Request); snapshots are never shared across requests.
type Snapshot struct {
	Products map[int]models.ProductType
	// ScheduleDays maps DateKey to the configured yard-level day capacity.
	// HasSchedule reports whether the delivery-schedule model is in effect
	// at all; when it is, a date missing from ScheduleDays is unscheduled.
	ScheduleDays map[string]models.ScheduleDay
	HasSchedule  bool
	Rules        []models.SupplierRule
	// Booked holds per-(date, product) quantity sums over non-cancelled
	// bookings. A rescheduling caller loads this with the moved booking
	// excluded.
	Booked map[BookedKey]int
	// DayBooked holds per-date quantity sums across all products, used for
	// the yard-level day capacity check.
	DayBooked map[string]int
	// SupplierBooked holds per-(date, supplier) quantity sums, used to
	// net a supplier's consumption against its reserved tranche.
	SupplierBooked map[SupplierDayKey]int
}

// NewSnapshot returns an empty snapshot ready to be filled by a loader.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Products:       make(map[int]models.ProductType),
		ScheduleDays:   make(map[string]models.ScheduleDay),
		Booked:         make(map[BookedKey]int),
		DayBooked:      make(map[string]int),
		SupplierBooked: make(map[SupplierDayKey]int),
	}
}

// BookedFor returns the booked sum for a date/product pair.
func (s *Snapshot) BookedFor(date time.Time, productTypeID int) int {
	return s.Booked[BookedKey{Date: models.DateKey(date), ProductTypeID: productTypeID}]
}

// ReservedFor sums the capacity still carved out of date's shared pool for
// suppliers other than the requesting one. Quantities a reserving supplier
// has already booked sit in DayBooked, so only the unconsumed remainder of
// each tranche is held back; a tranche booked past its allocation holds back
// nothing extra.
func (s *Snapshot) ReservedFor(date time.Time, supplier string) int {
	key := models.DateKey(date)
	reserved := 0
	for i := range s.Rules {
		r := &s.Rules[i]
		if !r.AppliesTo(date) || r.SupplierName == supplier {
			continue
		}
		residual := r.AllocatedCapacity - s.SupplierBooked[SupplierDayKey{Date: key, Supplier: r.SupplierName}]
		if residual > 0 {
			reserved += residual
		}
	}
	return reserved
}

// TrancheBonus returns the tolerance stretch of the requesting supplier's own
// reservation on date, zero when no rule matches.
func (s *Snapshot) TrancheBonus(date time.Time, supplier string) int {
	if supplier == "" {
		return 0
	}
	bonus := 0
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.AppliesTo(date) && r.SupplierName == supplier {
			bonus += toleranceBonus(r.AllocatedCapacity, r.TolerancePct)
		}
	}
	return bonus
}
