package availability

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yardbook/capacity-service/internal/models"
)

// Policy carries the booking-window rules that used to be hardcoded in the
// calling UIs: which weekdays the yard is closed and how far ahead bookings
// may be placed.
type Policy struct {
	ClosedWeekdays map[time.Weekday]bool
	HorizonDays    int
}

// DefaultPolicy closes weekends and allows booking 60 days ahead, matching
// the supplier booking flow.
func DefaultPolicy() Policy {
	return Policy{
		ClosedWeekdays: map[time.Weekday]bool{
			time.Saturday: true,
			time.Sunday:   true,
		},
		HorizonDays: 60,
	}
}

// Calculator computes per-date, per-product availability verdicts. It holds
// only policy, never data: all data arrives through the Snapshot, so a single
// Calculator is safe for concurrent use by many requests.
type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	if policy.HorizonDays <= 0 {
		policy.HorizonDays = DefaultPolicy().HorizonDays
	}
	if policy.ClosedWeekdays == nil {
		policy.ClosedWeekdays = DefaultPolicy().ClosedWeekdays
	}
	return &Calculator{policy: policy}
}

// MaxCapacity is the tolerance-adjusted daily ceiling. Floor rounding is the
// one rounding rule used everywhere capacity is computed.
func MaxCapacity(dailyCapacity, tolerancePct int) int {
	d := decimal.NewFromInt(int64(dailyCapacity)).
		Mul(decimal.NewFromInt(int64(100 + tolerancePct))).
		Div(decimal.NewFromInt(100))
	return int(d.Floor().IntPart())
}

// toleranceBonus is the overage a tolerance grants on top of a nominal value.
func toleranceBonus(nominal, tolerancePct int) int {
	return MaxCapacity(nominal, tolerancePct) - nominal
}

// Compute maps every date in the request range to its per-product entries.
// The map is keyed by models.DateKey.
func (c *Calculator) Compute(snap *Snapshot, req Request) map[string][]models.AvailabilityEntry {
	out := make(map[string][]models.AvailabilityEntry)
	today := models.Midnight(req.AsOf)
	horizon := today.AddDate(0, 0, c.policy.HorizonDays)

	for d := models.Midnight(req.Start); !d.After(models.Midnight(req.End)); d = d.AddDate(0, 0, 1) {
		key := models.DateKey(d)
		if reason := c.closedReason(d, today, horizon); reason != "" {
			out[key] = c.closedEntries(snap, req, d, reason)
			continue
		}
		out[key] = c.openDayEntries(snap, req, d)
	}
	return out
}

// FailClosed produces the verdicts used when the capacity source or booking
// ledger could not be read: every date unavailable, never available.
func (c *Calculator) FailClosed(req Request) map[string][]models.AvailabilityEntry {
	out := make(map[string][]models.AvailabilityEntry)
	for d := models.Midnight(req.Start); !d.After(models.Midnight(req.End)); d = d.AddDate(0, 0, 1) {
		entries := make([]models.AvailabilityEntry, 0, len(req.Goods))
		for _, g := range req.Goods {
			entries = append(entries, models.AvailabilityEntry{
				Date:          d,
				ProductTypeID: g.ProductTypeID,
				RequestedQty:  g.Quantity,
				State:         models.DayStateUnavailable,
				Message:       models.MsgDataSourceUnavailable,
			})
		}
		out[models.DateKey(d)] = entries
	}
	return out
}

// DateAvailable is the date-level verdict used to enable a calendar cell:
// the logical AND across all per-product entries for that date.
func DateAvailable(entries []models.AvailabilityEntry) bool {
	if len(entries) == 0 {
		return false
	}
	for i := range entries {
		if !entries[i].Available() {
			return false
		}
	}
	return true
}

func (c *Calculator) closedReason(d, today, horizon time.Time) string {
	if c.policy.ClosedWeekdays[d.Weekday()] {
		return models.MsgWarehouseClosed
	}
	if d.Before(today) {
		return models.MsgDateInPast
	}
	if d.After(horizon) {
		return models.MsgOutsideHorizon
	}
	return ""
}

func (c *Calculator) closedEntries(snap *Snapshot, req Request, d time.Time, reason string) []models.AvailabilityEntry {
	entries := make([]models.AvailabilityEntry, 0, len(req.Goods))
	for _, g := range req.Goods {
		e := models.AvailabilityEntry{
			Date:          d,
			ProductTypeID: g.ProductTypeID,
			RequestedQty:  g.Quantity,
			State:         models.DayStateUnavailable,
			Message:       reason,
		}
		// capacity figures are still reported when the catalog knows the
		// product, so the admin calendar can show them on closed days
		if pt, ok := snap.Products[g.ProductTypeID]; ok {
			e.MaxCapacity = MaxCapacity(pt.DailyCapacity, pt.TolerancePct)
			e.CurrentlyBooked = snap.BookedFor(d, g.ProductTypeID)
			e.Remaining = e.MaxCapacity - e.CurrentlyBooked
			e.HasCapacityData = true
		}
		entries = append(entries, e)
	}
	return entries
}

func (c *Calculator) openDayEntries(snap *Snapshot, req Request, d time.Time) []models.AvailabilityEntry {
	key := models.DateKey(d)

	// yard-level day check, shared across all products on this date
	dayState, dayMsg := c.dayVerdict(snap, req, d, key)

	entries := make([]models.AvailabilityEntry, 0, len(req.Goods))
	for _, g := range req.Goods {
		entries = append(entries, c.productEntry(snap, g, d, dayState, dayMsg))
	}
	return entries
}

// dayVerdict applies the yard-level delivery-schedule capacity when that
// model is in effect. A date the schedule does not cover is unscheduled,
// which is distinct from a date that is fully booked.
func (c *Calculator) dayVerdict(snap *Snapshot, req Request, d time.Time, key string) (models.DayState, string) {
	if !snap.HasSchedule {
		return models.DayStateAvailable, ""
	}
	day, ok := snap.ScheduleDays[key]
	if !ok {
		return models.DayStateUnscheduled, models.MsgUnscheduled
	}

	totalRequested := 0
	for _, g := range req.Goods {
		totalRequested += g.Quantity
	}

	pool := day.Capacity + snap.TrancheBonus(d, req.Supplier)
	remaining := pool - snap.DayBooked[key] - snap.ReservedFor(d, req.Supplier)
	if remaining < totalRequested {
		return models.DayStateUnavailable,
			fmt.Sprintf("%s: requested %d exceeds day remaining %d", models.MsgCapacityExceeded, totalRequested, remaining)
	}
	return models.DayStateAvailable, ""
}

func (c *Calculator) productEntry(snap *Snapshot, g GoodsRequest, d time.Time, dayState models.DayState, dayMsg string) models.AvailabilityEntry {
	e := models.AvailabilityEntry{
		Date:          d,
		ProductTypeID: g.ProductTypeID,
		RequestedQty:  g.Quantity,
	}

	pt, ok := snap.Products[g.ProductTypeID]
	if !ok {
		e.State = models.DayStateUnscheduled
		e.Message = models.MsgUnscheduled
		return e
	}

	e.MaxCapacity = MaxCapacity(pt.DailyCapacity, pt.TolerancePct)
	e.CurrentlyBooked = snap.BookedFor(d, g.ProductTypeID)
	e.Remaining = e.MaxCapacity - e.CurrentlyBooked
	e.HasCapacityData = true

	if dayState == models.DayStateUnscheduled {
		e.State = models.DayStateUnscheduled
		e.Message = dayMsg
		return e
	}

	if e.Remaining < g.Quantity {
		e.State = models.DayStateUnavailable
		e.Message = fmt.Sprintf("%s: requested %d exceeds remaining %d by %d",
			models.MsgCapacityExceeded, g.Quantity, e.Remaining, g.Quantity-e.Remaining)
		return e
	}

	if dayState == models.DayStateUnavailable {
		e.State = models.DayStateUnavailable
		e.Message = dayMsg
		return e
	}

	e.State = models.DayStateAvailable
	return e
}
