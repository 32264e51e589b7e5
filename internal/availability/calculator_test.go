package availability

import (
	"reflect"
	"testing"
	"time"

	"github.com/yardbook/capacity-service/internal/models"
)

func testSnapshot() *Snapshot {
	snap := NewSnapshot()
	snap.Products[1] = models.ProductType{ID: 1, Name: "Steel", DailyCapacity: 100, TolerancePct: 10}
	snap.Products[2] = models.ProductType{ID: 2, Name: "Timber", DailyCapacity: 40, TolerancePct: 0}
	return snap
}

func date(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func singleDayRequest(day string, goods ...GoodsRequest) Request {
	return Request{
		Start: date(day),
		End:   date(day),
		Goods: goods,
		AsOf:  date("2025-06-01"),
	}
}

func entryFor(t *testing.T, byDate map[string][]models.AvailabilityEntry, day string, productTypeID int) models.AvailabilityEntry {
	t.Helper()
	entries, ok := byDate[day]
	if !ok {
		t.Fatalf("no entries for %s", day)
	}
	for _, e := range entries {
		if e.ProductTypeID == productTypeID {
			return e
		}
	}
	t.Fatalf("no entry for product %d on %s", productTypeID, day)
	return models.AvailabilityEntry{}
}

func TestMaxCapacity_FloorRounding(t *testing.T) {
	cases := []struct {
		daily, tol, want int
	}{
		{100, 10, 110},
		{100, 0, 100},
		{33, 10, 36},  // 36.3 floors to 36
		{7, 15, 8},    // 8.05 floors to 8
		{99, 33, 131}, // 131.67 floors to 131
		{0, 50, 0},
	}
	for _, c := range cases {
		if got := MaxCapacity(c.daily, c.tol); got != c.want {
			t.Errorf("MaxCapacity(%d, %d) = %d, want %d", c.daily, c.tol, got, c.want)
		}
	}
}

func TestCompute_SteelScenario(t *testing.T) {
	snap := testSnapshot()
	// existing bookings on 2025-06-10 sum to 90 units of Steel
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] = 90

	calc := NewCalculator(DefaultPolicy())

	// 15 requested against remaining 20 is fine
	got := calc.Compute(snap, singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 15}))
	e := entryFor(t, got, "2025-06-10", 1)
	if e.MaxCapacity != 110 {
		t.Errorf("MaxCapacity = %d, want 110", e.MaxCapacity)
	}
	if e.Remaining != 20 {
		t.Errorf("Remaining = %d, want 20", e.Remaining)
	}
	if e.State != models.DayStateAvailable {
		t.Errorf("State = %s, want available", e.State)
	}

	// 25 requested exceeds remaining by 5
	got = calc.Compute(snap, singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 25}))
	e = entryFor(t, got, "2025-06-10", 1)
	if e.State != models.DayStateUnavailable {
		t.Fatalf("State = %s, want unavailable", e.State)
	}
	want := "capacity_exceeded: requested 25 exceeds remaining 20 by 5"
	if e.Message != want {
		t.Errorf("Message = %q, want %q", e.Message, want)
	}
}

func TestCompute_WeekendClosed(t *testing.T) {
	snap := testSnapshot()
	calc := NewCalculator(DefaultPolicy())

	// 2025-06-14 is a Saturday; closed regardless of capacity
	got := calc.Compute(snap, singleDayRequest("2025-06-14", GoodsRequest{ProductTypeID: 1, Quantity: 1}))
	e := entryFor(t, got, "2025-06-14", 1)
	if e.State != models.DayStateUnavailable {
		t.Fatalf("State = %s, want unavailable", e.State)
	}
	if e.Message != models.MsgWarehouseClosed {
		t.Errorf("Message = %q, want %q", e.Message, models.MsgWarehouseClosed)
	}
	// closed is not the same verdict as full
	if e.Remaining != 110 {
		t.Errorf("Remaining = %d, want untouched 110", e.Remaining)
	}
}

func TestCompute_ConfigurableClosedDays(t *testing.T) {
	snap := testSnapshot()
	calc := NewCalculator(Policy{
		ClosedWeekdays: map[time.Weekday]bool{time.Monday: true},
		HorizonDays:    60,
	})

	// Saturday open under this policy, Monday closed
	sat := calc.Compute(snap, singleDayRequest("2025-06-14", GoodsRequest{ProductTypeID: 1, Quantity: 1}))
	if e := entryFor(t, sat, "2025-06-14", 1); e.State != models.DayStateAvailable {
		t.Errorf("saturday State = %s, want available", e.State)
	}
	mon := calc.Compute(snap, singleDayRequest("2025-06-09", GoodsRequest{ProductTypeID: 1, Quantity: 1}))
	if e := entryFor(t, mon, "2025-06-09", 1); e.Message != models.MsgWarehouseClosed {
		t.Errorf("monday Message = %q, want closed", e.Message)
	}
}

func TestCompute_PastAndHorizon(t *testing.T) {
	snap := testSnapshot()
	calc := NewCalculator(DefaultPolicy())

	req := singleDayRequest("2025-05-30", GoodsRequest{ProductTypeID: 1, Quantity: 1})
	got := calc.Compute(snap, req)
	if e := entryFor(t, got, "2025-05-30", 1); e.Message != models.MsgDateInPast {
		t.Errorf("past date Message = %q, want %q", e.Message, models.MsgDateInPast)
	}

	// horizon is AsOf+60d = 2025-07-31; the day after is out of range
	req = singleDayRequest("2025-08-01", GoodsRequest{ProductTypeID: 1, Quantity: 1})
	got = calc.Compute(snap, req)
	if e := entryFor(t, got, "2025-08-01", 1); e.Message != models.MsgOutsideHorizon {
		t.Errorf("beyond horizon Message = %q, want %q", e.Message, models.MsgOutsideHorizon)
	}
	req = singleDayRequest("2025-07-31", GoodsRequest{ProductTypeID: 1, Quantity: 1})
	got = calc.Compute(snap, req)
	if e := entryFor(t, got, "2025-07-31", 1); e.State != models.DayStateAvailable {
		t.Errorf("horizon edge State = %s, want available", e.State)
	}
}

func TestCompute_UnscheduledDateIsTriState(t *testing.T) {
	snap := testSnapshot()
	snap.HasSchedule = true
	snap.ScheduleDays["2025-06-10"] = models.ScheduleDay{Date: date("2025-06-10"), Capacity: 200, IsSaved: true}

	calc := NewCalculator(DefaultPolicy())

	// scheduled date behaves normally
	got := calc.Compute(snap, singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 5}))
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("scheduled State = %s, want available", e.State)
	}

	// 2025-06-11 has no schedule row: unscheduled, never available
	got = calc.Compute(snap, singleDayRequest("2025-06-11", GoodsRequest{ProductTypeID: 1, Quantity: 5}))
	e := entryFor(t, got, "2025-06-11", 1)
	if e.State != models.DayStateUnscheduled {
		t.Fatalf("State = %s, want unscheduled", e.State)
	}
	if e.Available() {
		t.Error("unscheduled date must never be available")
	}
	if e.Message != models.MsgUnscheduled {
		t.Errorf("Message = %q, want %q", e.Message, models.MsgUnscheduled)
	}
}

func TestCompute_UnknownProductIsUnscheduled(t *testing.T) {
	snap := testSnapshot()
	calc := NewCalculator(DefaultPolicy())

	got := calc.Compute(snap, singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 99, Quantity: 1}))
	e := entryFor(t, got, "2025-06-10", 99)
	if e.State != models.DayStateUnscheduled {
		t.Errorf("State = %s, want unscheduled", e.State)
	}
	if e.HasCapacityData {
		t.Error("unknown product must not report capacity data")
	}
}

func TestCompute_DayCapacityAcrossProducts(t *testing.T) {
	snap := testSnapshot()
	snap.HasSchedule = true
	snap.ScheduleDays["2025-06-10"] = models.ScheduleDay{Date: date("2025-06-10"), Capacity: 30, IsSaved: true}

	calc := NewCalculator(DefaultPolicy())

	// each product fits its own ceiling but together they exceed the day pool
	got := calc.Compute(snap, singleDayRequest("2025-06-10",
		GoodsRequest{ProductTypeID: 1, Quantity: 20},
		GoodsRequest{ProductTypeID: 2, Quantity: 20},
	))
	entries := got["2025-06-10"]
	if DateAvailable(entries) {
		t.Error("date must be unavailable when combined request exceeds day capacity")
	}
	for _, e := range entries {
		if e.State != models.DayStateUnavailable {
			t.Errorf("product %d State = %s, want unavailable", e.ProductTypeID, e.State)
		}
	}
}

func TestCompute_DateLevelAND(t *testing.T) {
	snap := testSnapshot()
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 2}] = 40 // Timber full

	calc := NewCalculator(DefaultPolicy())
	got := calc.Compute(snap, singleDayRequest("2025-06-10",
		GoodsRequest{ProductTypeID: 1, Quantity: 10},
		GoodsRequest{ProductTypeID: 2, Quantity: 1},
	))

	entries := got["2025-06-10"]
	if e := entryFor(t, got, "2025-06-10", 1); !e.Available() {
		t.Error("Steel alone should be available")
	}
	if DateAvailable(entries) {
		t.Error("date availability must AND across all requested products")
	}
}

func TestCompute_SupplierReservation(t *testing.T) {
	snap := testSnapshot()
	snap.HasSchedule = true
	// 2025-06-10 is a Tuesday
	snap.ScheduleDays["2025-06-10"] = models.ScheduleDay{Date: date("2025-06-10"), Capacity: 50, IsSaved: true}
	snap.Rules = []models.SupplierRule{{
		ID: 1, SupplierName: "acme", Weekday: time.Tuesday,
		AllocatedCapacity: 30, TolerancePct: 10, DeliveryEmail: "dock@acme.example",
	}}

	calc := NewCalculator(DefaultPolicy())

	// ad-hoc booker sees only the shared pool: 50 - 30 reserved = 20
	adhoc := singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 25})
	got := calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateUnavailable {
		t.Errorf("ad-hoc 25 into shared 20: State = %s, want unavailable", e.State)
	}
	adhoc.Goods[0].Quantity = 20
	got = calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("ad-hoc 20 into shared 20: State = %s, want available", e.State)
	}

	// the reserved supplier can use the whole pool plus its tolerance stretch:
	// 50 + floor(30*10%) = 53
	reserved := singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 53})
	reserved.Supplier = "acme"
	got = calc.Compute(snap, reserved)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("acme 53 into 53: State = %s, want available, msg %q", e.State, e.Message)
	}
	reserved.Goods[0].Quantity = 54
	got = calc.Compute(snap, reserved)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateUnavailable {
		t.Errorf("acme 54 into 53: State = %s, want unavailable", e.State)
	}

	// the rule only applies on its weekday: Wednesday has no carve-out
	wed := singleDayRequest("2025-06-11", GoodsRequest{ProductTypeID: 1, Quantity: 25})
	snap.ScheduleDays["2025-06-11"] = models.ScheduleDay{Date: date("2025-06-11"), Capacity: 50, IsSaved: true}
	got = calc.Compute(snap, wed)
	if e := entryFor(t, got, "2025-06-11", 1); e.State != models.DayStateAvailable {
		t.Errorf("wednesday 25 into 50: State = %s, want available", e.State)
	}
}

func TestCompute_ConsumedTrancheFreesSharedPool(t *testing.T) {
	snap := testSnapshot()
	snap.HasSchedule = true
	snap.ScheduleDays["2025-06-10"] = models.ScheduleDay{Date: date("2025-06-10"), Capacity: 50, IsSaved: true}
	snap.Rules = []models.SupplierRule{{
		ID: 1, SupplierName: "acme", Weekday: time.Tuesday,
		AllocatedCapacity: 30, DeliveryEmail: "dock@acme.example",
	}}

	// acme has booked its whole tranche; those 30 units are in the day total
	// and must not be held back a second time by the rule
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] = 30
	snap.DayBooked["2025-06-10"] = 30
	snap.SupplierBooked[SupplierDayKey{Date: "2025-06-10", Supplier: "acme"}] = 30

	calc := NewCalculator(DefaultPolicy())

	adhoc := singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 1})
	got := calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("ad-hoc 1 with tranche fully consumed: State = %s, want available, msg %q", e.State, e.Message)
	}
	adhoc.Goods[0].Quantity = 20
	got = calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("ad-hoc 20 into shared 20: State = %s, want available, msg %q", e.State, e.Message)
	}
	adhoc.Goods[0].Quantity = 21
	got = calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateUnavailable {
		t.Errorf("ad-hoc 21 into shared 20: State = %s, want unavailable", e.State)
	}

	// half-consumed tranche: only the unconsumed 20 stays reserved,
	// shared remaining = 50 - 10 booked - 20 residual = 20
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] = 10
	snap.DayBooked["2025-06-10"] = 10
	snap.SupplierBooked[SupplierDayKey{Date: "2025-06-10", Supplier: "acme"}] = 10

	adhoc.Goods[0].Quantity = 20
	got = calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateAvailable {
		t.Errorf("ad-hoc 20 with half-consumed tranche: State = %s, want available, msg %q", e.State, e.Message)
	}
	adhoc.Goods[0].Quantity = 21
	got = calc.Compute(snap, adhoc)
	if e := entryFor(t, got, "2025-06-10", 1); e.State != models.DayStateUnavailable {
		t.Errorf("ad-hoc 21 with half-consumed tranche: State = %s, want unavailable", e.State)
	}
}

func TestCompute_NegativeRemainingAfterOverride(t *testing.T) {
	snap := testSnapshot()
	// an admin override oversold the date
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] = 120

	calc := NewCalculator(DefaultPolicy())
	got := calc.Compute(snap, singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 1}))
	e := entryFor(t, got, "2025-06-10", 1)
	if e.Remaining != -10 {
		t.Errorf("Remaining = %d, want -10", e.Remaining)
	}
	if e.State != models.DayStateUnavailable {
		t.Errorf("State = %s, want unavailable", e.State)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	snap := testSnapshot()
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] = 42

	calc := NewCalculator(DefaultPolicy())
	req := Request{
		Start: date("2025-06-09"),
		End:   date("2025-06-13"),
		Goods: []GoodsRequest{{ProductTypeID: 1, Quantity: 5}, {ProductTypeID: 2, Quantity: 3}},
		AsOf:  date("2025-06-01"),
	}

	first := calc.Compute(snap, req)
	second := calc.Compute(snap, req)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated computation over the same snapshot must be identical")
	}
}

func TestCompute_CommitReducesRemainingByExactQuantity(t *testing.T) {
	snap := testSnapshot()
	calc := NewCalculator(DefaultPolicy())
	req := singleDayRequest("2025-06-10", GoodsRequest{ProductTypeID: 1, Quantity: 15})

	before := entryFor(t, calc.Compute(snap, req), "2025-06-10", 1)

	// simulate a committed booking of 15 landing in the ledger
	snap.Booked[BookedKey{Date: "2025-06-10", ProductTypeID: 1}] += 15
	after := entryFor(t, calc.Compute(snap, req), "2025-06-10", 1)

	if before.Remaining-after.Remaining != 15 {
		t.Errorf("remaining dropped by %d, want exactly 15", before.Remaining-after.Remaining)
	}
}

func TestFailClosed_EveryDateUnavailable(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())
	req := Request{
		Start: date("2025-06-09"),
		End:   date("2025-06-13"),
		Goods: []GoodsRequest{{ProductTypeID: 1, Quantity: 1}},
		AsOf:  date("2025-06-01"),
	}

	got := calc.FailClosed(req)
	if len(got) != 5 {
		t.Fatalf("got %d dates, want 5", len(got))
	}
	for day, entries := range got {
		for _, e := range entries {
			if e.Available() {
				t.Errorf("%s: fetch failure must never yield availability", day)
			}
			if e.Message != models.MsgDataSourceUnavailable {
				t.Errorf("%s: Message = %q, want %q", day, e.Message, models.MsgDataSourceUnavailable)
			}
		}
	}
}
