package models

import "time"

// SupplierRule pre-reserves capacity for a named supplier on a recurring
// weekday. The reservation is subtracted from the shared pool and is only
// consumable by bookings carrying the same supplier name.
type SupplierRule struct {
	ID                int
	SupplierName      string
	Weekday           time.Weekday
	AllocatedCapacity int
	TolerancePct      int
	DeliveryEmail     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AppliesTo reports whether the rule covers the given date.
func (r *SupplierRule) AppliesTo(date time.Time) bool {
	return r.Weekday == date.Weekday()
}
