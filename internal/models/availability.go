package models

import "time"

// DayState is the tri-state verdict for a (date, product) pair. Unscheduled
// dates are rendered differently from fully booked ones, so a plain boolean
// is not enough.
type DayState string

const (
	DayStateUnscheduled DayState = "unscheduled"
	DayStateAvailable   DayState = "available"
	DayStateUnavailable DayState = "unavailable"
)

// Rejection reasons carried in AvailabilityEntry.Message and API errors.
const (
	MsgCapacityExceeded      = "capacity_exceeded"
	MsgWarehouseClosed       = "warehouse_closed"
	MsgOutsideHorizon        = "outside_booking_horizon"
	MsgDateInPast            = "date_in_past"
	MsgUnscheduled           = "unscheduled_date"
	MsgDataSourceUnavailable = "data_source_unavailable"
	MsgConflictRetry         = "conflict_retry"
)

// AvailabilityEntry is the per-date, per-product verdict. It is derived on
// every query and never persisted.
type AvailabilityEntry struct {
	Date            time.Time `json:"-"`
	ProductTypeID   int       `json:"product_type_id"`
	RequestedQty    int       `json:"requested_qty"`
	CurrentlyBooked int       `json:"currently_booked"`
	MaxCapacity     int       `json:"max_capacity"`
	// Remaining is meaningless when State is unscheduled; HasCapacityData
	// distinguishes "no data" from "remaining happens to be zero".
	Remaining       int      `json:"remaining"`
	HasCapacityData bool     `json:"has_capacity_data"`
	State           DayState `json:"state"`
	Message         string   `json:"message,omitempty"`
}

// Available is a convenience for callers that only need the boolean view.
func (e *AvailabilityEntry) Available() bool {
	return e.State == DayStateAvailable
}
