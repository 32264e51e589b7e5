package models

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking occupies capacity on its BookingDate for each of its goods lines.
// Cancelled bookings never count against capacity.
type Booking struct {
	ID              uuid.UUID
	BookingDate     time.Time
	Status          BookingStatus
	YardID          int
	SupplierName    string // empty for ad-hoc bookers
	RescheduledFrom *time.Time
	Goods           []Goods
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Goods is one product line inside a booking.
type Goods struct {
	ProductTypeID   int
	Quantity        int
	NumberOfPallets int
}

// CountsAgainstCapacity reports whether this booking's goods occupy capacity.
func (b *Booking) CountsAgainstCapacity() bool {
	return b.Status != BookingStatusCancelled
}

// QuantityFor sums the booked quantity for one product type.
func (b *Booking) QuantityFor(productTypeID int) int {
	total := 0
	for _, g := range b.Goods {
		if g.ProductTypeID == productTypeID {
			total += g.Quantity
		}
	}
	return total
}
