package service

import (
	"errors"
	"fmt"

	"github.com/yardbook/capacity-service/internal/models"
)

var (
	// ErrBookingNotFound is returned when the referenced booking id does
	// not exist.
	ErrBookingNotFound = errors.New("booking_not_found")

	// ErrConflictRetry is returned when a commit lost a serialization race
	// against another writer; the caller may safely retry.
	ErrConflictRetry = errors.New(models.MsgConflictRetry)

	// ErrDataSourceUnavailable wraps capacity-source or ledger read
	// failures. Availability is fail-closed under it.
	ErrDataSourceUnavailable = errors.New(models.MsgDataSourceUnavailable)
)

// Rejection is a capacity-rule refusal: the requested date cannot take the
// requested goods. It carries the calculator's per-product verdicts so the
// caller can show which product overflowed.
type Rejection struct {
	Message string
	Entries []models.AvailabilityEntry
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("booking rejected: %s", r.Message)
}

// rejectionFrom builds a Rejection out of the first non-available entry.
func rejectionFrom(entries []models.AvailabilityEntry) *Rejection {
	for i := range entries {
		if !entries[i].Available() {
			return &Rejection{Message: entries[i].Message, Entries: entries}
		}
	}
	return &Rejection{Message: "unavailable", Entries: entries}
}
