package models

import "time"

// ProductType is a configured goods category with a daily booking capacity.
// TolerancePct is the allowed overage above DailyCapacity, 0-100.
type ProductType struct {
	ID            int
	Name          string
	DailyCapacity int
	TolerancePct  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
