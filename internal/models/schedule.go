package models

import (
	"fmt"
	"time"
)

// DeliverySchedule is one week of yard-level day capacities, keyed by ISO week.
type DeliverySchedule struct {
	ID            int
	ISOWeek       string // "YYYY-WW"
	TotalCapacity int
	Days          []ScheduleDay
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScheduleDay is a single day's configured capacity within a week.
type ScheduleDay struct {
	ID       int
	Date     time.Time
	Capacity int
	IsSaved  bool
}

// DaySum returns the sum of day capacities. The admin UI compares this against
// TotalCapacity and warns on mismatch, but the mismatch is never a hard error.
func (s *DeliverySchedule) DaySum() int {
	total := 0
	for _, d := range s.Days {
		total += d.Capacity
	}
	return total
}

// ISOWeekKey formats the ISO year/week of t as "YYYY-WW".
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}

// DateKey formats a date as the ISO day string used for map keys and JSON.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses an ISO "2006-01-02" day string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// Midnight truncates t to its UTC calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
