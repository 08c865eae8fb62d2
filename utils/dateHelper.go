package utils

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DefaultTimezone is the operating timezone of the distributor (WIB).
const DefaultTimezone = "Asia/Jakarta"

const DateLayout = "2006-01-02"

// ConvertToDate returns the calendar day of t in timezone as UTC midnight.
// DATE columns are written through a UTC connection, so the local day must be re-anchored to UTC
// or the driver would shift it to the previous day.
func ConvertToDate(t time.Time, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	localTime := t.In(location)
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, time.UTC), nil
}

// DateOnly truncates t to UTC midnight of its own calendar fields.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysInMonth is the calendar day count (28-31) of the month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses YYYY-MM-DD into UTC midnight.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", value, err)
	}
	return t, nil
}
