package core

import (
	"fmt"
	"time"
)

// ParseMonth validates a YYYY-MM token and returns its year and month.
func ParseMonth(month string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return 0, 0, Invalidf("invalid month format, expected YYYY-MM")
	}
	return t.Year(), t.Month(), nil
}

// FormatMonth renders a year and month as a YYYY-MM token.
func FormatMonth(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// PrevMonth returns the month token immediately preceding the given one.
func PrevMonth(month string) (string, error) {
	year, m, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	if m == time.January {
		return FormatMonth(year-1, time.December), nil
	}
	return FormatMonth(year, m-1), nil
}

// ParseDay validates a YYYY-MM-DD token and returns midnight UTC.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, Invalidf("invalid date format, expected YYYY-MM-DD")
	}
	return t.UTC(), nil
}

// ClampDay lowers day to the last day of the given month when it exceeds it.
// Days 1..28 are always valid; 29..31 clamp on short months.
func ClampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// DayStart returns midnight UTC of the given date.
func DayStart(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
