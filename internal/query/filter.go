package query

import (
	"strings"
	"time"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/apperr"
	"gorm.io/datatypes"
)

const DateLayout = "2006-01-02"

// DateRange is a half-open [From, To) interval in UTC.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Day returns the range covering one calendar day.
func Day(day time.Time) DateRange {
	start := StartOfDay(day)

	return DateRange{From: start, To: start.AddDate(0, 0, 1)}
}

// Days returns the range from the start of first through the end of last.
func Days(first, last time.Time) DateRange {
	return DateRange{From: StartOfDay(first), To: StartOfDay(last).AddDate(0, 0, 1)}
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns Monday 00:00 of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -offset)
}

func StartOfMonth(t time.Time) time.Time {
	year, month, _ := t.UTC().Date()

	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// ToDate converts t into a date-only column value.
func ToDate(t time.Time) datatypes.Date {
	return datatypes.Date(StartOfDay(t))
}

// ParseDate parses a YYYY-MM-DD value. The returned time is midnight UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperr.ErrInvalidDate
	}

	return parsed, nil
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parsed, err := ParseDate(value)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}

// RangeFromDates builds an inclusive date range where either end may be open.
func RangeFromDates(start, end *time.Time) *DateRange {
	if start == nil && end == nil {
		return nil
	}

	dateRange := DateRange{
		From: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if start != nil {
		dateRange.From = StartOfDay(*start)
	}

	if end != nil {
		dateRange.To = StartOfDay(*end).AddDate(0, 0, 1)
	}

	return &dateRange
}

// Contains builds a case-insensitive LIKE pattern, to be compared against
// LOWER(column).
func Contains(value string) string {
	return "%" + strings.ToLower(strings.TrimSpace(value)) + "%"
}

// Prefix builds a case-insensitive prefix LIKE pattern.
func Prefix(value string) string {
	return strings.ToLower(strings.TrimSpace(value)) + "%"
}
