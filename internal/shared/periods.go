package shared

import (
	"fmt"
	"time"
)

// MonthCodeLayout is the canonical reporting period code, e.g. "2025-06".
const MonthCodeLayout = "2006-01"

// ParseMonth parses a month code into the first day of that month in UTC.
func ParseMonth(code string) (time.Time, error) {
	t, err := time.Parse(MonthCodeLayout, code)
	if err != nil {
		return time.Time{}, fmt.Errorf("shared: parse month %q: %w", code, err)
	}
	return t.UTC(), nil
}

// MonthCode formats t as a month code.
func MonthCode(t time.Time) string {
	return t.Format(MonthCodeLayout)
}

// MonthStart returns the first instant of t's month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last instant of t's month in UTC.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// EnumerateMonths lists month codes from one code to another inclusive.
// The bounds may arrive in either order.
func EnumerateMonths(from, to string) ([]string, error) {
	start, err := ParseMonth(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseMonth(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		start, end = end, start
	}
	var codes []string
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		codes = append(codes, MonthCode(cur))
	}
	return codes, nil
}
