package model

import "time"

// DateLayout is the calendar date format used in storage, flags and JSON payloads.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// DaysInMonth returns the length of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateInMonth returns the given day of the month, clamped to the month's last day.
func DateInMonth(year int, month time.Month, day int) time.Time {
	// Normalize month overflow before clamping.
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	year, month = first.Year(), first.Month()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddMonths advances t by n calendar months, keeping day-of-month where the
// target month is long enough and clamping to its last day otherwise.
func AddMonths(t time.Time, n int, day int) time.Time {
	t = Day(t)
	return DateInMonth(t.Year(), t.Month()+time.Month(n), day)
}
