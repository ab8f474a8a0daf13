package util

import "time"

// StartOfDay returns 00:00:00 of t's calendar day in local time.
func StartOfDay(t time.Time) time.Time {
	localTime := t.Local()
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, time.Local)
}

// DayBounds returns [start, end) covering t's local calendar day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns [start, end) covering the given local calendar month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 1, 0)
}

// ParseDateLocal parses a date string in YYYY-MM-DD format as local midnight.
func ParseDateLocal(dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, time.Local)
}

// InclusiveDays counts calendar days from start to end, both included.
func InclusiveDays(start, end time.Time) int {
	s := StartOfDay(start)
	e := StartOfDay(end)
	// Round instead of truncating so DST shifts do not lose a day.
	return int(e.Sub(s).Hours()/24+0.5) + 1
}
