package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeAgo renders the gap between then and now the way the dashboards show
// it: whole days first, then whole hours, otherwise "Just now".
func TimeAgo(then, now time.Time) string {
	d := now.Sub(then)
	if d < 0 {
		d = 0
	}
	if days := int(d.Hours()) / 24; days > 0 {
		return plural(days, "day") + " ago"
	}
	if hours := int(d.Hours()); hours > 0 {
		return plural(hours, "hour") + " ago"
	}
	return "Just now"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// PhaseDuration formats a phase length as "MM:SS min" under an hour and
// "HH:MM hr" otherwise.
func PhaseDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours, rem := total/3600, total%3600
	minutes, seconds := rem/60, rem%60
	if hours == 0 {
		return fmt.Sprintf("%02d:%02d min", minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d hr", hours, minutes)
}

// ClockDuration formats d as "HH:MM:SS hours".
func ClockDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d hours", total/3600, (total%3600)/60, total%60)
}

// Rupees formats amount with comma thousands grouping, e.g. ₹120,000.
func Rupees(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-₹" + b.String()
	}
	return "₹" + b.String()
}

// ClockLabel renders t as "09:45 AM".
func ClockLabel(t time.Time) string {
	return t.Local().Format("03:04 PM")
}

// DayLabel renders t as "02 Jan". DATE columns come back as UTC midnight,
// so t is formatted in its own location.
func DayLabel(t time.Time) string {
	return t.Format("02 Jan")
}

// HourLabel renders a 24h hour as "9 AM" or "1 PM".
func HourLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour
	if hour > 12 {
		display = hour - 12
	}
	return fmt.Sprintf("%d %s", display, suffix)
}
