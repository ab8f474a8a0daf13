package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		then time.Time
		want string
	}{
		{"minutes", now.Add(-20 * time.Minute), "Just now"},
		{"one hour", now.Add(-90 * time.Minute), "1 hour ago"},
		{"hours", now.Add(-5 * time.Hour), "5 hours ago"},
		{"one day", now.Add(-30 * time.Hour), "1 day ago"},
		{"days", now.AddDate(0, 0, -4), "4 days ago"},
		{"clock skew", now.Add(time.Minute), "Just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimeAgo(tt.then, now))
		})
	}
}

func TestPhaseDuration(t *testing.T) {
	assert.Equal(t, "00:00 min", PhaseDuration(0))
	assert.Equal(t, "05:07 min", PhaseDuration(5*time.Minute+7*time.Second))
	assert.Equal(t, "01:30 hr", PhaseDuration(90*time.Minute))
	assert.Equal(t, "26:00 hr", PhaseDuration(26*time.Hour))
	assert.Equal(t, "00:00 min", PhaseDuration(-time.Hour))
}

func TestClockDuration(t *testing.T) {
	assert.Equal(t, "02:03:04 hours", ClockDuration(2*time.Hour+3*time.Minute+4*time.Second))
}

func TestRupees(t *testing.T) {
	assert.Equal(t, "₹0", Rupees(0))
	assert.Equal(t, "₹950", Rupees(950))
	assert.Equal(t, "₹1,000", Rupees(1000))
	assert.Equal(t, "₹125,400", Rupees(125400))
	assert.Equal(t, "₹1,500,000", Rupees(1500000))
	assert.Equal(t, "-₹2,500", Rupees(-2500))
}

func TestLabels(t *testing.T) {
	at := time.Date(2025, 1, 2, 9, 45, 0, 0, time.Local)
	assert.Equal(t, "09:45 AM", ClockLabel(at))
	assert.Equal(t, "02 Jan", DayLabel(at))

	assert.Equal(t, "9 AM", HourLabel(9))
	assert.Equal(t, "12 PM", HourLabel(12))
	assert.Equal(t, "7 PM", HourLabel(19))
}
