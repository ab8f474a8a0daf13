package util

import (
	"testing"
	"time"
)

func TestParseDateLocal(t *testing.T) {
	tests := []struct {
		name    string
		dateStr string
		wantErr bool
	}{
		{name: "valid date string", dateStr: "2026-01-23", wantErr: false},
		{name: "invalid date string", dateStr: "invalid", wantErr: true},
		{name: "empty string", dateStr: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDateLocal(tt.dateStr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseDateLocal() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	parsed, err := ParseDateLocal("2026-01-23")
	if err != nil {
		t.Fatalf("ParseDateLocal() failed: %v", err)
	}
	if parsed.Location() != time.Local {
		t.Errorf("ParseDateLocal() location = %v, want %v", parsed.Location(), time.Local)
	}
	if parsed.Day() != 23 || parsed.Hour() != 0 || parsed.Minute() != 0 {
		t.Errorf("ParseDateLocal() = %v, want local midnight of the 23rd", parsed)
	}
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2025, 6, 10, 15, 4, 5, 0, time.Local)
	start, end := DayBounds(at)

	if !start.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)) {
		t.Errorf("DayBounds() start = %v", start)
	}
	if !end.Equal(time.Date(2025, 6, 11, 0, 0, 0, 0, time.Local)) {
		t.Errorf("DayBounds() end = %v", end)
	}
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(2024, time.December)
	if !start.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("MonthBounds() start = %v", start)
	}
	if !end.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("MonthBounds() end = %v", end)
	}
}

func TestInclusiveDays(t *testing.T) {
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int
	}{
		{"same day", day, day.Add(2 * time.Hour), 1},
		{"two days", day, day.AddDate(0, 0, 1), 2},
		{"across month end", day.AddDate(0, 0, -2), day.AddDate(0, 0, 2), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InclusiveDays(tt.start, tt.end); got != tt.want {
				t.Errorf("InclusiveDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStartOfDay(t *testing.T) {
	now := time.Now()
	midnight := StartOfDay(now)

	if midnight.Hour() != 0 || midnight.Minute() != 0 || midnight.Second() != 0 {
		t.Errorf("StartOfDay() should return 00:00:00")
	}
	if midnight.Year() != now.Year() || midnight.Month() != now.Month() || midnight.Day() != now.Day() {
		t.Errorf("StartOfDay() should preserve date")
	}
	if midnight.Location() != time.Local {
		t.Errorf("StartOfDay() location = %v, want %v", midnight.Location(), time.Local)
	}
}
