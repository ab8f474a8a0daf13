package models

// AttendanceScore starts every month at 100 and loses 5 points per leave day
// and 2 per late mark, floored at 0.
func AttendanceScore(leaveDays, lateMarks int) int {
	return clampPercent(100 - (leaveDays*5 + lateMarks*2))
}

// PerformanceScore weighs completed leads at 60% and quotations at 40%,
// each capped at its target.
func PerformanceScore(completed, completedTarget, quotations, quotationTarget int) int {
	completion := cappedRatio(completed, completedTarget)
	quotation := cappedRatio(quotations, quotationTarget)
	return int(completion*0.6 + quotation*0.4)
}

func PerformanceRating(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Average"
	}
	return "Low"
}

// LeadMix is one sales executive's lead counts.
type LeadMix struct {
	Total     int
	Pending   int
	Delivered int
}

func (m LeadMix) ConversionRate() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Delivered) / float64(m.Total) * 100
}

func (m LeadMix) PendingRatio() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Pending) / float64(m.Total) * 100
}

// LowPerformer flags executives who convert under 30% while sitting on more
// than half their leads, or who have more than 10 leads pending.
func (m LeadMix) LowPerformer() bool {
	if m.Total == 0 {
		return false
	}
	return (m.ConversionRate() < 30 && m.PendingRatio() > 50) || m.Pending > 10
}

// Percent is part/whole*100 truncated, 0 for an empty whole.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return part * 100 / whole
}

func cappedRatio(n, target int) float64 {
	if target <= 0 {
		return 0
	}
	r := float64(n) / float64(target) * 100
	if r > 100 {
		return 100
	}
	return r
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
