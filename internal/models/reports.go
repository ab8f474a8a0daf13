package models

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stk-crm/internal/util"
)

// Graph periods of the individual performance view.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// RevenueSample is the quoted value of one lead at its creation time.
type RevenueSample struct {
	At     time.Time
	Amount int64
}

type RevenuePoint struct {
	Label string
	Value int64
}

// RevenueSamples returns the quoted leads a sales executive created in
// [from, to).
func (s *Store) RevenueSamples(ctx context.Context, salesExecutiveID int64, from, to time.Time) ([]RevenueSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lead_created_at, total_estimated_cost
		FROM leads
		WHERE sales_executive_id = $1 AND lead_created_at >= $2 AND lead_created_at < $3
			AND total_estimated_cost IS NOT NULL
		ORDER BY lead_created_at
	`, salesExecutiveID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue: %w", err)
	}
	defer rows.Close()

	var samples []RevenueSample
	for rows.Next() {
		var sample RevenueSample
		if err := rows.Scan(&sample.At, &sample.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan revenue: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// RevenueWindow is the [from, to) range a graph period covers around day.
func RevenueWindow(period string, day time.Time) (time.Time, time.Time) {
	start, end := util.DayBounds(day)
	switch period {
	case PeriodWeekly:
		return start.AddDate(0, 0, -6), end
	case PeriodMonthly:
		return util.MonthBounds(start.Year(), start.Month())
	}
	return start, end
}

// RevenueGraph buckets samples for a period: office hours 9 AM to 7 PM for
// daily, the seven days ending on day for weekly, and four week buckets for
// monthly where days after the 21st fall into week 4.
func RevenueGraph(period string, day time.Time, samples []RevenueSample) []RevenuePoint {
	var points []RevenuePoint

	switch period {
	case PeriodDaily:
		byHour := map[int]int64{}
		for _, s := range samples {
			byHour[s.At.Local().Hour()] += s.Amount
		}
		for hour := 9; hour <= 19; hour++ {
			points = append(points, RevenuePoint{Label: util.HourLabel(hour), Value: byHour[hour]})
		}

	case PeriodWeekly:
		from, _ := RevenueWindow(PeriodWeekly, day)
		byDay := map[string]int64{}
		for _, s := range samples {
			byDay[s.At.Local().Format("2006-01-02")] += s.Amount
		}
		for i := 0; i < 7; i++ {
			d := from.AddDate(0, 0, i)
			points = append(points, RevenuePoint{Label: d.Format("Mon"), Value: byDay[d.Format("2006-01-02")]})
		}

	case PeriodMonthly:
		var weeks [4]int64
		for _, s := range samples {
			switch d := s.At.Local().Day(); {
			case d <= 7:
				weeks[0] += s.Amount
			case d <= 14:
				weeks[1] += s.Amount
			case d <= 21:
				weeks[2] += s.Amount
			default:
				weeks[3] += s.Amount
			}
		}
		for i, v := range weeks {
			points = append(points, RevenuePoint{Label: fmt.Sprintf("Week %d", i+1), Value: v})
		}
	}

	if len(points) == 0 {
		return []RevenuePoint{{Label: "No Data", Value: 0}}
	}
	return points
}

// TimelineEvent is one timestamped step of a lead in the activity report.
type TimelineEvent struct {
	LeadID             int64
	LeadCode           string
	CustomerName       string
	SalesExecutiveName string
	EventType          string
	At                 time.Time
	Amount             int64
	Status             string
}

// Timeline lists the lead events that happened within [from, to], newest
// first.
func Timeline(leads []*Lead, names map[int64]string, from, to time.Time) []TimelineEvent {
	events := []TimelineEvent{}
	for _, l := range leads {
		name, ok := names[l.SalesExecutiveID]
		if !ok {
			name = "Unknown"
		}
		add := func(kind string, at time.Time, valid bool, amount int64, status string) {
			if !valid || at.Before(from) || at.After(to) {
				return
			}
			events = append(events, TimelineEvent{
				LeadID:             l.ID,
				LeadCode:           l.LeadCode,
				CustomerName:       l.CustomerName,
				SalesExecutiveName: name,
				EventType:          kind,
				At:                 at,
				Amount:             amount,
				Status:             status,
			})
		}

		approval := "Completed"
		if l.ApproverStatus == ApprovalPending {
			approval = "Pending"
		}
		add("Lead Created", l.LeadCreatedAt, true, 0, "Completed")
		add("Quotation Generated", l.QuotationCreatedAt.Time, l.QuotationCreatedAt.Valid, l.EstimatedCost(), "Completed")
		add("Sent for Approval", l.ApproverRequestAt.Time, l.ApproverRequestAt.Valid, l.EstimatedCost(), approval)
		add("Quotation Sent", l.CustomerQuotationSentAt.Time, l.CustomerQuotationSentAt.Valid, l.EstimatedCost(), "Completed")
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].At.After(events[j].At)
	})
	return events
}

// PhaseLog is the measured length of one lifecycle phase. End is nil while
// the phase is still running.
type PhaseLog struct {
	Title     string
	Start     time.Time
	End       *time.Time
	Duration  string
	Completed bool
}

func phase(title string, start time.Time, end *time.Time, now time.Time) PhaseLog {
	stop := now
	if end != nil {
		stop = *end
	}
	if stop.Before(start) {
		stop = start
	}
	return PhaseLog{
		Title:     title,
		Start:     start,
		End:       end,
		Duration:  util.PhaseDuration(stop.Sub(start)),
		Completed: end != nil,
	}
}

func timePtr(t time.Time, valid bool) *time.Time {
	if !valid {
		return nil
	}
	return &t
}

// LeadPhases measures each lifecycle phase a lead has entered and the
// whole span from the first phase start to the last phase end.
func LeadPhases(l *Lead, order *StoreOrder, now time.Time) ([]PhaseLog, string) {
	created := l.LeadCreatedAt
	phases := []PhaseLog{phase("LEAD CREATED", created, &created, now)}

	if l.QuotationCreatedAt.Valid {
		phases = append(phases, phase("QUOTATION PREP", created, timePtr(l.QuotationCreatedAt.Time, true), now))
	}
	if l.ApproverRequestAt.Valid {
		phases = append(phases, phase("APPROVAL TIME", l.ApproverRequestAt.Time,
			timePtr(l.ApproverResponseAt.Time, l.ApproverResponseAt.Valid), now))
	}
	if l.CustomerQuotationSentAt.Valid {
		start := l.ApproverResponseAt
		if !start.Valid {
			start = l.QuotationCreatedAt
		}
		if start.Valid {
			phases = append(phases, phase("QUOTATION SENDING", start.Time, timePtr(l.CustomerQuotationSentAt.Time, true), now))
		}
	}
	if order != nil && order.DeliveredAt.Valid && order.PendingToDispatchedAt.Valid {
		phases = append(phases, phase("DELIVERY DURATION", order.PendingToDispatchedAt.Time, timePtr(order.DeliveredAt.Time, true), now))
	}
	if l.Status.IsFinal() && l.LeadEndedAt.Valid {
		phases = append(phases, phase("TOTAL LIFECYCLE", created, timePtr(l.LeadEndedAt.Time, true), now))
	}

	last := phases[len(phases)-1]
	end := now
	if last.End != nil {
		end = *last.End
	}
	return phases, util.ClockDuration(end.Sub(phases[0].Start))
}

// NameCount is a labelled count in a breakdown, largest first.
type NameCount struct {
	Name  string
	Count int
}

// StoreOverview summarizes a store's order pipeline.
type StoreOverview struct {
	Store     string
	Completed int
	Pending   int
	NoAction  int
	Total     int
	Score     int
	Breakdown []NameCount
}

// SummarizeStore counts a store's orders. A pending order counts as no
// action once it has waited more than a day since handover.
func SummarizeStore(store string, orders []*OrderWithLead, names map[int64]string, now time.Time) StoreOverview {
	ov := StoreOverview{Store: store, Total: len(orders), Breakdown: []NameCount{}}
	pendingBy := map[string]int{}

	for _, o := range orders {
		switch o.Order.Status {
		case OrderDelivered:
			ov.Completed++
		case OrderPending:
			ov.Pending++
			name, ok := names[o.Lead.SalesExecutiveID]
			if !ok {
				name = "Unknown"
			}
			pendingBy[name]++
			if o.Order.HandoverAt.Valid && now.Sub(o.Order.HandoverAt.Time) > 24*time.Hour {
				ov.NoAction++
			}
		}
	}

	for name, n := range pendingBy {
		ov.Breakdown = append(ov.Breakdown, NameCount{Name: name, Count: n})
	}
	sort.Slice(ov.Breakdown, func(i, j int) bool {
		if ov.Breakdown[i].Count != ov.Breakdown[j].Count {
			return ov.Breakdown[i].Count > ov.Breakdown[j].Count
		}
		return ov.Breakdown[i].Name < ov.Breakdown[j].Name
	})
	ov.Score = Percent(ov.Completed, ov.Total)
	return ov
}

// PendingShare is one executive's part of the store's pending leads.
type PendingShare struct {
	UserID     int64
	Name       string
	Pending    int
	Percentage int
}

// SharePending fills in each executive's percentage of the total and sorts
// the largest backlog first. It returns the total.
func SharePending(shares []PendingShare) int {
	total := 0
	for _, s := range shares {
		total += s.Pending
	}
	for i := range shares {
		shares[i].Percentage = Percent(shares[i].Pending, total)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Pending > shares[j].Pending
	})
	return total
}
