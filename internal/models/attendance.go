package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stk-crm/internal/util"
)

const attendanceColumns = `id, user_id, date, check_in, check_out, status, location, is_late`

func scanAttendance(sc rowScanner) (*Attendance, error) {
	a := &Attendance{}
	if err := sc.Scan(&a.ID, &a.UserID, &a.Date, &a.CheckIn, &a.CheckOut, &a.Status, &a.Location, &a.IsLate); err != nil {
		return nil, err
	}
	return a, nil
}

// CheckIn records today's attendance for a user. The first check-in of the
// day wins; a repeat call returns the stored record with created false.
func (s *Store) CheckIn(ctx context.Context, userID int64, at time.Time, location string, late bool) (*Attendance, bool, error) {
	status := AttendancePresent
	if late {
		status = AttendanceLate
	}
	day := util.StartOfDay(at)

	a, err := scanAttendance(s.db.QueryRowContext(ctx, `
		INSERT INTO attendance (user_id, date, check_in, status, location, is_late)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, date) DO NOTHING
		RETURNING `+attendanceColumns,
		userID, day, at, status, nullString(location), late))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to check in: %w", err)
	}

	existing, err := scanAttendance(s.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE user_id = $1 AND date = $2", userID, day))
	if err != nil {
		return nil, false, notFound(err, fmt.Sprintf("attendance of user %d", userID))
	}
	return existing, false, nil
}

// CheckOut stamps the check-out time on today's record.
func (s *Store) CheckOut(ctx context.Context, userID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE attendance SET check_out = $1 WHERE user_id = $2 AND date = $3",
		at, userID, util.StartOfDay(at))
	if err != nil {
		return fmt.Errorf("failed to check out: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotCheckedIn
	}
	return nil
}

// RosterEntry is one sales executive's attendance state for a day.
type RosterEntry struct {
	User       *User
	Attendance *Attendance
	OnLeave    bool
}

// Roster returns every sales executive of store with the day's attendance
// and whether an approved leave covers that day.
func (s *Store) Roster(ctx context.Context, store string, at time.Time) ([]*RosterEntry, error) {
	day := util.StartOfDay(at)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`,
			a.id, a.check_in, a.check_out, a.status, a.location, a.is_late,
			EXISTS (
				SELECT 1 FROM leave_requests lr
				WHERE lr.user_id = u.id AND lr.status = $3
					AND lr.start_date <= $4 AND lr.end_date >= $4
			)
		FROM users u
		LEFT JOIN attendance a ON a.user_id = u.id AND a.date = $4
		WHERE u.store_assigned = $1 AND u.role = $2
		ORDER BY u.id
	`, store, RoleSalesExecutive, LeaveApproved, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var entries []*RosterEntry
	for rows.Next() {
		var (
			attID             sql.NullInt64
			checkIn, checkOut sql.NullTime
			status, location  sql.NullString
			isLate            sql.NullBool
		)
		entry := &RosterEntry{User: &User{}}
		u := entry.User
		err := rows.Scan(&u.ID, &u.FullName, &u.Username, &u.HashedPassword, &u.Role, &u.StoreAssigned, &u.CreatedAt,
			&attID, &checkIn, &checkOut, &status, &location, &isLate, &entry.OnLeave)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster: %w", err)
		}
		if attID.Valid {
			entry.Attendance = &Attendance{
				ID:       attID.Int64,
				UserID:   u.ID,
				Date:     day,
				CheckIn:  checkIn.Time,
				CheckOut: checkOut,
				Status:   status.String,
				Location: location,
				IsLate:   isLate.Bool,
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// RosterLine is the display row of one executive on the daily monitor.
type RosterLine struct {
	UserID   int64
	Name     string
	Status   string
	CheckIn  string
	CheckOut string
	Location string
}

// RosterSummary counts a day's roster. Executives on leave count as absent.
type RosterSummary struct {
	Present int
	Late    int
	Absent  int
	Lines   []RosterLine
}

func SummarizeRoster(entries []*RosterEntry) RosterSummary {
	var sum RosterSummary
	for _, e := range entries {
		line := RosterLine{
			UserID:   e.User.ID,
			Name:     e.User.DisplayName(),
			Status:   AttendanceAbsent,
			CheckIn:  "--",
			CheckOut: "--",
			Location: "--",
		}

		switch {
		case e.Attendance != nil:
			a := e.Attendance
			line.Status = a.Status
			line.CheckIn = util.ClockLabel(a.CheckIn)
			if a.CheckOut.Valid {
				line.CheckOut = util.ClockLabel(a.CheckOut.Time)
			}
			if a.Location.Valid {
				line.Location = a.Location.String
			}
			if a.IsLate {
				sum.Late++
			} else {
				sum.Present++
			}
		case e.OnLeave:
			line.Status = AttendanceOnLeave
			line.Location = "Leave"
			sum.Absent++
		default:
			sum.Absent++
		}
		sum.Lines = append(sum.Lines, line)
	}
	return sum
}

// MonthlyRecords returns a user's attendance rows and the approved leaves
// that start inside the month.
func (s *Store) MonthlyRecords(ctx context.Context, userID int64, year int, month time.Month) ([]*Attendance, []*LeaveRequest, error) {
	from, to := util.MonthBounds(year, month)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE user_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`, userID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []*Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	leaves, err := s.queryLeaves(ctx, `
		WHERE user_id = $1 AND status = $2 AND start_date >= $3 AND start_date < $4
		ORDER BY start_date
	`, userID, LeaveApproved, from, to)
	if err != nil {
		return nil, nil, err
	}
	return records, leaves, nil
}

type LateMark struct {
	Date string
	Time string
}

type LeaveMark struct {
	Date   string
	Reason string
}

// MonthlyReport is a sales executive's attendance for one month.
type MonthlyReport struct {
	UserID      int64
	UserName    string
	Score       int
	LeavesTaken int
	DaysPresent int
	LateMarks   int
	LeaveDays   []LeaveMark
	LateDays    []LateMark
}

func BuildMonthlyReport(u *User, records []*Attendance, leaves []*LeaveRequest) *MonthlyReport {
	r := &MonthlyReport{
		UserID:    u.ID,
		UserName:  u.DisplayName(),
		LeaveDays: []LeaveMark{},
		LateDays:  []LateMark{},
	}

	for _, a := range records {
		switch a.Status {
		case AttendancePresent, AttendanceLate, AttendanceOnDuty:
			r.DaysPresent++
		}
		if a.IsLate {
			r.LateMarks++
			r.LateDays = append(r.LateDays, LateMark{Date: util.DayLabel(a.Date), Time: util.ClockLabel(a.CheckIn)})
		}
	}

	for _, l := range leaves {
		r.LeavesTaken += l.DaysCount
		r.LeaveDays = append(r.LeaveDays, LeaveMark{Date: util.DayLabel(l.StartDate), Reason: l.Reason.String})
	}

	r.Score = AttendanceScore(r.LeavesTaken, r.LateMarks)
	return r
}
