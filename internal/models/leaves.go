package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const leaveColumns = `id, user_id, start_date, end_date, days_count, reason, status,
	handover_plan, rejection_reason, approved_by, created_at`

func scanLeave(sc rowScanner) (*LeaveRequest, error) {
	l := &LeaveRequest{}
	err := sc.Scan(&l.ID, &l.UserID, &l.StartDate, &l.EndDate, &l.DaysCount, &l.Reason, &l.Status,
		&l.HandoverPlan, &l.RejectionReason, &l.ApprovedBy, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) queryLeaves(ctx context.Context, where string, args ...interface{}) ([]*LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var leaves []*LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave request: %w", err)
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

// Colleagues returns the other sales executives of store.
func (s *Store) Colleagues(ctx context.Context, store string, exceptUserID int64) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		WHERE u.store_assigned = $1 AND u.role = $2 AND u.id <> $3
		ORDER BY u.id
	`, store, RoleSalesExecutive, exceptUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query colleagues: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ApplyLeave stores a pending leave request after checking its handover
// plan: every lead must be owned by the requester and every assignee must
// be another sales executive of the requester's store.
func (s *Store) ApplyLeave(ctx context.Context, l *LeaveRequest) error {
	if l.HandoverPlan == nil {
		l.HandoverPlan = HandoverPlan{}
	}
	l.Status = LeavePending
	if id, dup := l.HandoverPlan.DuplicateLead(); dup {
		return &HandoverError{LeadID: id, Reason: "lead is listed more than once"}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var store sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT store_assigned FROM users WHERE id = $1", l.UserID).Scan(&store)
		if err != nil {
			return notFound(err, fmt.Sprintf("user %d", l.UserID))
		}

		for _, item := range l.HandoverPlan {
			if err := checkHandover(ctx, tx, l.UserID, store.String, item); err != nil {
				return err
			}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO leave_requests (user_id, start_date, end_date, days_count, reason, status, handover_plan)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`, l.UserID, l.StartDate, l.EndDate, l.DaysCount, l.Reason, l.Status, l.HandoverPlan).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert leave request: %w", err)
		}
		return nil
	})
}

func checkHandover(ctx context.Context, tx *sql.Tx, ownerID int64, store string, item HandoverItem) error {
	if item.ToUserID == ownerID {
		return &HandoverError{LeadID: item.LeadID, ToUserID: item.ToUserID, Reason: "cannot hand over to yourself"}
	}

	var owner int64
	lookupErr := tx.QueryRowContext(ctx, "SELECT sales_executive_id FROM leads WHERE id = $1", item.LeadID).Scan(&owner)
	if err := checkOwner(item, ownerID, owner, lookupErr, "lead is not yours"); err != nil {
		return err
	}

	var colleague bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND role = $2 AND store_assigned = $3)
	`, item.ToUserID, RoleSalesExecutive, store).Scan(&colleague)
	if err != nil {
		return fmt.Errorf("failed to check assignee: %w", err)
	}
	if !colleague {
		return &HandoverError{LeadID: item.LeadID, ToUserID: item.ToUserID, Reason: "assignee is not a colleague"}
	}
	return nil
}

// checkOwner turns the result of a lead owner lookup into a HandoverError
// when the lead is missing or owned by someone else. Other lookup failures
// are returned as they are.
func checkOwner(item HandoverItem, wantOwner, owner int64, lookupErr error, reason string) error {
	if lookupErr != nil && !errors.Is(lookupErr, sql.ErrNoRows) {
		return fmt.Errorf("failed to load lead %d: %w", item.LeadID, lookupErr)
	}
	if lookupErr != nil || owner != wantOwner {
		return &HandoverError{LeadID: item.LeadID, ToUserID: item.ToUserID, Reason: reason}
	}
	return nil
}

// LeaveWithUser pairs a leave request with its requester.
type LeaveWithUser struct {
	Leave *LeaveRequest
	User  *User
}

// PendingLeaves returns the undecided leave requests of store's staff,
// oldest first.
func (s *Store) PendingLeaves(ctx context.Context, store string) ([]*LeaveWithUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lr.id, lr.user_id, lr.start_date, lr.end_date, lr.days_count, lr.reason, lr.status,
			lr.handover_plan, lr.rejection_reason, lr.approved_by, lr.created_at,
			`+userColumns+`
		FROM leave_requests lr
		JOIN users u ON u.id = lr.user_id
		WHERE lr.status = $1 AND u.store_assigned = $2
		ORDER BY lr.created_at, lr.id
	`, LeavePending, store)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending leaves: %w", err)
	}
	defer rows.Close()

	var out []*LeaveWithUser
	for rows.Next() {
		l := &LeaveRequest{}
		u := &User{}
		err := rows.Scan(&l.ID, &l.UserID, &l.StartDate, &l.EndDate, &l.DaysCount, &l.Reason, &l.Status,
			&l.HandoverPlan, &l.RejectionReason, &l.ApprovedBy, &l.CreatedAt,
			&u.ID, &u.FullName, &u.Username, &u.HashedPassword, &u.Role, &u.StoreAssigned, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending leave: %w", err)
		}
		out = append(out, &LeaveWithUser{Leave: l, User: u})
	}
	return out, rows.Err()
}

func (s *Store) GetLeave(ctx context.Context, id int64) (*LeaveRequest, error) {
	l, err := scanLeave(s.db.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("leave request %d", id))
	}
	return l, nil
}

// HandoverGroup lists the leads one colleague covers during a leave.
type HandoverGroup struct {
	AssigneeName string
	Leads        []string
}

// HandoverSummary groups a plan by assignee in order of first appearance,
// naming leads by customer.
func (s *Store) HandoverSummary(ctx context.Context, plan HandoverPlan) ([]HandoverGroup, error) {
	groups := []HandoverGroup{}
	if len(plan) == 0 {
		return groups, nil
	}

	userIDs := make([]int64, 0, len(plan))
	leadIDs := make([]int64, 0, len(plan))
	for _, item := range plan {
		userIDs = append(userIDs, item.ToUserID)
		leadIDs = append(leadIDs, item.LeadID)
	}

	names, err := s.UserNames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	customers := make(map[int64]string, len(leadIDs))
	rows, err := s.db.QueryContext(ctx, "SELECT id, customer_name FROM leads WHERE id = ANY($1)", leadIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query handover leads: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan handover lead: %w", err)
		}
		customers[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return GroupHandovers(plan, names, customers), nil
}

// GroupHandovers builds the grouped plan from looked-up names. Missing
// users and leads show as "Unknown" and "Unknown Lead".
func GroupHandovers(plan HandoverPlan, userNames map[int64]string, customers map[int64]string) []HandoverGroup {
	groups := []HandoverGroup{}
	index := map[string]int{}
	for _, item := range plan {
		assignee, ok := userNames[item.ToUserID]
		if !ok {
			assignee = "Unknown"
		}
		lead, ok := customers[item.LeadID]
		if !ok {
			lead = "Unknown Lead"
		}

		i, seen := index[assignee]
		if !seen {
			i = len(groups)
			index[assignee] = i
			groups = append(groups, HandoverGroup{AssigneeName: assignee})
		}
		groups[i].Leads = append(groups[i].Leads, lead)
	}
	return groups
}

// LeaveDecision is a team lead's answer to a pending leave request.
type LeaveDecision struct {
	LeaveID    int64
	Store      string
	Approve    bool
	ApproverID int64
	Reason     string
}

// DecideLeave approves or rejects a pending leave of store's staff.
// Approval reassigns every active lead of the handover plan in the same
// transaction; if any lead has since left the requester, nothing changes.
func (s *Store) DecideLeave(ctx context.Context, d LeaveDecision) (*LeaveRequest, error) {
	var decided *LeaveRequest
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		l, err := scanLeave(tx.QueryRowContext(ctx, `
			SELECT lr.id, lr.user_id, lr.start_date, lr.end_date, lr.days_count, lr.reason, lr.status,
				lr.handover_plan, lr.rejection_reason, lr.approved_by, lr.created_at
			FROM leave_requests lr
			JOIN users u ON u.id = lr.user_id
			WHERE lr.id = $1 AND u.store_assigned = $2
			FOR UPDATE OF lr
		`, d.LeaveID, d.Store))
		if err != nil {
			return notFound(err, fmt.Sprintf("leave request %d", d.LeaveID))
		}
		if l.Status != LeavePending {
			return &TransitionError{Subject: "leave request", Event: "decide", From: l.Status}
		}

		if !d.Approve {
			l.Status = LeaveRejected
			l.RejectionReason = nullString(truncate(d.Reason, 255))
			_, err = tx.ExecContext(ctx, "UPDATE leave_requests SET status = $1, rejection_reason = $2 WHERE id = $3",
				l.Status, l.RejectionReason, l.ID)
			if err != nil {
				return fmt.Errorf("failed to reject leave request: %w", err)
			}
			decided = l
			return nil
		}

		for _, item := range l.HandoverPlan {
			var (
				owner  int64
				status string
			)
			lookupErr := tx.QueryRowContext(ctx, "SELECT sales_executive_id, status FROM leads WHERE id = $1 FOR UPDATE",
				item.LeadID).Scan(&owner, &status)
			if err := checkOwner(item, l.UserID, owner, lookupErr, "lead no longer belongs to the requester"); err != nil {
				return err
			}
			// Leads that left the pipeline since the plan was made keep their owner.
			if !LeadStatus(status).IsActive() {
				continue
			}

			_, err := tx.ExecContext(ctx, `
				UPDATE leads SET sales_executive_id = $1, last_action = 'Reassigned During Leave'
				WHERE id = $2
			`, item.ToUserID, item.LeadID)
			if err != nil {
				return fmt.Errorf("failed to reassign lead %d: %w", item.LeadID, err)
			}
		}

		l.Status = LeaveApproved
		l.ApprovedBy = sql.NullInt64{Int64: d.ApproverID, Valid: true}
		_, err = tx.ExecContext(ctx, "UPDATE leave_requests SET status = $1, approved_by = $2 WHERE id = $3",
			l.Status, l.ApprovedBy, l.ID)
		if err != nil {
			return fmt.Errorf("failed to approve leave request: %w", err)
		}
		decided = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}
