package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QuotationSubmission is what a sales executive sends to the team lead.
type QuotationSubmission struct {
	LeadCode    string
	QuotationID string
	SentAt      time.Time
	Total       sql.NullInt64
	Snapshot    *QuotationSnapshot
}

// SubmitForApproval puts the lead's quotation in the team lead queue. A
// rejected or previously approved quotation may be resubmitted.
func (s *Store) SubmitForApproval(ctx context.Context, sub QuotationSubmission) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		lead, err := lockLead(ctx, tx, sub.LeadCode)
		if err != nil {
			return err
		}
		if lead.ApproverStatus == ApprovalPending {
			return ErrAlreadyPending
		}
		next, err := NextApprovalStatus(EventSubmit, lead.ApproverStatus)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE leads SET
				approver_request_at = $1,
				approver_status = $2,
				approver_response_at = NULL,
				approver_remarks = NULL,
				quotation_id = $3,
				quotation_created_at = COALESCE(quotation_created_at, $1),
				quotation_snapshot = COALESCE($4, quotation_snapshot),
				total_estimated_cost = COALESCE($5, total_estimated_cost),
				last_action = 'Sent for Approval'
			WHERE id = $6
		`, sub.SentAt, string(next), sub.QuotationID, sub.Snapshot, sub.Total, lead.ID)
		if err != nil {
			return fmt.Errorf("failed to submit quotation: %w", err)
		}
		return nil
	})
}

// SendToCustomer marks an approved quotation as sent.
func (s *Store) SendToCustomer(ctx context.Context, code string, sentAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		lead, err := lockLead(ctx, tx, code)
		if err != nil {
			return err
		}
		if lead.ApproverStatus != ApprovalApproved {
			state := string(lead.ApproverStatus)
			if state == "" {
				state = "NONE"
			}
			return &TransitionError{Subject: "quotation", Event: "send", From: state}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE leads SET customer_quotation_sent_at = $1, quotation_ended_at = $1, last_action = 'Quotation Sent'
			WHERE id = $2
		`, sentAt, lead.ID)
		if err != nil {
			return fmt.Errorf("failed to mark quotation sent: %w", err)
		}
		return nil
	})
}

// ApprovalItem is a quotation waiting in a team lead's queue.
type ApprovalItem struct {
	Lead         *Lead
	SalesRepName string
}

// ListPendingApprovals returns the pending quotations of store's sales
// executives, oldest request first.
func (s *Store) ListPendingApprovals(ctx context.Context, store string) ([]*ApprovalItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+`, COALESCE(NULLIF(u.full_name, ''), u.username)
		FROM leads l
		JOIN users u ON u.id = l.sales_executive_id
		WHERE l.approver_status = $1 AND u.store_assigned = $2
		ORDER BY l.approver_request_at NULLS LAST, l.id
	`, string(ApprovalPending), store)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}
	defer rows.Close()

	var items []*ApprovalItem
	for rows.Next() {
		item := &ApprovalItem{}
		lead, err := scanLead(rows, &item.SalesRepName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending approval: %w", err)
		}
		item.Lead = lead
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetPendingApproval returns one pending quotation of store.
func (s *Store) GetPendingApproval(ctx context.Context, store string, leadID int64) (*ApprovalItem, error) {
	item := &ApprovalItem{}
	lead, err := scanLead(s.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`, COALESCE(NULLIF(u.full_name, ''), u.username)
		FROM leads l
		JOIN users u ON u.id = l.sales_executive_id
		WHERE l.id = $1 AND l.approver_status = $2 AND u.store_assigned = $3
	`, leadID, string(ApprovalPending), store), &item.SalesRepName)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("pending quotation %d", leadID))
	}
	item.Lead = lead
	return item, nil
}

// ReviewQuotation records a team lead decision on a pending quotation.
func (s *Store) ReviewQuotation(ctx context.Context, store string, leadID int64, decision ApprovalStatus, remarks string, at time.Time) error {
	event, ok := ApprovalEventFor(decision)
	if !ok {
		return fmt.Errorf("decision %q: %w", decision, ErrInvalidTransition)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT l.approver_status
			FROM leads l
			JOIN users u ON u.id = l.sales_executive_id
			WHERE l.id = $1 AND u.store_assigned = $2
			FOR UPDATE OF l
		`, leadID, store).Scan(&current)
		if err != nil {
			return notFound(err, fmt.Sprintf("lead %d", leadID))
		}

		next, err := NextApprovalStatus(event, ApprovalStatus(current.String))
		if err != nil {
			return err
		}

		action := "Quotation Approved"
		if next == ApprovalRejected {
			action = "Quotation Rejected"
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE leads SET approver_status = $1, approver_response_at = $2, approver_remarks = $3, last_action = $4
			WHERE id = $5
		`, string(next), at, nullString(truncate(remarks, 255)), action, leadID)
		if err != nil {
			return fmt.Errorf("failed to record review: %w", err)
		}
		return nil
	})
}
