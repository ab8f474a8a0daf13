package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateLead inserts lead and fills in its id and lead code. The code uses
// the row's own serial value so concurrent creates never collide.
func (s *Store) CreateLead(ctx context.Context, lead *Lead) error {
	if lead.Urgency == "" {
		lead.Urgency = "Normal"
	}
	if lead.LeadCreatedAt.IsZero() {
		lead.LeadCreatedAt = time.Now()
	}
	lead.Status = StatusToday
	lead.LastAction = nullString("Lead Created")
	if lead.ApproverRequestAt.Valid {
		lead.ApproverStatus = ApprovalPending
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, "SELECT nextval(pg_get_serial_sequence('leads', 'id'))").Scan(&lead.ID)
		if err != nil {
			return fmt.Errorf("failed to allocate lead id: %w", err)
		}
		lead.LeadCode = LeadCode(lead.LeadCreatedAt.Year(), lead.ID)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO leads (
				id, lead_code, lead_created_at, customer_name, phone, source, location, district, profile,
				area_sqft, project_type, board_type, material_brand, channel, channel_thickness,
				material_category, material_quantity, accessory_name, accessory_qty, urgency,
				sales_executive_id, status, last_action,
				quotation_created_at, quotation_id, quotation_snapshot, total_estimated_cost, quotation_ended_at,
				approver_request_at, approver_status
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9,
				$10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20,
				$21, $22, $23,
				$24, $25, $26, $27, $28,
				$29, $30
			)
		`,
			lead.ID, lead.LeadCode, lead.LeadCreatedAt, lead.CustomerName, lead.Phone,
			lead.Source, lead.Location, lead.District, lead.Profile,
			lead.AreaSqft, lead.ProjectType, lead.BoardType, lead.MaterialBrand, lead.Channel, lead.ChannelThickness,
			lead.MaterialCategory, lead.MaterialQuantity, lead.AccessoryName, lead.AccessoryQty, lead.Urgency,
			lead.SalesExecutiveID, string(lead.Status), lead.LastAction,
			lead.QuotationCreatedAt, lead.QuotationID, lead.QuotationSnapshot, lead.TotalEstimatedCost, lead.QuotationEndedAt,
			lead.ApproverRequestAt, nullString(string(lead.ApproverStatus)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert lead: %w", err)
		}
		return nil
	})
}

func (s *Store) GetLeadByCode(ctx context.Context, code string) (*Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads l WHERE l.lead_code = $1", code))
	if err != nil {
		return nil, notFound(err, "lead "+code)
	}
	return lead, nil
}

func (s *Store) GetLeadByID(ctx context.Context, id int64) (*Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads l WHERE l.id = $1", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("lead %d", id))
	}
	return lead, nil
}

// FindLeadByPhone returns the oldest lead for phone.
func (s *Store) FindLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads l WHERE l.phone = $1 ORDER BY l.id LIMIT 1", phone))
	if err != nil {
		return nil, notFound(err, "lead with phone "+phone)
	}
	return lead, nil
}

// lockLead loads a lead by code and holds its row lock until tx ends.
func lockLead(ctx context.Context, tx *sql.Tx, code string) (*Lead, error) {
	lead, err := scanLead(tx.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads l WHERE l.lead_code = $1 FOR UPDATE", code))
	if err != nil {
		return nil, notFound(err, "lead "+code)
	}
	return lead, nil
}

// LeadFilter narrows lead queries. Zero fields do not filter.
type LeadFilter struct {
	Store            string
	SalesExecutiveID int64
	Statuses         []LeadStatus
	ExcludeStatuses  []LeadStatus
	ApprovalStatus   ApprovalStatus
	CreatedFrom      time.Time
	CreatedTo        time.Time
	QuotedFrom       time.Time
	QuotedTo         time.Time
}

func (f LeadFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	argIndex := 1

	add := func(clause string, arg interface{}) {
		clauses = append(clauses, fmt.Sprintf(clause, argIndex))
		args = append(args, arg)
		argIndex++
	}

	if f.Store != "" {
		add("l.sales_executive_id IN (SELECT id FROM users WHERE store_assigned = $%d)", f.Store)
	}
	if f.SalesExecutiveID != 0 {
		add("l.sales_executive_id = $%d", f.SalesExecutiveID)
	}
	if len(f.Statuses) > 0 {
		add("l.status = ANY($%d)", statusStrings(f.Statuses))
	}
	if len(f.ExcludeStatuses) > 0 {
		add("NOT (l.status = ANY($%d))", statusStrings(f.ExcludeStatuses))
	}
	if f.ApprovalStatus != ApprovalNone {
		add("l.approver_status = $%d", string(f.ApprovalStatus))
	}
	if !f.CreatedFrom.IsZero() {
		add("l.lead_created_at >= $%d", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		add("l.lead_created_at < $%d", f.CreatedTo)
	}
	if !f.QuotedFrom.IsZero() {
		add("l.quotation_created_at >= $%d AND l.quotation_id IS NOT NULL", f.QuotedFrom)
	}
	if !f.QuotedTo.IsZero() {
		add("l.quotation_created_at < $%d", f.QuotedTo)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) ListLeads(ctx context.Context, f LeadFilter) ([]*Lead, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, "SELECT "+leadColumns+" FROM leads l"+where+" ORDER BY l.id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (s *Store) CountLeads(ctx context.Context, f LeadFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads l"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

// SumEstimatedCost totals the quoted value of matching leads.
func (s *Store) SumEstimatedCost(ctx context.Context, f LeadFilter) (int64, error) {
	where, args := f.where()
	var total int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(l.total_estimated_cost), 0) FROM leads l"+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum lead value: %w", err)
	}
	return total, nil
}

// LeadWithFollowUp pairs a lead with its most recent follow-up, if any.
type LeadWithFollowUp struct {
	Lead         *Lead
	LastFollowUp *FollowUp
}

// FollowUpTarget is when the lead is next due: the latest follow-up's next
// date, or the creation time when nobody has followed up yet.
func (l *LeadWithFollowUp) FollowUpTarget() time.Time {
	if l.LastFollowUp != nil {
		return l.LastFollowUp.NextFollowupDate
	}
	return l.Lead.LeadCreatedAt
}

// ListLeadsWithLastFollowUp returns every lead owned by a sales executive
// with its latest follow-up attached.
func (s *Store) ListLeadsWithLastFollowUp(ctx context.Context, salesExecutiveID int64) ([]*LeadWithFollowUp, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+`,
			f.id, f.current_stage, f.next_followup_date, f.reasons, f.stage_selected_at, f.followup_updated_at
		FROM leads l
		LEFT JOIN LATERAL (
			SELECT * FROM followups WHERE lead_code = l.lead_code ORDER BY id DESC LIMIT 1
		) f ON TRUE
		WHERE l.sales_executive_id = $1
		ORDER BY l.id
	`, salesExecutiveID)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow-up leads: %w", err)
	}
	defer rows.Close()

	var out []*LeadWithFollowUp
	for rows.Next() {
		var (
			fuID                     sql.NullInt64
			stage, reasons           sql.NullString
			next, selected, modified sql.NullTime
		)
		lead, err := scanLead(rows, &fuID, &stage, &next, &reasons, &selected, &modified)
		if err != nil {
			return nil, fmt.Errorf("failed to scan follow-up lead: %w", err)
		}
		item := &LeadWithFollowUp{Lead: lead}
		if fuID.Valid {
			item.LastFollowUp = &FollowUp{
				ID:                fuID.Int64,
				LeadCode:          lead.LeadCode,
				CurrentStage:      stage,
				NextFollowupDate:  next.Time,
				Reasons:           reasons,
				StageSelectedAt:   selected,
				FollowupUpdatedAt: modified,
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// LastFollowUp returns the newest follow-up of a lead, nil when none exist.
func (s *Store) LastFollowUp(ctx context.Context, leadCode string) (*FollowUp, error) {
	f := &FollowUp{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, lead_code, current_stage, next_followup_date, reasons, stage_selected_at, followup_updated_at
		FROM followups WHERE lead_code = $1 ORDER BY id DESC LIMIT 1
	`, leadCode).Scan(&f.ID, &f.LeadCode, &f.CurrentStage, &f.NextFollowupDate, &f.Reasons, &f.StageSelectedAt, &f.FollowupUpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load follow-up: %w", err)
	}
	return f, nil
}

// AddFollowUp records a follow-up and moves the lead to Upcoming.
func (s *Store) AddFollowUp(ctx context.Context, f *FollowUp) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		lead, err := lockLead(ctx, tx, f.LeadCode)
		if err != nil {
			return err
		}
		next, err := NextLeadStatus(EventFollowUp, lead.Status)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO followups (lead_code, current_stage, next_followup_date, reasons, stage_selected_at, followup_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, f.LeadCode, f.CurrentStage, f.NextFollowupDate, f.Reasons, f.StageSelectedAt, f.FollowupUpdatedAt).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("failed to insert follow-up: %w", err)
		}

		_, err = tx.ExecContext(ctx, "UPDATE leads SET status = $1, last_action = $2 WHERE id = $3",
			string(next), "Follow-up Updated", lead.ID)
		if err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
		return nil
	})
}

// CloseLead ends a lead that will not convert.
func (s *Store) CloseLead(ctx context.Context, code, reason string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		lead, err := lockLead(ctx, tx, code)
		if err != nil {
			return err
		}
		next, err := NextLeadStatus(EventClose, lead.Status)
		if err != nil {
			return err
		}
		action := "Lead Closed"
		if reason != "" {
			action = "Lead Closed: " + reason
		}
		_, err = tx.ExecContext(ctx, "UPDATE leads SET status = $1, lead_ended_at = $2, last_action = $3 WHERE id = $4",
			string(next), at, truncate(action, 100), lead.ID)
		if err != nil {
			return fmt.Errorf("failed to close lead: %w", err)
		}
		return nil
	})
}
