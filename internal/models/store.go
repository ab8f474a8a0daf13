package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store is the PostgreSQL repository behind every handler.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping checks the connection for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockSequence serialises id generation for one prefix until tx ends.
func lockSequence(ctx context.Context, tx *sql.Tx, prefix string) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", prefix); err != nil {
		return fmt.Errorf("failed to lock id sequence %s: %w", prefix, err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

const leadColumns = `
	l.id, l.lead_code, l.lead_created_at, l.customer_name, l.phone,
	l.source, l.location, l.district, l.profile,
	l.area_sqft, l.project_type, l.board_type, l.material_brand, l.channel,
	l.channel_thickness, l.material_category, l.material_quantity,
	l.accessory_name, l.accessory_qty, l.urgency,
	l.sales_executive_id, l.status, l.last_action,
	l.lead_ended_at, l.quotation_created_at, l.quotation_id, l.quotation_snapshot,
	l.total_estimated_cost, l.quotation_ended_at,
	l.approver_request_at, l.approver_status, l.approver_response_at,
	l.approver_remarks, l.customer_quotation_sent_at`

type leadScan struct {
	lead     Lead
	status   string
	approval sql.NullString
	snapshot []byte
}

func (ls *leadScan) dest() []interface{} {
	l := &ls.lead
	return []interface{}{
		&l.ID, &l.LeadCode, &l.LeadCreatedAt, &l.CustomerName, &l.Phone,
		&l.Source, &l.Location, &l.District, &l.Profile,
		&l.AreaSqft, &l.ProjectType, &l.BoardType, &l.MaterialBrand, &l.Channel,
		&l.ChannelThickness, &l.MaterialCategory, &l.MaterialQuantity,
		&l.AccessoryName, &l.AccessoryQty, &l.Urgency,
		&l.SalesExecutiveID, &ls.status, &l.LastAction,
		&l.LeadEndedAt, &l.QuotationCreatedAt, &l.QuotationID, &ls.snapshot,
		&l.TotalEstimatedCost, &l.QuotationEndedAt,
		&l.ApproverRequestAt, &ls.approval, &l.ApproverResponseAt,
		&l.ApproverRemarks, &l.CustomerQuotationSentAt,
	}
}

func (ls *leadScan) finish() (*Lead, error) {
	l := ls.lead
	l.Status = LeadStatus(ls.status)
	if ls.approval.Valid {
		l.ApproverStatus = ApprovalStatus(ls.approval.String)
	}
	if len(ls.snapshot) > 0 {
		snap := &QuotationSnapshot{}
		if err := snap.Scan(ls.snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode quotation snapshot of %s: %w", l.LeadCode, err)
		}
		l.QuotationSnapshot = snap
	}
	return &l, nil
}

func scanLead(sc rowScanner, extra ...interface{}) (*Lead, error) {
	var ls leadScan
	if err := sc.Scan(append(ls.dest(), extra...)...); err != nil {
		return nil, err
	}
	return ls.finish()
}

const orderColumns = `
	o.id, o.lead_code, o.store_name, o.handover_at, o.payment_mode,
	o.advance_received_amount, o.advance_received_amount_at,
	o.driver_name, o.driver_phone, o.vehicle_number, o.estimated_delivery_at,
	o.status, o.pending_to_dispatched_at, o.delivered_at, o.feedback,
	o.dispatch_payment_mode, o.dispatch_received_amount,
	o.delivery_received_amount, o.delivery_payment_mode`

type orderScan struct {
	order  StoreOrder
	status string
}

func (r *orderScan) dest() []interface{} {
	o := &r.order
	return []interface{}{
		&o.ID, &o.LeadCode, &o.StoreName, &o.HandoverAt, &o.PaymentMode,
		&o.AdvanceReceivedAmount, &o.AdvanceReceivedAmountAt,
		&o.DriverName, &o.DriverPhone, &o.VehicleNumber, &o.EstimatedDeliveryAt,
		&r.status, &o.PendingToDispatchedAt, &o.DeliveredAt, &o.Feedback,
		&o.DispatchPaymentMode, &o.DispatchReceived,
		&o.DeliveryReceived, &o.DeliveryPaymentMode,
	}
}

func (r *orderScan) finish() *StoreOrder {
	o := r.order
	o.Status = OrderStatus(r.status)
	return &o
}

const userColumns = `u.id, u.full_name, u.username, u.hashed_password, u.role, u.store_assigned, u.created_at`

func scanUser(sc rowScanner) (*User, error) {
	u := &User{}
	err := sc.Scan(&u.ID, &u.FullName, &u.Username, &u.HashedPassword, &u.Role, &u.StoreAssigned, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func statusStrings(statuses []LeadStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// truncate cuts s to at most n runes to fit a VARCHAR(n) column.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
