package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Handover moves a lead into a store's pipeline.
type Handover struct {
	LeadCode      string
	StoreName     string
	PaymentMode   string
	AdvanceAmount int64
	AdvanceAt     sql.NullTime
	HandoverAt    time.Time
}

// HandoverLead opens the store order for a lead. A lead can be handed over
// once; the order and the lead status change commit together.
func (s *Store) HandoverLead(ctx context.Context, h Handover) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		lead, err := lockLead(ctx, tx, h.LeadCode)
		if err != nil {
			return err
		}

		var exists bool
		err = tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM store_orders WHERE lead_code = $1)", lead.LeadCode).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check store order: %w", err)
		}
		if exists {
			return ErrAlreadyHandedOver
		}

		next, err := NextLeadStatus(EventHandover, lead.Status)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO store_orders (lead_code, store_name, payment_mode, advance_received_amount,
				advance_received_amount_at, handover_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, lead.LeadCode, h.StoreName, nullString(h.PaymentMode), h.AdvanceAmount, h.AdvanceAt, h.HandoverAt, string(OrderPending))
		if err != nil {
			if _, dup := UniqueViolation(err); dup {
				return ErrAlreadyHandedOver
			}
			return fmt.Errorf("failed to create store order: %w", err)
		}

		_, err = tx.ExecContext(ctx, "UPDATE leads SET status = $1, last_action = $2 WHERE id = $3",
			string(next), truncate("Handed over to "+h.StoreName, 100), lead.ID)
		if err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
		return nil
	})
}

// ListOrders returns store's orders in status with their leads. An empty
// status lists every order of the store.
func (s *Store) ListOrders(ctx context.Context, store string, status OrderStatus) ([]*OrderWithLead, error) {
	query := `SELECT ` + orderColumns + `, ` + leadColumns + `
		FROM store_orders o
		JOIN leads l ON l.lead_code = o.lead_code
		WHERE o.store_name = $1`
	args := []interface{}{store}
	if status != "" {
		query += " AND o.status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY o.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query store orders: %w", err)
	}
	defer rows.Close()

	var out []*OrderWithLead
	for rows.Next() {
		item, err := scanOrderWithLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store order: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// GetOrder returns the order of a lead in store.
func (s *Store) GetOrder(ctx context.Context, store, leadCode string) (*OrderWithLead, error) {
	item, err := scanOrderWithLead(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`, `+leadColumns+`
		FROM store_orders o
		JOIN leads l ON l.lead_code = o.lead_code
		WHERE o.store_name = $1 AND o.lead_code = $2
	`, store, leadCode))
	if err != nil {
		return nil, notFound(err, "store order "+leadCode)
	}
	return item, nil
}

// OrdersByLeadCode returns the orders of the given leads keyed by lead code.
func (s *Store) OrdersByLeadCode(ctx context.Context, codes []string) (map[string]*StoreOrder, error) {
	out := make(map[string]*StoreOrder, len(codes))
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+orderColumns+" FROM store_orders o WHERE o.lead_code = ANY($1)", codes)
	if err != nil {
		return nil, fmt.Errorf("failed to query store orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r orderScan
		if err := rows.Scan(r.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan store order: %w", err)
		}
		o := r.finish()
		out[o.LeadCode] = o
	}
	return out, rows.Err()
}

// OrderFilter narrows store order counts. Zero fields do not filter.
type OrderFilter struct {
	Store            string
	SalesExecutiveID int64
	Statuses         []OrderStatus
}

func (s *Store) CountOrders(ctx context.Context, f OrderFilter) (int, error) {
	var clauses []string
	var args []interface{}
	argIndex := 1

	if f.Store != "" {
		clauses = append(clauses, fmt.Sprintf("o.store_name = $%d", argIndex))
		args = append(args, f.Store)
		argIndex++
	}
	if f.SalesExecutiveID != 0 {
		clauses = append(clauses, fmt.Sprintf("l.sales_executive_id = $%d", argIndex))
		args = append(args, f.SalesExecutiveID)
		argIndex++
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		clauses = append(clauses, fmt.Sprintf("o.status = ANY($%d)", argIndex))
		args = append(args, statuses)
	}

	query := "SELECT COUNT(*) FROM store_orders o JOIN leads l ON l.lead_code = o.lead_code"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count store orders: %w", err)
	}
	return n, nil
}

// Dispatch is what the store manager records when an order leaves the store.
type Dispatch struct {
	LeadCode      string
	DriverName    string
	DriverPhone   string
	VehicleNumber string
	PaymentMode   string
	Amount        sql.NullInt64
	ExpectedAt    sql.NullTime
	DispatchedAt  time.Time
}

func (s *Store) DispatchOrder(ctx context.Context, store string, d Dispatch) error {
	return s.advanceOrder(ctx, store, d.LeadCode, OrderDispatched, EventDispatch, func(tx *sql.Tx, orderID int64) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE store_orders SET
				status = $1, driver_name = $2, driver_phone = $3, vehicle_number = $4,
				dispatch_payment_mode = $5, dispatch_received_amount = $6,
				estimated_delivery_at = $7, pending_to_dispatched_at = $8
			WHERE id = $9
		`, string(OrderDispatched), nullString(d.DriverName), nullString(d.DriverPhone), nullString(d.VehicleNumber),
			nullString(d.PaymentMode), d.Amount, d.ExpectedAt, d.DispatchedAt, orderID)
		return err
	}, "Order Dispatched", sql.NullTime{})
}

// Delivery is what the store manager records at the customer's door.
type Delivery struct {
	LeadCode    string
	Feedback    string
	PaymentMode string
	Amount      sql.NullInt64
	DeliveredAt time.Time
}

func (s *Store) DeliverOrder(ctx context.Context, store string, d Delivery) error {
	return s.advanceOrder(ctx, store, d.LeadCode, OrderDelivered, EventDeliver, func(tx *sql.Tx, orderID int64) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE store_orders SET
				status = $1, feedback = $2, delivery_payment_mode = $3,
				delivery_received_amount = $4, delivered_at = $5
			WHERE id = $6
		`, string(OrderDelivered), nullString(truncate(d.Feedback, 255)), nullString(d.PaymentMode), d.Amount, d.DeliveredAt, orderID)
		return err
	}, "Order Delivered", sql.NullTime{Time: d.DeliveredAt, Valid: true})
}

// advanceOrder moves an order and its lead one step along together. endedAt,
// when valid, closes the lead's lifecycle.
func (s *Store) advanceOrder(
	ctx context.Context,
	store, leadCode string,
	want OrderStatus,
	event LeadEvent,
	update func(tx *sql.Tx, orderID int64) error,
	action string,
	endedAt sql.NullTime,
) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			orderID int64
			current string
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, status FROM store_orders
			WHERE store_name = $1 AND lead_code = $2
			FOR UPDATE
		`, store, leadCode).Scan(&orderID, &current)
		if err != nil {
			return notFound(err, "store order "+leadCode)
		}

		next, err := NextOrderStatus(OrderStatus(current))
		if err != nil || next != want {
			return &TransitionError{Subject: "order", Event: string(event), From: current}
		}

		lead, err := lockLead(ctx, tx, leadCode)
		if err != nil {
			return err
		}
		leadNext, err := NextLeadStatus(event, lead.Status)
		if err != nil {
			return err
		}

		if err := update(tx, orderID); err != nil {
			return fmt.Errorf("failed to update store order: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE leads SET status = $1, last_action = $2, lead_ended_at = COALESCE($3, lead_ended_at)
			WHERE id = $4
		`, string(leadNext), action, endedAt, lead.ID)
		if err != nil {
			return fmt.Errorf("failed to update lead status: %w", err)
		}
		return nil
	})
}

func scanOrderWithLead(sc rowScanner) (*OrderWithLead, error) {
	var r orderScan
	var ls leadScan
	if err := sc.Scan(append(r.dest(), ls.dest()...)...); err != nil {
		return nil, err
	}
	lead, err := ls.finish()
	if err != nil {
		return nil, err
	}
	return &OrderWithLead{Order: r.finish(), Lead: lead}, nil
}
