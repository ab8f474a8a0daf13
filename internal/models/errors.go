package models

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyHandedOver = errors.New("lead already handed over to store")
	ErrAlreadyPending    = errors.New("quotation already sent for approval")
	ErrNotCheckedIn      = errors.New("not checked in today")
	ErrInvalidHandover   = errors.New("invalid handover plan")
	ErrDuplicate         = errors.New("duplicate record")
)

// TransitionError reports an event that is not allowed from the current state.
type TransitionError struct {
	Subject string
	Event   string
	From    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %s", e.Event, e.Subject, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// HandoverError explains which entry of a leave handover plan is unusable.
type HandoverError struct {
	LeadID   int64
	ToUserID int64
	Reason   string
}

func (e *HandoverError) Error() string {
	return fmt.Sprintf("handover of lead %d to user %d: %s", e.LeadID, e.ToUserID, e.Reason)
}

func (e *HandoverError) Unwrap() error {
	return ErrInvalidHandover
}

// UniqueViolation reports whether err is a PostgreSQL unique_violation and,
// if so, which constraint fired.
func UniqueViolation(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// SQLSTATE 23505 = unique_violation
		if pgErr.Code == "23505" {
			return pgErr.ConstraintName, true
		}
	}
	return "", false
}
