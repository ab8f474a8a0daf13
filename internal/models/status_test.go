package models

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextLeadStatus(t *testing.T) {
	tests := []struct {
		event   LeadEvent
		from    LeadStatus
		want    LeadStatus
		wantErr bool
	}{
		{EventFollowUp, StatusToday, StatusUpcoming, false},
		{EventFollowUp, StatusUpcoming, StatusUpcoming, false},
		{EventFollowUp, StatusDelivered, "", true},
		{EventHandover, StatusToday, StatusHandoverPending, false},
		{EventHandover, StatusHandoverPending, "", true},
		{EventDispatch, StatusHandoverPending, StatusDispatched, false},
		{EventDispatch, StatusToday, "", true},
		{EventDeliver, StatusDispatched, StatusDelivered, false},
		{EventDeliver, StatusHandoverPending, "", true},
		{EventClose, StatusUpcoming, StatusClosed, false},
		{EventClose, StatusDispatched, "", true},
		{LeadEvent("reopen"), StatusClosed, "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.event)+"/"+string(tt.from), func(t *testing.T) {
			got, err := NextLeadStatus(tt.event, tt.from)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextApprovalStatus(t *testing.T) {
	got, err := NextApprovalStatus(EventSubmit, ApprovalNone)
	require.NoError(t, err)
	assert.Equal(t, ApprovalPending, got)

	got, err = NextApprovalStatus(EventSubmit, ApprovalRejected)
	require.NoError(t, err)
	assert.Equal(t, ApprovalPending, got)

	_, err = NextApprovalStatus(EventSubmit, ApprovalPending)
	require.Error(t, err)
	assert.Equal(t, "cannot submit quotation in state PENDING", err.Error())

	_, err = NextApprovalStatus(EventApprove, ApprovalNone)
	assert.EqualError(t, err, "cannot approve quotation in state NONE")

	got, err = NextApprovalStatus(EventReject, ApprovalPending)
	require.NoError(t, err)
	assert.Equal(t, ApprovalRejected, got)
}

func TestApprovalEventFor(t *testing.T) {
	ev, ok := ApprovalEventFor(ApprovalApproved)
	assert.True(t, ok)
	assert.Equal(t, EventApprove, ev)

	_, ok = ApprovalEventFor(ApprovalPending)
	assert.False(t, ok)
}

func TestNextOrderStatus(t *testing.T) {
	got, err := NextOrderStatus(OrderPending)
	require.NoError(t, err)
	assert.Equal(t, OrderDispatched, got)

	got, err = NextOrderStatus(OrderDispatched)
	require.NoError(t, err)
	assert.Equal(t, OrderDelivered, got)

	_, err = NextOrderStatus(OrderDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUniqueViolation(t *testing.T) {
	name, ok := UniqueViolation(&pgconn.PgError{Code: "23505", ConstraintName: "store_orders_lead_code_key"})
	assert.True(t, ok)
	assert.Equal(t, "store_orders_lead_code_key", name)

	_, ok = UniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	assert.False(t, ok)

	_, ok = UniqueViolation(nil)
	assert.False(t, ok)
}

func TestHandoverErrorUnwraps(t *testing.T) {
	err := &HandoverError{LeadID: 4, ToUserID: 9, Reason: "not a colleague"}
	assert.ErrorIs(t, err, ErrInvalidHandover)
	assert.Equal(t, "handover of lead 4 to user 9: not a colleague", err.Error())
}
