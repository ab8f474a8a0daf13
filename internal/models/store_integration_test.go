//go:build integration

package models_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"stk-crm/internal/db"
	"stk-crm/internal/models"
)

// setupTestStore starts a Postgres container, applies the embedded
// migrations and returns a store over it together with the raw pool.
func setupTestStore(t *testing.T) (*models.Store, *sql.DB) {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("stk_crm_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	if err := db.Connect(ctx, connStr, zap.NewNop()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := db.RunMigrations(ctx, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return models.NewStore(db.DB), db.DB
}

func mustExecutive(t *testing.T, store *models.Store, name, storeName string) *models.User {
	t.Helper()
	u, err := store.CreateSalesExecutive(context.Background(), name, "hash", storeName)
	require.NoError(t, err)
	return u
}

func mustLead(t *testing.T, store *models.Store, owner *models.User, customer string) *models.Lead {
	t.Helper()
	lead := &models.Lead{
		CustomerName:     customer,
		Phone:            fmt.Sprintf("98950%05d", len(customer)*1000+int(owner.ID)),
		SalesExecutiveID: owner.ID,
	}
	require.NoError(t, store.CreateLead(context.Background(), lead))
	return lead
}

func ownerOf(t *testing.T, store *models.Store, leadID int64) int64 {
	t.Helper()
	lead, err := store.GetLeadByID(context.Background(), leadID)
	require.NoError(t, err)
	return lead.SalesExecutiveID
}

func TestCreateLeadAllocatesCodes(t *testing.T) {
	store, _ := setupTestStore(t)
	se := mustExecutive(t, store, "Anil", "Palakkad")

	first := mustLead(t, store, se, "Ravi")
	second := mustLead(t, store, se, "Meera")

	year := first.LeadCreatedAt.Year()
	assert.Equal(t, models.LeadCode(year, first.ID), first.LeadCode)
	assert.Equal(t, models.LeadCode(year, second.ID), second.LeadCode)
	assert.NotEqual(t, first.LeadCode, second.LeadCode)

	stored, err := store.GetLeadByCode(context.Background(), second.LeadCode)
	require.NoError(t, err)
	assert.Equal(t, models.StatusToday, stored.Status)
	assert.Equal(t, "Lead Created", stored.LastAction.String)
	assert.Equal(t, "Normal", stored.Urgency)
}

func TestCreateSalesExecutiveNumbersPerStore(t *testing.T) {
	store, _ := setupTestStore(t)

	a := mustExecutive(t, store, "Anil", "Palakkad")
	b := mustExecutive(t, store, "Beena", "Palakkad")
	c := mustExecutive(t, store, "Chacko", "Ernakulam")

	assert.Equal(t, "SE-PLK-001", a.Username)
	assert.Equal(t, "SE-PLK-002", b.Username)
	assert.Equal(t, "SE-ERN-001", c.Username)
}

func TestCheckInOncePerDay(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	se := mustExecutive(t, store, "Anil", "Palakkad")

	morning := time.Date(2024, time.March, 12, 9, 10, 0, 0, time.Local)
	a, created, err := store.CheckIn(ctx, se.ID, morning, "Palakkad", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendancePresent, a.Status)

	again, created, err := store.CheckIn(ctx, se.ID, morning.Add(2*time.Hour), "Palakkad", true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, models.AttendancePresent, again.Status, "the first check-in of the day wins")

	next, created, err := store.CheckIn(ctx, se.ID, morning.AddDate(0, 0, 1), "Palakkad", true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AttendanceLate, next.Status)
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	store, _ := setupTestStore(t)
	se := mustExecutive(t, store, "Anil", "Palakkad")

	err := store.CheckOut(context.Background(), se.ID, time.Now())
	assert.ErrorIs(t, err, models.ErrNotCheckedIn)
}

func TestOrderPipelineGuards(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	se := mustExecutive(t, store, "Anil", "Palakkad")
	lead := mustLead(t, store, se, "Ravi")
	at := time.Date(2024, time.March, 12, 11, 0, 0, 0, time.Local)

	require.NoError(t, store.HandoverLead(ctx, models.Handover{
		LeadCode: lead.LeadCode, StoreName: "Palakkad", AdvanceAmount: 20000, HandoverAt: at,
	}))
	err := store.HandoverLead(ctx, models.Handover{LeadCode: lead.LeadCode, StoreName: "Palakkad", HandoverAt: at})
	assert.ErrorIs(t, err, models.ErrAlreadyHandedOver)

	stored, err := store.GetLeadByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusHandoverPending, stored.Status)

	var terr *models.TransitionError
	err = store.DeliverOrder(ctx, "Palakkad", models.Delivery{LeadCode: lead.LeadCode, DeliveredAt: at})
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, string(models.OrderPending), terr.From)

	err = store.DispatchOrder(ctx, "Ernakulam", models.Dispatch{LeadCode: lead.LeadCode, DispatchedAt: at})
	assert.ErrorIs(t, err, models.ErrNotFound, "orders are scoped to their store")

	require.NoError(t, store.DispatchOrder(ctx, "Palakkad", models.Dispatch{
		LeadCode: lead.LeadCode, DriverName: "Suresh", DispatchedAt: at.Add(time.Hour),
	}))
	err = store.DispatchOrder(ctx, "Palakkad", models.Dispatch{LeadCode: lead.LeadCode, DispatchedAt: at})
	assert.True(t, errors.As(err, &terr))

	delivered := at.Add(26 * time.Hour)
	require.NoError(t, store.DeliverOrder(ctx, "Palakkad", models.Delivery{LeadCode: lead.LeadCode, DeliveredAt: delivered}))

	stored, err = store.GetLeadByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, stored.Status)
	require.True(t, stored.LeadEndedAt.Valid)
	assert.True(t, delivered.Equal(stored.LeadEndedAt.Time))
}

func TestHandoverOfClosedLeadLeavesNoOrder(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	se := mustExecutive(t, store, "Anil", "Palakkad")
	lead := mustLead(t, store, se, "Ravi")

	require.NoError(t, store.CloseLead(ctx, lead.LeadCode, "went elsewhere", time.Now()))
	err := store.HandoverLead(ctx, models.Handover{LeadCode: lead.LeadCode, StoreName: "Palakkad", HandoverAt: time.Now()})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = store.GetOrder(ctx, "Palakkad", lead.LeadCode)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func applyLeave(t *testing.T, store *models.Store, requester *models.User, plan models.HandoverPlan) *models.LeaveRequest {
	t.Helper()
	start := time.Date(2024, time.March, 14, 0, 0, 0, 0, time.Local)
	leave := &models.LeaveRequest{
		UserID:       requester.ID,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 1),
		DaysCount:    2,
		HandoverPlan: plan,
	}
	require.NoError(t, store.ApplyLeave(context.Background(), leave))
	return leave
}

func TestApplyLeaveChecksPlan(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	anil := mustExecutive(t, store, "Anil", "Palakkad")
	beena := mustExecutive(t, store, "Beena", "Palakkad")
	chacko := mustExecutive(t, store, "Chacko", "Ernakulam")
	own := mustLead(t, store, anil, "Ravi")
	foreign := mustLead(t, store, beena, "Meera")

	tests := []struct {
		name string
		plan models.HandoverPlan
	}{
		{"lead of another executive", models.HandoverPlan{{LeadID: foreign.ID, ToUserID: beena.ID}}},
		{"unknown lead", models.HandoverPlan{{LeadID: 9999, ToUserID: beena.ID}}},
		{"assignee in another store", models.HandoverPlan{{LeadID: own.ID, ToUserID: chacko.ID}}},
		{"hand over to self", models.HandoverPlan{{LeadID: own.ID, ToUserID: anil.ID}}},
		{"lead listed twice", models.HandoverPlan{{LeadID: own.ID, ToUserID: beena.ID}, {LeadID: own.ID, ToUserID: beena.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.ApplyLeave(ctx, &models.LeaveRequest{
				UserID:       anil.ID,
				StartDate:    time.Now(),
				EndDate:      time.Now(),
				DaysCount:    1,
				HandoverPlan: tt.plan,
			})
			var herr *models.HandoverError
			assert.ErrorAs(t, err, &herr)
		})
	}

	pending, err := store.PendingLeaves(ctx, "Palakkad")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDecideLeaveRollsBackOnStaleLead(t *testing.T) {
	store, pool := setupTestStore(t)
	ctx := context.Background()
	anil := mustExecutive(t, store, "Anil", "Palakkad")
	beena := mustExecutive(t, store, "Beena", "Palakkad")
	dinesh := mustExecutive(t, store, "Dinesh", "Palakkad")
	first := mustLead(t, store, anil, "Ravi")
	second := mustLead(t, store, anil, "Meera")

	leave := applyLeave(t, store, anil, models.HandoverPlan{
		{LeadID: first.ID, ToUserID: beena.ID},
		{LeadID: second.ID, ToUserID: beena.ID},
	})

	// The second lead changes hands before the team lead decides.
	_, err := pool.ExecContext(ctx, "UPDATE leads SET sales_executive_id = $1 WHERE id = $2", dinesh.ID, second.ID)
	require.NoError(t, err)

	_, err = store.DecideLeave(ctx, models.LeaveDecision{LeaveID: leave.ID, Store: "Palakkad", Approve: true, ApproverID: 1})
	var herr *models.HandoverError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, second.ID, herr.LeadID)

	assert.Equal(t, anil.ID, ownerOf(t, store, first.ID), "the first reassignment is rolled back")
	assert.Equal(t, dinesh.ID, ownerOf(t, store, second.ID))

	stored, err := store.GetLeave(ctx, leave.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LeavePending, stored.Status)
	assert.False(t, stored.ApprovedBy.Valid)
}

func TestDecideLeaveApprovesAndReassigns(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	anil := mustExecutive(t, store, "Anil", "Palakkad")
	beena := mustExecutive(t, store, "Beena", "Palakkad")
	dinesh := mustExecutive(t, store, "Dinesh", "Palakkad")
	active := mustLead(t, store, anil, "Ravi")
	closed := mustLead(t, store, anil, "Meera")

	leave := applyLeave(t, store, anil, models.HandoverPlan{
		{LeadID: active.ID, ToUserID: beena.ID},
		{LeadID: closed.ID, ToUserID: dinesh.ID},
	})
	require.NoError(t, store.CloseLead(ctx, closed.LeadCode, "", time.Now()))

	_, err := store.DecideLeave(ctx, models.LeaveDecision{LeaveID: leave.ID, Store: "Ernakulam", Approve: true, ApproverID: 1})
	assert.ErrorIs(t, err, models.ErrNotFound, "team leads only decide for their own store")

	decided, err := store.DecideLeave(ctx, models.LeaveDecision{LeaveID: leave.ID, Store: "Palakkad", Approve: true, ApproverID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveApproved, decided.Status)

	assert.Equal(t, beena.ID, ownerOf(t, store, active.ID))
	assert.Equal(t, anil.ID, ownerOf(t, store, closed.ID), "closed leads keep their owner")

	lead, err := store.GetLeadByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Reassigned During Leave", lead.LastAction.String)

	_, err = store.DecideLeave(ctx, models.LeaveDecision{LeaveID: leave.ID, Store: "Palakkad", Approve: false})
	var terr *models.TransitionError
	assert.ErrorAs(t, err, &terr, "a decided leave cannot be decided again")
}

func TestDecideLeaveReject(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	anil := mustExecutive(t, store, "Anil", "Palakkad")
	beena := mustExecutive(t, store, "Beena", "Palakkad")
	lead := mustLead(t, store, anil, "Ravi")

	leave := applyLeave(t, store, anil, models.HandoverPlan{{LeadID: lead.ID, ToUserID: beena.ID}})

	decided, err := store.DecideLeave(ctx, models.LeaveDecision{LeaveID: leave.ID, Store: "Palakkad", Reason: "peak season"})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveRejected, decided.Status)
	assert.Equal(t, anil.ID, ownerOf(t, store, lead.ID))

	stored, err := store.GetLeave(ctx, leave.ID)
	require.NoError(t, err)
	assert.Equal(t, "peak season", stored.RejectionReason.String)
}
