package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stk-crm/internal/auth"
	"stk-crm/internal/middleware"
	"stk-crm/internal/models"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2024-03-12"`, time.Date(2024, time.March, 12, 0, 0, 0, 0, time.Local)},
		{`"2024-03-12T14:30:00"`, time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)},
		{`"2024-03-12 14:30:00"`, time.Date(2024, time.March, 12, 14, 30, 0, 0, time.Local)},
		{`"2024-03-12T09:00:00Z"`, time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)},
		{`""`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.in), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %v", ts.Time)
		})
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`12`), &ts))
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		detail string
	}{
		{fmt.Errorf("lead STK-1: %w", models.ErrNotFound), http.StatusNotFound, "Not found"},
		{models.ErrAlreadyPending, http.StatusBadRequest, "Quotation already sent for approval"},
		{models.ErrAlreadyHandedOver, http.StatusBadRequest, "Lead already handed over to store"},
		{models.ErrNotCheckedIn, http.StatusBadRequest, "You haven't checked in yet"},
		{&models.TransitionError{Subject: "order", Event: "dispatch", From: "Delivered"}, http.StatusBadRequest, "cannot dispatch order in state Delivered"},
		{models.ErrInvalidTransition, http.StatusBadRequest, "Invalid action"},
		{models.ErrDuplicate, http.StatusConflict, "Record already exists"},
		{errors.New("boom"), http.StatusInternalServerError, "Failed"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			storeError(rec, nopLogger(), tt.err, "Failed")
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.detail, detail(t, rec))
		})
	}
}

func TestRoleTitle(t *testing.T) {
	assert.Equal(t, "Sales Executive", roleTitle(models.RoleSalesExecutive))
	assert.Equal(t, "Team Lead", roleTitle(models.RoleTeamLead))
	assert.Equal(t, "Sales Executive", roleTitle(""))
}

func TestJSONResponsesAreUncached(t *testing.T) {
	rec := httptest.NewRecorder()
	jsonMessage(rec, "ok")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
}

func TestOwnsLead(t *testing.T) {
	lead := &models.Lead{SalesExecutiveID: seCaller.UserID}
	other := &models.Lead{SalesExecutiveID: seCaller.UserID + 1}

	asCaller := func(p *auth.Principal) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}

	assert.True(t, ownsLead(asCaller(seCaller), lead))
	assert.False(t, ownsLead(asCaller(seCaller), other))
	assert.True(t, ownsLead(asCaller(tlCaller), other))
	assert.False(t, IsSalesExecutive(asCaller(dirCaller)))
}
