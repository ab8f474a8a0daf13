package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stk-crm/internal/config"
	"stk-crm/internal/models"
	"stk-crm/internal/util"
)

type AttendanceStore interface {
	CheckIn(ctx context.Context, userID int64, at time.Time, location string, late bool) (*models.Attendance, bool, error)
	CheckOut(ctx context.Context, userID int64, at time.Time) error
	Roster(ctx context.Context, store string, at time.Time) ([]*models.RosterEntry, error)
	MonthlyRecords(ctx context.Context, userID int64, year int, month time.Month) ([]*models.Attendance, []*models.LeaveRequest, error)

	ListLeads(ctx context.Context, f models.LeadFilter) ([]*models.Lead, error)
	Colleagues(ctx context.Context, store string, exceptUserID int64) ([]*models.User, error)
	ApplyLeave(ctx context.Context, l *models.LeaveRequest) error
	PendingLeaves(ctx context.Context, store string) ([]*models.LeaveWithUser, error)
	GetLeave(ctx context.Context, id int64) (*models.LeaveRequest, error)
	HandoverSummary(ctx context.Context, plan models.HandoverPlan) ([]models.HandoverGroup, error)
	DecideLeave(ctx context.Context, d models.LeaveDecision) (*models.LeaveRequest, error)

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListSalesExecutives(ctx context.Context, store string) ([]*models.User, error)
}

type AttendanceHandler struct {
	store  AttendanceStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewAttendanceHandler(store AttendanceStore, cfg *config.Config, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// POST /attendance/check-in
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Location string `json:"location"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	now := h.now()
	late := h.cfg.OfficeStart.IsLate(now)
	a, created, err := h.store.CheckIn(r.Context(), principal(r).UserID, now, strings.TrimSpace(req.Location), late)
	if err != nil {
		storeError(w, h.logger, err, "Failed to check in")
		return
	}
	if !created {
		jsonResponse(w, http.StatusOK, map[string]string{
			"message": "Already checked in today",
			"status":  a.Status,
		})
		return
	}

	h.logger.Info("checked in", zap.Int64("user_id", a.UserID), zap.Bool("late", a.IsLate))
	jsonResponse(w, http.StatusOK, map[string]string{
		"message": "Checked in successfully at " + util.ClockLabel(a.CheckIn),
		"status":  a.Status,
	})
}

// POST /attendance/check-out
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	if err := h.store.CheckOut(r.Context(), principal(r).UserID, h.now()); err != nil {
		storeError(w, h.logger, err, "Failed to check out")
		return
	}
	jsonMessage(w, "Checked out successfully")
}

// GET /attendance/monitor-today
func (h *AttendanceHandler) MonitorToday(w http.ResponseWriter, r *http.Request) {
	store := principal(r).Store
	entries, err := h.store.Roster(r.Context(), store, h.now())
	if err != nil {
		storeError(w, h.logger, err, "Failed to load attendance")
		return
	}

	sum := models.SummarizeRoster(entries)
	logs := make([]map[string]interface{}, 0, len(sum.Lines))
	for _, line := range sum.Lines {
		logs = append(logs, map[string]interface{}{
			"user_id":   line.UserID,
			"name":      line.Name,
			"role":      "Sales Executive",
			"status":    line.Status,
			"check_in":  line.CheckIn,
			"check_out": line.CheckOut,
			"location":  line.Location,
		})
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"present_count": sum.Present,
		"late_count":    sum.Late,
		"absent_count":  sum.Absent,
		"logs":          logs,
	})
}

// GET /attendance/handover-candidates lists the caller's leads that can be
// covered by a colleague during leave.
func (h *AttendanceHandler) HandoverCandidates(w http.ResponseWriter, r *http.Request) {
	leads, err := h.store.ListLeads(r.Context(), models.LeadFilter{
		SalesExecutiveID: principal(r).UserID,
		Statuses:         models.ActiveStatuses,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}
	response := make([]map[string]interface{}, 0, len(leads))
	for _, l := range leads {
		response = append(response, map[string]interface{}{
			"lead_id":       l.ID,
			"lead_code":     l.LeadCode,
			"customer_name": l.CustomerName,
			"status":        l.Status,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /attendance/colleagues
func (h *AttendanceHandler) Colleagues(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	users, err := h.store.Colleagues(r.Context(), p.Store, p.UserID)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load colleagues")
		return
	}
	response := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		response = append(response, map[string]interface{}{
			"user_id":   u.ID,
			"username":  u.Username,
			"full_name": u.DisplayName(),
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// POST /attendance/apply-leave
func (h *AttendanceHandler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate *Timestamp          `json:"start_date"`
		EndDate   *Timestamp          `json:"end_date"`
		Reason    string              `json:"reason"`
		Handovers models.HandoverPlan `json:"handovers"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartDate == nil || req.EndDate == nil || req.StartDate.IsZero() || req.EndDate.IsZero() {
		jsonError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}
	start := util.StartOfDay(req.StartDate.Time)
	end := util.StartOfDay(req.EndDate.Time)
	if end.Before(start) {
		jsonError(w, http.StatusBadRequest, "End date cannot be before start date")
		return
	}
	if id, dup := req.Handovers.DuplicateLead(); dup {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("Lead %d is listed more than once in the handover plan", id))
		return
	}

	leave := &models.LeaveRequest{
		UserID:       principal(r).UserID,
		StartDate:    start,
		EndDate:      end,
		DaysCount:    util.InclusiveDays(start, end),
		Reason:       sql.NullString{String: req.Reason, Valid: req.Reason != ""},
		HandoverPlan: req.Handovers,
	}
	if err := h.store.ApplyLeave(r.Context(), leave); err != nil {
		storeError(w, h.logger, err, "Failed to submit leave request")
		return
	}

	h.logger.Info("leave requested",
		zap.Int64("leave_id", leave.ID),
		zap.Int64("user_id", leave.UserID),
		zap.Int("days", leave.DaysCount),
		zap.Int("handovers", len(leave.HandoverPlan)))
	jsonMessage(w, "Leave request submitted")
}

// GET /attendance/pending-leaves
func (h *AttendanceHandler) PendingLeaves(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.PendingLeaves(r.Context(), principal(r).Store)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leave requests")
		return
	}
	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		l := item.Leave
		response = append(response, map[string]interface{}{
			"leave_id":            l.ID,
			"user_name":           item.User.DisplayName(),
			"role":                roleTitle(item.User.Role),
			"start_date":          l.StartDate.Format("2006-01-02"),
			"end_date":            l.EndDate.Format("2006-01-02"),
			"days_count":          l.DaysCount,
			"pending_leads_count": len(l.HandoverPlan),
			"reason":              l.Reason.String,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// storeLeave loads a leave request whose requester works in store.
func (h *AttendanceHandler) storeLeave(ctx context.Context, store string, id int64) (*models.LeaveRequest, *models.User, error) {
	leave, err := h.store.GetLeave(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	requester, err := h.store.GetUserByID(ctx, leave.UserID)
	if err != nil {
		return nil, nil, err
	}
	if requester.StoreAssigned.String != store {
		return nil, nil, models.ErrNotFound
	}
	return leave, requester, nil
}

// GET /attendance/leave-request-detail/{leave_id}
func (h *AttendanceHandler) LeaveDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "leave_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid leave id")
		return
	}
	ctx := r.Context()

	leave, requester, err := h.storeLeave(ctx, principal(r).Store, id)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leave request")
		return
	}
	groups, err := h.store.HandoverSummary(ctx, leave.HandoverPlan)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load handover plan")
		return
	}

	summary := make([]map[string]interface{}, 0, len(groups))
	for _, g := range groups {
		summary = append(summary, map[string]interface{}{
			"assignee_name":  g.AssigneeName,
			"leads_assigned": g.Leads,
		})
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"leave_id":         leave.ID,
		"user_name":        requester.DisplayName(),
		"start_date":       leave.StartDate.Format("2006-01-02"),
		"end_date":         leave.EndDate.Format("2006-01-02"),
		"days":             leave.DaysCount,
		"reason":           leave.Reason.String,
		"status":           leave.Status,
		"handover_summary": summary,
	})
}

// POST /attendance/approve-leave
func (h *AttendanceHandler) DecideLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeaveID int64  `json:"leave_id"`
		Action  string `json:"action"`
		Reason  string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var approve bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "approve":
		approve = true
	case "reject":
	default:
		jsonError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	p := principal(r)
	leave, err := h.store.DecideLeave(r.Context(), models.LeaveDecision{
		LeaveID:    req.LeaveID,
		Store:      p.Store,
		Approve:    approve,
		ApproverID: p.UserID,
		Reason:     req.Reason,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to update leave request")
		return
	}

	h.logger.Info("leave decided",
		zap.Int64("leave_id", leave.ID),
		zap.String("status", leave.Status),
		zap.Int("reassigned", len(leave.HandoverPlan)))
	jsonMessage(w, fmt.Sprintf("Leave request %s successfully", strings.ToLower(leave.Status)))
}

// monthParams reads month and year, defaulting to the current month.
func (h *AttendanceHandler) monthParams(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	now := h.now()
	month, ok, err := queryInt(r, "month")
	if err != nil || (ok && (month < 1 || month > 12)) {
		jsonError(w, http.StatusBadRequest, "Invalid month")
		return 0, 0, false
	}
	if !ok {
		month = int(now.Month())
	}
	year, ok, err := queryInt(r, "year")
	if err != nil || (ok && year < 1) {
		jsonError(w, http.StatusBadRequest, "Invalid year")
		return 0, 0, false
	}
	if !ok {
		year = now.Year()
	}
	return year, time.Month(month), true
}

func (h *AttendanceHandler) monthlyReport(ctx context.Context, u *models.User, year int, month time.Month) (map[string]interface{}, error) {
	records, leaves, err := h.store.MonthlyRecords(ctx, u.ID, year, month)
	if err != nil {
		return nil, err
	}
	rep := models.BuildMonthlyReport(u, records, leaves)

	leaveHistory := make([]map[string]string, 0, len(rep.LeaveDays))
	for _, l := range rep.LeaveDays {
		leaveHistory = append(leaveHistory, map[string]string{"date_str": l.Date, "reason": l.Reason})
	}
	lateHistory := make([]map[string]string, 0, len(rep.LateDays))
	for _, l := range rep.LateDays {
		lateHistory = append(lateHistory, map[string]string{"date_str": l.Date, "time_str": l.Time})
	}
	return map[string]interface{}{
		"user_id":            rep.UserID,
		"user_name":          rep.UserName,
		"role":               roleTitle(u.Role),
		"score_percentage":   rep.Score,
		"leaves_taken_count": rep.LeavesTaken,
		"days_present_count": rep.DaysPresent,
		"late_marks_count":   rep.LateMarks,
		"leave_history":      leaveHistory,
		"late_history":       lateHistory,
	}, nil
}

// GET /attendance/monitor-monthly?user_id=&month=&year=
func (h *AttendanceHandler) MonitorMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok, err := queryInt(r, "user_id")
	if err != nil || !ok {
		jsonError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	year, month, ok := h.monthParams(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	u, err := h.store.GetUserByID(ctx, int64(userID))
	if errors.Is(err, models.ErrNotFound) || (err == nil && u.StoreAssigned.String != principal(r).Store) {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load user")
		return
	}

	report, err := h.monthlyReport(ctx, u, year, month)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load attendance")
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// GET /attendance/monitor-monthly-list?month=&year=&user_id=
func (h *AttendanceHandler) MonitorMonthlyList(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthParams(w, r)
	if !ok {
		return
	}
	only, filtered, err := queryInt(r, "user_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid user_id")
		return
	}
	ctx := r.Context()

	users, err := h.store.ListSalesExecutives(ctx, principal(r).Store)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load team")
		return
	}

	reports := []map[string]interface{}{}
	for _, u := range users {
		if filtered && u.ID != int64(only) {
			continue
		}
		report, err := h.monthlyReport(ctx, u, year, month)
		if err != nil {
			storeError(w, h.logger, err, "Failed to load attendance")
			return
		}
		reports = append(reports, report)
	}
	jsonResponse(w, http.StatusOK, reports)
}
