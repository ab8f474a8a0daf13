package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stk-crm/internal/auth"
	"stk-crm/internal/config"
	"stk-crm/internal/models"
	"stk-crm/internal/util"
)

type TeamLeadStore interface {
	ListPendingApprovals(ctx context.Context, store string) ([]*models.ApprovalItem, error)
	GetPendingApproval(ctx context.Context, store string, leadID int64) (*models.ApprovalItem, error)
	ReviewQuotation(ctx context.Context, store string, leadID int64, decision models.ApprovalStatus, remarks string, at time.Time) error

	GetLeadByID(ctx context.Context, id int64) (*models.Lead, error)
	ListLeads(ctx context.Context, f models.LeadFilter) ([]*models.Lead, error)
	CountLeads(ctx context.Context, f models.LeadFilter) (int, error)
	SumEstimatedCost(ctx context.Context, f models.LeadFilter) (int64, error)
	RevenueSamples(ctx context.Context, salesExecutiveID int64, from, to time.Time) ([]models.RevenueSample, error)

	ListOrders(ctx context.Context, store string, status models.OrderStatus) ([]*models.OrderWithLead, error)
	OrdersByLeadCode(ctx context.Context, codes []string) (map[string]*models.StoreOrder, error)
	CountOrders(ctx context.Context, f models.OrderFilter) (int, error)

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateSalesExecutive(ctx context.Context, fullName, hashedPassword, store string) (*models.User, error)
	ListSalesExecutives(ctx context.Context, store string) ([]*models.User, error)
	UserNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// TeamLeadHandler serves the team lead console. Everything is limited to
// the sales executives of the caller's store.
type TeamLeadHandler struct {
	store  TeamLeadStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewTeamLeadHandler(store TeamLeadStore, cfg *config.Config, logger *zap.Logger) *TeamLeadHandler {
	return &TeamLeadHandler{store: store, cfg: cfg, logger: logger, now: time.Now}
}

func (h *TeamLeadHandler) myStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	store := principal(r).Store
	if store == "" {
		jsonError(w, http.StatusForbidden, "Team lead not assigned to any store")
		return "", false
	}
	return store, true
}

// storeLead loads a lead and hides it unless its owner works in store.
func (h *TeamLeadHandler) storeLead(ctx context.Context, store string, id int64) (*models.Lead, error) {
	lead, err := h.store.GetLeadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := h.store.GetUserByID(ctx, lead.SalesExecutiveID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && owner.StoreAssigned.String != store) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// GET /team-lead/pending-approvals
func (h *TeamLeadHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListPendingApprovals(r.Context(), store)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load approvals")
		return
	}

	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		l := item.Lead
		quotationID := "N/A"
		if l.QuotationID.Valid {
			quotationID = l.QuotationID.String
		}
		response = append(response, map[string]interface{}{
			"lead_id":        l.ID,
			"quotation_id":   quotationID,
			"client_name":    l.CustomerName,
			"amount":         l.EstimatedCost(),
			"sales_rep_name": item.SalesRepName,
			"priority":       l.Urgency,
			"submitted_at":   optional(l.ApproverRequestAt),
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /team-lead/pending-approvals/{lead_id}
func (h *TeamLeadHandler) PendingApprovalDetail(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	leadID, err := pathInt64(r, "lead_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}

	item, err := h.store.GetPendingApproval(r.Context(), store, leadID)
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Quotation not found or not pending")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load approval")
		return
	}

	l := item.Lead
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"lead_id":              l.ID,
		"quotation_id":         optional(l.QuotationID),
		"client_name":          l.CustomerName,
		"sales_rep_name":       item.SalesRepName,
		"submitted_at":         optional(l.ApproverRequestAt),
		"total_estimated_cost": l.EstimatedCost(),
		"quotation":            l.QuotationSnapshot,
	})
}

// POST /team-lead/approval-action
func (h *TeamLeadHandler) ApprovalAction(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	var req struct {
		LeadID  int64  `json:"lead_id"`
		Action  string `json:"action"`
		Remarks string `json:"remarks"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	decision := models.ApprovalStatus(strings.ToUpper(strings.TrimSpace(req.Action)))
	if _, ok := models.ApprovalEventFor(decision); !ok {
		jsonError(w, http.StatusBadRequest, "Invalid action")
		return
	}

	err := h.store.ReviewQuotation(r.Context(), store, req.LeadID, decision, req.Remarks, h.now())
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to record decision")
		return
	}

	h.logger.Info("quotation reviewed",
		zap.Int64("lead_id", req.LeadID),
		zap.String("decision", string(decision)),
		zap.Int64("team_lead_id", principal(r).UserID))
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":  string(decision),
		"message": fmt.Sprintf("Quotation %s successfully", strings.ToLower(string(decision))),
	})
}

// GET /team-lead/dashboard-stats
func (h *TeamLeadHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	total, err := h.store.CountLeads(ctx, models.LeadFilter{Store: store})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}
	pending, err := h.store.CountLeads(ctx, models.LeadFilter{Store: store, Statuses: models.ActiveStatuses})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}
	delivered, err := h.store.CountLeads(ctx, models.LeadFilter{Store: store, Statuses: []models.LeadStatus{models.StatusDelivered}})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}
	deliveries, err := h.store.CountOrders(ctx, models.OrderFilter{Store: store})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}
	completed, err := h.store.CountOrders(ctx, models.OrderFilter{Store: store, Statuses: []models.OrderStatus{models.OrderDelivered}})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]int{
		"leads_pending_followup": pending,
		"leads_total_active":     total,
		"deliveries_completed":   completed,
		"deliveries_total":       deliveries,
		"team_goal_percentage":   models.Percent(delivered, total),
	})
}

// POST /team-lead/add-staff
func (h *TeamLeadHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	var req struct {
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "full_name and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to create staff")
		return
	}
	u, err := h.store.CreateSalesExecutive(r.Context(), req.FullName, hash, store)
	if err != nil {
		storeError(w, h.logger, err, "Failed to create staff")
		return
	}

	h.logger.Info("sales executive created", zap.String("username", u.Username), zap.String("store", store))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":            fmt.Sprintf("Staff '%s' created successfully.", req.FullName),
		"sales_executive_id": u.Username,
	})
}

func (h *TeamLeadHandler) team(w http.ResponseWriter, r *http.Request) (string, []*models.User, bool) {
	store, ok := h.myStore(w, r)
	if !ok {
		return "", nil, false
	}
	users, err := h.store.ListSalesExecutives(r.Context(), store)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load team")
		return "", nil, false
	}
	return store, users, true
}

// GET /team-lead/staff-list
func (h *TeamLeadHandler) StaffList(w http.ResponseWriter, r *http.Request) {
	_, users, ok := h.team(w, r)
	if !ok {
		return
	}
	response := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		response = append(response, map[string]interface{}{
			"id":        u.ID,
			"username":  u.Username,
			"full_name": u.DisplayName(),
			"role":      u.Role,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// leadMixes counts each owner's leads by outcome.
func leadMixes(leads []*models.Lead) map[int64]*models.LeadMix {
	mixes := map[int64]*models.LeadMix{}
	for _, l := range leads {
		m, ok := mixes[l.SalesExecutiveID]
		if !ok {
			m = &models.LeadMix{}
			mixes[l.SalesExecutiveID] = m
		}
		m.Total++
		switch {
		case l.Status.IsActive():
			m.Pending++
		case l.Status == models.StatusDelivered:
			m.Delivered++
		}
	}
	return mixes
}

// GET /team-lead/low-performers
func (h *TeamLeadHandler) LowPerformers(w http.ResponseWriter, r *http.Request) {
	store, users, ok := h.team(w, r)
	if !ok {
		return
	}
	leads, err := h.store.ListLeads(r.Context(), models.LeadFilter{Store: store})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}
	mixes := leadMixes(leads)

	response := []map[string]interface{}{}
	for _, u := range users {
		m, ok := mixes[u.ID]
		if !ok || !m.LowPerformer() {
			continue
		}
		response = append(response, map[string]interface{}{
			"id":              fmt.Sprint(u.ID),
			"name":            u.DisplayName(),
			"role":            "Sales Executive",
			"icon":            "account-tie",
			"conversion_rate": math.Round(m.ConversionRate()*10) / 10,
			"pending_count":   m.Pending,
			"total_leads":     m.Total,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /team-lead/pending-leads-tracking
func (h *TeamLeadHandler) PendingLeadsTracking(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	leads, err := h.store.ListLeads(ctx, models.LeadFilter{
		Store:           store,
		ExcludeStatuses: []models.LeadStatus{models.StatusClosed},
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}

	codes := make([]string, 0, len(leads))
	owners := make([]int64, 0, len(leads))
	for _, l := range leads {
		codes = append(codes, l.LeadCode)
		owners = append(owners, l.SalesExecutiveID)
	}
	orders, err := h.store.OrdersByLeadCode(ctx, codes)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load orders")
		return
	}
	names, err := h.store.UserNames(ctx, owners)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load users")
		return
	}

	now := h.now()
	response := make([]map[string]interface{}, 0, len(leads))
	for _, l := range leads {
		order := orders[l.LeadCode]
		name, ok := names[l.SalesExecutiveID]
		if !ok {
			name = "Unknown"
		}
		response = append(response, map[string]interface{}{
			"id":                l.LeadCode,
			"name":              l.CustomerName,
			"value":             util.Rupees(l.EstimatedCost()),
			"salesPerson":       name,
			"currentStageIndex": int(models.InferStage(l, order)),
			"lastUpdate":        models.LastUpdateLabel(l, order, now),
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /team-lead/team-stats
func (h *TeamLeadHandler) TeamStats(w http.ResponseWriter, r *http.Request) {
	store, users, ok := h.team(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	dayStart, dayEnd := util.DayBounds(h.now())

	leads, err := h.store.ListLeads(ctx, models.LeadFilter{Store: store})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}
	mixes := leadMixes(leads)

	members := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		m, ok := mixes[u.ID]
		if !ok {
			m = &models.LeadMix{}
		}
		handovers, err := h.store.CountOrders(ctx, models.OrderFilter{SalesExecutiveID: u.ID})
		if err != nil {
			storeError(w, h.logger, err, "Failed to load team stats")
			return
		}
		delivered, err := h.store.CountOrders(ctx, models.OrderFilter{
			SalesExecutiveID: u.ID,
			Statuses:         []models.OrderStatus{models.OrderDelivered},
		})
		if err != nil {
			storeError(w, h.logger, err, "Failed to load team stats")
			return
		}
		revenue, err := h.store.SumEstimatedCost(ctx, models.LeadFilter{
			SalesExecutiveID: u.ID,
			CreatedFrom:      dayStart,
			CreatedTo:        dayEnd,
		})
		if err != nil {
			storeError(w, h.logger, err, "Failed to load team stats")
			return
		}

		members = append(members, map[string]interface{}{
			"id":                        u.ID,
			"name":                      u.DisplayName(),
			"pending_leads_count":       m.Pending,
			"total_leads_assigned":      m.Total,
			"deliveries_completed":      delivered,
			"deliveries_total_handover": handovers,
			"daily_revenue_achieved":    revenue,
			"daily_revenue_target":      h.cfg.DailyRevenueTarget,
		})
	}

	var overall models.LeadMix
	for _, m := range mixes {
		overall.Total += m.Total
		overall.Delivered += m.Delivered
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"team_members":            members,
		"overall_conversion_rate": models.Percent(overall.Delivered, overall.Total),
	})
}

// GET /team-lead/individual-performance-list
func (h *TeamLeadHandler) IndividualPerformanceList(w http.ResponseWriter, r *http.Request) {
	_, users, ok := h.team(w, r)
	if !ok {
		return
	}
	response := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		response = append(response, map[string]interface{}{
			"user_id":     u.ID,
			"username":    u.DisplayName(),
			"employee_id": u.Username,
			"status":      "Active",
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /team-lead/individual-performance/{user_id}?period=&date_filter=
func (h *TeamLeadHandler) IndividualPerformance(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	userID, err := pathInt64(r, "user_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid user id")
		return
	}
	ctx := r.Context()

	u, err := h.store.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && (u.Role != models.RoleSalesExecutive || u.StoreAssigned.String != store)) {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load user")
		return
	}

	period := r.URL.Query().Get("period")
	switch period {
	case "":
		period = models.PeriodMonthly
	case models.PeriodDaily, models.PeriodWeekly, models.PeriodMonthly:
	default:
		jsonError(w, http.StatusBadRequest, "Invalid period")
		return
	}

	day := h.now()
	if raw := r.URL.Query().Get("date_filter"); raw != "" {
		if parsed, err := util.ParseDateLocal(raw); err == nil {
			day = parsed
		}
	}
	dayStart, dayEnd := util.DayBounds(day)
	monthStart, monthEnd := util.MonthBounds(day.Year(), day.Month())

	pending, err := h.store.CountLeads(ctx, models.LeadFilter{SalesExecutiveID: u.ID, Statuses: models.ActiveStatuses})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load performance")
		return
	}
	quotations, err := h.store.CountLeads(ctx, models.LeadFilter{SalesExecutiveID: u.ID, QuotedFrom: dayStart, QuotedTo: dayEnd})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load performance")
		return
	}
	completed, err := h.store.CountLeads(ctx, models.LeadFilter{
		SalesExecutiveID: u.ID,
		Statuses:         []models.LeadStatus{models.StatusDelivered},
		CreatedFrom:      monthStart,
		CreatedTo:        monthEnd,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load performance")
		return
	}
	revenue, err := h.store.SumEstimatedCost(ctx, models.LeadFilter{SalesExecutiveID: u.ID, CreatedFrom: dayStart, CreatedTo: dayEnd})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load performance")
		return
	}

	from, to := models.RevenueWindow(period, day)
	samples, err := h.store.RevenueSamples(ctx, u.ID, from, to)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load performance")
		return
	}
	graph := []map[string]interface{}{}
	for _, p := range models.RevenueGraph(period, day, samples) {
		graph = append(graph, map[string]interface{}{"label": p.Label, "value": p.Value})
	}

	score := models.PerformanceScore(completed, h.cfg.CompletedTarget, quotations, h.cfg.QuotationTarget)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user_id":            u.ID,
		"username":           u.Username,
		"role":               roleTitle(u.Role),
		"revenue_graph_data": graph,
		"metrics": map[string]interface{}{
			"pending_followups":        pending,
			"daily_quotations_created": quotations,
			"daily_quotations_target":  h.cfg.QuotationTarget,
			"leads_completed_count":    completed,
			"leads_completed_target":   h.cfg.CompletedTarget,
			"daily_revenue":            revenue,
			"daily_revenue_target":     h.cfg.DailyRevenueTarget,
			"performance_score":        score,
			"performance_rating":       models.PerformanceRating(score),
		},
	})
}

// GET /team-lead/pending-leads-overview
func (h *TeamLeadHandler) PendingLeadsOverview(w http.ResponseWriter, r *http.Request) {
	store, users, ok := h.team(w, r)
	if !ok {
		return
	}
	leads, err := h.store.ListLeads(r.Context(), models.LeadFilter{Store: store})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}
	mixes := leadMixes(leads)

	active := 0
	shares := make([]models.PendingShare, 0, len(users))
	for _, u := range users {
		share := models.PendingShare{UserID: u.ID, Name: u.DisplayName()}
		if m, ok := mixes[u.ID]; ok {
			share.Pending = m.Pending
		}
		shares = append(shares, share)
	}
	for _, l := range leads {
		if !l.Status.IsFinal() {
			active++
		}
	}
	total := models.SharePending(shares)

	breakdown := make([]map[string]interface{}, 0, len(shares))
	for _, s := range shares {
		breakdown = append(breakdown, map[string]interface{}{
			"user_id":       s.UserID,
			"name":          s.Name,
			"pending_count": s.Pending,
			"percentage":    s.Percentage,
		})
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"total_pending":      total,
		"total_active_leads": active,
		"breakdown":          breakdown,
	})
}

// POST /team-lead/time-logs/report
func (h *TeamLeadHandler) TimelineReport(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	var req struct {
		StartDate        *Timestamp `json:"start_date"`
		EndDate          *Timestamp `json:"end_date"`
		SalesExecutiveID int64      `json:"sales_executive_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	from := time.Time{}
	if req.StartDate != nil {
		from = req.StartDate.Time
	}
	to := h.now()
	if req.EndDate != nil && !req.EndDate.IsZero() {
		to = req.EndDate.Time
		// A bare date covers the whole day.
		if to.Equal(util.StartOfDay(to)) {
			_, to = util.DayBounds(to)
			to = to.Add(-time.Nanosecond)
		}
	}
	if to.Before(from) {
		jsonError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	ctx := r.Context()
	leads, err := h.store.ListLeads(ctx, models.LeadFilter{Store: store, SalesExecutiveID: req.SalesExecutiveID})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load leads")
		return
	}
	owners := make([]int64, 0, len(leads))
	for _, l := range leads {
		owners = append(owners, l.SalesExecutiveID)
	}
	names, err := h.store.UserNames(ctx, owners)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load users")
		return
	}

	events := models.Timeline(leads, names, from, to)
	response := make([]map[string]interface{}, 0, len(events))
	for _, e := range events {
		response = append(response, map[string]interface{}{
			"lead_id":              e.LeadID,
			"lead_code":            e.LeadCode,
			"customer_name":        e.CustomerName,
			"sales_executive_name": e.SalesExecutiveName,
			"event_type":           e.EventType,
			"timestamp":            e.At,
			"amount":               e.Amount,
			"status":               e.Status,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /team-lead/lead-time-tracking/{lead_id}
func (h *TeamLeadHandler) LeadTimeTracking(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	leadID, err := pathInt64(r, "lead_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid lead id")
		return
	}
	ctx := r.Context()

	lead, err := h.storeLead(ctx, store, leadID)
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load lead")
		return
	}
	orders, err := h.store.OrdersByLeadCode(ctx, []string{lead.LeadCode})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load order")
		return
	}

	phases, total := models.LeadPhases(lead, orders[lead.LeadCode], h.now())
	events := make([]map[string]interface{}, 0, len(phases))
	for _, p := range phases {
		events = append(events, map[string]interface{}{
			"title":        p.Title,
			"start_time":   p.Start,
			"end_time":     p.End,
			"duration_str": p.Duration,
			"is_completed": p.Completed,
		})
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"lead_code":              lead.LeadCode,
		"client_name":            lead.CustomerName,
		"events":                 events,
		"total_process_duration": total,
	})
}

// GET /team-lead/store-manager-overview
func (h *TeamLeadHandler) StoreManagerOverview(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	orders, err := h.store.ListOrders(ctx, store, "")
	if err != nil {
		storeError(w, h.logger, err, "Failed to load orders")
		return
	}
	owners := make([]int64, 0, len(orders))
	for _, o := range orders {
		owners = append(owners, o.Lead.SalesExecutiveID)
	}
	names, err := h.store.UserNames(ctx, owners)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load users")
		return
	}

	ov := models.SummarizeStore(store, orders, names, h.now())
	breakdown := make([]map[string]interface{}, 0, len(ov.Breakdown))
	for _, b := range ov.Breakdown {
		breakdown = append(breakdown, map[string]interface{}{"name": b.Name, "count": b.Count})
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"store_name":               ov.Store,
		"orders_completed_count":   ov.Completed,
		"orders_pending_count":     ov.Pending,
		"orders_pending_breakdown": breakdown,
		"no_action_count":          ov.NoAction,
		"deliveries_completed":     ov.Completed,
		"deliveries_total":         ov.Total,
		"performance_score":        ov.Score,
	})
}
