package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stk-crm/internal/models"
)

type review struct {
	leadID   int64
	decision models.ApprovalStatus
	remarks  string
}

type fakeTeam struct {
	TeamLeadStore
	users     map[int64]*models.User
	leads     []*models.Lead
	approvals map[int64]*models.ApprovalItem
	orders    []*models.OrderWithLead
	samples   []models.RevenueSample
	reviewed  *review
	created   *models.User
}

func (f *fakeTeam) storeOf(userID int64) string {
	if u, ok := f.users[userID]; ok {
		return u.StoreAssigned.String
	}
	return ""
}

func inRange(t time.Time, from, to time.Time) bool {
	return (from.IsZero() || !t.Before(from)) && (to.IsZero() || t.Before(to))
}

func (f *fakeTeam) match(l *models.Lead, filter models.LeadFilter) bool {
	if filter.Store != "" && f.storeOf(l.SalesExecutiveID) != filter.Store {
		return false
	}
	if filter.SalesExecutiveID != 0 && l.SalesExecutiveID != filter.SalesExecutiveID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, l.Status) {
		return false
	}
	if containsStatus(filter.ExcludeStatuses, l.Status) {
		return false
	}
	if !inRange(l.LeadCreatedAt, filter.CreatedFrom, filter.CreatedTo) {
		return false
	}
	if !filter.QuotedFrom.IsZero() && (!l.QuotationCreatedAt.Valid || !inRange(l.QuotationCreatedAt.Time, filter.QuotedFrom, filter.QuotedTo)) {
		return false
	}
	return true
}

func containsStatus(list []models.LeadStatus, s models.LeadStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (f *fakeTeam) ListLeads(_ context.Context, filter models.LeadFilter) ([]*models.Lead, error) {
	var out []*models.Lead
	for _, l := range f.leads {
		if f.match(l, filter) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeTeam) CountLeads(ctx context.Context, filter models.LeadFilter) (int, error) {
	leads, _ := f.ListLeads(ctx, filter)
	return len(leads), nil
}

func (f *fakeTeam) SumEstimatedCost(ctx context.Context, filter models.LeadFilter) (int64, error) {
	leads, _ := f.ListLeads(ctx, filter)
	var sum int64
	for _, l := range leads {
		sum += l.EstimatedCost()
	}
	return sum, nil
}

func (f *fakeTeam) RevenueSamples(context.Context, int64, time.Time, time.Time) ([]models.RevenueSample, error) {
	return f.samples, nil
}

func (f *fakeTeam) GetLeadByID(_ context.Context, id int64) (*models.Lead, error) {
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeTeam) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeTeam) ListSalesExecutives(_ context.Context, store string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range []int64{7, 8, 9} {
		if u, ok := f.users[id]; ok && u.StoreAssigned.String == store {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeTeam) UserNames(_ context.Context, ids []int64) (map[int64]string, error) {
	names := map[int64]string{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			names[id] = u.DisplayName()
		}
	}
	return names, nil
}

func (f *fakeTeam) CreateSalesExecutive(_ context.Context, fullName, hashed, store string) (*models.User, error) {
	f.created = &models.User{ID: 10, FullName: ns(fullName), Username: "SE-PAL-003", HashedPassword: hashed,
		Role: models.RoleSalesExecutive, StoreAssigned: ns(store)}
	return f.created, nil
}

func (f *fakeTeam) ListPendingApprovals(_ context.Context, store string) ([]*models.ApprovalItem, error) {
	var out []*models.ApprovalItem
	for _, item := range f.approvals {
		if f.storeOf(item.Lead.SalesExecutiveID) == store {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeTeam) GetPendingApproval(_ context.Context, store string, leadID int64) (*models.ApprovalItem, error) {
	item, ok := f.approvals[leadID]
	if !ok || f.storeOf(item.Lead.SalesExecutiveID) != store {
		return nil, models.ErrNotFound
	}
	return item, nil
}

func (f *fakeTeam) ReviewQuotation(_ context.Context, store string, leadID int64, decision models.ApprovalStatus, remarks string, _ time.Time) error {
	if _, err := f.GetPendingApproval(context.Background(), store, leadID); err != nil {
		return err
	}
	f.reviewed = &review{leadID: leadID, decision: decision, remarks: remarks}
	return nil
}

func (f *fakeTeam) ListOrders(_ context.Context, store string, status models.OrderStatus) ([]*models.OrderWithLead, error) {
	var out []*models.OrderWithLead
	for _, o := range f.orders {
		if o.Order.StoreName == store && (status == "" || o.Order.Status == status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeTeam) OrdersByLeadCode(_ context.Context, codes []string) (map[string]*models.StoreOrder, error) {
	out := map[string]*models.StoreOrder{}
	for _, o := range f.orders {
		for _, c := range codes {
			if o.Order.LeadCode == c {
				out[c] = o.Order
			}
		}
	}
	return out, nil
}

func (f *fakeTeam) CountOrders(_ context.Context, filter models.OrderFilter) (int, error) {
	n := 0
	for _, o := range f.orders {
		if filter.Store != "" && o.Order.StoreName != filter.Store {
			continue
		}
		if filter.SalesExecutiveID != 0 && o.Lead.SalesExecutiveID != filter.SalesExecutiveID {
			continue
		}
		if len(filter.Statuses) > 0 && filter.Statuses[0] != o.Order.Status {
			continue
		}
		n++
	}
	return n, nil
}

func day(d, hour int) time.Time {
	return time.Date(2024, time.March, d, hour, 0, 0, 0, time.Local)
}

// newFakeTeam builds a Palakkad team of two executives (Anil with a healthy
// pipeline, Beena with a backlog) and an Ernakulam executive who must never
// show up in Palakkad reports.
func newFakeTeam() *fakeTeam {
	se := func(id int64, name, store string) *models.User {
		return &models.User{ID: id, FullName: ns(name), Username: "SE-" + name, Role: models.RoleSalesExecutive, StoreAssigned: ns(store)}
	}
	lead := func(id int64, code string, owner int64, status models.LeadStatus, created time.Time) *models.Lead {
		return &models.Lead{ID: id, LeadCode: code, CustomerName: "Customer " + code, SalesExecutiveID: owner, Status: status, LeadCreatedAt: created}
	}

	l1 := lead(1, "STK-1", 7, models.StatusToday, day(11, 18))
	l1.TotalEstimatedCost = ni(40000)
	l2 := lead(2, "STK-2", 7, models.StatusUpcoming, day(12, 9))
	l2.TotalEstimatedCost = ni(30000)
	l2.QuotationCreatedAt = nt(day(12, 9).Add(30 * time.Minute))
	l3 := lead(3, "STK-3", 7, models.StatusDelivered, day(5, 10))
	l3.TotalEstimatedCost = ni(90000)

	f := &fakeTeam{
		users: map[int64]*models.User{
			7: se(7, "Anil", "Palakkad"),
			8: se(8, "Beena", "Palakkad"),
			9: se(9, "Chacko", "Ernakulam"),
		},
		leads: []*models.Lead{
			l1, l2, l3,
			lead(4, "STK-4", 8, models.StatusToday, day(1, 10)),
			lead(5, "STK-5", 8, models.StatusToday, day(2, 10)),
			lead(6, "STK-6", 8, models.StatusUpcoming, day(3, 10)),
			lead(7, "STK-7", 8, models.StatusClosed, day(4, 10)),
			lead(8, "STK-8", 9, models.StatusToday, day(4, 10)),
		},
	}
	f.approvals = map[int64]*models.ApprovalItem{
		1: {Lead: l1, SalesRepName: "Anil"},
		8: {Lead: f.leads[7], SalesRepName: "Chacko"},
	}
	f.orders = []*models.OrderWithLead{
		{Lead: l1, Order: &models.StoreOrder{LeadCode: "STK-1", StoreName: "Palakkad", Status: models.OrderPending, HandoverAt: nt(fixedNow.AddDate(0, 0, -2))}},
		{Lead: f.leads[3], Order: &models.StoreOrder{LeadCode: "STK-4", StoreName: "Palakkad", Status: models.OrderPending, HandoverAt: nt(fixedNow.Add(-2 * time.Hour))}},
		{Lead: l3, Order: &models.StoreOrder{LeadCode: "STK-3", StoreName: "Palakkad", Status: models.OrderDelivered}},
	}
	return f
}

func newTestTeamLeadHandler(store TeamLeadStore) *TeamLeadHandler {
	h := NewTeamLeadHandler(store, testConfig(), nopLogger())
	h.now = clock
	return h
}

func TestPendingApprovalsAreStoreScoped(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.PendingApprovals, call{path: "/team-lead/pending-approvals", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeList(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, float64(1), items[0]["lead_id"])
	assert.Equal(t, "N/A", items[0]["quotation_id"])
	assert.Equal(t, "Anil", items[0]["sales_rep_name"])

	rec = serve(t, h.PendingApprovalDetail, call{path: "/team-lead/pending-approvals/8", as: tlCaller, vars: map[string]string{"lead_id": "8"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Quotation not found or not pending", detail(t, rec))
}

func TestApprovalAction(t *testing.T) {
	store := newFakeTeam()
	h := newTestTeamLeadHandler(store)

	rec := serve(t, h.ApprovalAction, call{path: "/team-lead/approval-action", as: tlCaller, body: map[string]interface{}{"lead_id": 1, "action": "MAYBE"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid action", detail(t, rec))
	assert.Nil(t, store.reviewed)

	rec = serve(t, h.ApprovalAction, call{path: "/team-lead/approval-action", as: tlCaller, body: map[string]interface{}{"lead_id": 8, "action": "APPROVED"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, h.ApprovalAction, call{path: "/team-lead/approval-action", as: tlCaller, body: map[string]interface{}{
		"lead_id": 1,
		"action":  "approved",
		"remarks": "ok to send",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeObject(t, rec)
	assert.Equal(t, "APPROVED", body["status"])
	assert.Equal(t, "Quotation approved successfully", body["message"])
	require.NotNil(t, store.reviewed)
	assert.Equal(t, review{leadID: 1, decision: models.ApprovalApproved, remarks: "ok to send"}, *store.reviewed)
}

func TestTeamLeadDashboardStats(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.DashboardStats, call{path: "/team-lead/dashboard-stats", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, float64(7), body["leads_total_active"])
	assert.Equal(t, float64(5), body["leads_pending_followup"])
	assert.Equal(t, float64(3), body["deliveries_total"])
	assert.Equal(t, float64(1), body["deliveries_completed"])
	assert.Equal(t, float64(14), body["team_goal_percentage"])
}

func TestAddStaff(t *testing.T) {
	store := newFakeTeam()
	h := newTestTeamLeadHandler(store)

	rec := serve(t, h.AddStaff, call{path: "/team-lead/add-staff", as: tlCaller, body: map[string]string{"full_name": " "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.AddStaff, call{path: "/team-lead/add-staff", as: tlCaller, body: map[string]string{"full_name": "Divya", "password": "s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SE-PAL-003", decodeObject(t, rec)["sales_executive_id"])
	require.NotNil(t, store.created)
	assert.Equal(t, "Palakkad", store.created.StoreAssigned.String)
	assert.NotEqual(t, "s3cret", store.created.HashedPassword)
}

func TestLowPerformers(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.LowPerformers, call{path: "/team-lead/low-performers", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeList(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "8", items[0]["id"])
	assert.Equal(t, "Beena", items[0]["name"])
	assert.Equal(t, float64(0), items[0]["conversion_rate"])
	assert.Equal(t, float64(3), items[0]["pending_count"])
	assert.Equal(t, float64(4), items[0]["total_leads"])
}

func TestPendingLeadsTrackingSkipsClosed(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.PendingLeadsTracking, call{path: "/team-lead/pending-leads-tracking", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeList(t, rec)
	require.Len(t, items, 6)
	for _, item := range items {
		assert.NotEqual(t, "STK-7", item["id"])
		assert.NotEqual(t, "STK-8", item["id"])
	}
}

func TestTeamStats(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.TeamStats, call{path: "/team-lead/team-stats", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, float64(14), body["overall_conversion_rate"])

	members := body["team_members"].([]interface{})
	require.Len(t, members, 2)
	anil := members[0].(map[string]interface{})
	assert.Equal(t, "Anil", anil["name"])
	assert.Equal(t, float64(2), anil["deliveries_total_handover"])
	assert.Equal(t, float64(1), anil["deliveries_completed"])
	assert.Equal(t, float64(30000), anil["daily_revenue_achieved"])
	assert.Equal(t, float64(50000), anil["daily_revenue_target"])
}

func TestIndividualPerformance(t *testing.T) {
	store := newFakeTeam()
	store.samples = []models.RevenueSample{{At: day(10, 11), Amount: 40000}}
	h := newTestTeamLeadHandler(store)

	rec := serve(t, h.IndividualPerformance, call{path: "/team-lead/individual-performance/9", as: tlCaller, vars: map[string]string{"user_id": "9"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, h.IndividualPerformance, call{path: "/team-lead/individual-performance/7?period=yearly", as: tlCaller, vars: map[string]string{"user_id": "7"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, h.IndividualPerformance, call{path: "/team-lead/individual-performance/7", as: tlCaller, vars: map[string]string{"user_id": "7"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeObject(t, rec)
	assert.Equal(t, "Sales Executive", body["role"])

	graph := body["revenue_graph_data"].([]interface{})
	require.Len(t, graph, 4)
	assert.Equal(t, float64(40000), graph[1].(map[string]interface{})["value"])

	metrics := body["metrics"].(map[string]interface{})
	assert.Equal(t, float64(2), metrics["pending_followups"])
	assert.Equal(t, float64(1), metrics["daily_quotations_created"])
	assert.Equal(t, float64(1), metrics["leads_completed_count"])
	assert.Equal(t, float64(30000), metrics["daily_revenue"])
	assert.Equal(t, "Low", metrics["performance_rating"])

	rec = serve(t, h.IndividualPerformance, call{path: "/team-lead/individual-performance/7?period=daily&date_filter=2024-03-11", as: tlCaller, vars: map[string]string{"user_id": "7"}})
	require.Equal(t, http.StatusOK, rec.Code)
	metrics = decodeObject(t, rec)["metrics"].(map[string]interface{})
	assert.Equal(t, float64(40000), metrics["daily_revenue"])
	assert.Equal(t, float64(0), metrics["daily_quotations_created"])
}

func TestPendingLeadsOverview(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.PendingLeadsOverview, call{path: "/team-lead/pending-leads-overview", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, float64(5), body["total_pending"])
	assert.Equal(t, float64(5), body["total_active_leads"])

	breakdown := body["breakdown"].([]interface{})
	require.Len(t, breakdown, 2)
	first := breakdown[0].(map[string]interface{})
	assert.Equal(t, "Beena", first["name"])
	assert.Equal(t, float64(60), first["percentage"])
	assert.Equal(t, float64(40), breakdown[1].(map[string]interface{})["percentage"])
}

func TestTimelineReport(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.TimelineReport, call{path: "/team-lead/time-logs/report", as: tlCaller, body: map[string]string{
		"start_date": "2024-03-11",
		"end_date":   "2024-03-11",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	events := decodeList(t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "STK-1", events[0]["lead_code"])
	assert.Equal(t, "Lead Created", events[0]["event_type"])
	assert.Equal(t, "Anil", events[0]["sales_executive_name"])

	rec = serve(t, h.TimelineReport, call{path: "/team-lead/time-logs/report", as: tlCaller, body: map[string]string{
		"start_date": "2024-03-11",
		"end_date":   "2024-03-01",
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeadTimeTracking(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.LeadTimeTracking, call{path: "/team-lead/lead-time-tracking/8", as: tlCaller, vars: map[string]string{"lead_id": "8"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, h.LeadTimeTracking, call{path: "/team-lead/lead-time-tracking/2", as: tlCaller, vars: map[string]string{"lead_id": "2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, "STK-2", body["lead_code"])
	events := body["events"].([]interface{})
	require.Len(t, events, 2)
	assert.Equal(t, "QUOTATION PREP", events[1].(map[string]interface{})["title"])
}

func TestStoreManagerOverview(t *testing.T) {
	h := newTestTeamLeadHandler(newFakeTeam())

	rec := serve(t, h.StoreManagerOverview, call{path: "/team-lead/store-manager-overview", as: tlCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, "Palakkad", body["store_name"])
	assert.Equal(t, float64(1), body["orders_completed_count"])
	assert.Equal(t, float64(2), body["orders_pending_count"])
	assert.Equal(t, float64(1), body["no_action_count"])
	assert.Equal(t, float64(3), body["deliveries_total"])
	assert.Equal(t, float64(33), body["performance_score"])

	breakdown := body["orders_pending_breakdown"].([]interface{})
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Anil", breakdown[0].(map[string]interface{})["name"])
}
