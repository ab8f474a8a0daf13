package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stk-crm/internal/auth"
	"stk-crm/internal/config"
	"stk-crm/internal/middleware"
	"stk-crm/internal/models"
)

// NewRouter wires every endpoint with its role gate.
func NewRouter(store *models.Store, authSvc *auth.Service, cfg *config.Config, logger *zap.Logger) http.Handler {
	tokens := authSvc.Tokens()
	anyone := func(next http.HandlerFunc) http.HandlerFunc { return middleware.RequireAuth(next, tokens) }
	salesExec := middleware.RequireRole([]string{models.RoleSalesExecutive}, tokens)
	teamLead := middleware.RequireRole([]string{models.RoleTeamLead}, tokens)
	storeManager := middleware.RequireRole([]string{models.RoleStoreManager}, tokens)
	director := middleware.RequireRole([]string{models.RoleDirector}, tokens)
	loginLimiter := middleware.NewIPRateLimiter(cfg.LoginRatePerMinute, cfg.TrustProxy)

	authHandler := NewAuthHandler(authSvc, logger)
	leadsHandler := NewLeadsHandler(store, logger)
	quotationsHandler := NewQuotationsHandler(store, logger)
	storeHandler := NewStoreManagerHandler(store, logger)
	teamLeadHandler := NewTeamLeadHandler(store, cfg, logger)
	attendanceHandler := NewAttendanceHandler(store, cfg, logger)
	directorHandler := NewDirectorHandler(store, logger)
	dashboardHandler := NewDashboardHandler(store, cfg, logger)

	r := mux.NewRouter()
	r.Use(middleware.Recover(logger), middleware.RequestLogger(logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.HandleFunc("/health", dashboardHandler.Health).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/login", loginLimiter.Limit(authHandler.Login)).Methods(http.MethodPost)
	a.HandleFunc("/token/refresh", authHandler.Refresh).Methods(http.MethodPost)
	a.HandleFunc("/logout", anyone(authHandler.Logout)).Methods(http.MethodPost)
	a.HandleFunc("/me", anyone(authHandler.Me)).Methods(http.MethodGet)

	l := r.PathPrefix("/leads").Subrouter()
	l.HandleFunc("/create-lead", salesExec(leadsHandler.CreateLead)).Methods(http.MethodPost)
	l.HandleFunc("/follow-up-leads", salesExec(leadsHandler.FollowUpLeads)).Methods(http.MethodGet)
	l.HandleFunc("/follow-up-leads/{lead_code}", salesExec(leadsHandler.FollowUpDetail)).Methods(http.MethodGet)
	l.HandleFunc("/customers/lookup", salesExec(leadsHandler.LookupCustomer)).Methods(http.MethodGet)
	l.HandleFunc("/follow-up-lead-update", salesExec(leadsHandler.AddFollowUp)).Methods(http.MethodPost)
	l.HandleFunc("/close-lead", salesExec(leadsHandler.CloseLead)).Methods(http.MethodPost)

	q := r.PathPrefix("/quotations").Subrouter()
	q.HandleFunc("/submit-quotation-approval", salesExec(quotationsHandler.SubmitForApproval)).Methods(http.MethodPost)
	q.HandleFunc("/send-customer", salesExec(quotationsHandler.SendToCustomer)).Methods(http.MethodPost)
	q.HandleFunc("/calculate", salesExec(quotationsHandler.Calculate)).Methods(http.MethodPost)

	sm := r.PathPrefix("/store-manager").Subrouter()
	sm.HandleFunc("/handover-lead-store-manager", salesExec(storeHandler.Handover)).Methods(http.MethodPost)
	sm.HandleFunc("/fetch-pending-leads", storeManager(storeHandler.PendingList)).Methods(http.MethodGet)
	sm.HandleFunc("/fetch-pending-leads/{lead_code}", storeManager(storeHandler.PendingDetail)).Methods(http.MethodGet)
	sm.HandleFunc("/pending-to-dispatch", storeManager(storeHandler.Dispatch)).Methods(http.MethodPost)
	sm.HandleFunc("/fetch-dispatch-details", storeManager(storeHandler.DispatchedList)).Methods(http.MethodGet)
	sm.HandleFunc("/fetch-dispatch-details/{lead_code}", storeManager(storeHandler.DispatchedDetail)).Methods(http.MethodGet)
	sm.HandleFunc("/dispatch-to-delivered", storeManager(storeHandler.Deliver)).Methods(http.MethodPost)
	sm.HandleFunc("/fetch-delivered-details", storeManager(storeHandler.DeliveredList)).Methods(http.MethodGet)
	sm.HandleFunc("/fetch-delivered-details/{lead_code}", storeManager(storeHandler.DeliveredDetail)).Methods(http.MethodGet)

	tl := r.PathPrefix("/team-lead").Subrouter()
	tl.HandleFunc("/pending-approvals", teamLead(teamLeadHandler.PendingApprovals)).Methods(http.MethodGet)
	tl.HandleFunc("/pending-approvals/{lead_id:[0-9]+}", teamLead(teamLeadHandler.PendingApprovalDetail)).Methods(http.MethodGet)
	tl.HandleFunc("/approval-action", teamLead(teamLeadHandler.ApprovalAction)).Methods(http.MethodPost)
	tl.HandleFunc("/dashboard-stats", teamLead(teamLeadHandler.DashboardStats)).Methods(http.MethodGet)
	tl.HandleFunc("/add-staff", teamLead(teamLeadHandler.AddStaff)).Methods(http.MethodPost)
	tl.HandleFunc("/staff-list", teamLead(teamLeadHandler.StaffList)).Methods(http.MethodGet)
	tl.HandleFunc("/low-performers", teamLead(teamLeadHandler.LowPerformers)).Methods(http.MethodGet)
	tl.HandleFunc("/pending-leads-tracking", teamLead(teamLeadHandler.PendingLeadsTracking)).Methods(http.MethodGet)
	tl.HandleFunc("/team-stats", teamLead(teamLeadHandler.TeamStats)).Methods(http.MethodGet)
	tl.HandleFunc("/individual-performance-list", teamLead(teamLeadHandler.IndividualPerformanceList)).Methods(http.MethodGet)
	tl.HandleFunc("/individual-performance/{user_id:[0-9]+}", teamLead(teamLeadHandler.IndividualPerformance)).Methods(http.MethodGet)
	tl.HandleFunc("/pending-leads-overview", teamLead(teamLeadHandler.PendingLeadsOverview)).Methods(http.MethodGet)
	tl.HandleFunc("/time-logs/report", teamLead(teamLeadHandler.TimelineReport)).Methods(http.MethodPost)
	tl.HandleFunc("/lead-time-tracking/{lead_id:[0-9]+}", teamLead(teamLeadHandler.LeadTimeTracking)).Methods(http.MethodGet)
	tl.HandleFunc("/store-manager-overview", teamLead(teamLeadHandler.StoreManagerOverview)).Methods(http.MethodGet)

	at := r.PathPrefix("/attendance").Subrouter()
	at.HandleFunc("/check-in", salesExec(attendanceHandler.CheckIn)).Methods(http.MethodPost)
	at.HandleFunc("/check-out", salesExec(attendanceHandler.CheckOut)).Methods(http.MethodPost)
	at.HandleFunc("/handover-candidates", salesExec(attendanceHandler.HandoverCandidates)).Methods(http.MethodGet)
	at.HandleFunc("/colleagues", salesExec(attendanceHandler.Colleagues)).Methods(http.MethodGet)
	at.HandleFunc("/apply-leave", salesExec(attendanceHandler.ApplyLeave)).Methods(http.MethodPost)
	at.HandleFunc("/monitor-today", teamLead(attendanceHandler.MonitorToday)).Methods(http.MethodGet)
	at.HandleFunc("/pending-leaves", teamLead(attendanceHandler.PendingLeaves)).Methods(http.MethodGet)
	at.HandleFunc("/leave-request-detail/{leave_id:[0-9]+}", teamLead(attendanceHandler.LeaveDetail)).Methods(http.MethodGet)
	at.HandleFunc("/approve-leave", teamLead(attendanceHandler.DecideLeave)).Methods(http.MethodPost)
	at.HandleFunc("/monitor-monthly", teamLead(attendanceHandler.MonitorMonthly)).Methods(http.MethodGet)
	at.HandleFunc("/monitor-monthly-list", teamLead(attendanceHandler.MonitorMonthlyList)).Methods(http.MethodGet)

	d := r.PathPrefix("/director-dashboard").Subrouter()
	d.HandleFunc("/stats", director(directorHandler.Stats)).Methods(http.MethodGet)
	d.HandleFunc("/create-team-lead", director(directorHandler.CreateTeamLead)).Methods(http.MethodPost)
	d.HandleFunc("/create-store-manager", director(directorHandler.CreateStoreManager)).Methods(http.MethodPost)
	d.HandleFunc("/team-leads", director(directorHandler.TeamLeads)).Methods(http.MethodGet)
	d.HandleFunc("/store-managers", director(directorHandler.StoreManagers)).Methods(http.MethodGet)

	r.HandleFunc("/dashboard/metrics", salesExec(dashboardHandler.Metrics)).Methods(http.MethodGet)
	r.HandleFunc("/master-data", anyone(dashboardHandler.MasterData)).Methods(http.MethodGet)

	return r
}
