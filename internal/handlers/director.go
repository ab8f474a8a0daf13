package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stk-crm/internal/auth"
	"stk-crm/internal/models"
)

type DirectorStore interface {
	CountLeads(ctx context.Context, f models.LeadFilter) (int, error)
	CountOrders(ctx context.Context, f models.OrderFilter) (int, error)
	CreateStaff(ctx context.Context, table models.Table, fullName, hashedPassword, store string) (*models.Staff, error)
	ListStaff(ctx context.Context, table models.Table) ([]*models.Staff, error)
}

type DirectorHandler struct {
	store  DirectorStore
	logger *zap.Logger
}

func NewDirectorHandler(store DirectorStore, logger *zap.Logger) *DirectorHandler {
	return &DirectorHandler{store: store, logger: logger}
}

// GET /director-dashboard/stats
func (h *DirectorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var delivered, pendingDeliveries, completed, pendingLeads int

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		n, err := h.store.CountOrders(ctx, models.OrderFilter{Statuses: []models.OrderStatus{models.OrderDelivered}})
		delivered = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountOrders(ctx, models.OrderFilter{
			Statuses: []models.OrderStatus{models.OrderPending, models.OrderDispatched},
		})
		pendingDeliveries = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountLeads(ctx, models.LeadFilter{Statuses: []models.LeadStatus{models.StatusDelivered}})
		completed = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountLeads(ctx, models.LeadFilter{ExcludeStatuses: []models.LeadStatus{models.StatusDelivered}})
		pendingLeads = n
		return err
	})
	if err := g.Wait(); err != nil {
		storeError(w, h.logger, err, "Failed to load stats")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]int{
		"total_delivered_count":    delivered,
		"pending_deliveries_count": pendingDeliveries,
		"leads_completed_count":    completed,
		"leads_pending_count":      pendingLeads,
	})
}

func (h *DirectorHandler) createStaff(w http.ResponseWriter, r *http.Request, table models.Table) {
	var req struct {
		FullName      string `json:"full_name"`
		Password      string `json:"password"`
		StoreAssigned string `json:"store_assigned"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.StoreAssigned = strings.TrimSpace(req.StoreAssigned)
	if req.FullName == "" || req.Password == "" || req.StoreAssigned == "" {
		jsonError(w, http.StatusBadRequest, "full_name, password and store_assigned are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "Failed to create staff")
		return
	}
	s, err := h.store.CreateStaff(r.Context(), table, req.FullName, hash, req.StoreAssigned)
	if err != nil {
		storeError(w, h.logger, err, "Failed to create staff")
		return
	}

	h.logger.Info("staff created", zap.String("table", string(table)), zap.String("staff_id", s.StaffID))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"staff_id":       s.StaffID,
		"full_name":      s.FullName,
		"store_assigned": s.StoreAssigned,
		"created_at":     s.CreatedAt,
	})
}

func (h *DirectorHandler) listStaff(w http.ResponseWriter, r *http.Request, table models.Table) {
	staff, err := h.store.ListStaff(r.Context(), table)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load staff")
		return
	}
	response := make([]map[string]interface{}, 0, len(staff))
	for _, s := range staff {
		response = append(response, map[string]interface{}{
			"id":             s.ID,
			"staff_id":       s.StaffID,
			"full_name":      s.FullName,
			"password":       "********",
			"store_assigned": s.StoreAssigned,
			"created_at":     s.CreatedAt,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// POST /director-dashboard/create-team-lead
func (h *DirectorHandler) CreateTeamLead(w http.ResponseWriter, r *http.Request) {
	h.createStaff(w, r, models.TableTeamLeads)
}

// POST /director-dashboard/create-store-manager
func (h *DirectorHandler) CreateStoreManager(w http.ResponseWriter, r *http.Request) {
	h.createStaff(w, r, models.TableStoreManagers)
}

// GET /director-dashboard/team-leads
func (h *DirectorHandler) TeamLeads(w http.ResponseWriter, r *http.Request) {
	h.listStaff(w, r, models.TableTeamLeads)
}

// GET /director-dashboard/store-managers
func (h *DirectorHandler) StoreManagers(w http.ResponseWriter, r *http.Request) {
	h.listStaff(w, r, models.TableStoreManagers)
}
