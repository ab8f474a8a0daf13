package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stk-crm/internal/models"
	"stk-crm/internal/util"
)

type LeadStore interface {
	CreateLead(ctx context.Context, lead *models.Lead) error
	GetLeadByCode(ctx context.Context, code string) (*models.Lead, error)
	FindLeadByPhone(ctx context.Context, phone string) (*models.Lead, error)
	ListLeadsWithLastFollowUp(ctx context.Context, salesExecutiveID int64) ([]*models.LeadWithFollowUp, error)
	LastFollowUp(ctx context.Context, leadCode string) (*models.FollowUp, error)
	AddFollowUp(ctx context.Context, f *models.FollowUp) error
	CloseLead(ctx context.Context, code, reason string, at time.Time) error
}

type LeadsHandler struct {
	store  LeadStore
	logger *zap.Logger
	now    func() time.Time
}

func NewLeadsHandler(store LeadStore, logger *zap.Logger) *LeadsHandler {
	return &LeadsHandler{store: store, logger: logger, now: time.Now}
}

type createLeadRequest struct {
	CustomerName  string     `json:"customer_name"`
	Phone         string     `json:"phone"`
	Source        *string    `json:"source"`
	Location      *string    `json:"location"`
	District      *string    `json:"district"`
	Profile       *string    `json:"profile"`
	LeadCreatedAt *Timestamp `json:"lead_created_at"`

	AreaSqft         *int64  `json:"area_sqft"`
	ProjectType      *string `json:"project_type"`
	BoardType        *string `json:"board_type"`
	MaterialBrand    *string `json:"material_brand"`
	Channel          *string `json:"channel"`
	ChannelThickness *string `json:"channel_thickness"`
	MaterialCategory *string `json:"material_category"`
	MaterialQuantity *int64  `json:"material_quantity"`
	AccessoryName    *string `json:"accessory_name"`
	AccessoryQty     *int64  `json:"accessory_qty"`
	Urgency          string  `json:"urgency"`

	QuotationCreatedAt *Timestamp `json:"quotation_created_at"`
	QuotationID        *string    `json:"quotation_id"`
	TotalEstimatedCost *int64     `json:"total_estimated_cost"`
	QuotationEndedAt   *Timestamp `json:"quotation_ended_at"`
	ApproverRequestAt  *Timestamp `json:"approver_request_at"`
}

// POST /leads/create-lead
func (h *LeadsHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	var req createLeadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.CustomerName == "" || req.Phone == "" {
		jsonError(w, http.StatusBadRequest, "customer_name and phone are required")
		return
	}

	lead := &models.Lead{
		CustomerName:     req.CustomerName,
		Phone:            req.Phone,
		Source:           nullString(req.Source),
		Location:         nullString(req.Location),
		District:         nullString(req.District),
		Profile:          nullString(req.Profile),
		AreaSqft:         nullInt64(req.AreaSqft),
		ProjectType:      nullString(req.ProjectType),
		BoardType:        nullString(req.BoardType),
		MaterialBrand:    nullString(req.MaterialBrand),
		Channel:          nullString(req.Channel),
		ChannelThickness: nullString(req.ChannelThickness),
		MaterialCategory: nullString(req.MaterialCategory),
		MaterialQuantity: nullInt64(req.MaterialQuantity),
		AccessoryName:    nullString(req.AccessoryName),
		AccessoryQty:     nullInt64(req.AccessoryQty),
		Urgency:          req.Urgency,

		SalesExecutiveID: principal(r).UserID,

		QuotationCreatedAt: nullTime(req.QuotationCreatedAt),
		QuotationID:        nullString(req.QuotationID),
		TotalEstimatedCost: nullInt64(req.TotalEstimatedCost),
		QuotationEndedAt:   nullTime(req.QuotationEndedAt),
		ApproverRequestAt:  nullTime(req.ApproverRequestAt),
	}
	if req.LeadCreatedAt != nil && !req.LeadCreatedAt.IsZero() {
		lead.LeadCreatedAt = req.LeadCreatedAt.Time
	} else {
		lead.LeadCreatedAt = h.now()
	}

	if err := h.store.CreateLead(r.Context(), lead); err != nil {
		storeError(w, h.logger, err, "Failed to create lead")
		return
	}

	h.logger.Info("lead created", zap.String("lead_code", lead.LeadCode), zap.Int64("sales_executive_id", lead.SalesExecutiveID))
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message":      "Lead created successfully",
		"lead_id":      lead.ID,
		"lead_code":    lead.LeadCode,
		"quotation_id": optional(lead.QuotationID),
		"status":       lead.Status,
	})
}

// GET /leads/follow-up-leads?tab=today|upcoming|delivered
func (h *LeadsHandler) FollowUpLeads(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = "today"
	}
	if tab != "today" && tab != "upcoming" && tab != "delivered" {
		jsonError(w, http.StatusBadRequest, "tab must be one of today, upcoming, delivered")
		return
	}

	items, err := h.store.ListLeadsWithLastFollowUp(r.Context(), principal(r).UserID)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load follow-up leads")
		return
	}

	_, endOfToday := util.DayBounds(h.now())
	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		l := item.Lead
		delivered := l.Status == models.StatusDelivered
		target := item.FollowUpTarget()

		switch tab {
		case "delivered":
			if !delivered {
				continue
			}
		case "today":
			if delivered || !target.Before(endOfToday) {
				continue
			}
		case "upcoming":
			if delivered || target.Before(endOfToday) {
				continue
			}
		}

		response = append(response, map[string]interface{}{
			"lead_id":       l.ID,
			"lead_code":     l.LeadCode,
			"customer_name": l.CustomerName,
			"status":        l.Status,
			"district":      optional(l.District),
			"phone":         l.Phone,
			"last_action":   optional(l.LastAction),
			"next_followup": target,
		})
	}

	jsonResponse(w, http.StatusOK, response)
}

// GET /leads/follow-up-leads/{lead_code}
func (h *LeadsHandler) FollowUpDetail(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["lead_code"]
	lead, err := h.store.GetLeadByCode(r.Context(), code)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !ownsLead(r, lead)) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load lead")
		return
	}

	last, err := h.store.LastFollowUp(r.Context(), lead.LeadCode)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load follow-up")
		return
	}

	quotationStatus := "N/A"
	if lead.LastAction.Valid {
		quotationStatus = lead.LastAction.String
	}
	approverStatus := "N/A"
	if lead.ApproverStatus != models.ApprovalNone {
		approverStatus = string(lead.ApproverStatus)
	}
	projectType := "General"
	if lead.ProjectType.Valid && lead.ProjectType.String != "" {
		projectType = lead.ProjectType.String
	}

	response := map[string]interface{}{
		"lead_id":            lead.ID,
		"lead_code":          lead.LeadCode,
		"customer_name":      lead.CustomerName,
		"phone":              lead.Phone,
		"quotation_status":   quotationStatus,
		"approver_status":    approverStatus,
		"estimated_value":    lead.EstimatedCost(),
		"project_type":       projectType,
		"current_stage":      "Pending",
		"next_followup_date": nil,
		"last_remarks":       "",
	}
	if last != nil {
		if last.CurrentStage.Valid {
			response["current_stage"] = last.CurrentStage.String
		}
		response["next_followup_date"] = last.NextFollowupDate
		response["last_remarks"] = last.Reasons.String
	}

	jsonResponse(w, http.StatusOK, response)
}

// GET /leads/customers/lookup?phone=
func (h *LeadsHandler) LookupCustomer(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		jsonError(w, http.StatusBadRequest, "phone is required")
		return
	}

	lead, err := h.store.FindLeadByPhone(r.Context(), phone)
	if errors.Is(err, models.ErrNotFound) {
		jsonResponse(w, http.StatusOK, map[string]interface{}{
			"found":   false,
			"message": "No customer found. Redirect to Create Lead.",
		})
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to look up customer")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"found": true,
		"customer_details": map[string]interface{}{
			"lead_id":   lead.ID,
			"lead_code": lead.LeadCode,
			"source":    optional(lead.Source),
			"name":      lead.CustomerName,
			"location":  optional(lead.Location),
			"district":  optional(lead.District),
			"profile":   optional(lead.Profile),
		},
	})
}

// POST /leads/follow-up-lead-update
func (h *LeadsHandler) AddFollowUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadCode          string     `json:"lead_code"`
		UpdateStage       *string    `json:"update_stage"`
		NextFollowup      *Timestamp `json:"next_followup"`
		Reason            *string    `json:"reason"`
		StageSelectedAt   *Timestamp `json:"stage_selected_at"`
		FollowupUpdatedAt *Timestamp `json:"followup_updated_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeadCode == "" {
		jsonError(w, http.StatusBadRequest, "lead_code is required")
		return
	}
	if !h.requireOwnLead(w, r, req.LeadCode) {
		return
	}

	next := h.now()
	if req.NextFollowup != nil && !req.NextFollowup.IsZero() {
		next = req.NextFollowup.Time
	}
	f := &models.FollowUp{
		LeadCode:          req.LeadCode,
		CurrentStage:      nullString(req.UpdateStage),
		NextFollowupDate:  next,
		Reasons:           nullString(req.Reason),
		StageSelectedAt:   nullTime(req.StageSelectedAt),
		FollowupUpdatedAt: nullTime(req.FollowupUpdatedAt),
	}
	if err := h.store.AddFollowUp(r.Context(), f); err != nil {
		storeError(w, h.logger, err, "Failed to add follow-up")
		return
	}

	jsonMessage(w, "Follow-up added successfully")
}

// POST /leads/close-lead
func (h *LeadsHandler) CloseLead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadCode string `json:"lead_code"`
		Reason   string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeadCode == "" {
		jsonError(w, http.StatusBadRequest, "lead_code is required")
		return
	}
	if !h.requireOwnLead(w, r, req.LeadCode) {
		return
	}

	if err := h.store.CloseLead(r.Context(), req.LeadCode, strings.TrimSpace(req.Reason), h.now()); err != nil {
		storeError(w, h.logger, err, "Failed to close lead")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Lead closed successfully",
		"status":  models.StatusClosed,
	})
}

// requireOwnLead answers 404 unless the caller may act on the lead.
func (h *LeadsHandler) requireOwnLead(w http.ResponseWriter, r *http.Request, code string) bool {
	return requireOwnLead(w, r, h.store, h.logger, code) != nil
}

type leadGetter interface {
	GetLeadByCode(ctx context.Context, code string) (*models.Lead, error)
}

func requireOwnLead(w http.ResponseWriter, r *http.Request, store leadGetter, logger *zap.Logger, code string) *models.Lead {
	lead, err := store.GetLeadByCode(r.Context(), code)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !ownsLead(r, lead)) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return nil
	}
	if err != nil {
		storeError(w, logger, err, "Failed to load lead")
		return nil
	}
	return lead
}
