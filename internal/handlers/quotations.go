package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stk-crm/internal/models"
)

type QuotationStore interface {
	GetLeadByCode(ctx context.Context, code string) (*models.Lead, error)
	SubmitForApproval(ctx context.Context, sub models.QuotationSubmission) error
	SendToCustomer(ctx context.Context, code string, sentAt time.Time) error
}

type QuotationsHandler struct {
	store  QuotationStore
	logger *zap.Logger
	now    func() time.Time
}

func NewQuotationsHandler(store QuotationStore, logger *zap.Logger) *QuotationsHandler {
	return &QuotationsHandler{store: store, logger: logger, now: time.Now}
}

// POST /quotations/submit-quotation-approval
func (h *QuotationsHandler) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID             string                    `json:"lead_id"`
		QuotationID        string                    `json:"quotation_id"`
		SentAt             *Timestamp                `json:"sent_at"`
		TotalEstimatedCost *int64                    `json:"total_estimated_cost"`
		Quotation          *models.QuotationSnapshot `json:"quotation"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeadID == "" || req.QuotationID == "" {
		jsonError(w, http.StatusBadRequest, "lead_id and quotation_id are required")
		return
	}
	if requireOwnLead(w, r, h.store, h.logger, req.LeadID) == nil {
		return
	}

	sentAt := h.now()
	if req.SentAt != nil && !req.SentAt.IsZero() {
		sentAt = req.SentAt.Time
	}
	err := h.store.SubmitForApproval(r.Context(), models.QuotationSubmission{
		LeadCode:    req.LeadID,
		QuotationID: req.QuotationID,
		SentAt:      sentAt,
		Total:       nullInt64(req.TotalEstimatedCost),
		Snapshot:    req.Quotation,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to submit quotation")
		return
	}

	h.logger.Info("quotation submitted", zap.String("lead_code", req.LeadID), zap.String("quotation_id", req.QuotationID))
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":  string(models.ApprovalPending),
		"message": "Quotation sent to Team Lead for approval",
	})
}

// POST /quotations/send-customer
func (h *QuotationsHandler) SendToCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID string     `json:"lead_id"`
		Method string     `json:"method"`
		SentAt *Timestamp `json:"sent_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeadID == "" || req.Method == "" {
		jsonError(w, http.StatusBadRequest, "lead_id and method are required")
		return
	}
	if requireOwnLead(w, r, h.store, h.logger, req.LeadID) == nil {
		return
	}

	sentAt := h.now()
	if req.SentAt != nil && !req.SentAt.IsZero() {
		sentAt = req.SentAt.Time
	}
	err := h.store.SendToCustomer(r.Context(), req.LeadID, sentAt)
	if errors.Is(err, models.ErrInvalidTransition) {
		jsonError(w, http.StatusBadRequest, "Quotation is not approved yet. Cannot send.")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to send quotation")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "SUCCESS",
		"message": "Quotation sent to customer via " + req.Method,
	})
}

// POST /quotations/calculate
func (h *QuotationsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID string                `json:"lead_id"`
		Items  []models.EstimateItem `json:"items"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "At least one item is required")
		return
	}
	for _, item := range req.Items {
		if item.AreaSqft < 0 {
			jsonError(w, http.StatusBadRequest, "area_sqft cannot be negative")
			return
		}
		if strings.TrimSpace(item.ProductName) == "" {
			jsonError(w, http.StatusBadRequest, "product_name is required")
			return
		}
	}

	lines, total := models.Estimate(req.Items)
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"lead_id":              req.LeadID,
		"total_estimated_cost": total,
		"line_items":           lines,
	})
}
