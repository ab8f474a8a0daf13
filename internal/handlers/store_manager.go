package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"stk-crm/internal/models"
)

type OrderStore interface {
	GetLeadByID(ctx context.Context, id int64) (*models.Lead, error)
	HandoverLead(ctx context.Context, h models.Handover) error
	ListOrders(ctx context.Context, store string, status models.OrderStatus) ([]*models.OrderWithLead, error)
	GetOrder(ctx context.Context, store, leadCode string) (*models.OrderWithLead, error)
	DispatchOrder(ctx context.Context, store string, d models.Dispatch) error
	DeliverOrder(ctx context.Context, store string, d models.Delivery) error
}

// StoreManagerHandler serves the store pipeline. Every list and action is
// limited to the caller's assigned store.
type StoreManagerHandler struct {
	store  OrderStore
	logger *zap.Logger
	now    func() time.Time
}

func NewStoreManagerHandler(store OrderStore, logger *zap.Logger) *StoreManagerHandler {
	return &StoreManagerHandler{store: store, logger: logger, now: time.Now}
}

func (h *StoreManagerHandler) myStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	store := principal(r).Store
	if store == "" {
		jsonError(w, http.StatusForbidden, "User not assigned to any store")
		return "", false
	}
	return store, true
}

// POST /store-manager/handover-lead-store-manager
func (h *StoreManagerHandler) Handover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID                  int64      `json:"lead_id"`
		StoreName               string     `json:"store_name"`
		AdvanceReceivedAmount   *int64     `json:"advance_received_amount"`
		AdvanceReceivedAmountAt *Timestamp `json:"advance_received_amount_at"`
		PaymentMode             string     `json:"payment_mode"`
		HandoverAt              *Timestamp `json:"handover_at"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StoreName = strings.TrimSpace(req.StoreName)
	if req.StoreName == "" {
		jsonError(w, http.StatusBadRequest, "store_name is required")
		return
	}
	if req.AdvanceReceivedAmount != nil && *req.AdvanceReceivedAmount < 0 {
		jsonError(w, http.StatusBadRequest, "advance_received_amount cannot be negative")
		return
	}

	lead, err := h.store.GetLeadByID(r.Context(), req.LeadID)
	if errors.Is(err, models.ErrNotFound) || (err == nil && !ownsLead(r, lead)) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load lead")
		return
	}

	handover := models.Handover{
		LeadCode:    lead.LeadCode,
		StoreName:   req.StoreName,
		PaymentMode: req.PaymentMode,
		AdvanceAt:   nullTime(req.AdvanceReceivedAmountAt),
		HandoverAt:  h.now(),
	}
	if req.AdvanceReceivedAmount != nil {
		handover.AdvanceAmount = *req.AdvanceReceivedAmount
	}
	if req.HandoverAt != nil && !req.HandoverAt.IsZero() {
		handover.HandoverAt = req.HandoverAt.Time
	}

	if err := h.store.HandoverLead(r.Context(), handover); err != nil {
		storeError(w, h.logger, err, "Failed to hand over lead")
		return
	}

	h.logger.Info("lead handed over", zap.String("lead_code", lead.LeadCode), zap.String("store", req.StoreName))
	jsonMessage(w, fmt.Sprintf("Lead successfully handed over to %s Store Manager", req.StoreName))
}

func (h *StoreManagerHandler) list(w http.ResponseWriter, r *http.Request, status models.OrderStatus) ([]*models.OrderWithLead, bool) {
	store, ok := h.myStore(w, r)
	if !ok {
		return nil, false
	}
	items, err := h.store.ListOrders(r.Context(), store, status)
	if err != nil {
		storeError(w, h.logger, err, "Failed to load orders")
		return nil, false
	}
	return items, true
}

func (h *StoreManagerHandler) detail(w http.ResponseWriter, r *http.Request, notFound string) (*models.OrderWithLead, bool) {
	store, ok := h.myStore(w, r)
	if !ok {
		return nil, false
	}
	item, err := h.store.GetOrder(r.Context(), store, mux.Vars(r)["lead_code"])
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, notFound)
		return nil, false
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load order")
		return nil, false
	}
	return item, true
}

// leadRequirements is the customer and material part shared by every
// order detail view.
func leadRequirements(l *models.Lead) map[string]interface{} {
	return map[string]interface{}{
		"lead_id":           l.ID,
		"lead_code":         l.LeadCode,
		"quotation_id":      optional(l.QuotationID),
		"customer_name":     l.CustomerName,
		"phone":             l.Phone,
		"source":            optional(l.Source),
		"location":          optional(l.Location),
		"district":          optional(l.District),
		"profile":           optional(l.Profile),
		"area_sqft":         optional(l.AreaSqft),
		"project_type":      optional(l.ProjectType),
		"board_type":        optional(l.BoardType),
		"material_brand":    optional(l.MaterialBrand),
		"channel":           optional(l.Channel),
		"channel_thickness": optional(l.ChannelThickness),
		"material_category": optional(l.MaterialCategory),
		"material_quantity": optional(l.MaterialQuantity),
		"urgency":           l.Urgency,
		"quotation":         l.QuotationSnapshot,
	}
}

// GET /store-manager/fetch-pending-leads
func (h *StoreManagerHandler) PendingList(w http.ResponseWriter, r *http.Request) {
	items, ok := h.list(w, r, models.OrderPending)
	if !ok {
		return
	}
	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		response = append(response, map[string]interface{}{
			"lead_id":          item.Lead.LeadCode,
			"quotation_id":     optional(item.Lead.QuotationID),
			"phone":            item.Lead.Phone,
			"lead_name":        item.Lead.CustomerName,
			"estimated_cost":   item.Lead.EstimatedCost(),
			"handover_at":      optional(item.Order.HandoverAt),
			"advance_received": item.Order.AdvanceReceivedAmount,
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /store-manager/fetch-pending-leads/{lead_code}
func (h *StoreManagerHandler) PendingDetail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.detail(w, r, "Lead not found in this store")
	if !ok {
		return
	}
	l, o := item.Lead, item.Order

	response := leadRequirements(l)
	response["address"] = fmt.Sprintf("%s, %s", l.Location.String, l.District.String)
	response["accessory_name"] = optional(l.AccessoryName)
	response["accessory_qty"] = optional(l.AccessoryQty)
	response["status"] = o.Status
	response["total_estimated_cost"] = l.EstimatedCost()
	response["advance_paid"] = o.AdvanceReceivedAmount
	response["balance_remaining"] = l.EstimatedCost() - o.AdvanceReceivedAmount
	response["payment_mode_handover"] = optional(o.PaymentMode)
	response["handover_at"] = optional(o.HandoverAt)
	jsonResponse(w, http.StatusOK, response)
}

// POST /store-manager/pending-to-dispatch
func (h *StoreManagerHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	var req struct {
		LeadID                string     `json:"lead_id"`
		DriverName            string     `json:"driver_name"`
		DriverPhone           string     `json:"driver_phone"`
		VehicleNumber         string     `json:"vehicle_number"`
		PaymentMode           string     `json:"payment_mode"`
		PaymentReceivedAmount *int64     `json:"payment_received_amount"`
		ExpectedDeliveryAt    *Timestamp `json:"expected_delivery_at"`
		DispatchTimestamp     *Timestamp `json:"dispatch_timestamp"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LeadID == "" {
		jsonError(w, http.StatusBadRequest, "lead_id is required")
		return
	}
	if req.PaymentReceivedAmount != nil && *req.PaymentReceivedAmount < 0 {
		jsonError(w, http.StatusBadRequest, "payment_received_amount cannot be negative")
		return
	}

	d := models.Dispatch{
		LeadCode:      req.LeadID,
		DriverName:    req.DriverName,
		DriverPhone:   req.DriverPhone,
		VehicleNumber: req.VehicleNumber,
		PaymentMode:   req.PaymentMode,
		Amount:        nullInt64(req.PaymentReceivedAmount),
		ExpectedAt:    nullTime(req.ExpectedDeliveryAt),
		DispatchedAt:  h.now(),
	}
	if req.DispatchTimestamp != nil && !req.DispatchTimestamp.IsZero() {
		d.DispatchedAt = req.DispatchTimestamp.Time
	}

	err := h.store.DispatchOrder(r.Context(), store, d)
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to dispatch order")
		return
	}

	h.logger.Info("order dispatched", zap.String("lead_code", req.LeadID), zap.String("store", store))
	jsonMessage(w, "Order Dispatched Successfully")
}

// GET /store-manager/fetch-dispatch-details
func (h *StoreManagerHandler) DispatchedList(w http.ResponseWriter, r *http.Request) {
	items, ok := h.list(w, r, models.OrderDispatched)
	if !ok {
		return
	}
	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		response = append(response, map[string]interface{}{
			"lead_id":        item.Lead.ID,
			"lead_code":      item.Lead.LeadCode,
			"customer_name":  item.Lead.CustomerName,
			"amount":         item.Lead.EstimatedCost(),
			"driver_name":    optional(item.Order.DriverName),
			"vehicle_number": optional(item.Order.VehicleNumber),
			"dispatched_at":  optional(item.Order.PendingToDispatchedAt),
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /store-manager/fetch-dispatch-details/{lead_code}
func (h *StoreManagerHandler) DispatchedDetail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.detail(w, r, "Entry not found")
	if !ok {
		return
	}
	l, o := item.Lead, item.Order
	paid := o.PaidSoFar()

	response := leadRequirements(l)
	response["driver_name"] = optional(o.DriverName)
	response["driver_phone"] = optional(o.DriverPhone)
	response["vehicle_number"] = optional(o.VehicleNumber)
	response["accessory_name"] = optional(l.AccessoryName)
	response["accessory_qty"] = optional(l.AccessoryQty)
	response["advance_paid"] = paid
	response["payment_mode_handover"] = optional(o.PaymentMode)
	response["payment_mode_dispatch"] = optional(o.DispatchPaymentMode)
	response["dispatch_amount"] = o.DispatchReceived.Int64
	response["total_estimated_cost"] = l.EstimatedCost()
	response["total_paid_so_far"] = paid
	response["balance_remaining"] = item.Balance()
	response["expected_delivery_at"] = optional(o.EstimatedDeliveryAt)
	response["dispatched_at"] = optional(o.PendingToDispatchedAt)
	jsonResponse(w, http.StatusOK, response)
}

// POST /store-manager/dispatch-to-delivered
func (h *StoreManagerHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	store, ok := h.myStore(w, r)
	if !ok {
		return
	}
	var req struct {
		LeadID                int64  `json:"lead_id"`
		Feedback              string `json:"feedback"`
		PaymentMode           string `json:"payment_mode"`
		PaymentReceivedAmount *int64 `json:"payment_received_amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PaymentReceivedAmount != nil && *req.PaymentReceivedAmount < 0 {
		jsonError(w, http.StatusBadRequest, "payment_received_amount cannot be negative")
		return
	}

	lead, err := h.store.GetLeadByID(r.Context(), req.LeadID)
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Lead not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to load lead")
		return
	}

	err = h.store.DeliverOrder(r.Context(), store, models.Delivery{
		LeadCode:    lead.LeadCode,
		Feedback:    req.Feedback,
		PaymentMode: req.PaymentMode,
		Amount:      nullInt64(req.PaymentReceivedAmount),
		DeliveredAt: h.now(),
	})
	if errors.Is(err, models.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "Entry not found")
		return
	}
	if err != nil {
		storeError(w, h.logger, err, "Failed to deliver order")
		return
	}

	h.logger.Info("order delivered", zap.String("lead_code", lead.LeadCode), zap.String("store", store))
	jsonMessage(w, "Order Delivered Successfully")
}

// GET /store-manager/fetch-delivered-details
func (h *StoreManagerHandler) DeliveredList(w http.ResponseWriter, r *http.Request) {
	items, ok := h.list(w, r, models.OrderDelivered)
	if !ok {
		return
	}
	response := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		response = append(response, map[string]interface{}{
			"lead_id":              item.Lead.ID,
			"lead_code":            item.Lead.LeadCode,
			"customer_name":        item.Lead.CustomerName,
			"total_estimated_cost": item.Lead.EstimatedCost(),
			"final_balance":        item.Balance(),
			"delivered_at":         optional(item.Order.DeliveredAt),
		})
	}
	jsonResponse(w, http.StatusOK, response)
}

// GET /store-manager/fetch-delivered-details/{lead_code}
func (h *StoreManagerHandler) DeliveredDetail(w http.ResponseWriter, r *http.Request) {
	item, ok := h.detail(w, r, "Not found")
	if !ok {
		return
	}
	l, o := item.Lead, item.Order

	var accessories interface{}
	if l.AccessoryName.Valid && l.AccessoryName.String != "" {
		accessories = fmt.Sprintf("%s (Qty: %d)", l.AccessoryName.String, l.AccessoryQty.Int64)
	}

	response := leadRequirements(l)
	response["accessories_list"] = accessories
	response["payment_mode_handover"] = optional(o.PaymentMode)
	response["dispatch_feedback"] = optional(o.Feedback)
	response["payment_mode_delivery"] = optional(o.DeliveryPaymentMode)
	response["advance_received_amount"] = o.AdvanceReceivedAmount
	response["total_estimated_cost"] = l.EstimatedCost()
	response["final_balance"] = item.Balance()
	response["delivered_at"] = optional(o.DeliveredAt)
	jsonResponse(w, http.StatusOK, response)
}
