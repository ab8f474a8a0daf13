package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stk-crm/internal/config"
	"stk-crm/internal/models"
	"stk-crm/internal/util"
)

type DashboardStore interface {
	SumEstimatedCost(ctx context.Context, f models.LeadFilter) (int64, error)
	LoadCatalog(ctx context.Context) ([]models.Category, error)
	Ping(ctx context.Context) error
}

type DashboardHandler struct {
	store  DashboardStore
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

func NewDashboardHandler(store DashboardStore, cfg *config.Config, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// GET /dashboard/metrics
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	userID := principal(r).UserID
	dayStart, dayEnd := util.DayBounds(now)
	monthStart, monthEnd := util.MonthBounds(now.Year(), now.Month())

	daily, err := h.store.SumEstimatedCost(r.Context(), models.LeadFilter{
		SalesExecutiveID: userID,
		CreatedFrom:      dayStart,
		CreatedTo:        dayEnd,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load metrics")
		return
	}
	monthly, err := h.store.SumEstimatedCost(r.Context(), models.LeadFilter{
		SalesExecutiveID: userID,
		CreatedFrom:      monthStart,
		CreatedTo:        monthEnd,
	})
	if err != nil {
		storeError(w, h.logger, err, "Failed to load metrics")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"daily_goal_amount":       h.cfg.DailyGoalAmount,
		"daily_achieved_amount":   daily,
		"monthly_goal_amount":     h.cfg.MonthlyGoalAmount,
		"monthly_achieved_amount": monthly,
	})
}

type componentJSON struct {
	Name     string        `json:"name"`
	Variants []variantJSON `json:"variants"`
}

type variantJSON struct {
	Brand    string `json:"brand"`
	Variant  string `json:"variant"`
	PriceBar string `json:"price_bar"`
}

type productJSON struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	PriceBar string `json:"price_bar"`
}

type subCategoryJSON struct {
	Name        string          `json:"name"`
	Products    []productJSON   `json:"Suggested_product"`
	Channel     []componentJSON `json:"channel"`
	Accessories []componentJSON `json:"accessories"`
	GridType    []componentJSON `json:"gridtype"`
}

type categoryJSON struct {
	Name          string            `json:"name"`
	SubCategories []subCategoryJSON `json:"sub_categories"`
}

// GET /master-data
func (h *DashboardHandler) MasterData(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.LoadCatalog(r.Context())
	if err != nil {
		storeError(w, h.logger, err, "Failed to load master data")
		return
	}

	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		cat := categoryJSON{Name: c.Name, SubCategories: []subCategoryJSON{}}
		for _, sc := range c.SubCategories {
			sub := subCategoryJSON{
				Name:        sc.Name,
				Products:    []productJSON{},
				Channel:     []componentJSON{},
				Accessories: []componentJSON{},
				GridType:    []componentJSON{},
			}
			for _, p := range sc.Products {
				sub.Products = append(sub.Products, productJSON{Name: p.Name, Price: p.PriceStr.String, PriceBar: p.PriceBar.String})
			}
			for _, comp := range sc.Components {
				entry := componentJSON{Name: comp.Name, Variants: []variantJSON{}}
				for _, v := range comp.Variants {
					entry.Variants = append(entry.Variants, variantJSON{
						Brand:    v.BrandName.String,
						Variant:  v.Variant.String,
						PriceBar: v.PriceRange.String,
					})
				}
				switch comp.Type {
				case models.ComponentChannel:
					sub.Channel = append(sub.Channel, entry)
				case models.ComponentGridType:
					sub.GridType = append(sub.GridType, entry)
				case models.ComponentAccessory:
					sub.Accessories = append(sub.Accessories, entry)
				}
			}
			cat.SubCategories = append(cat.SubCategories, sub)
		}
		out = append(out, cat)
	}

	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"categories": out,
		"sources":    models.LeadSources,
	})
}

// GET /health
func (h *DashboardHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
