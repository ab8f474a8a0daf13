package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stk-crm/internal/models"
)

type fakeDashboard struct {
	sums    []models.LeadFilter
	catalog []models.Category
	pingErr error
}

func (f *fakeDashboard) SumEstimatedCost(_ context.Context, filter models.LeadFilter) (int64, error) {
	f.sums = append(f.sums, filter)
	if filter.CreatedTo.Sub(filter.CreatedFrom) > 48*time.Hour {
		return 420000, nil
	}
	return 35000, nil
}

func (f *fakeDashboard) LoadCatalog(context.Context) ([]models.Category, error) {
	return f.catalog, nil
}

func (f *fakeDashboard) Ping(context.Context) error {
	return f.pingErr
}

func newTestDashboardHandler(store DashboardStore) *DashboardHandler {
	h := NewDashboardHandler(store, testConfig(), nopLogger())
	h.now = clock
	return h
}

func TestMetrics(t *testing.T) {
	store := &fakeDashboard{}
	h := newTestDashboardHandler(store)

	rec := serve(t, h.Metrics, call{path: "/dashboard/metrics", as: seCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Equal(t, float64(50000), body["daily_goal_amount"])
	assert.Equal(t, float64(35000), body["daily_achieved_amount"])
	assert.Equal(t, float64(1500000), body["monthly_goal_amount"])
	assert.Equal(t, float64(420000), body["monthly_achieved_amount"])

	require.Len(t, store.sums, 2)
	for _, f := range store.sums {
		assert.Equal(t, seCaller.UserID, f.SalesExecutiveID)
	}
	assert.Equal(t, day(12, 0), store.sums[0].CreatedFrom)
	assert.Equal(t, day(1, 0), store.sums[1].CreatedFrom)
}

func TestMasterData(t *testing.T) {
	store := &fakeDashboard{catalog: []models.Category{{
		ID:   1,
		Name: "Ceiling",
		SubCategories: []models.SubCategory{{
			ID:   1,
			Name: "Gypsum",
			Products: []models.Product{
				{ID: 1, Name: "Gyproc 12.5mm", PriceStr: ns("695"), PriceBar: ns("650-720")},
			},
			Components: []models.Component{
				{ID: 1, Name: "GI Channel", Type: models.ComponentChannel, Variants: []models.ComponentVariant{
					{ID: 1, BrandName: ns("Saint-Gobain"), Variant: ns("0.5mm"), PriceRange: ns("130-150")},
				}},
				{ID: 2, Name: "Wall angle", Type: models.ComponentAccessory},
				{ID: 3, Name: "Exposed", Type: models.ComponentGridType},
			},
		}},
	}}}
	h := newTestDashboardHandler(store)

	rec := serve(t, h.MasterData, call{path: "/master-data", as: seCaller})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeObject(t, rec)
	assert.Len(t, body["sources"], len(models.LeadSources))

	categories := body["categories"].([]interface{})
	require.Len(t, categories, 1)
	sub := categories[0].(map[string]interface{})["sub_categories"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Gypsum", sub["name"])

	products := sub["Suggested_product"].([]interface{})
	require.Len(t, products, 1)
	assert.Equal(t, "695", products[0].(map[string]interface{})["price"])

	channel := sub["channel"].([]interface{})
	require.Len(t, channel, 1)
	variant := channel[0].(map[string]interface{})["variants"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Saint-Gobain", variant["brand"])
	assert.Equal(t, "130-150", variant["price_bar"])

	assert.Len(t, sub["accessories"], 1)
	assert.Len(t, sub["gridtype"], 1)
}

func TestHealth(t *testing.T) {
	store := &fakeDashboard{}
	h := newTestDashboardHandler(store)

	rec := serve(t, h.Health, call{path: "/health"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeObject(t, rec)["status"])

	store.pingErr = errors.New("connection refused")
	rec = serve(t, h.Health, call{path: "/health"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decodeObject(t, rec)["status"])
}
