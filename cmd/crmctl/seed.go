package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stk-crm/internal/auth"
	"stk-crm/internal/config"
	"stk-crm/internal/models"
)

func runSeedDirector(cmd *cobra.Command, _ []string) error {
	return withStore(cmd.Context(), func(ctx context.Context, store *models.Store, cfg *config.Config, logger *zap.Logger) error {
		created, err := auth.EnsureDirector(ctx, store, cfg.DirectorUsername, cfg.DirectorPassword)
		if err != nil {
			return err
		}
		if created {
			logger.Info("created director account", zap.String("username", cfg.DirectorUsername))
		} else {
			logger.Info("director account already exists", zap.String("username", cfg.DirectorUsername))
		}
		return nil
	})
}

func runSeedDemo(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	confirm, _ := flags.GetBool("confirm")
	stores, _ := flags.GetStringSlice("stores")
	executives, _ := flags.GetInt("executives")
	leadsPer, _ := flags.GetInt("leads")
	password, _ := flags.GetString("password")

	if os.Getenv("APP_ENV") != "development" {
		return errors.New("seed-demo only runs with APP_ENV=development")
	}
	if !confirm {
		return errors.New("--confirm is required to run seed-demo")
	}

	return withStore(cmd.Context(), func(ctx context.Context, store *models.Store, _ *config.Config, logger *zap.Logger) error {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		if err := store.CreateCategory(ctx, demoCatalog()); err != nil {
			if !errors.Is(err, models.ErrDuplicate) {
				return err
			}
			logger.Info("demo catalog already present")
		}

		for _, name := range stores {
			for _, table := range []models.Table{models.TableTeamLeads, models.TableStoreManagers} {
				st, err := store.CreateStaff(ctx, table, fmt.Sprintf("Demo %s %s", roleLabel(table), name), hash, name)
				if err != nil {
					return err
				}
				logger.Info("created staff", zap.String("staff_id", st.StaffID), zap.String("store", name))
			}

			for i := 1; i <= executives; i++ {
				se, err := store.CreateSalesExecutive(ctx, fmt.Sprintf("Demo Executive %d", i), hash, name)
				if err != nil {
					return err
				}
				logger.Info("created sales executive", zap.String("username", se.Username), zap.String("store", name))

				for j := 0; j < leadsPer; j++ {
					if err := store.CreateLead(ctx, demoLead(se, j)); err != nil {
						return err
					}
				}
			}
		}

		logger.Info("demo data seeded",
			zap.Strings("stores", stores),
			zap.Int("executives_per_store", executives),
			zap.Int("leads_per_executive", leadsPer),
		)
		return nil
	})
}

func roleLabel(table models.Table) string {
	if table == models.TableStoreManagers {
		return "Store Manager"
	}
	return "Team Lead"
}

func demoLead(se *models.User, n int) *models.Lead {
	sources := models.LeadSources
	return &models.Lead{
		LeadCreatedAt:    time.Now().Add(-time.Duration(n) * 24 * time.Hour),
		CustomerName:     fmt.Sprintf("Customer %s-%d", se.Username, n+1),
		Phone:            fmt.Sprintf("98950%05d", se.ID*100+int64(n)),
		Source:           sql.NullString{String: sources[n%len(sources)], Valid: true},
		Location:         se.StoreAssigned,
		ProjectType:      sql.NullString{String: "Residential", Valid: true},
		AreaSqft:         sql.NullInt64{Int64: int64(400 + 150*n), Valid: true},
		SalesExecutiveID: se.ID,
	}
}

func demoCatalog() *models.Category {
	str := func(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
	return &models.Category{
		Name: "Gypsum Ceiling",
		SubCategories: []models.SubCategory{{
			Name: "Gypsum Board",
			Products: []models.Product{
				{Name: "Gyproc 12.5mm", PriceStr: str("695"), PriceBar: str("650-720")},
				{Name: "Saint-Gobain Moisture Resistant", PriceStr: str("890"), PriceBar: str("850-920")},
			},
			Components: []models.Component{
				{Name: "GI Channel", Type: models.ComponentChannel, Variants: []models.ComponentVariant{
					{BrandName: str("Saint-Gobain"), Variant: str("0.5mm"), PriceRange: str("130-150")},
					{BrandName: str("Saint-Gobain"), Variant: str("0.8mm"), PriceRange: str("170-190")},
				}},
				{Name: "Wall angle", Type: models.ComponentAccessory},
				{Name: "Exposed", Type: models.ComponentGridType},
				{Name: "Concealed", Type: models.ComponentGridType},
			},
		}},
	}
}
