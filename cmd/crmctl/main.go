// Command crmctl runs administrative tasks against the CRM database.
//
// Usage:
//
//	crmctl migrate
//	crmctl seed-director
//	APP_ENV=development crmctl seed-demo --stores Palakkad,Ernakulam --confirm
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stk-crm/internal/config"
	"stk-crm/internal/db"
	"stk-crm/internal/models"
)

var rootCmd = &cobra.Command{
	Use:           "crmctl",
	Short:         "Administrative tasks for the CRM backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, _ *models.Store, _ *config.Config, logger *zap.Logger) error {
			return db.RunMigrations(ctx, logger)
		})
	},
}

var seedDirectorCmd = &cobra.Command{
	Use:   "seed-director",
	Short: "Create the director account from DIRECTOR_USERNAME and DIRECTOR_PASSWORD",
	RunE:  runSeedDirector,
}

var seedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Populate a development database with demo staff, catalog and leads",
	Long: `Populate a development database with demo data.

Only runs when APP_ENV=development and --confirm is given. Creates a sample
catalog, one team lead and one store manager per store, and the requested
number of sales executives per store, each with a few open leads.`,
	RunE: runSeedDemo,
}

func init() {
	seedDemoCmd.Flags().StringSlice("stores", []string{"Palakkad"}, "stores to create staff for")
	seedDemoCmd.Flags().Int("executives", 2, "sales executives per store")
	seedDemoCmd.Flags().Int("leads", 3, "demo leads per sales executive")
	seedDemoCmd.Flags().String("password", "password123", "password for every seeded account")
	seedDemoCmd.Flags().Bool("confirm", false, "confirm seeding (required)")

	rootCmd.AddCommand(migrateCmd, seedDirectorCmd, seedDemoCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withStore loads config, connects to the database and hands fn a store.
func withStore(ctx context.Context, fn func(context.Context, *models.Store, *config.Config, *zap.Logger) error) error {
	cfg := config.Load()
	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := db.Connect(ctx, cfg.DatabaseURL, logger); err != nil {
		return err
	}
	defer db.Close()

	return fn(ctx, models.NewStore(db.DB), cfg, logger)
}
