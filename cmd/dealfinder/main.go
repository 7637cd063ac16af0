// Command dealfinder runs deal searches, alerts and database maintenance from
// the command line.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/db"
	"github.com/Simplici0/dealfinder/internal/logging"
	"github.com/Simplici0/dealfinder/internal/migrations"
	"github.com/Simplici0/dealfinder/internal/seed"
)

var (
	verbose    bool
	configPath string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dealfinder",
	Short: "Find homelab hardware deals ranked by total cost of ownership",
	Long: `dealfinder searches the marketplace for small form factor PCs, estimates
each listing's total cost of ownership (price, electricity over its lifespan,
shipping and upgrades) and ranks them by performance per dollar.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadPath(configPath)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return err
		}
		for _, w := range cfg.Warnings {
			logger.Debug(w)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $DEALFINDER_CONFIG or ./config.yaml)")

	rootCmd.AddCommand(searchCmd, alertCmd, snapshotsCmd, migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDatabase opens the configured database, applies pending migrations and
// seeds the default assumptions.
func openDatabase(ctx context.Context) (*sql.DB, error) {
	database, err := db.Open(cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}
	if _, err := migrations.Up(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	if _, err := seed.Run(ctx, database, seed.Config{Defaults: cfg.TCOAssumptions}); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
