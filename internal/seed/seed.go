package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Simplici0/dealfinder/internal/repository"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// Config contains the values required by startup seed.
type Config struct {
	Defaults tco.Assumptions
	// Overwrite replaces stored defaults that differ from Defaults.
	Overwrite bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureDefaults(ctx, tx, cfg, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureDefaults(ctx context.Context, tx *sql.Tx, cfg Config, stats *Stats) error {
	defaults := repository.NewDefaults(tx)

	inserted, err := defaults.Ensure(ctx, cfg.Defaults)
	if err != nil {
		return fmt.Errorf("seed tco defaults: %w", err)
	}
	if inserted {
		stats.Inserts++
		return nil
	}
	if !cfg.Overwrite {
		return nil
	}

	updated, err := defaults.Update(ctx, cfg.Defaults)
	if err != nil {
		return fmt.Errorf("overwrite tco defaults: %w", err)
	}
	if updated {
		stats.Updates++
	}
	return nil
}
