package search

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/benchmarks"
	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/ebay"
	"github.com/Simplici0/dealfinder/internal/enrich"
	"github.com/Simplici0/dealfinder/internal/repository"
	"github.com/Simplici0/dealfinder/internal/results"
)

// FromConfig wires a Service to the marketplace client, the benchmark tables
// named by cfg and, when db is non-nil, the stored defaults and snapshots.
func FromConfig(cfg config.Config, db *sql.DB, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.RequireEBay(); err != nil {
		return nil, err
	}

	client, err := ebay.NewClient(ebay.Options{
		AppID:   cfg.EBay.AppID,
		CertID:  cfg.EBay.CertID,
		Sandbox: cfg.EBay.Sandbox,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	passmark := benchmarks.LoadPassmark(cfg.Benchmarks.PassmarkPath, logger)
	idle := benchmarks.LoadIdlePower(cfg.Benchmarks.IdlePowerPath, logger)

	opts := Options{
		Search:   cfg.Search,
		Fallback: cfg.TCOAssumptions,
		Logger:   logger,
	}
	if db != nil {
		opts.Defaults = repository.NewDefaults(db)
		opts.Snapshots = repository.NewSnapshots(db)
	}
	return New(client, enrich.NewEnricher(passmark, idle, logger), opts), nil
}

// Unavailable is a feed whose every search fails with Err.
type Unavailable struct {
	Err error
}

func (u Unavailable) Search(context.Context) (results.Batch, error) {
	return results.Batch{}, u.Err
}
