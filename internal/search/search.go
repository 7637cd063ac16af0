// Package search runs the configured marketplace searches and turns them into
// listing batches for the results table.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/ebay"
	"github.com/Simplici0/dealfinder/internal/enrich"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// ErrNoKeywords is returned when the configuration has no search terms.
var ErrNoKeywords = errors.New("no search keywords configured")

// Searcher runs one keyword query against the marketplace.
type Searcher interface {
	Search(ctx context.Context, q ebay.Query) (ebay.Result, error)
}

// DefaultsSource provides the persisted default assumptions.
type DefaultsSource interface {
	Get(ctx context.Context) (tco.Assumptions, bool, error)
}

// SnapshotSink records the listings of a search.
type SnapshotSink interface {
	Upsert(ctx context.Context, items []listing.Derived) (int, error)
}

// Options configures a Service. Defaults and Snapshots are optional.
type Options struct {
	Search    config.SearchConfig
	Fallback  tco.Assumptions
	Defaults  DefaultsSource
	Snapshots SnapshotSink
	Engine    *tco.Engine
	Logger    *zap.Logger
}

// Service searches every configured keyword and enriches the results.
type Service struct {
	searcher  Searcher
	enricher  *enrich.Enricher
	cfg       config.SearchConfig
	fallback  tco.Assumptions
	defaults  DefaultsSource
	snapshots SnapshotSink
	engine    *tco.Engine
	logger    *zap.Logger
}

// New returns a Service.
func New(searcher Searcher, enricher *enrich.Enricher, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = tco.NewEngine(logger)
	}
	return &Service{
		searcher:  searcher,
		enricher:  enricher,
		cfg:       opts.Search,
		fallback:  opts.Fallback,
		defaults:  opts.Defaults,
		snapshots: opts.Snapshots,
		engine:    engine,
		logger:    logger.Named("search"),
	}
}

// Search runs the configured search, honouring the configured full-search switch.
func (s *Service) Search(ctx context.Context) (results.Batch, error) {
	return s.Run(ctx, s.cfg.FullSearch)
}

// FirstPage returns a feed that reads only the first result page of every
// keyword, whatever the configuration says.
func (s *Service) FirstPage() results.Feed {
	return firstPage{s}
}

type firstPage struct{ s *Service }

func (f firstPage) Search(ctx context.Context) (results.Batch, error) {
	return f.s.Run(ctx, false)
}

// Run searches every keyword concurrently, drops items already returned by an
// earlier keyword and enriches the rest in keyword order.
func (s *Service) Run(ctx context.Context, fullSearch bool) (results.Batch, error) {
	terms := s.cfg.Terms()
	if len(terms) == 0 {
		return results.Batch{}, ErrNoKeywords
	}

	found := make([]ebay.Result, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Concurrency, 1))
	for i, term := range terms {
		g.Go(func() error {
			res, err := s.searcher.Search(gctx, ebay.Query{
				Keywords:   term,
				CategoryID: s.cfg.CategoryID,
				MaxPrice:   s.cfg.MaxPrice,
				FullSearch: fullSearch,
			})
			if err != nil {
				return fmt.Errorf("search %q: %w", term, err)
			}
			found[i] = res
			s.logger.Debug("keyword searched",
				zap.String("keyword", term),
				zap.Int("items", len(res.Items)),
				zap.Int("total", res.Total),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results.Batch{}, err
	}

	total := 0
	seen := make(map[string]struct{})
	var items []ebay.ItemSummary
	for _, res := range found {
		total += res.Total
		for _, item := range res.Items {
			if _, dup := seen[item.ItemID]; dup {
				continue
			}
			seen[item.ItemID] = struct{}{}
			items = append(items, item)
		}
	}

	batch := results.Batch{
		Listings:   s.enricher.EnrichAll(items),
		TotalFound: total,
		Defaults:   s.currentDefaults(ctx),
		FullSearch: fullSearch,
	}

	s.logger.Info("search finished",
		zap.Int("keywords", len(terms)),
		zap.Int("total_found", total),
		zap.Int("processed", len(batch.Listings)),
		zap.Bool("full_search", fullSearch),
	)
	s.recordSnapshots(ctx, batch)
	return batch, nil
}

func (s *Service) currentDefaults(ctx context.Context) tco.Assumptions {
	if s.defaults == nil {
		return s.fallback
	}
	a, found, err := s.defaults.Get(ctx)
	if err != nil {
		s.logger.Warn("read stored defaults, using configured values", zap.Error(err))
		return s.fallback
	}
	if !found {
		return s.fallback
	}
	return a
}

func (s *Service) recordSnapshots(ctx context.Context, b results.Batch) {
	if s.snapshots == nil || len(b.Listings) == 0 {
		return
	}
	derived := make([]listing.Derived, len(b.Listings))
	for i, raw := range b.Listings {
		derived[i] = s.engine.Derive(listing.Normalize(raw), b.Defaults, listing.DefaultOverrides())
	}
	n, err := s.snapshots.Upsert(ctx, derived)
	if err != nil {
		s.logger.Warn("store listing snapshots", zap.Error(err))
		return
	}
	s.logger.Debug("listing snapshots stored", zap.Int("rows", n))
}
