package results

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// ErrStaleGeneration is returned when a search response arrives after a
// newer search was started.
var ErrStaleGeneration = errors.New("stale search generation")

// Controller serialises every operation on a Store and discards search
// responses that were overtaken by a newer search.
type Controller struct {
	mu         sync.Mutex
	store      *Store
	logger     *zap.Logger
	generation uint64
}

// NewController returns a controller over an empty store.
func NewController(engine *tco.Engine, defaults tco.Assumptions, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:  NewStore(engine, defaults),
		logger: logger.Named("results"),
	}
}

// BeginSearch starts a new search and returns its generation. Responses for
// older generations are ignored from now on.
func (c *Controller) BeginSearch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	return c.generation
}

// LoadSearch installs the response of search gen.
func (c *Controller) LoadSearch(gen uint64, b Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Info("discarding stale search response", zap.Uint64("generation", gen), zap.Uint64("current", c.generation))
		return ErrStaleGeneration
	}

	if dups := c.store.Load(b); len(dups) > 0 {
		c.logger.Warn("dropped duplicate listings", zap.Strings("item_ids", dups))
	}
	c.logger.Info("search loaded",
		zap.Uint64("generation", gen),
		zap.Int("listings", len(c.store.raw)),
		zap.Int("total_found", b.TotalFound),
	)
	return nil
}

// FailSearch empties the table after search gen failed.
func (c *Controller) FailSearch(gen uint64, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Info("discarding stale search failure", zap.Uint64("generation", gen), zap.Error(err))
		return ErrStaleGeneration
	}

	c.logger.Error("search failed", zap.Uint64("generation", gen), zap.Error(err))
	c.store.Clear(err.Error())
	return nil
}

// Search runs one search against feed. The lock is not held while the feed
// is queried.
func (c *Controller) Search(ctx context.Context, feed Feed) error {
	gen := c.BeginSearch()

	b, err := feed.Search(ctx)
	if err != nil {
		if ferr := c.FailSearch(gen, err); ferr != nil {
			return ferr
		}
		return fmt.Errorf("search listings: %w", err)
	}
	return c.LoadSearch(gen, b)
}

// RecalculateAll recomputes every row with new assumptions, keeping each
// row's overrides.
func (c *Controller) RecalculateAll(a tco.Assumptions) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if invalid := a.InvalidFields(); len(invalid) > 0 {
		c.logger.Warn("recalculating with invalid assumptions", zap.Strings("fields", invalid))
	}
	c.store.RecalculateAll(a)
	return c.store.View()
}

// RecalculateOne applies overrides to one row. Unknown ids are logged and
// reported through ok.
func (c *Controller) RecalculateOne(itemID string, o listing.Overrides) (listing.Derived, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.store.RecalculateOne(itemID, o)
	if !ok {
		c.logger.Warn("recalculate unknown item", zap.String("item_id", itemID))
	}
	return d, ok
}

// SetCriteria replaces the filter criteria.
func (c *Controller) SetCriteria(cr filter.Criteria) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetCriteria(cr)
	return c.store.View()
}

// SortBy toggles the sort on column.
func (c *Controller) SortBy(column sorting.Column) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetSort(c.store.Sort().Toggle(column))
	return c.store.View()
}

// SetSort replaces the sort spec.
func (c *Controller) SetSort(spec sorting.Spec) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetSort(spec)
	return c.store.View()
}

// View returns the current table.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.View()
}

// Assumptions returns the current assumptions.
func (c *Controller) Assumptions() tco.Assumptions {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store.Assumptions()
}
