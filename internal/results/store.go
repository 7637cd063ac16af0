// Package results holds the state of a results table: the fetched listings,
// their derived costs, the per-row overrides and the filtered, sorted view.
package results

import (
	"context"
	"fmt"
	"slices"

	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// State is the lifecycle state of a Store.
type State int

const (
	StateEmpty State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "empty"
}

// Batch is one search response.
type Batch struct {
	Listings   []listing.Raw
	TotalFound int
	Defaults   tco.Assumptions
	FullSearch bool
}

// Feed produces search responses.
type Feed interface {
	Search(ctx context.Context) (Batch, error)
}

// View is a snapshot of what the table displays.
type View struct {
	State         State
	Message       string
	Rows          []listing.Derived
	Total         int
	TotalFound    int
	FullSearch    bool
	Assumptions   tco.Assumptions
	InvalidFields []string
	Criteria      filter.Criteria
	Sort          sorting.Spec
}

// Shown is the number of rows passing the filter.
func (v View) Shown() int {
	return len(v.Rows)
}

// Summary is the count line under the table; empty when nothing was found.
func (v View) Summary() string {
	if v.Shown() == 0 && v.TotalFound == 0 {
		return ""
	}
	return fmt.Sprintf("Showing %d of %d total listings found by API.", v.Shown(), v.TotalFound)
}

// Store owns the raw listings, the derived rows and the view. Derived rows
// are kept aligned with the raw listings; the view holds indexes into them.
// A Store is not safe for concurrent use; Controller serialises access.
type Store struct {
	engine *tco.Engine

	state      State
	message    string
	raw        []listing.Raw
	derived    []listing.Derived
	index      map[string]int
	view       []int
	totalFound int
	fullSearch bool

	assumptions tco.Assumptions
	criteria    filter.Criteria
	sort        sorting.Spec
}

// NewStore returns an empty store deriving rows with engine.
func NewStore(engine *tco.Engine, assumptions tco.Assumptions) *Store {
	if engine == nil {
		engine = tco.NewEngine(nil)
	}
	return &Store{
		engine:      engine,
		index:       map[string]int{},
		assumptions: assumptions,
		sort:        sorting.DefaultSpec(),
	}
}

// Load replaces every listing with the batch, resets overrides and filter
// criteria, and derives each row with the batch defaults, which become the
// current assumptions. It returns the ids dropped as duplicates.
func (s *Store) Load(b Batch) (duplicates []string) {
	raw := make([]listing.Raw, 0, len(b.Listings))
	index := make(map[string]int, len(b.Listings))
	for _, r := range b.Listings {
		r = listing.Normalize(r)
		if r.ItemID != "" {
			if _, ok := index[r.ItemID]; ok {
				duplicates = append(duplicates, r.ItemID)
				continue
			}
			index[r.ItemID] = len(raw)
		}
		raw = append(raw, r)
	}

	s.state = StateLoaded
	s.message = ""
	s.raw = raw
	s.index = index
	s.totalFound = b.TotalFound
	s.fullSearch = b.FullSearch
	s.assumptions = b.Defaults
	s.criteria = filter.Criteria{}

	s.derived = make([]listing.Derived, len(raw))
	for i, r := range raw {
		s.derived[i] = s.engine.Derive(r, s.assumptions, listing.DefaultOverrides())
	}
	s.refresh()
	return duplicates
}

// Clear empties the store and keeps message for display.
func (s *Store) Clear(message string) {
	s.state = StateEmpty
	s.message = message
	s.raw = nil
	s.derived = nil
	s.index = map[string]int{}
	s.view = nil
	s.totalFound = 0
	s.fullSearch = false
}

// RecalculateAll recomputes every row with a, carrying each row's overrides
// forward by item id, then re-filters and re-sorts.
func (s *Store) RecalculateAll(a tco.Assumptions) {
	previous := make(map[string]listing.Overrides, len(s.derived))
	for _, d := range s.derived {
		if d.ItemID != "" {
			previous[d.ItemID] = d.Overrides
		}
	}

	derived := make([]listing.Derived, len(s.raw))
	for i, r := range s.raw {
		o, ok := previous[r.ItemID]
		if !ok {
			o = listing.DefaultOverrides()
		}
		derived[i] = s.engine.Derive(r, a, o)
	}

	s.assumptions = a
	s.derived = derived
	s.refresh()
}

// RecalculateOne replaces the overrides of one row and recomputes it with
// the current assumptions. The view keeps its order and membership.
func (s *Store) RecalculateOne(itemID string, o listing.Overrides) (listing.Derived, bool) {
	i, ok := s.index[itemID]
	if !ok || itemID == "" {
		return listing.Derived{}, false
	}
	s.derived[i] = s.engine.Derive(s.raw[i], s.assumptions, o)
	return s.derived[i], true
}

// SetCriteria replaces the filter criteria and rebuilds the view.
func (s *Store) SetCriteria(c filter.Criteria) {
	s.criteria = c
	s.refresh()
}

// SetSort replaces the sort spec and re-sorts the view.
func (s *Store) SetSort(spec sorting.Spec) {
	s.sort = spec
	s.sortView()
}

// Sort returns the active sort spec.
func (s *Store) Sort() sorting.Spec {
	return s.sort
}

// Assumptions returns the assumptions the rows were last derived with.
func (s *Store) Assumptions() tco.Assumptions {
	return s.assumptions
}

// Lookup returns the derived row for itemID.
func (s *Store) Lookup(itemID string) (listing.Derived, bool) {
	i, ok := s.index[itemID]
	if !ok {
		return listing.Derived{}, false
	}
	return s.derived[i], true
}

// View copies the displayed rows in display order.
func (s *Store) View() View {
	rows := make([]listing.Derived, len(s.view))
	for i, idx := range s.view {
		rows[i] = s.derived[idx]
	}
	return View{
		State:         s.state,
		Message:       s.message,
		Rows:          rows,
		Total:         len(s.raw),
		TotalFound:    s.totalFound,
		FullSearch:    s.fullSearch,
		Assumptions:   s.assumptions,
		InvalidFields: s.assumptions.InvalidFields(),
		Criteria:      s.criteria,
		Sort:          s.sort,
	}
}

func (s *Store) refresh() {
	s.view = filter.Indexes(s.derived, s.criteria)
	s.sortView()
}

func (s *Store) sortView() {
	slices.SortStableFunc(s.view, func(a, b int) int {
		return sorting.Compare(s.derived[a], s.derived[b], s.sort)
	})
}
