package enrich

import (
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/benchmarks"
	"github.com/Simplici0/dealfinder/internal/ebay"
	"github.com/Simplici0/dealfinder/internal/listing"
)

// Enricher converts item summaries into listings using the benchmark tables.
type Enricher struct {
	passmark  *benchmarks.Table
	idlePower *benchmarks.Table
	logger    *zap.Logger
}

// NewEnricher returns an Enricher. Nil tables behave as empty ones.
func NewEnricher(passmark, idlePower *benchmarks.Table, logger *zap.Logger) *Enricher {
	if passmark == nil {
		passmark = benchmarks.NewTable()
	}
	if idlePower == nil {
		idlePower = benchmarks.NewTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{passmark: passmark, idlePower: idlePower, logger: logger.Named("enrich")}
}

// Misses collects the CPU models without benchmark data during one run.
type Misses struct {
	Passmark  map[string]struct{}
	IdlePower map[string]struct{}
}

func newMisses() *Misses {
	return &Misses{Passmark: map[string]struct{}{}, IdlePower: map[string]struct{}{}}
}

// EnrichAll converts every item and logs one summary of unknown CPUs.
func (e *Enricher) EnrichAll(items []ebay.ItemSummary) []listing.Raw {
	misses := newMisses()
	out := make([]listing.Raw, len(items))
	for i, item := range items {
		out[i] = e.Enrich(item, misses)
	}

	if len(misses.Passmark) > 0 || len(misses.IdlePower) > 0 {
		e.logger.Info("cpus without benchmark data",
			zap.Strings("passmark", sortedKeys(misses.Passmark)),
			zap.Strings("idle_power", sortedKeys(misses.IdlePower)),
		)
	}
	return out
}

// Enrich converts one item. misses may be nil.
func (e *Enricher) Enrich(item ebay.ItemSummary, misses *Misses) listing.Raw {
	t := ParseTitle(item.Title)

	raw := listing.Raw{
		ItemID:       item.ItemID,
		Title:        item.Title,
		ItemURL:      item.ItemWebURL,
		CPUModel:     t.CPUModel,
		RAM:          t.RAM,
		Storage:      t.Storage,
		Price:        parsePrice(item.Price),
		FreeShipping: freeShipping(item.ShippingOptions),
	}
	if item.Image != nil {
		raw.ImageURL = item.Image.ImageURL
	}

	if !t.Generic() {
		if score, ok := e.performance(t.CPUModel); ok {
			raw.Performance = listing.Float(score)
		} else if misses != nil {
			misses.Passmark[t.CPUModel] = struct{}{}
		}
		if watts, ok := e.idleWatts(t.CPUModel); ok {
			raw.CPUIdlePower = listing.Float(watts)
		} else if misses != nil {
			misses.IdlePower[t.CPUModel] = struct{}{}
		}
	}
	return raw
}

func (e *Enricher) performance(model string) (float64, bool) {
	if v, ok := e.passmark.Get(model); ok {
		return v, true
	}
	if strings.HasPrefix(model, "N") {
		if v, ok := e.passmark.Get("INTEL " + model); ok {
			return v, true
		}
	}
	return e.passmark.Find(model)
}

func (e *Enricher) idleWatts(model string) (float64, bool) {
	if v, ok := e.idlePower.Get(model); ok {
		return v, true
	}
	if v, ok := e.idlePower.Get("INTEL " + model); ok {
		return v, true
	}
	return e.idlePower.Find(model)
}

func parsePrice(a *ebay.Amount) *float64 {
	if a == nil || strings.TrimSpace(a.Value) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		return nil
	}
	return &v
}

func freeShipping(opts []ebay.ShippingOption) bool {
	for _, o := range opts {
		if o.FreeShipping {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
