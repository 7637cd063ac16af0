// Package listing defines the hardware listing records shared by the TCO
// engine, the filter and sort engines and the result store.
package listing

import (
	"math"
	"strings"
)

// NA is the display placeholder for absent values.
const NA = "N/A"

// Raw is a listing as delivered by the search feed. It is never mutated after
// ingestion. Empty strings and nil pointers mean "absent".
type Raw struct {
	ItemID       string   `json:"itemId"`
	Title        string   `json:"title"`
	ItemURL      string   `json:"item_url"`
	ImageURL     string   `json:"image_url,omitempty"`
	Price        *float64 `json:"price"`
	CPUModel     string   `json:"cpu_model"`
	CPUIdlePower *float64 `json:"cpu_idle_power"`
	RAM          string   `json:"ram"`
	Storage      string   `json:"storage"`
	Performance  *float64 `json:"performance"`
	FreeShipping bool     `json:"free_shipping"`
}

// Overrides holds the per-listing values a user can set by hand.
type Overrides struct {
	ACAdapterIncluded bool
	Shipping          *float64
}

// DefaultOverrides returns the state every listing starts with: adapter
// included, shipping computed from the assumptions.
func DefaultOverrides() Overrides {
	return Overrides{ACAdapterIncluded: true}
}

// Outcome records whether a TCO could be computed for a listing.
type Outcome int

const (
	OutcomeComputed Outcome = iota
	OutcomeMissingIdlePower
	OutcomeMissingPrice
	OutcomeInvalidInput
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComputed:
		return "computed"
	case OutcomeMissingIdlePower:
		return "missing idle power"
	case OutcomeMissingPrice:
		return "missing price"
	case OutcomeInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Derived is a raw listing plus its override state and computed costs.
// PerformancePerDollar is set only when TCO is set, positive, and the listing
// has a performance score.
type Derived struct {
	Raw
	Overrides            Overrides
	TCO                  *float64
	PerformancePerDollar *float64
	Outcome              Outcome
}

// Normalize collapses the feed's assorted "missing" spellings into empty
// strings and nil pointers. It is applied once, when listings are ingested.
func Normalize(r Raw) Raw {
	r.ItemID = strings.TrimSpace(r.ItemID)
	r.CPUModel = normalizeText(r.CPUModel)
	r.RAM = normalizeText(r.RAM)
	r.Storage = normalizeText(r.Storage)
	r.Price = normalizeNumber(r.Price, true)
	r.CPUIdlePower = normalizeNumber(r.CPUIdlePower, true)
	r.Performance = normalizeNumber(r.Performance, false)
	return r
}

// NormalizeAll applies Normalize to every listing and returns a new slice.
func NormalizeAll(raw []Raw) []Raw {
	out := make([]Raw, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, NA) {
		return ""
	}
	return s
}

func normalizeNumber(v *float64, allowZero bool) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	if !allowZero && *v == 0 {
		return nil
	}
	out := *v
	return &out
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 {
	return &v
}
