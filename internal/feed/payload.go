// Package feed defines the JSON search payload served at /api/search and a
// client that consumes it from another deal finder instance.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/tco"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Payload is the search response body.
type Payload struct {
	Status            string           `json:"status"`
	Listings          []Listing        `json:"listings"`
	TotalFound        int              `json:"total_found"`
	ActuallyProcessed int              `json:"actually_processed"`
	FullSearchEnabled bool             `json:"full_search_enabled"`
	TCODefaults       *tco.Assumptions `json:"tco_defaults,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// Listing is one listing on the wire, with its TCO under the default assumptions.
type Listing struct {
	ItemID               string `json:"itemId"`
	Title                string `json:"title"`
	ItemURL              string `json:"item_url"`
	ImageURL             string `json:"image_url,omitempty"`
	Price                Number `json:"price"`
	CPUModel             string `json:"cpu_model"`
	CPUIdlePower         Number `json:"cpu_idle_power"`
	RAM                  string `json:"ram"`
	Storage              string `json:"storage"`
	Performance          Number `json:"performance"`
	FreeShipping         bool   `json:"free_shipping"`
	TCO                  Number `json:"tco"`
	PerformancePerDollar Number `json:"performance_per_dollar"`
}

// Raw returns the listing without its computed fields.
func (l Listing) Raw() listing.Raw {
	return listing.Raw{
		ItemID:       l.ItemID,
		Title:        l.Title,
		ItemURL:      l.ItemURL,
		ImageURL:     l.ImageURL,
		Price:        l.Price.Value,
		CPUModel:     l.CPUModel,
		CPUIdlePower: l.CPUIdlePower.Value,
		RAM:          l.RAM,
		Storage:      l.Storage,
		Performance:  l.Performance.Value,
		FreeShipping: l.FreeShipping,
	}
}

// NewPayload builds a success payload for b, computing each listing's TCO
// with the batch defaults and default overrides.
func NewPayload(b results.Batch, engine *tco.Engine) Payload {
	defaults := b.Defaults
	p := Payload{
		Status:            StatusSuccess,
		Listings:          make([]Listing, 0, len(b.Listings)),
		TotalFound:        b.TotalFound,
		ActuallyProcessed: len(b.Listings),
		FullSearchEnabled: b.FullSearch,
		TCODefaults:       &defaults,
	}
	for _, raw := range b.Listings {
		d := engine.Derive(listing.Normalize(raw), b.Defaults, listing.DefaultOverrides())
		p.Listings = append(p.Listings, Listing{
			ItemID:               raw.ItemID,
			Title:                raw.Title,
			ItemURL:              raw.ItemURL,
			ImageURL:             raw.ImageURL,
			Price:                Number{raw.Price},
			CPUModel:             orNA(raw.CPUModel),
			CPUIdlePower:         Number{raw.CPUIdlePower},
			RAM:                  orNA(raw.RAM),
			Storage:              orNA(raw.Storage),
			Performance:          Number{raw.Performance},
			FreeShipping:         raw.FreeShipping,
			TCO:                  Number{d.TCO},
			PerformancePerDollar: Number{d.PerformancePerDollar},
		})
	}
	return p
}

// ErrorPayload is the body sent when a search fails.
func ErrorPayload(err error) Payload {
	return Payload{Status: StatusError, Listings: []Listing{}, Message: err.Error()}
}

// Batch converts a success payload back into a results batch. fallback is
// used when the payload carries no defaults.
func (p Payload) Batch(fallback tco.Assumptions) results.Batch {
	b := results.Batch{
		Listings:   make([]listing.Raw, len(p.Listings)),
		TotalFound: p.TotalFound,
		Defaults:   fallback,
		FullSearch: p.FullSearchEnabled,
	}
	for i, l := range p.Listings {
		b.Listings[i] = l.Raw()
	}
	if p.TCODefaults != nil {
		b.Defaults = p.TCODefaults.Normalize()
	}
	return b
}

func orNA(s string) string {
	if s == "" {
		return listing.NA
	}
	return s
}

// Number is an optional numeric field. It encodes as a JSON number or null and
// decodes numbers, numeric strings such as "$1,299.00", null and "N/A".
// Strings that are not numeric decode as absent.
type Number struct {
	Value *float64
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.Value == nil || math.IsNaN(*n.Value) || math.IsInf(*n.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode number string: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, listing.NA) {
			n.Value = nil
			return nil
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", ""), 64)
		if err != nil {
			n.Value = nil
			return nil
		}
		n.Value = &v
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	n.Value = &v
	return nil
}
