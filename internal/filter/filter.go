// Package filter selects the listings shown in the results table.
package filter

import (
	"strings"

	"github.com/Simplici0/dealfinder/internal/cpu"
	"github.com/Simplici0/dealfinder/internal/listing"
)

// Flags are the "hide rows missing X" switches.
type Flags struct {
	HideNoCPUType       bool `json:"hide_no_cpu_type"`
	HideNoCPUModel      bool `json:"hide_no_cpu_model"`
	HideNoRAM           bool `json:"hide_no_ram"`
	HideNoStorage       bool `json:"hide_no_storage"`
	HideNoPerformance   bool `json:"hide_no_performance"`
	HideNoPerfPerDollar bool `json:"hide_no_perf_per_dollar"`
	HideNoFreeShipping  bool `json:"hide_no_free_shipping"`
	HideNoTCO           bool `json:"hide_no_tco"`
}

// Criteria is the full filter state of a results table.
type Criteria struct {
	Query   string `json:"query"`
	Exclude string `json:"exclude"`
	Flags
}

// IsZero reports whether the criteria keep every listing.
func (c Criteria) IsZero() bool {
	return c == Criteria{}
}

// Apply returns the listings matching c, in their original order.
func Apply(items []listing.Derived, c Criteria) []listing.Derived {
	include := Terms(c.Query)
	exclude := Terms(c.Exclude)

	out := make([]listing.Derived, 0, len(items))
	for _, item := range items {
		if Match(item, include, exclude, c.Flags) {
			out = append(out, item)
		}
	}
	return out
}

// Indexes is Apply returning the positions of the matching listings.
func Indexes(items []listing.Derived, c Criteria) []int {
	include := Terms(c.Query)
	exclude := Terms(c.Exclude)

	out := make([]int, 0, len(items))
	for i, item := range items {
		if Match(item, include, exclude, c.Flags) {
			out = append(out, i)
		}
	}
	return out
}

// Terms splits a query into lower-cased whitespace separated terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Match evaluates one listing: exclusions first, then the hide flags, then
// every include term must hit at least one field.
func Match(item listing.Derived, include, exclude []string, flags Flags) bool {
	info := cpu.Classify(item.CPUModel)

	title := strings.ToLower(item.Title)
	cpuType := strings.ToLower(info.Type)
	cpuModel := strings.ToLower(info.Model)
	ram := strings.ToLower(item.RAM)
	storage := strings.ToLower(item.Storage)

	for _, term := range exclude {
		if containsAny(term, title, cpuType, cpuModel, ram, storage) {
			return false
		}
	}

	if !passesFlags(item, info, flags) {
		return false
	}

	if len(include) == 0 {
		return true
	}

	price := ""
	if item.Price != nil {
		price = strings.ToLower(listing.FormatPrice(item.Price))
	}
	perf := listing.FormatNumber(item.Performance)
	ppd := ""
	if item.PerformancePerDollar != nil {
		ppd = strings.ToLower(listing.FormatPerfPerDollar(item.PerformancePerDollar))
	}
	tco := ""
	if item.TCO != nil {
		tco = strings.ToLower(listing.FormatPrice(item.TCO))
	}

	for _, term := range include {
		if !containsAny(term, title, price, perf, ppd, tco, cpuType, cpuModel, ram, storage) {
			return false
		}
	}
	return true
}

func passesFlags(item listing.Derived, info cpu.Info, f Flags) bool {
	switch {
	case f.HideNoCPUType && !cpu.Known(info.Type):
		return false
	case f.HideNoCPUModel && !cpu.Known(info.Model):
		return false
	case f.HideNoRAM && item.RAM == "":
		return false
	case f.HideNoStorage && item.Storage == "":
		return false
	case f.HideNoPerformance && (item.Performance == nil || *item.Performance == 0):
		return false
	case f.HideNoPerfPerDollar && item.PerformancePerDollar == nil:
		return false
	case f.HideNoFreeShipping && !item.FreeShipping:
		return false
	case f.HideNoTCO && item.TCO == nil:
		return false
	}
	return true
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(f, term) {
			return true
		}
	}
	return false
}
