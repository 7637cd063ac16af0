// Package tco computes the total cost of ownership of a hardware listing.
package tco

import (
	"math"
	"strings"

	"github.com/Simplici0/dealfinder/internal/capacity"
	"github.com/Simplici0/dealfinder/internal/listing"
)

// ACAdapterCost is added when a listing ships without its power adapter.
const ACAdapterCost = 10.0

const hoursPerYear = 24 * 365

// Assumptions are the global economic parameters shared by every listing.
type Assumptions struct {
	KWhCost                float64 `json:"kwh_cost" yaml:"kwh_cost"`
	LifespanYears          float64 `json:"lifespan_years" yaml:"lifespan_years"`
	ShippingCostTCPU       float64 `json:"shipping_cost_t_cpu" yaml:"shipping_cost_t_cpu"`
	ShippingCostNonTCPU    float64 `json:"shipping_cost_non_t_cpu" yaml:"shipping_cost_non_t_cpu"`
	RequiredRAMGB          float64 `json:"required_ram_gb" yaml:"required_ram_gb"`
	RAMUpgradeFlatCost     float64 `json:"ram_upgrade_flat_cost" yaml:"ram_upgrade_flat_cost"`
	RequiredStorageGB      float64 `json:"required_storage_gb" yaml:"required_storage_gb"`
	StorageUpgradeFlatCost float64 `json:"storage_upgrade_flat_cost" yaml:"storage_upgrade_flat_cost"`
}

// EffectiveLifespanYears is the lifespan used for energy math, floored at one year.
func (a Assumptions) EffectiveLifespanYears() float64 {
	if a.LifespanYears < 1 {
		return 1
	}
	return a.LifespanYears
}

// Normalize truncates the whole-number assumptions (lifespan and the GB
// requirements). Every source of assumptions passes through it.
func (a Assumptions) Normalize() Assumptions {
	a.LifespanYears = math.Trunc(a.LifespanYears)
	a.RequiredRAMGB = math.Trunc(a.RequiredRAMGB)
	a.RequiredStorageGB = math.Trunc(a.RequiredStorageGB)
	return a
}

// Breakdown contains every line item summed into the TCO.
type Breakdown struct {
	Price            float64
	EnergyCost       float64
	ShippingCost     float64
	RAMShortfall     float64
	StorageShortfall float64
	ACAdapterCost    float64

	LifespanYears float64
	RAMGB         int
	StorageGB     int
}

// Total sums the breakdown's line items.
func (b Breakdown) Total() float64 {
	return b.Price + b.EnergyCost + b.ShippingCost + b.RAMShortfall + b.StorageShortfall + b.ACAdapterCost
}

// Result is the outcome of one TCO calculation. TCO and PerformancePerDollar
// are nil unless Outcome is listing.OutcomeComputed.
type Result struct {
	Outcome              listing.Outcome
	Breakdown            Breakdown
	TCO                  *float64
	PerformancePerDollar *float64
}

// Computable reports whether a TCO was produced.
func (r Result) Computable() bool {
	return r.Outcome == listing.OutcomeComputed
}

// Calculate computes the TCO of item under the given assumptions and overrides.
// It has no side effects.
func Calculate(item listing.Raw, a Assumptions, o listing.Overrides) Result {
	if item.CPUIdlePower == nil {
		return Result{Outcome: listing.OutcomeMissingIdlePower}
	}
	if item.Price == nil {
		return Result{Outcome: listing.OutcomeMissingPrice}
	}

	lifespan := a.EffectiveLifespanYears()
	b := Breakdown{
		Price:         *item.Price,
		EnergyCost:    (*item.CPUIdlePower / 1000) * hoursPerYear * lifespan * a.KWhCost,
		ShippingCost:  shippingCost(item, a, o),
		LifespanYears: lifespan,
		RAMGB:         capacity.ParseGB(item.RAM),
		StorageGB:     capacity.ParseGB(item.Storage),
	}

	// A malformed requirement compares false and adds no upgrade cost.
	if float64(b.RAMGB) < a.RequiredRAMGB {
		b.RAMShortfall = a.RAMUpgradeFlatCost
	}
	if float64(b.StorageGB) < a.RequiredStorageGB {
		b.StorageShortfall = a.StorageUpgradeFlatCost
	}
	if !o.ACAdapterIncluded {
		b.ACAdapterCost = ACAdapterCost
	}

	total := b.Total()
	if !finite(total) {
		return Result{Outcome: listing.OutcomeInvalidInput, Breakdown: b}
	}

	res := Result{Outcome: listing.OutcomeComputed, Breakdown: b, TCO: &total}
	if item.Performance != nil && total > 0 {
		ppd := *item.Performance / total
		if finite(ppd) {
			res.PerformancePerDollar = &ppd
		}
	}
	return res
}

func shippingCost(item listing.Raw, a Assumptions, o listing.Overrides) float64 {
	if o.Shipping != nil {
		return *o.Shipping
	}
	if item.FreeShipping {
		return 0
	}
	if strings.HasSuffix(strings.ToUpper(item.CPUModel), "T") {
		return a.ShippingCostTCPU
	}
	return a.ShippingCostNonTCPU
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
