package tco

import (
	"math"
	"strconv"
	"strings"

	"github.com/Simplici0/dealfinder/internal/listing"
)

// Field names shared by the assumptions form, the JSON feed and the config file.
const (
	FieldKWhCost                = "kwh_cost"
	FieldLifespanYears          = "lifespan_years"
	FieldShippingCostTCPU       = "shipping_cost_t_cpu"
	FieldShippingCostNonTCPU    = "shipping_cost_non_t_cpu"
	FieldRequiredRAMGB          = "required_ram_gb"
	FieldRAMUpgradeFlatCost     = "ram_upgrade_flat_cost"
	FieldRequiredStorageGB      = "required_storage_gb"
	FieldStorageUpgradeFlatCost = "storage_upgrade_flat_cost"
)

// Fields lists the assumption fields in form order.
var Fields = []string{
	FieldKWhCost, FieldLifespanYears, FieldShippingCostTCPU, FieldShippingCostNonTCPU,
	FieldRequiredRAMGB, FieldRAMUpgradeFlatCost, FieldRequiredStorageGB, FieldStorageUpgradeFlatCost,
}

// ParseAssumptions reads the eight assumption fields through get. Fields that
// are not numeric are stored as NaN and reported in invalid. The result is
// normalized.
func ParseAssumptions(get func(string) string) (a Assumptions, invalid []string) {
	parse := func(field string) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(get(field)), 64)
		if err != nil || math.IsInf(v, 0) {
			invalid = append(invalid, field)
			return math.NaN()
		}
		return v
	}

	a = Assumptions{
		KWhCost:                parse(FieldKWhCost),
		LifespanYears:          parse(FieldLifespanYears),
		ShippingCostTCPU:       parse(FieldShippingCostTCPU),
		ShippingCostNonTCPU:    parse(FieldShippingCostNonTCPU),
		RequiredRAMGB:          parse(FieldRequiredRAMGB),
		RAMUpgradeFlatCost:     parse(FieldRAMUpgradeFlatCost),
		RequiredStorageGB:      parse(FieldRequiredStorageGB),
		StorageUpgradeFlatCost: parse(FieldStorageUpgradeFlatCost),
	}
	return a.Normalize(), invalid
}

// Values returns the assumptions keyed by form field name.
func (a Assumptions) Values() map[string]float64 {
	return map[string]float64{
		FieldKWhCost:                a.KWhCost,
		FieldLifespanYears:          a.LifespanYears,
		FieldShippingCostTCPU:       a.ShippingCostTCPU,
		FieldShippingCostNonTCPU:    a.ShippingCostNonTCPU,
		FieldRequiredRAMGB:          a.RequiredRAMGB,
		FieldRAMUpgradeFlatCost:     a.RAMUpgradeFlatCost,
		FieldRequiredStorageGB:      a.RequiredStorageGB,
		FieldStorageUpgradeFlatCost: a.StorageUpgradeFlatCost,
	}
}

// InvalidFields returns, in form order, the fields holding a non-finite value.
func (a Assumptions) InvalidFields() []string {
	values := a.Values()
	var out []string
	for _, f := range Fields {
		if !finite(values[f]) {
			out = append(out, f)
		}
	}
	return out
}

// ParseOverrides builds a row's override state from its checkbox and inline
// shipping field. An empty shipping field clears the override; a malformed one
// is kept as NaN so that only this row becomes invalid.
func ParseOverrides(acAdapterIncluded bool, shipping string) listing.Overrides {
	o := listing.Overrides{ACAdapterIncluded: acAdapterIncluded}

	shipping = strings.TrimSpace(shipping)
	if shipping == "" {
		return o
	}
	v, err := strconv.ParseFloat(shipping, 64)
	if err != nil {
		v = math.NaN()
	}
	o.Shipping = &v
	return o
}
