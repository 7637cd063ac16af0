// Package sorting orders results table rows by a column.
package sorting

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/Simplici0/dealfinder/internal/capacity"
	"github.com/Simplici0/dealfinder/internal/cpu"
	"github.com/Simplici0/dealfinder/internal/listing"
)

// Column identifies a sortable table column.
type Column string

const (
	ColumnTitle                Column = "title"
	ColumnPrice                Column = "price"
	ColumnCPUType              Column = "cpu_type"
	ColumnCPUModel             Column = "cpu_model"
	ColumnPerformance          Column = "performance"
	ColumnRAM                  Column = "ram"
	ColumnStorage              Column = "storage"
	ColumnFreeShipping         Column = "free_shipping"
	ColumnTCO                  Column = "tco"
	ColumnPerformancePerDollar Column = "performance_per_dollar"
)

// Columns lists every sortable column in table order.
var Columns = []Column{
	ColumnTitle, ColumnPrice, ColumnCPUType, ColumnCPUModel, ColumnPerformance,
	ColumnRAM, ColumnStorage, ColumnFreeShipping, ColumnTCO, ColumnPerformancePerDollar,
}

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Spec is the active sort column and direction.
type Spec struct {
	Column Column `json:"column"`
	Order  Order  `json:"order"`
}

// DefaultSpec sorts by price, cheapest first.
func DefaultSpec() Spec {
	return Spec{Column: ColumnPrice, Order: Asc}
}

// Toggle returns the spec after a click on column's header: the active column
// flips direction, any other column becomes active in ascending order.
func (s Spec) Toggle(column Column) Spec {
	if s.Column == column {
		if s.Order == Asc {
			return Spec{Column: column, Order: Desc}
		}
		return Spec{Column: column, Order: Asc}
	}
	return Spec{Column: column, Order: Asc}
}

// ParseColumn validates a column name.
func ParseColumn(name string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(Columns, c) {
		return c, nil
	}
	return "", fmt.Errorf("unknown sort column %q", name)
}

// ParseOrder validates a sort direction.
func ParseOrder(name string) (Order, error) {
	switch o := Order(strings.ToLower(strings.TrimSpace(name))); o {
	case Asc, Desc:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", name)
}

// Sort orders items in place. Equal keys keep their relative order.
func Sort(items []listing.Derived, spec Spec) {
	slices.SortStableFunc(items, func(a, b listing.Derived) int {
		return Compare(a, b, spec)
	})
}

// Compare orders two rows under spec.
func Compare(a, b listing.Derived, spec Spec) int {
	dir := 1
	if spec.Order == Desc {
		dir = -1
	}

	switch spec.Column {
	case ColumnPrice:
		return compareNumber(a.Price, b.Price, dir)
	case ColumnPerformance:
		return compareNumber(a.Performance, b.Performance, dir)
	case ColumnTCO:
		return compareNumber(a.TCO, b.TCO, dir)
	case ColumnPerformancePerDollar:
		return compareNumber(a.PerformancePerDollar, b.PerformancePerDollar, dir)
	case ColumnRAM:
		return compareCapacity(a.RAM, b.RAM, dir)
	case ColumnStorage:
		return compareCapacity(a.Storage, b.Storage, dir)
	case ColumnFreeShipping:
		return compareBool(a.FreeShipping, b.FreeShipping, dir)
	case ColumnCPUType:
		return compareText(cpu.Classify(a.CPUModel).Type, cpu.Classify(b.CPUModel).Type, dir)
	case ColumnCPUModel:
		return compareCPUModel(cpu.Classify(a.CPUModel).Model, cpu.Classify(b.CPUModel).Model, dir)
	default:
		return compareText(a.Title, b.Title, dir)
	}
}

// compareNumber places absent values after every present value in both
// directions.
func compareNumber(a, b *float64, dir int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return dir * cmp.Compare(*a, *b)
}

func compareCapacity(a, b string, dir int) int {
	if c, ok := compareNulls(a, b, dir); ok {
		return c
	}
	return dir * cmp.Compare(capacity.ParseGB(a), capacity.ParseGB(b))
}

func compareBool(a, b bool, dir int) int {
	switch {
	case a == b:
		return 0
	case a:
		return -dir
	default:
		return dir
	}
}

func compareText(a, b string, dir int) int {
	if c, ok := compareNulls(a, b, dir); ok {
		return c
	}
	return dir * strings.Compare(a, b)
}

func compareCPUModel(a, b string, dir int) int {
	if c, ok := compareNulls(a, b, dir); ok {
		return c
	}

	an, bn := digits(a), digits(b)
	switch {
	case an == 0 && bn == 0:
		return dir * strings.Compare(a, b)
	case an == 0:
		return dir
	case bn == 0:
		return -dir
	}
	return dir * cmp.Compare(an, bn)
}

// compareNulls applies the general rule for absent values: last when
// ascending, first when descending. ok is false when both values are present.
func compareNulls(a, b string, dir int) (int, bool) {
	an, bn := isNull(a), isNull(b)
	switch {
	case an && bn:
		return 0, true
	case an:
		return dir, true
	case bn:
		return -dir, true
	}
	return 0, false
}

func isNull(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == listing.NA
}

// digits strips every non-digit from v and parses the rest; no digits is 0.
func digits(v string) int {
	var sb strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0
	}
	return n
}
