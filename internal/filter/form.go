package filter

import "strings"

// Flag form field names.
const (
	FieldHideNoCPUType       = "hide_no_cpu_type"
	FieldHideNoCPUModel      = "hide_no_cpu_model"
	FieldHideNoRAM           = "hide_no_ram"
	FieldHideNoStorage       = "hide_no_storage"
	FieldHideNoPerformance   = "hide_no_performance"
	FieldHideNoPerfPerDollar = "hide_no_perf_per_dollar"
	FieldHideNoFreeShipping  = "hide_no_free_shipping"
	FieldHideNoTCO           = "hide_no_tco"
)

// FlagField describes one hide switch for forms and command-line flags.
type FlagField struct {
	Name  string
	Label string
}

// FlagFields lists the hide switches in display order.
var FlagFields = []FlagField{
	{Name: FieldHideNoCPUType, Label: "Hide N/A CPU Type"},
	{Name: FieldHideNoCPUModel, Label: "Hide N/A CPU Model"},
	{Name: FieldHideNoRAM, Label: "Hide N/A RAM"},
	{Name: FieldHideNoStorage, Label: "Hide N/A Storage"},
	{Name: FieldHideNoPerformance, Label: "Hide N/A Performance"},
	{Name: FieldHideNoPerfPerDollar, Label: "Hide N/A Perf/$"},
	{Name: FieldHideNoFreeShipping, Label: "Hide without free shipping"},
	{Name: FieldHideNoTCO, Label: "Hide N/A TCO"},
}

// Get returns the switch named name.
func (f Flags) Get(name string) bool {
	if p := f.field(name); p != nil {
		return *p
	}
	return false
}

// Set turns the switch named name on or off. Unknown names are ignored.
func (f *Flags) Set(name string, on bool) {
	if p := f.field(name); p != nil {
		*p = on
	}
}

func (f *Flags) field(name string) *bool {
	switch name {
	case FieldHideNoCPUType:
		return &f.HideNoCPUType
	case FieldHideNoCPUModel:
		return &f.HideNoCPUModel
	case FieldHideNoRAM:
		return &f.HideNoRAM
	case FieldHideNoStorage:
		return &f.HideNoStorage
	case FieldHideNoPerformance:
		return &f.HideNoPerformance
	case FieldHideNoPerfPerDollar:
		return &f.HideNoPerfPerDollar
	case FieldHideNoFreeShipping:
		return &f.HideNoFreeShipping
	case FieldHideNoTCO:
		return &f.HideNoTCO
	default:
		return nil
	}
}

// ParseCriteria reads the filter form through get. A switch is on when its
// field is "on", "1" or "true".
func ParseCriteria(get func(string) string) Criteria {
	c := Criteria{
		Query:   strings.TrimSpace(get("query")),
		Exclude: strings.TrimSpace(get("exclude")),
	}
	for _, f := range FlagFields {
		switch strings.ToLower(strings.TrimSpace(get(f.Name))) {
		case "on", "1", "true":
			c.Flags.Set(f.Name, true)
		}
	}
	return c
}
