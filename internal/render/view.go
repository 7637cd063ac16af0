package render

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Simplici0/dealfinder/internal/cpu"
	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// Row is one rendered table row.
type Row struct {
	ItemID            string
	ItemPath          string
	Title             string
	URL               string
	ImageURL          string
	Price             string
	CPUType           string
	CPUModel          string
	Performance       string
	RAM               string
	Storage           string
	ACAdapterIncluded bool
	FreeShipping      bool
	Shipping          string
	HasShipping       bool
	TCO               string
	PerfPerDollar     string
	Invalid           bool
}

// NewRow formats d for display.
func NewRow(d listing.Derived) Row {
	info := cpu.Classify(d.CPUModel)
	r := Row{
		ItemID:            d.ItemID,
		ItemPath:          url.PathEscape(d.ItemID),
		Title:             d.Title,
		URL:               SanitizeURL(d.ItemURL),
		Price:             listing.FormatPrice(d.Price),
		CPUType:           info.Type,
		CPUModel:          DisplayCPUModel(d.Title, info),
		Performance:       FormatPerformance(d.Performance),
		RAM:               orNA(d.RAM),
		Storage:           orNA(d.Storage),
		ACAdapterIncluded: d.Overrides.ACAdapterIncluded,
		FreeShipping:      d.FreeShipping,
		TCO:               d.TCOText(),
		PerfPerDollar:     d.PerfPerDollarText(),
		Invalid:           d.Outcome == listing.OutcomeInvalidInput,
	}
	if d.ImageURL != "" {
		if u := SanitizeURL(d.ImageURL); u != "#" {
			r.ImageURL = u
		}
	}
	if d.Overrides.Shipping != nil {
		r.HasShipping = true
		r.Shipping = listing.FormatNumber(d.Overrides.Shipping)
	}
	return r
}

// Rows formats every row of v.
func Rows(v results.View) []Row {
	out := make([]Row, len(v.Rows))
	for i, d := range v.Rows {
		out[i] = NewRow(d)
	}
	return out
}

// SanitizeURL returns raw when it is an absolute http or https URL and "#"
// otherwise.
func SanitizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return "#"
	}
}

// DisplayCPUModel is the CPU model cell: N/A for unknown models and "None"
// when the title says the machine ships without a processor.
func DisplayCPUModel(title string, info cpu.Info) string {
	if !cpu.Known(info.Model) {
		return cpu.NA
	}
	lower := strings.ToLower(title)
	if strings.Contains(lower, "no cpu") || strings.Contains(lower, "without cpu") {
		return "None"
	}
	return info.Model
}

// FormatPerformance renders a benchmark score with thousands separators.
func FormatPerformance(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) {
		return listing.NA
	}
	return humanize.Commaf(*v)
}

func orNA(s string) string {
	if s == "" {
		return listing.NA
	}
	return s
}

// Header is a table column header.
type Header struct {
	Column   sorting.Column
	Label    string
	Sortable bool
	Active   bool
	Arrow    string
}

var columnLabels = map[sorting.Column]string{
	sorting.ColumnTitle:                "Title",
	sorting.ColumnPrice:                "Price",
	sorting.ColumnCPUType:              "CPU Type",
	sorting.ColumnCPUModel:             "CPU Model",
	sorting.ColumnPerformance:          "Performance",
	sorting.ColumnRAM:                  "RAM",
	sorting.ColumnStorage:              "Storage",
	sorting.ColumnFreeShipping:         "Free Shipping",
	sorting.ColumnTCO:                  "TCO",
	sorting.ColumnPerformancePerDollar: "Perf/$",
}

// Headers returns the table headers with the active sort marked.
func Headers(spec sorting.Spec) []Header {
	out := make([]Header, 0, len(sorting.Columns)+1)
	for _, c := range sorting.Columns {
		if c == sorting.ColumnFreeShipping {
			out = append(out, Header{Label: "AC Adapter"})
		}
		h := Header{Column: c, Label: columnLabels[c], Sortable: true}
		if c == spec.Column {
			h.Active = true
			h.Arrow = "▲"
			if spec.Order == sorting.Desc {
				h.Arrow = "▼"
			}
		}
		out = append(out, h)
	}
	return out
}

// AssumptionField is one input of the assumptions form.
type AssumptionField struct {
	Name    string
	Label   string
	Value   string
	Step    string
	Invalid bool
}

var assumptionLabels = map[string]string{
	tco.FieldKWhCost:                "Electricity cost ($/kWh)",
	tco.FieldLifespanYears:          "Lifespan (years)",
	tco.FieldShippingCostTCPU:       "Shipping, T-series CPU ($)",
	tco.FieldShippingCostNonTCPU:    "Shipping, other CPU ($)",
	tco.FieldRequiredRAMGB:          "Required RAM (GB)",
	tco.FieldRAMUpgradeFlatCost:     "RAM upgrade cost ($)",
	tco.FieldRequiredStorageGB:      "Required storage (GB)",
	tco.FieldStorageUpgradeFlatCost: "Storage upgrade cost ($)",
}

// AssumptionFields returns the form inputs for a, in form order.
func AssumptionFields(a tco.Assumptions) []AssumptionField {
	values := a.Values()
	out := make([]AssumptionField, 0, len(tco.Fields))
	for _, name := range tco.Fields {
		f := AssumptionField{Name: name, Label: assumptionLabels[name], Step: "1"}
		switch name {
		case tco.FieldKWhCost, tco.FieldShippingCostTCPU, tco.FieldShippingCostNonTCPU,
			tco.FieldRAMUpgradeFlatCost, tco.FieldStorageUpgradeFlatCost:
			f.Step = "0.01"
		}
		v := values[name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			f.Invalid = true
		} else {
			f.Value = strconv.FormatFloat(v, 'f', -1, 64)
		}
		out = append(out, f)
	}
	return out
}

// FlagInput is one hide switch checkbox.
type FlagInput struct {
	Name    string
	Label   string
	Checked bool
}

// FlagInputs returns the hide switches of c.
func FlagInputs(c filter.Criteria) []FlagInput {
	out := make([]FlagInput, len(filter.FlagFields))
	for i, f := range filter.FlagFields {
		out[i] = FlagInput{Name: f.Name, Label: f.Label, Checked: c.Flags.Get(f.Name)}
	}
	return out
}

// TablePage is the data of the results page.
type TablePage struct {
	Loaded      bool
	Message     string
	Error       string
	Summary     string
	FullSearch  bool
	Headers     []Header
	Rows        []Row
	Assumptions []AssumptionField
	Query       string
	Exclude     string
	Flags       []FlagInput
	Admin       bool
}

// NewTablePage builds the results page for v. A failed search shows its
// message as an error.
func NewTablePage(v results.View) TablePage {
	p := TablePage{
		Loaded:      v.State == results.StateLoaded,
		Summary:     v.Summary(),
		FullSearch:  v.FullSearch,
		Headers:     Headers(v.Sort),
		Rows:        Rows(v),
		Assumptions: AssumptionFields(v.Assumptions),
		Query:       v.Criteria.Query,
		Exclude:     v.Criteria.Exclude,
		Flags:       FlagInputs(v.Criteria),
	}
	switch {
	case v.State == results.StateEmpty && v.Message != "":
		p.Error = "Error: " + v.Message
	case v.State == results.StateLoaded && v.Total == 0:
		p.Message = "No listings found."
	}
	return p
}

// AdminPage is the data of the stored default assumptions page.
type AdminPage struct {
	Error       string
	Success     string
	Assumptions []AssumptionField
}

// LoginPage is the data of the login page.
type LoginPage struct {
	Error string
}
