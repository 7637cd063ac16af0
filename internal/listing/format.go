package listing

import (
	"math"
	"strconv"
)

// FormatPrice renders a currency amount as "$123.45", or N/A when absent.
func FormatPrice(v *float64) string {
	if v == nil {
		return NA
	}
	if math.IsNaN(*v) {
		return "Invalid"
	}
	return "$" + strconv.FormatFloat(*v, 'f', 2, 64)
}

// FormatPerfPerDollar renders a performance-per-dollar ratio with one decimal.
func FormatPerfPerDollar(v *float64) string {
	if v == nil {
		return NA
	}
	if math.IsNaN(*v) {
		return "Invalid"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// FormatNumber renders a plain number without trailing zeros.
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// TCOText is the TCO cell text; rows whose inputs were malformed read "Invalid".
func (d Derived) TCOText() string {
	if d.Outcome == OutcomeInvalidInput {
		return "Invalid"
	}
	return FormatPrice(d.TCO)
}

// PerfPerDollarText is the performance-per-dollar cell text.
func (d Derived) PerfPerDollarText() string {
	if d.Outcome == OutcomeInvalidInput {
		return "Invalid"
	}
	return FormatPerfPerDollar(d.PerformancePerDollar)
}
