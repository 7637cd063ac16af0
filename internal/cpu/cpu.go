// Package cpu normalizes free-form CPU model strings into a type and model pair.
package cpu

import (
	"regexp"
	"strings"
)

// NA marks an unknown CPU type or model.
const NA = "N/A"

// NSeries is the type reported for Intel N-series parts such as the N100.
const NSeries = "N-SERIES"

var (
	coreRegexp    = regexp.MustCompile(`(?i)^(i[3579])(?:[\s-]?(\d{4,5}[a-z\d]*))?$`)
	nSeriesRegexp = regexp.MustCompile(`(?i)^(N\d{3,4})$`)
)

// Info is the classified form of a CPU model string.
type Info struct {
	Type  string
	Model string
}

// Classify recognizes Intel Core iX parts ("i7-8700T") and N-series parts
// ("N100"). Anything else is reported as N/A for both fields.
func Classify(text string) Info {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, NA) {
		return Info{Type: NA, Model: NA}
	}

	if m := coreRegexp.FindStringSubmatch(text); m != nil {
		info := Info{Type: strings.ToUpper(m[1]), Model: NA}
		if m[2] != "" {
			info.Model = strings.ToUpper(m[2])
		}
		return info
	}

	if m := nSeriesRegexp.FindStringSubmatch(text); m != nil {
		return Info{Type: NSeries, Model: strings.ToUpper(m[1])}
	}

	return Info{Type: NA, Model: NA}
}

// Known reports whether the value is a real classification rather than N/A.
func Known(value string) bool {
	return value != "" && value != NA
}
