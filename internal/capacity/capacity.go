// Package capacity turns free-form RAM and storage strings into gigabytes.
package capacity

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRegexp = regexp.MustCompile(`\d+\.\d+|\d+`)

// ParseGB parses strings such as "512GB", "1TB" or "1.5 TB" into a whole number
// of gigabytes. Absent, "N/A" and unparseable values yield 0.
func ParseGB(text string) int {
	upper := strings.ToUpper(strings.TrimSpace(text))
	if upper == "" || upper == "N/A" {
		return 0
	}

	match := numberRegexp.FindString(upper)
	if match == "" {
		return 0
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	if strings.Contains(upper, "TB") {
		return int(value * 1024)
	}
	return int(value)
}
