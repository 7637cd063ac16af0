// Package benchmarks loads the CPU reference tables: PassMark scores and idle
// power draw, keyed by upper-cased CPU name.
package benchmarks

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

var idlePowerLine = regexp.MustCompile(`^(.*?)(\s+[\d.]+)$`)

// Table maps CPU names to a value. Keys keep file order so substring lookups
// are deterministic.
type Table struct {
	values map[string]float64
	keys   []string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{values: map[string]float64{}}
}

// Set stores v under the upper-cased name.
func (t *Table) Set(name string, v float64) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if _, ok := t.values[name]; !ok {
		t.keys = append(t.keys, name)
	}
	t.values[name] = v
}

// Len is the number of entries.
func (t *Table) Len() int {
	return len(t.keys)
}

// Get is an exact lookup. Zero values count as missing.
func (t *Table) Get(name string) (float64, bool) {
	v, ok := t.values[strings.ToUpper(name)]
	return v, ok && v != 0
}

// Find returns the first entry whose name contains term as a precise
// substring.
func (t *Table) Find(term string) (float64, bool) {
	term = strings.ToUpper(term)
	for _, key := range t.keys {
		if PreciseSubstring(term, key) {
			if v := t.values[key]; v != 0 {
				return v, true
			}
		}
	}
	return 0, false
}

// Lookup tries an exact match and then a precise substring match.
func (t *Table) Lookup(name string) (float64, bool) {
	if v, ok := t.Get(name); ok {
		return v, true
	}
	return t.Find(name)
}

// PreciseSubstring reports whether term occurs in text and the character
// after its first occurrence, if any, is not a letter or digit. "I5-8500"
// matches "INTEL CORE I5-8500 @ 3.00GHZ" but not "INTEL CORE I5-8500T".
func PreciseSubstring(term, text string) bool {
	idx := strings.Index(text, term)
	if idx < 0 {
		return false
	}
	rest := text[idx+len(term):]
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ParsePassmark reads "name<TAB>score" lines. Scores may contain thousands
// separators. Malformed lines are skipped, unparseable scores logged.
func ParsePassmark(r io.Reader, logger *zap.Logger) (*Table, error) {
	logger = nopIfNil(logger)
	t := NewTable()

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		parts := strings.Split(strings.TrimSpace(sc.Text()), "\t")
		if len(parts) != 2 {
			continue
		}
		name, raw := parts[0], strings.TrimSpace(strings.ReplaceAll(parts[1], ",", ""))
		score, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("could not parse passmark score", zap.String("cpu", name), zap.String("score", parts[1]))
			continue
		}
		t.Set(name, float64(score))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan passmark data: %w", err)
	}
	return t, nil
}

// ParseIdlePower reads a header line followed by "name   watts" lines.
func ParseIdlePower(r io.Reader, logger *zap.Logger) (*Table, error) {
	logger = nopIfNil(logger)
	t := NewTable()

	sc := bufio.NewScanner(r)
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m := idlePowerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		watts, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
		if err != nil {
			logger.Warn("could not parse idle power", zap.String("cpu", m[1]), zap.String("watts", m[2]))
			continue
		}
		t.Set(m[1], watts)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan idle power data: %w", err)
	}
	return t, nil
}

// LoadPassmark reads the PassMark file at path. A missing or unreadable
// file is logged and yields an empty table.
func LoadPassmark(path string, logger *zap.Logger) *Table {
	return load(path, "passmark", ParsePassmark, nopIfNil(logger))
}

// LoadIdlePower reads the idle power file at path. A missing or unreadable
// file is logged and yields an empty table.
func LoadIdlePower(path string, logger *zap.Logger) *Table {
	return load(path, "idle power", ParseIdlePower, nopIfNil(logger))
}

func load(path, kind string, parse func(io.Reader, *zap.Logger) (*Table, error), logger *zap.Logger) *Table {
	f, err := os.Open(path)
	if err != nil {
		logger.Error("benchmark file not readable", zap.String("kind", kind), zap.String("path", path), zap.Error(err))
		return NewTable()
	}
	defer f.Close()

	t, err := parse(f, logger)
	if err != nil {
		logger.Error("benchmark file not parsed", zap.String("kind", kind), zap.String("path", path), zap.Error(err))
		return NewTable()
	}
	logger.Info("benchmark table loaded", zap.String("kind", kind), zap.Int("entries", t.Len()))
	return t
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
