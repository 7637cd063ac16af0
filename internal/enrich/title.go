// Package enrich turns marketplace item summaries into listings: it parses
// CPU, RAM and storage out of titles and attaches benchmark data.
package enrich

import (
	"regexp"
	"strings"
)

const (
	// NoCPU is the CPU model of listings sold without a processor.
	NoCPU = "None"
	na    = "N/A"
)

var (
	coreRe    = regexp.MustCompile(`(?i)(i[3579])(?:[\s-]?(\d{4,5}[a-z\d]*))?`)
	nSeriesRe = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(n(\d{3,4}))(?:[^a-z0-9]|$)`)
	storageRe = regexp.MustCompile(`(?i)(\d+\.?\d*\s*(?:TB|GB))\s*(?:SSD|HDD|NVME|SSHD|STORAGE|DRIVE|EMMC)|(?:SSD|HDD|NVME|SSHD|STORAGE|DRIVE|EMMC)\s*(\d+\.?\d*\s*(?:TB|GB))`)
	ramRe     = regexp.MustCompile(`(?i)(\d+\s*GB)\s*RAM|RAM\s*(\d+\s*GB)|(\d+GB)\s*(?:DDR[345])`)
	gbTokenRe = regexp.MustCompile(`^(\d+)GB$`)
	tokenSep  = regexp.MustCompile(`[\s,;/]+`)
)

var genericCPUs = []struct{ keyword, model string }{
	{"celeron", "CELERON"},
	{"pentium", "PENTIUM"},
	{"atom", "ATOM"},
	{"xeon", "XEON"},
	{"ryzen", "RYZEN"},
	{"athlon", "ATHLON"},
}

var storageKeywords = map[string]bool{
	"SSD": true, "HDD": true, "NVME": true, "SSHD": true, "EMMC": true, "DRIVE": true, "STORAGE": true,
}

// Title is what ParseTitle extracts from a listing title. Absent values
// are "N/A".
type Title struct {
	CPUModel string
	// CoreFamily is "I3".."I9" for Intel Core parts, "None" without a CPU.
	CoreFamily string
	// FamilyOnly is set when only the Core family ("i5") was found.
	FamilyOnly bool
	RAM        string
	Storage    string
}

// Generic reports whether the CPU model is too vague to benchmark.
func (t Title) Generic() bool {
	if t.CPUModel == na || t.CPUModel == NoCPU || t.FamilyOnly {
		return true
	}
	for _, g := range genericCPUs {
		if t.CPUModel == g.model {
			return true
		}
	}
	return false
}

// ParseTitle extracts the CPU model, RAM and storage from a marketplace title.
func ParseTitle(raw string) Title {
	title := strings.ToLower(raw)
	t := Title{CPUModel: na, RAM: na, Storage: na}

	t.CPUModel, t.CoreFamily, t.FamilyOnly = parseCPU(title)
	if t.CPUModel == "" {
		for _, g := range genericCPUs {
			if strings.Contains(title, g.keyword) {
				t.CPUModel = g.model
				break
			}
		}
	}
	if t.CPUModel == "" && strings.Contains(title, "no cpu") {
		t.CPUModel = NoCPU
		t.CoreFamily = NoCPU
	}
	if t.CPUModel == "" {
		t.CPUModel = na
	}

	if m := storageRe.FindStringSubmatch(title); m != nil {
		t.Storage = compact(firstNonEmpty(m[1], m[2]))
	}
	if m := ramRe.FindStringSubmatch(title); m != nil {
		t.RAM = compact(firstNonEmpty(m[1], m[2], m[3]))
	}
	if t.RAM == na || t.RAM == "" {
		t.RAM = standaloneRAM(title)
	}
	return t
}

// parseCPU returns the leftmost Intel Core or N-series match.
func parseCPU(title string) (model, family string, familyOnly bool) {
	core := coreRe.FindStringSubmatchIndex(title)
	nser := nSeriesRe.FindStringSubmatchIndex(title)

	coreAt, nAt := -1, -1
	if core != nil {
		coreAt = core[0]
	}
	if nser != nil {
		nAt = nser[2]
	}

	switch {
	case coreAt >= 0 && (nAt < 0 || coreAt < nAt):
		fam := strings.ToUpper(title[core[2]:core[3]])
		if core[4] >= 0 {
			return fam + "-" + strings.ToUpper(title[core[4]:core[5]]), fam, false
		}
		return fam, fam, true
	case nAt >= 0:
		return "N" + strings.ToUpper(title[nser[4]:nser[5]]), "", false
	}
	return "", "", false
}

// standaloneRAM picks the first bare "NNGB" token that is not next to a
// storage keyword.
func standaloneRAM(title string) string {
	tokens := tokenSep.Split(strings.ToUpper(title), -1)
	for i, tok := range tokens {
		m := gbTokenRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		if i+1 < len(tokens) && storageKeywords[tokens[i+1]] {
			continue
		}
		if i > 0 && storageKeywords[tokens[i-1]] {
			continue
		}
		return m[1] + "GB"
	}
	return na
}

func compact(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
