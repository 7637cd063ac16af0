package render

import (
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/Simplici0/dealfinder/internal/results"
)

const maxTitleWidth = 60

// WriteText writes v as a tab-aligned table followed by the summary line.
func WriteText(w io.Writer, v results.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRICE\tCPU TYPE\tCPU MODEL\tPERFORMANCE\tRAM\tSTORAGE\tFREE SHIP\tTCO\tPERF/$\tTITLE\tLINK")
	for _, r := range Rows(v) {
		ship := "no"
		if r.FreeShipping {
			ship = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Price, r.CPUType, r.CPUModel, r.Performance, r.RAM, r.Storage,
			ship, r.TCO, r.PerfPerDollar, truncate(r.Title, maxTitleWidth), r.URL)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write results table: %w", err)
	}
	if s := v.Summary(); s != "" {
		if _, err := fmt.Fprintln(w, s); err != nil {
			return fmt.Errorf("write results summary: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
