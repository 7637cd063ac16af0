// Package alert e-mails the listings whose performance per dollar reaches a
// threshold.
package alert

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/render"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

// Message is one outgoing e-mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Options configures Run.
type Options struct {
	MinPerfPerDollar float64
	Recipients       []string
	From             string
	Subject          string
	Engine           *tco.Engine
	Logger           *zap.Logger
}

// Report summarises one alert run.
type Report struct {
	Candidates int
	Matches    []listing.Derived
	Sent       bool
}

// Run searches through feed, keeps the listings at or above the threshold,
// best first, and sends them through n. Nothing is sent when no listing
// qualifies or no recipient is configured.
func Run(ctx context.Context, feed results.Feed, n Notifier, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("alert")
	engine := opts.Engine
	if engine == nil {
		engine = tco.NewEngine(logger)
	}

	if len(opts.Recipients) == 0 {
		logger.Warn("no alert recipients configured, skipping email send")
	}

	batch, err := feed.Search(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("run alert search: %w", err)
	}

	report := Report{Candidates: len(batch.Listings)}
	for _, raw := range batch.Listings {
		d := engine.Derive(listing.Normalize(raw), batch.Defaults, listing.DefaultOverrides())
		if d.PerformancePerDollar != nil && *d.PerformancePerDollar >= opts.MinPerfPerDollar {
			report.Matches = append(report.Matches, d)
		}
	}
	if len(report.Matches) == 0 {
		logger.Info("no listings reached the perf/$ threshold", zap.Float64("threshold", opts.MinPerfPerDollar))
		return report, nil
	}
	sorting.Sort(report.Matches, sorting.Spec{Column: sorting.ColumnPerformancePerDollar, Order: sorting.Desc})

	if len(opts.Recipients) == 0 || n == nil {
		return report, nil
	}

	html, err := HTMLBody(report.Matches)
	if err != nil {
		return report, err
	}
	msg := Message{
		From:    opts.From,
		To:      opts.Recipients,
		Subject: opts.Subject,
		Text:    TextBody(report.Matches),
		HTML:    html,
	}
	logger.Info("sending alert email",
		zap.Strings("recipients", opts.Recipients),
		zap.Int("listings", len(report.Matches)),
	)
	if err := n.Send(ctx, msg); err != nil {
		return report, fmt.Errorf("send alert email: %w", err)
	}
	report.Sent = true
	return report, nil
}

// TextBody is the plain-text table of items.
func TextBody(items []listing.Derived) string {
	var b strings.Builder
	b.WriteString("Perf/$  | Price     | CPU Model  | RAM    | Storage  | URL\n")
	b.WriteString(strings.Repeat("-", 90))
	for _, d := range items {
		fmt.Fprintf(&b, "\n%-7s | %-9s | %-10s | %-6s | %-8s | %s",
			listing.FormatPerfPerDollar(d.PerformancePerDollar),
			listing.FormatPrice(d.Price),
			orNA(d.CPUModel),
			orNA(d.RAM),
			orNA(d.Storage),
			d.ItemURL,
		)
	}
	return b.String()
}

var htmlBody = template.Must(template.New("alert").Parse(`<html><body>
<h3>Homelab Deal Alerts</h3>
<table border="1" cellpadding="4" cellspacing="0" style="border-collapse:collapse;font-family:Arial,sans-serif;font-size:14px">
<thead><tr style="background:#f2f2f2"><th>Perf/$</th><th>Price</th><th>CPU</th><th>RAM</th><th>Storage</th><th>Link</th></tr></thead>
<tbody>
{{- range .}}
<tr><td>{{.PerfPerDollar}}</td><td>{{.Price}}</td><td>{{.CPUModel}}</td><td>{{.RAM}}</td><td>{{.Storage}}</td><td><a href="{{.URL}}">link</a></td></tr>
{{- end}}
</tbody>
</table>
</body></html>`))

type htmlRow struct {
	PerfPerDollar, Price, CPUModel, RAM, Storage, URL string
}

// HTMLBody is the HTML table of items.
func HTMLBody(items []listing.Derived) (string, error) {
	rows := make([]htmlRow, len(items))
	for i, d := range items {
		rows[i] = htmlRow{
			PerfPerDollar: listing.FormatPerfPerDollar(d.PerformancePerDollar),
			Price:         listing.FormatPrice(d.Price),
			CPUModel:      orNA(d.CPUModel),
			RAM:           orNA(d.RAM),
			Storage:       orNA(d.Storage),
			URL:           render.SanitizeURL(d.ItemURL),
		}
	}
	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("render alert html: %w", err)
	}
	return buf.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return listing.NA
	}
	return s
}
