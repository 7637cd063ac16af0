package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/dealfinder/internal/cpu"
	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/listing"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

func sampleView() results.View {
	adapterless := listing.DefaultOverrides()
	adapterless.ACAdapterIncluded = false
	adapterless.Shipping = listing.Float(12.5)

	return results.View{
		State: results.StateLoaded,
		Rows: []listing.Derived{
			{
				Raw: listing.Raw{
					ItemID: "v1|111|0", Title: "Dell OptiPlex 3060 Micro i5-8500T 16GB 256GB",
					ItemURL: "https://www.ebay.com/itm/111", Price: listing.Float(129.99), CPUModel: "I5-8500T",
					RAM: "16GB", Storage: "256GB", Performance: listing.Float(12345), FreeShipping: true,
				},
				Overrides:            listing.DefaultOverrides(),
				TCO:                  listing.Float(171.3),
				PerformancePerDollar: listing.Float(72.07),
			},
			{
				Raw: listing.Raw{
					ItemID: "222", Title: `HP ProDesk i7-6700 no cpu <script>alert(1)</script>`,
					ItemURL: "javascript:alert(1)", CPUModel: "I7-6700",
				},
				Overrides: adapterless,
				Outcome:   listing.OutcomeMissingPrice,
			},
		},
		Total:       2,
		TotalFound:  40,
		Assumptions: tco.Assumptions{KWhCost: 0.1, LifespanYears: math.NaN(), ShippingCostTCPU: 10, ShippingCostNonTCPU: 35, RequiredRAMGB: 16, RAMUpgradeFlatCost: 30, RequiredStorageGB: 128, StorageUpgradeFlatCost: 15},
		Criteria:    filter.Criteria{Query: "optiplex", Flags: filter.Flags{HideNoTCO: true}},
		Sort:        sorting.Spec{Column: sorting.ColumnTCO, Order: sorting.Desc},
	}
}

func renderTable(t *testing.T, page TablePage) *goquery.Document {
	t.Helper()

	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageTable, page))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestTablePageRows(t *testing.T) {
	t.Parallel()
	doc := renderTable(t, NewTablePage(sampleView()))

	rows := doc.Find("#results tr")
	require.Equal(t, 2, rows.Length())

	first := rows.Eq(0)
	assert.Equal(t, "v1|111|0", first.AttrOr("data-item-id", ""))
	assert.Equal(t, "https://www.ebay.com/itm/111", first.Find("a").AttrOr("href", ""))
	assert.Equal(t, "$129.99", strings.TrimSpace(first.Find(".price-cell").Text()))
	assert.Equal(t, "8500T", strings.TrimSpace(first.Find(".cpu-model-cell").Text()))
	assert.Equal(t, "12,345", strings.TrimSpace(first.Find(".performance-cell").Text()))
	assert.Equal(t, "✓", strings.TrimSpace(first.Find(".free-ship-cell").Text()))
	assert.Equal(t, "$171.30", strings.TrimSpace(first.Find(".tco-cell").Text()))
	assert.Equal(t, "72.1", strings.TrimSpace(first.Find(".perf-per-dollar-cell").Text()))
	_, checked := first.Find("input.ac-adapter-included").Attr("checked")
	assert.True(t, checked)
	assert.Equal(t, "/items/v1%7c111%7c0", strings.ToLower(first.Find("form").AttrOr("action", "")))

	second := rows.Eq(1)
	assert.Equal(t, "#", second.Find("a").AttrOr("href", ""))
	assert.Contains(t, second.Find("a").Text(), "<script>")
	assert.Equal(t, 0, doc.Find("#results script").Length())
	assert.Equal(t, "None", strings.TrimSpace(second.Find(".cpu-model-cell").Text()))
	assert.Equal(t, "N/A", strings.TrimSpace(second.Find(".price-cell").Text()))
	assert.Equal(t, "N/A", strings.TrimSpace(second.Find(".tco-cell").Text()))
	_, checked = second.Find("input.ac-adapter-included").Attr("checked")
	assert.False(t, checked)
	assert.Equal(t, "12.5", second.Find("input.shipping-override").AttrOr("value", ""))
}

func TestTablePageControls(t *testing.T) {
	t.Parallel()
	doc := renderTable(t, NewTablePage(sampleView()))

	assert.Equal(t, "Showing 2 of 40 total listings found by API.", strings.TrimSpace(doc.Find("#results-summary").Text()))

	active := doc.Find("th.active")
	require.Equal(t, 1, active.Length())
	assert.Contains(t, active.Text(), "TCO ▼")
	assert.Equal(t, "/sort/tco", active.Find("form").AttrOr("action", ""))
	assert.Equal(t, 11, doc.Find("thead th").Length())

	assert.Equal(t, "0.1", doc.Find(`input[name="kwh_cost"]`).AttrOr("value", "missing"))
	assert.Equal(t, "", doc.Find(`input[name="lifespan_years"]`).AttrOr("value", "missing"))
	assert.Equal(t, 1, doc.Find("#assumptions-form label.error").Length())

	assert.Equal(t, "optiplex", doc.Find(`input[name="query"]`).AttrOr("value", ""))
	_, checked := doc.Find(`input[name="hide_no_tco"]`).Attr("checked")
	assert.True(t, checked)
	_, checked = doc.Find(`input[name="hide_no_ram"]`).Attr("checked")
	assert.False(t, checked)
}

func TestTablePageEmptyAndError(t *testing.T) {
	t.Parallel()
	doc := renderTable(t, NewTablePage(results.View{State: results.StateEmpty, Message: "search listings: token request rejected", Sort: sorting.DefaultSpec()}))

	assert.Equal(t, 0, doc.Find("#results tr").Length())
	assert.Equal(t, "", strings.TrimSpace(doc.Find("#results-summary").Text()))
	assert.Equal(t, "Error: search listings: token request rejected", strings.TrimSpace(doc.Find("#error").Text()))
	assert.Equal(t, 0, doc.Find("#message").Length())

	doc = renderTable(t, NewTablePage(results.View{State: results.StateLoaded, Sort: sorting.DefaultSpec()}))
	assert.Equal(t, "No listings found.", strings.TrimSpace(doc.Find("#message").Text()))
	assert.Equal(t, 0, doc.Find("#error").Length())
}

func TestSanitizeURL(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"https://www.ebay.com/itm/1?x=1": "https://www.ebay.com/itm/1?x=1",
		"http://example.com":             "http://example.com",
		"javascript:alert(1)":            "#",
		"data:text/html,hi":              "#",
		"/relative/path":                 "#",
		"":                               "#",
		"ht tp://bad":                    "#",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeURL(in), in)
	}
}

func TestDisplayCPUModel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "8500T", DisplayCPUModel("OptiPlex i5-8500T", cpu.Classify("I5-8500T")))
	assert.Equal(t, "None", DisplayCPUModel("ThinkCentre i5-6500T WITHOUT CPU", cpu.Classify("I5-6500T")))
	assert.Equal(t, "N/A", DisplayCPUModel("Barebones no cpu", cpu.Classify("None")))
	assert.Equal(t, "N100", DisplayCPUModel("Beelink N100", cpu.Classify("N100")))
}

func TestWriteText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleView()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "PRICE"))
	assert.Contains(t, lines[1], "$129.99")
	assert.Contains(t, lines[1], "12,345")
	assert.Contains(t, lines[2], "#")
	assert.Equal(t, "Showing 2 of 40 total listings found by API.", lines[3])
}

func TestAdminAndLoginPagesRender(t *testing.T) {
	t.Parallel()
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageAdminAssumptions, AdminPage{Success: "Saved", Assumptions: AssumptionFields(sampleView().Assumptions)}))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, doc.Find("#assumptions-form input").Length())
	assert.Equal(t, "Saved", strings.TrimSpace(doc.Find("#success").Text()))

	buf.Reset()
	require.NoError(t, r.Render(&buf, PageLogin, LoginPage{Error: "Invalid credentials."}))
	assert.Contains(t, buf.String(), "Invalid credentials.")

	assert.Error(t, r.Render(&buf, "missing.html", nil))
}
