package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Simplici0/dealfinder/internal/config"
	"github.com/Simplici0/dealfinder/internal/feed"
	"github.com/Simplici0/dealfinder/internal/filter"
	"github.com/Simplici0/dealfinder/internal/render"
	"github.com/Simplici0/dealfinder/internal/results"
	"github.com/Simplici0/dealfinder/internal/search"
	"github.com/Simplici0/dealfinder/internal/sorting"
	"github.com/Simplici0/dealfinder/internal/tco"
)

var (
	sortColumn   string
	sortOrder    string
	filterQuery  string
	excludeQuery string
	remoteURL    string
	fullSearch   bool

	hideFlags       = map[string]*bool{}
	assumptionFlags = map[string]*float64{}
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the marketplace and print the ranked results table",
	Long: `Runs the configured keyword searches, computes every listing's TCO and
prints the filtered, sorted table.

Examples:
  dealfinder search --sort performance_per_dollar --order desc --hide-no-tco
  dealfinder search --kwh-cost 0.25 --filter i5 --exclude "no cpu"
  dealfinder search --remote http://localhost:8080/api/search`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&sortColumn, "sort", string(sorting.ColumnPrice), "sort column")
	f.StringVar(&sortOrder, "order", string(sorting.Asc), "sort order (asc or desc)")
	f.StringVar(&filterQuery, "filter", "", "keep rows matching every term")
	f.StringVar(&excludeQuery, "exclude", "", "drop rows matching any term")
	f.StringVar(&remoteURL, "remote", "", "read results from a running server's /api/search instead of the marketplace")
	f.BoolVar(&fullSearch, "full", false, "read every result page (overrides search.full_search)")

	for _, ff := range filter.FlagFields {
		hideFlags[ff.Name] = f.Bool(flagName(ff.Name), false, ff.Label)
	}
	defaults := config.DefaultAssumptions().Values()
	for _, field := range tco.Fields {
		assumptionFlags[field] = f.Float64(flagName(field), defaults[field], "override the "+strings.ReplaceAll(field, "_", " ")+" assumption")
	}
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// tableOptions is the table state requested on the command line.
type tableOptions struct {
	Fallback  tco.Assumptions
	Overrides map[string]float64
	Criteria  filter.Criteria
	Sort      sorting.Spec
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts, err := tableOptionsFromFlags(cmd)
	if err != nil {
		return err
	}

	var source results.Feed
	if remoteURL != "" {
		source = feed.NewClient(feed.ClientOptions{URL: remoteURL, Fallback: cfg.TCOAssumptions, Logger: logger})
	} else {
		database, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if cmd.Flags().Changed("full") {
			cfg.Search.FullSearch = fullSearch
		}
		svc, err := search.FromConfig(cfg, database, logger)
		if err != nil {
			return fmt.Errorf("configure search: %w", err)
		}
		source = svc
	}

	return writeTable(ctx, cmd.OutOrStdout(), source, opts)
}

func tableOptionsFromFlags(cmd *cobra.Command) (tableOptions, error) {
	column, err := sorting.ParseColumn(sortColumn)
	if err != nil {
		return tableOptions{}, err
	}
	order, err := sorting.ParseOrder(sortOrder)
	if err != nil {
		return tableOptions{}, err
	}

	opts := tableOptions{
		Fallback:  cfg.TCOAssumptions,
		Overrides: map[string]float64{},
		Sort:      sorting.Spec{Column: column, Order: order},
		Criteria:  filter.Criteria{Query: strings.TrimSpace(filterQuery), Exclude: strings.TrimSpace(excludeQuery)},
	}
	for name, on := range hideFlags {
		opts.Criteria.Flags.Set(name, *on)
	}
	for field, v := range assumptionFlags {
		if cmd.Flags().Changed(flagName(field)) {
			opts.Overrides[field] = *v
		}
	}
	return opts, nil
}

// writeTable runs one search through source, applies opts and prints the table.
func writeTable(ctx context.Context, out io.Writer, source results.Feed, opts tableOptions) error {
	ctrl := results.NewController(tco.NewEngine(logger), opts.Fallback, logger)
	if err := ctrl.Search(ctx, source); err != nil {
		return err
	}

	if len(opts.Overrides) > 0 {
		values := ctrl.Assumptions().Values()
		maps.Copy(values, opts.Overrides)
		a, _ := tco.ParseAssumptions(func(field string) string {
			return strconv.FormatFloat(values[field], 'f', -1, 64)
		})
		ctrl.RecalculateAll(a)
	}
	ctrl.SetCriteria(opts.Criteria)
	return render.WriteText(out, ctrl.SetSort(opts.Sort))
}
