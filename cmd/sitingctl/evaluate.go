package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/catalog"
	"github.com/couchcryptid/siting-explorer/internal/dataset"
	"github.com/couchcryptid/siting-explorer/internal/domain"
	"github.com/couchcryptid/siting-explorer/internal/observability"
	"github.com/couchcryptid/siting-explorer/internal/pipeline"
)

const cliSession = "sitingctl"

type evaluateOptions struct {
	categories []string
	priority   string
	market     string
	minScores  map[string]string
	top        int
	driver     string
	dsn        string
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	eo := &evaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Filter counties by minimum scores and rank the passing ones",
		Long: `Builds the master table from --data-dir (or from --dsn), keeps counties
meeting every --min threshold across the selected categories, and ranks
them by the priority category score.`,
		Example: `  sitingctl evaluate -c power -c fiber --min power=40 --min fiber=60 --priority fiber
  sitingctl evaluate -c climate --market "Santa Clara"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layer, err := runEvaluate(cmd, opts, eo)
			if err != nil {
				return err
			}
			return renderLayer(cmd.OutOrStdout(), layer, eo.top)
		},
	}
	cmd.Flags().StringSliceVarP(&eo.categories, "category", "c", nil, "category to filter on (repeatable)")
	cmd.Flags().StringVar(&eo.priority, "priority", "", "category that colors the map (default: first --category)")
	cmd.Flags().StringVar(&eo.market, "market", "", "restrict to a core market")
	cmd.Flags().StringToStringVar(&eo.minScores, "min", nil, "minimum score per category, e.g. power=40")
	cmd.Flags().IntVar(&eo.top, "top", 20, "rows to print (0 for all)")
	cmd.Flags().StringVar(&eo.driver, "driver", dataset.DriverSQLite, "database driver when --dsn is set")
	cmd.Flags().StringVar(&eo.dsn, "dsn", "", "read the dataset from a database instead of --data-dir")
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *rootOptions, eo *evaluateOptions) (*domain.MapLayer, error) {
	ctx := cmd.Context()
	logger := opts.logger(cmd)

	c, err := catalog.Load(opts.catalogPath)
	if err != nil {
		return nil, err
	}

	var source pipeline.Source
	if eo.dsn != "" {
		db, err := dataset.Open(ctx, eo.driver, eo.dsn)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		source = dataset.NewSQLSource(db, opts.seed, logger)
	} else {
		source = dataset.NewFileSource(opts.paths(), opts.seed, logger)
	}

	// Unregistered: the CLI serves no /metrics endpoint.
	metrics := observability.NewMetricsForTesting()
	cache := pipeline.NewSnapshotCache(source, 1, logger, metrics)
	explorer := pipeline.New(cache, pipeline.NewMemorySessionStore(), c, domain.CoreMarkets(), logger, metrics)

	for key, raw := range eo.minScores {
		cat, err := domain.ParseCategory(key)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("--min %s: %w", key, err)
		}
		if err := explorer.SetThreshold(ctx, cliSession, cat, v); err != nil {
			return nil, err
		}
	}

	req := pipeline.Request{
		Session:  cliSession,
		Priority: domain.Category(eo.priority),
		Market:   eo.market,
	}
	for _, name := range eo.categories {
		req.Categories = append(req.Categories, domain.Category(name))
	}
	return explorer.Evaluate(ctx, req)
}

// passingCells returns the lit counties ordered by color value, highest first.
func passingCells(layer *domain.MapLayer) []domain.CountyCell {
	var out []domain.CountyCell
	for _, c := range layer.Counties {
		if c.ColorVal != nil {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.CountyCell) int {
		if r := cmp.Compare(*b.ColorVal, *a.ColorVal); r != 0 {
			return r
		}
		return cmp.Compare(a.FIPS, b.FIPS)
	})
	return out
}

func renderLayer(w io.Writer, layer *domain.MapLayer, top int) error {
	title := layer.Title
	if title == "" {
		title = layer.Priority
	}
	fmt.Fprintf(w, "%s: %d of %d counties pass\n", title, layer.Passing, len(layer.Counties))

	cells := passingCells(layer)
	if top > 0 && len(cells) > top {
		cells = cells[:top]
	}
	if len(cells) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Rank", "FIPS", layer.Priority)
	for i, c := range cells {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			c.FIPS,
			fmt.Sprintf("%.1f", *c.ColorVal),
		}); err != nil {
			return fmt.Errorf("render layer: %w", err)
		}
	}
	return table.Render()
}
