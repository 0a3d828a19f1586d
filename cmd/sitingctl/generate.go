package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/dataset"
	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var countiesPath string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic dataset into --data-dir",
		Long: `Writes the grid, future-scalability, water, broadband, and county files
with reproducible synthetic scores. Counties come from a county GeoJSON file
when --counties is set and from the built-in core markets otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := generateIDs(countiesPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(opts.dataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			if err := dataset.Generate(opts.paths(), ids, opts.seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d counties in %s (seed %d)\n", len(ids), opts.dataDir, opts.seed)
			return nil
		},
	}
	cmd.Flags().StringVar(&countiesPath, "counties", "", "county GeoJSON to take FIPS codes from")
	return cmd
}

func generateIDs(countiesPath string) ([]string, error) {
	if countiesPath != "" {
		return dataset.ReadCountyIDs(countiesPath)
	}
	seen := make(map[string]struct{})
	for _, m := range domain.CoreMarkets() {
		for _, id := range m.Counties {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
