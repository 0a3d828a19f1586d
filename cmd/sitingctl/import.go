package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/dataset"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var driver, dsn string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load the dataset in --data-dir into a SQL database",
		Long: `Replaces the dataset tables of the target database with the files in
--data-dir in a single transaction and bumps the dataset version, which
explorers reading from that database pick up on their next refresh.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}
			ctx := cmd.Context()
			db, err := dataset.Open(ctx, driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := dataset.Import(ctx, db, opts.paths())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"imported dataset version %d: grid=%d future=%d water=%d fiber=%d counties=%d\n",
				stats.Version, stats.Grid, stats.Future, stats.Water, stats.Fiber, stats.Counties)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", dataset.DriverSQLite, "database driver: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database connection string")
	return cmd
}
