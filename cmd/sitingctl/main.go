// Command sitingctl works with siting datasets offline: it generates synthetic
// inputs, validates and imports them, and scores or evaluates counties without
// running the explorer service.
//
// Usage:
//
//	sitingctl generate --data-dir data --seed 42
//	sitingctl validate --data-dir data
//	sitingctl import --data-dir data --driver sqlite --dsn siting.db
//	sitingctl score fiber fiber_dist=3 subsea=120
//	sitingctl evaluate -c power -c fiber --min power=40 --market "Northern Virginia"
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/siting-explorer/internal/config"
	"github.com/couchcryptid/siting-explorer/internal/dataset"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	dataDir     string
	seed        uint64
	catalogPath string
	verbose     bool
}

func (o *rootOptions) paths() dataset.Paths {
	return dataset.Paths{
		Grid:       filepath.Join(o.dataDir, config.DefaultGridFile),
		Future:     filepath.Join(o.dataDir, config.DefaultFutureFile),
		Water:      filepath.Join(o.dataDir, config.DefaultWaterFile),
		Fiber:      filepath.Join(o.dataDir, config.DefaultFiberFile),
		CountyFIPS: filepath.Join(o.dataDir, config.DefaultCountyFIPSFile),
	}
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "sitingctl",
		Short:        "Generate, validate, and query data-center siting datasets",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "data", "directory holding the dataset files")
	root.PersistentFlags().Uint64Var(&opts.seed, "seed", 42, "seed for synthetic land and zoning scores")
	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "YAML metric catalog (built-in catalog when empty)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newImportCmd(opts),
		newScoreCmd(opts),
		newEvaluateCmd(opts),
	)
	return root
}

// splitKV splits "key=value". The value may itself contain '='.
func splitKV(arg string) (string, string, bool) {
	k, v, ok := strings.Cut(arg, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", false
	}
	return k, strings.TrimSpace(v), true
}
