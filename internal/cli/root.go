// Package cli implements ledgerctl, the operator command line for the
// campus coin ledger.
package cli

import (
	"context"
	"fmt"
	"io"

	"campus-coin-ledger/config"
	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"
	"campus-coin-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate the campus coin ledger",
	Long: `ledgerctl runs operator tasks against the ledger database: applying the
schema, granting the semester bonus by hand, seeding demo data and minting
development tokens.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./config.yaml)")
}

// Execute runs the root command until it finishes or ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads configuration and builds a logger writing to stderr so
// command output on stdout stays scriptable.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty).Output(cmd.ErrOrStderr())
	return cfg, log, nil
}

// openPool connects to PostgreSQL. Tests replace it.
var openPool = func(ctx context.Context, cfg *config.Config, log zerolog.Logger) (pgStorage.Pool, error) {
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
