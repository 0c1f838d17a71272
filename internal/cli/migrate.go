package cli

import (
	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	Long:  `Apply every embedded migration in name order. Migrations are idempotent and safe to re-run.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pool, err := openPool(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pgStorage.Migrate(cmd.Context(), pool, log); err != nil {
		return err
	}
	printf(cmd.OutOrStdout(), "schema up to date\n")
	return nil
}
