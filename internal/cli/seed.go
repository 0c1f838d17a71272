package cli

import (
	"fmt"

	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("instructor-balance", "1000.00", "Starting balance of each demo instructor")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo accounts, partners and rewards",
	Long: `Insert a small demo institution: two instructors, three students, two
partners and four rewards. Intended for local development databases only.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("instructor-balance")
	balance, ok := domain.ParseAmount(raw)
	if !ok {
		return fmt.Errorf("invalid instructor balance %q", raw)
	}

	pool, err := openPool(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := service.SeedDemoData(cmd.Context(), pgStorage.NewAccountRepo(pool), pgStorage.NewRewardRepo(pool), balance)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, a := range res.Instructors {
		printf(out, "instructor %s  %s\n", a.ID, a.OwnerName)
	}
	for _, a := range res.Students {
		printf(out, "student    %s  %s\n", a.ID, a.OwnerName)
	}
	for _, p := range res.Partners {
		printf(out, "partner    %s  %s\n", p.ID, p.Name)
	}
	for _, r := range res.Rewards {
		printf(out, "reward     %s  %s (%s)\n", r.ID, r.Title, domain.FormatAmount(r.Cost))
	}
	return nil
}
