package cli

import (
	"context"
	"fmt"
	"io"

	pgStorage "campus-coin-ledger/internal/adapter/storage/postgres"
	"campus-coin-ledger/internal/core/domain"
	"campus-coin-ledger/internal/core/ports"
	"campus-coin-ledger/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bonusCmd)
	bonusCmd.Flags().String("amount", "", "Coins to credit each instructor (default ledger.semester_bonus_amount)")
}

var bonusCmd = &cobra.Command{
	Use:   "bonus",
	Short: "Credit every instructor account once",
	Long: `Run the semester bonus immediately. Every instructor account is credited
with the same amount in a single transaction, and one audit row is written.`,
	Args: cobra.NoArgs,
	RunE: runBonus,
}

func runBonus(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("amount")
	if raw == "" {
		raw = cfg.Ledger.SemesterBonusAmount
	}
	amount, ok := domain.ParseAmount(raw)
	if !ok {
		return fmt.Errorf("invalid amount %q: must be positive with at most two decimals", raw)
	}

	pool, err := openPool(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	ledger := service.NewLedgerService(service.LedgerServiceDeps{
		Accounts:   pgStorage.NewAccountRepo(pool),
		Rewards:    pgStorage.NewRewardRepo(pool),
		Ledger:     pgStorage.NewLedgerRepo(pool),
		Audit:      pgStorage.NewAuditRepo(pool),
		Transactor: pgStorage.NewTransactor(pool),
	}, log)

	return applyBonus(cmd.Context(), ledger, amount, cmd.OutOrStdout())
}

func applyBonus(ctx context.Context, ledger ports.LedgerService, amount decimal.Decimal, out io.Writer) error {
	res, err := ledger.TopUpAllInstructors(ctx, amount)
	if err != nil {
		return fmt.Errorf("semester bonus: %w", err)
	}
	printf(out, "credited %s coins to %d instructor accounts\n", domain.FormatAmount(res.Amount), res.AccountsCredited)
	return nil
}
