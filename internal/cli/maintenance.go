package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/repository"
	"wolf-tap/internal/service"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pool, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info().Msg("Database schema is up to date")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check every account balance against its ledger",
	Long: `Compare each account's coins with the sum of its ledger entries.
Mismatches are printed one per line and the command fails.`,
	RunE: runReconcile,
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	rules, err := rulesFrom(cfg)
	if err != nil {
		return err
	}
	engine := service.NewEngine(repository.NewStore(pool.Pool), lock.NewUserLock(), nil, rules)
	checked, drift, err := service.NewWalletService(engine).ReconcileAll(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range drift {
		fmt.Fprintf(out, "user %d: coins=%d ledger=%d diff=%d\n", r.UserID, r.Coins, r.LedgerSum, r.Coins-r.LedgerSum)
	}
	fmt.Fprintf(out, "checked %d accounts, %d mismatched\n", checked, len(drift))
	if len(drift) > 0 {
		return fmt.Errorf("%d accounts do not match their ledger", len(drift))
	}
	return nil
}
