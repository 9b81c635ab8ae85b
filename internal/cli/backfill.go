package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"implied-inflation/internal/app"
)

var (
	backfillFrom    string
	backfillTo      string
	backfillDryRun  bool
	backfillWorkers int
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Compute and store every reference date in a range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		from, err := parseDay(backfillFrom)
		if err != nil {
			return fmt.Errorf("invalid --from value: %w", err)
		}

		to, err := parseDay(backfillTo)
		if err != nil {
			return fmt.Errorf("invalid --to value: %w", err)
		}

		if to.Before(from) {
			return fmt.Errorf("--from must not be after --to")
		}
		if backfillWorkers <= 0 {
			return fmt.Errorf("--workers must be greater than zero")
		}

		opts := app.BackfillOptions{
			From:    from,
			To:      to,
			DryRun:  backfillDryRun,
			Workers: backfillWorkers,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First reference date (inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last reference date (inclusive)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Compute without writing to storage")
	backfillCmd.Flags().IntVar(&backfillWorkers, "workers", 4, "Number of concurrent workers")
}
