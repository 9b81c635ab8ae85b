package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"implied-inflation/internal/app"
)

var (
	showDate  string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display stored results",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		ref, err := optionalDay("date", showDate)
		if err != nil {
			return err
		}

		opts := app.ShowOptions{
			ReferenceDate: ref,
			Limit:         showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "Reference date to display (defaults to a summary of recent dates)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of reference dates to summarise")
}
