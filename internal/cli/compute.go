package cli

import (
	"github.com/spf13/cobra"

	"implied-inflation/internal/app"
)

var (
	computeDate   string
	computeTarget string
	computeCSV    string
	computeXLSX   string
	computePNG    string
	computeAudit  string
	computeRaw    string
	computeSave   bool
	computeNotify bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute implied inflation for one reference date",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := optionalDay("date", computeDate)
		if err != nil {
			return err
		}
		target, err := optionalDay("target", computeTarget)
		if err != nil {
			return err
		}

		opts := app.ComputeOptions{
			ReferenceDate: ref,
			Target:        target,
			CSVPath:       computeCSV,
			XLSXPath:      computeXLSX,
			PNGPath:       computePNG,
			AuditPath:     computeAudit,
			RawPath:       computeRaw,
			Save:          computeSave,
			Notify:        computeNotify,
		}
		return getApp().Compute(cmd.Context(), opts)
	},
}

func init() {
	computeCmd.Flags().StringVar(&computeDate, "date", "", "Reference date (dd/mm/yyyy or yyyy-mm-dd, defaults to latest)")
	computeCmd.Flags().StringVar(&computeTarget, "target", "", "Target maturity for IPCA+ curve interpolation")
	computeCmd.Flags().StringVar(&computeCSV, "csv", "", "Path to write the result as CSV")
	computeCmd.Flags().StringVar(&computeXLSX, "xlsx", "", "Path to write the result as an Excel workbook")
	computeCmd.Flags().StringVar(&computePNG, "png", "", "Path to write a PNG chart of rates by maturity")
	computeCmd.Flags().StringVar(&computeAudit, "audit", "", "Path to write the source rows used, in the published Tesouro layout")
	computeCmd.Flags().StringVar(&computeRaw, "raw", "", "Path to save the downloaded Tesouro CSV unchanged")
	computeCmd.Flags().BoolVar(&computeSave, "save", false, "Persist results to the database")
	computeCmd.Flags().BoolVar(&computeNotify, "notify", false, "Send an alert when implied inflation exceeds the threshold")
}
