package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/services"
)

var (
	reportViewer string
	reportDays   int
)

// reportCmd prints the report aggregate a responsible would see
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a responsible's report aggregate as JSON",
	Long: fmt.Sprintf(`Aggregate the report history of one responsible over a window.

Valid windows (days): %v`, services.ReportWindows),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportViewer == "" {
			return fmt.Errorf("--viewer is required")
		}

		pool, err := database.NewPool(cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()

		agg, err := services.NewReportService(pool, logger).Build(cmd.Context(), reportViewer, reportDays)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportViewer, "viewer", "", "responsible id")
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "window in days")
}
