package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emanueledman/fixa-admin/internal/database"
)

// migrateCmd groups schema migration commands
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := database.Migrate(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		logger.Infow("Migrations applied", "count", n)
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		states, err := database.MigrationStatus(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tSOURCE")
		for _, s := range states {
			fmt.Fprintf(tw, "%d\t%t\t%s\n", s.Version, s.Applied, s.Source)
		}
		return tw.Flush()
	},
}
