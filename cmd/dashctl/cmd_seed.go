package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

var (
	seedViewer   string
	seedCount    int
	seedEmail    string
	seedName     string
	seedPassword string
	seedSpread   int
)

var seedCategories = []string{"Saneamento", "Iluminação", "Estradas", "Lixo", "Água"}

var seedNeighborhoods = []string{"Benfica", "Camama", "Talatona", "Kilamba", "Ramiros"}

// seedCmd inserts demo problems and report history for a responsible
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo problems for a responsible",
	Long: `Insert demo problems assigned to a responsible, each with a matching
report history row. With --email the responsible profile is created first.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedViewer, "viewer", "", "responsible id")
	seedCmd.Flags().IntVar(&seedCount, "count", 10, "number of problems")
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "create the responsible with this email")
	seedCmd.Flags().StringVar(&seedName, "name", "", "display name of the created responsible")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password of the created responsible")
	seedCmd.Flags().IntVar(&seedSpread, "spread-days", 60, "spread creation dates over this many days")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedViewer == "" {
		return fmt.Errorf("--viewer is required")
	}
	if seedCount < 1 {
		return fmt.Errorf("--count must be positive")
	}
	if seedSpread < 1 {
		seedSpread = 1
	}

	ctx := cmd.Context()
	pool, err := database.NewPool(cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if seedEmail != "" {
		_, err := services.NewResponsibleService(pool, nil, logger).Create(ctx, models.Responsible{
			ID:            seedViewer,
			Name:          seedName,
			Email:         seedEmail,
			EmailOrPhone:  seedEmail,
			IsResponsible: true,
		}, seedPassword)
		if err != nil {
			return err
		}
	}

	problems := services.NewProblemService(pool, logger)
	reports := services.NewReportService(pool, logger)
	now := time.Now()

	for i := 0; i < seedCount; i++ {
		createdAt := now.Add(-time.Duration(i%seedSpread) * 24 * time.Hour).UnixMilli()
		p, err := problems.Insert(ctx, models.Problem{
			Title:         fmt.Sprintf("Ocorrência %d", i+1),
			Description:   "Registo de demonstração",
			Municipality:  services.DefaultMunicipality,
			Neighborhood:  seedNeighborhoods[i%len(seedNeighborhoods)],
			Category:      seedCategories[i%len(seedCategories)],
			Urgency:       models.Urgencies[i%len(models.Urgencies)],
			Status:        models.Statuses[(i/2)%len(models.Statuses)],
			CreatedAt:     createdAt,
			ResponsibleID: seedViewer,
		})
		if err != nil {
			return err
		}

		if err := reports.Record(ctx, models.ReportEntry{
			ProblemID:     p.ID,
			Category:      p.Category,
			Status:        p.Status,
			Urgency:       p.Urgency,
			ResponsibleID: p.ResponsibleID,
			CreatedAt:     p.CreatedAt,
		}); err != nil {
			return err
		}
	}

	logger.Infow("Seed complete", "responsible_id", seedViewer, "count", seedCount)
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d problem(s) for %s\n", seedCount, seedViewer)
	return nil
}
