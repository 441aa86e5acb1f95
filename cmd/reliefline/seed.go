package main

import (
	"context"
	"fmt"

	"reliefline/internal/db"
	"reliefline/internal/seed"
	"reliefline/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo volunteers and reports",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		volunteerRepo := store.NewVolunteerRepository(pool)
		reportRepo := store.NewReportRepository(pool)

		logrus.Info("Seeding volunteers...")
		if err := seed.SeedVolunteers(ctx, volunteerRepo); err != nil {
			return fmt.Errorf("failed to seed volunteers: %w", err)
		}

		logrus.Info("Seeding reports...")
		if err := seed.SeedReports(ctx, reportRepo); err != nil {
			return fmt.Errorf("failed to seed reports: %w", err)
		}

		seeded, err := reportRepo.Reports(ctx, store.ReportFilter{})
		if err != nil {
			return err
		}
		pp.Println(len(seeded), "reports in store")

		logrus.Info("Seed data loaded")

		return nil
	},
}
