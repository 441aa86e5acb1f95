package seed

import (
	"context"
	"fmt"

	"reliefline/internal/store"
	"reliefline/internal/utils"
	"reliefline/pkg/types"
)

var demoReports = []*types.Report{
	{
		ReporterUsername: "rima",
		ReporterContact:  "+8801700000001",
		DisasterType:     "Flood",
		Description:      utils.StringPtr("Water entering houses near the embankment"),
		LocationLabel:    "Sunamganj, Sylhet Division",
		Latitude:         utils.Float64Ptr(25.07),
		Longitude:        utils.Float64Ptr(91.40),
	},
	{
		ReporterUsername: "arif",
		ReporterContact:  "+8801700000002",
		DisasterType:     "Fire",
		Description:      utils.StringPtr("Fire in the market, spreading fast"),
		LocationLabel:    "Chattogram, Chattogram Division",
		Latitude:         utils.Float64Ptr(22.34),
		Longitude:        utils.Float64Ptr(91.83),
	},
	{
		ReporterUsername: "rima",
		ReporterContact:  "+8801700000001",
		DisasterType:     "Cyclone",
		LocationLabel:    "Cox's Bazar, Chattogram Division",
	},
}

func SeedReports(ctx context.Context, repo *store.ReportRepository) error {
	for _, report := range demoReports {
		if err := repo.CreateReport(ctx, report); err != nil {
			return fmt.Errorf("seed report %s/%s: %w", report.ReporterUsername, report.DisasterType, err)
		}
	}
	return nil
}
