package seed

import (
	"context"
	"fmt"

	"reliefline/internal/store"
	"reliefline/pkg/types"
)

var volunteers = []*types.Volunteer{
	{UserID: "seed-vol-karim", Username: "karim", Contact: "+8801800000001", Role: types.RoleVolunteer},
	{UserID: "seed-vol-salma", Username: "salma", Contact: "+8801800000002", Role: types.RoleVolunteer},
	{UserID: "seed-vol-rahim", Username: "rahim", Contact: "+8801800000003", Role: types.RoleVolunteer},
}

func SeedVolunteers(ctx context.Context, repo *store.VolunteerRepository) error {
	for _, volunteer := range volunteers {
		if err := repo.Upsert(ctx, volunteer); err != nil {
			return fmt.Errorf("seed volunteer %s: %w", volunteer.Username, err)
		}
	}
	return nil
}
