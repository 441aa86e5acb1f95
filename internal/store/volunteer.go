package store

import (
	"context"
	"fmt"
	"time"

	"reliefline/internal/utils"
	"reliefline/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const volunteerTableName = "reliefline.volunteers"

var volunteerColumns = utils.StructTagValues(types.Volunteer{})

// VolunteerRepository holds the identity-provider projection rows the
// reporter view joins against. The identity provider owns the data;
// rows here are refreshed from verified claims at login.
type VolunteerRepository struct {
	pool *pgxpool.Pool
}

func NewVolunteerRepository(pool *pgxpool.Pool) *VolunteerRepository {
	return &VolunteerRepository{pool: pool}
}

func (r *VolunteerRepository) Volunteer(ctx context.Context, userID string) (*types.Volunteer, error) {

	query, args, err := psql().Select(volunteerColumns...).From(volunteerTableName).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate volunteer query: %w", err)
	}

	var volunteer = new(types.Volunteer)
	err = pgxscan.Get(ctx, r.pool, volunteer, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrVolunteerNotFound
	}

	return volunteer, nil
}

func (r *VolunteerRepository) Upsert(ctx context.Context, volunteer *types.Volunteer) error {

	now := time.Now()
	if volunteer.CreatedAt.IsZero() {
		volunteer.CreatedAt = now
	}
	volunteer.UpdatedAt = now

	volunteerMap := utils.StructToMap(volunteer)

	query, args, err := psql().Insert(volunteerTableName).SetMap(volunteerMap).
		Suffix("on conflict (user_id) do update set username = excluded.username, contact = excluded.contact, role = excluded.role, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate volunteer upsert query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to upsert volunteer")
}
