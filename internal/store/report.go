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

const reportTableName = "reliefline.reports"

var reportColumns = utils.StructTagValues(types.Report{})

// ReportFilter narrows the volunteer view. Zero value matches all.
type ReportFilter struct {
	DisasterType string
	OpenOnly     bool
}

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) CreateReport(ctx context.Context, report *types.Report) error {

	now := time.Now()
	report.ID = utils.NanoID()
	report.CreatedAt = now
	report.UpdatedAt = now

	reportMap := utils.StructToMap(report)

	query, args, err := psql().Insert(reportTableName).SetMap(reportMap).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert report query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to create report")
	}

	return r.notify(ctx, report.ID)
}

func (r *ReportRepository) Report(ctx context.Context, reportID string) (*types.Report, error) {

	query, args, err := psql().Select(reportColumns...).From(reportTableName).
		Where(sq.Eq{"id": reportID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report query: %w", err)
	}

	var report = new(types.Report)
	err = pgxscan.Get(ctx, r.pool, report, query, args...)
	if err != nil && !pgxscan.NotFound(err) {
		return nil, err
	}

	if err != nil {
		return nil, types.ErrReportNotFound
	}

	return report, nil
}

func (r *ReportRepository) ReportsByReporter(ctx context.Context, username string) ([]*types.Report, error) {

	query, args, err := psql().Select(reportColumns...).From(reportTableName).
		Where(sq.Eq{"reporter_username": username}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reporter view query: %w", err)
	}

	var reports = make([]*types.Report, 0)
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to query reports by reporter")
	}

	return reports, nil
}

func (r *ReportRepository) Reports(ctx context.Context, filter ReportFilter) ([]*types.Report, error) {

	builder := psql().Select(reportColumns...).From(reportTableName).
		OrderBy("created_at desc")

	if filter.DisasterType != "" {
		builder = builder.Where(sq.Eq{"disaster_type": filter.DisasterType})
	}
	if filter.OpenOnly {
		builder = builder.Where(sq.Eq{"volunteer_responded": false, "is_closed": false})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate volunteer view query: %w", err)
	}

	var reports = make([]*types.Report, 0)
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, utils.ErrorWrapOrNil(err, "failed to query reports")
	}

	return reports, nil
}

// Claim attaches a volunteer to a report. The WHERE clause is the
// whole first-responder-wins guarantee: the update only lands while
// volunteer_responded is still false, so a losing racer merges nothing.
// Returns false when the report was already claimed or closed.
func (r *ReportRepository) Claim(ctx context.Context, reportID, volunteerID string, coords types.Coordinates) (bool, error) {

	query, args, err := psql().Update(reportTableName).SetMap(map[string]any{
		"volunteer_responded": true,
		"volunteer_id":        volunteerID,
		"volunteer_lat":       coords.Latitude,
		"volunteer_lng":       coords.Longitude,
		"updated_at":          time.Now(),
	}).Where(sq.Eq{
		"id":                  reportID,
		"volunteer_responded": false,
		"is_closed":           false,
	}).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to generate claim query for report %s: %w", reportID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, utils.ErrorWrapOrNil(err, "failed to claim report")
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	return true, r.notify(ctx, reportID)
}

// SetClosed and SetCompleted are field-merge updates guarded on
// is_closed, so a closed report stays terminal and re-applies are no-ops
// at the row level.

func (r *ReportRepository) SetClosed(ctx context.Context, reportID string) error {
	return r.setFlag(ctx, reportID, "is_closed")
}

func (r *ReportRepository) SetCompleted(ctx context.Context, reportID string) error {
	return r.setFlag(ctx, reportID, "is_completed")
}

func (r *ReportRepository) setFlag(ctx context.Context, reportID, column string) error {

	query, args, err := psql().Update(reportTableName).SetMap(map[string]any{
		column:       true,
		"updated_at": time.Now(),
	}).Where(sq.Eq{"id": reportID, "is_closed": false}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate %s update for report %s: %w", column, reportID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to update report")
	}

	if tag.RowsAffected() == 0 {
		// already closed, nothing changed, nothing to announce
		return nil
	}

	return r.notify(ctx, reportID)
}

// MarkAllRead flips is_read on every unread report for the reporter in
// one statement. Atomic as a set; a report created mid-flight lands in
// the next batch.
func (r *ReportRepository) MarkAllRead(ctx context.Context, username string) error {

	query, args, err := psql().Update(reportTableName).SetMap(map[string]any{
		"is_read":    true,
		"updated_at": time.Now(),
	}).Where(sq.Eq{"reporter_username": username, "is_read": false}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark-read query: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return utils.ErrorWrapOrNil(err, "failed to mark reports read")
	}

	if tag.RowsAffected() == 0 {
		return nil
	}

	return r.notify(ctx, username)
}

func (r *ReportRepository) UnreadCount(ctx context.Context, username string) (int, error) {

	query, args, err := psql().Select("count(*)").From(reportTableName).
		Where(sq.Eq{"reporter_username": username, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate unread count query: %w", err)
	}

	var count int
	err = pgxscan.Get(ctx, r.pool, &count, query, args...)
	if err != nil {
		return 0, utils.ErrorWrapOrNil(err, "failed to count unread reports")
	}

	return count, nil
}

func (r *ReportRepository) notify(ctx context.Context, payload string) error {
	_, err := r.pool.Exec(ctx, "select pg_notify($1, $2)", ReportEventsChannel, payload)
	return utils.ErrorWrapOrNil(err, "failed to publish report event")
}
