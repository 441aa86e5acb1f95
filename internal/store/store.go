package store

import (
	sq "github.com/Masterminds/squirrel"
)

// Channel every report mutation publishes on; the watch hub listens
// here to drive subscription refreshes.
const ReportEventsChannel = "report_events"

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}
