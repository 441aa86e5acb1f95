package types

import "errors"

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrVolunteerNotFound = errors.New("volunteer not found")

	// ErrReportClaimed is returned to a volunteer whose claim lost the
	// race; the first responder keeps the report.
	ErrReportClaimed = errors.New("report already claimed by another volunteer")

	ErrNotReportOwner  = errors.New("caller does not own this report")
	ErrNotAssigned     = errors.New("caller is not the assigned volunteer")
	ErrRoleNotAllowed  = errors.New("caller role is not allowed to perform this operation")
	ErrMissingLocation = errors.New("responder coordinates are required")
)
