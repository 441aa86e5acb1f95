// Package reports implements the disaster-report core: record
// creation, the volunteer assignment engine, the lifecycle state
// machine and per-reporter read-state. Authorization is enforced here,
// against the verified caller identity, never left to the client.
package reports

import (
	"context"

	"reliefline/internal/store"
	"reliefline/internal/utils"
	"reliefline/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Placeholder join values when a volunteer reference no longer
// resolves. The view degrades, it never aborts.
const (
	unknownVolunteerName    = "Unknown Volunteer"
	unknownVolunteerContact = "N/A"
)

// ReportStore is the document-store access pattern the core requires:
// create, get, predicate queries and field-merge partial updates.
type ReportStore interface {
	CreateReport(ctx context.Context, report *types.Report) error
	Report(ctx context.Context, reportID string) (*types.Report, error)
	ReportsByReporter(ctx context.Context, username string) ([]*types.Report, error)
	Reports(ctx context.Context, filter store.ReportFilter) ([]*types.Report, error)
	Claim(ctx context.Context, reportID, volunteerID string, coords types.Coordinates) (bool, error)
	SetClosed(ctx context.Context, reportID string) error
	SetCompleted(ctx context.Context, reportID string) error
	MarkAllRead(ctx context.Context, username string) error
	UnreadCount(ctx context.Context, username string) (int, error)
}

// VolunteerDirectory resolves the identity-provider projection for the
// read-side join on reporter views.
type VolunteerDirectory interface {
	Volunteer(ctx context.Context, userID string) (*types.Volunteer, error)
}

type Service struct {
	logger     *logrus.Logger
	reports    ReportStore
	volunteers VolunteerDirectory
	validate   *validator.Validate
}

func NewService(logger *logrus.Logger, reports ReportStore, volunteers VolunteerDirectory) *Service {
	return &Service{
		logger:     logger,
		reports:    reports,
		volunteers: volunteers,
		validate:   validator.New(),
	}
}

type CreateReportInput struct {
	DisasterType  string             `json:"disasterType" validate:"required"`
	Description   string             `json:"description"`
	LocationLabel string             `json:"locationLabel" validate:"required"`
	Coordinates   *types.Coordinates `json:"coordinates"`
	ContactInfo   string             `json:"contactInfo"`
}

// CreateReport validates the payload at the store boundary and writes a
// fully-populated record. Reporter identity comes from the verified
// caller, not the payload.
func (s *Service) CreateReport(ctx context.Context, caller types.Identity, input CreateReportInput) (*types.Report, error) {

	if caller.Role != types.RoleUser {
		return nil, types.ErrRoleNotAllowed
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	contact := input.ContactInfo
	if contact == "" {
		contact = caller.Contact
	}

	report := &types.Report{
		ReporterUsername: caller.Username,
		ReporterContact:  contact,
		DisasterType:     input.DisasterType,
		LocationLabel:    input.LocationLabel,
		IsRead:           false,
	}

	if input.Description != "" {
		report.Description = utils.StringPtr(input.Description)
	}

	if input.Coordinates != nil {
		if err := s.validate.Struct(input.Coordinates); err != nil {
			return nil, err
		}
		report.Latitude = utils.Float64Ptr(input.Coordinates.Latitude)
		report.Longitude = utils.Float64Ptr(input.Coordinates.Longitude)
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"report_id":     report.ID,
		"disaster_type": report.DisasterType,
		"reporter":      report.ReporterUsername,
	}).Info("report created")

	return report, nil
}

// Respond claims a report for the calling volunteer. First responder
// wins: the claim is a conditional update and a lost race surfaces as
// ErrReportClaimed rather than silently displacing the earlier
// responder. Responding to a closed report is a no-op.
func (s *Service) Respond(ctx context.Context, caller types.Identity, reportID string, coords *types.Coordinates) error {

	if caller.Role != types.RoleVolunteer {
		return types.ErrRoleNotAllowed
	}

	// The client aborts locally on a location-permission denial; a
	// request arriving without coordinates is rejected before any
	// store mutation is issued.
	if coords == nil {
		return types.ErrMissingLocation
	}

	if err := s.validate.Struct(coords); err != nil {
		return err
	}

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return err
	}

	if report.IsClosed {
		return nil
	}

	claimed, err := s.reports.Claim(ctx, reportID, caller.UserID, *coords)
	if err != nil {
		return err
	}

	if !claimed {
		// Lost the race, or re-read a record that moved under us.
		current, err := s.reports.Report(ctx, reportID)
		if err != nil {
			return err
		}
		if current.IsClosed {
			return nil
		}
		if current.VolunteerID != nil && *current.VolunteerID == caller.UserID {
			// own earlier claim, idempotent
			return nil
		}
		return types.ErrReportClaimed
	}

	s.logger.WithFields(logrus.Fields{
		"report_id": reportID,
		"volunteer": caller.UserID,
	}).Info("volunteer responded")

	return nil
}

// Close marks the report closed. Reporter-only, idempotent, terminal.
func (s *Service) Close(ctx context.Context, caller types.Identity, reportID string) error {

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return err
	}

	if report.ReporterUsername != caller.Username || caller.Role != types.RoleUser {
		return types.ErrNotReportOwner
	}

	if report.IsClosed {
		return nil
	}

	return s.reports.SetClosed(ctx, reportID)
}

// Complete marks the response completed. Only the assigned volunteer
// may complete; idempotent; a no-op once the reporter has closed.
func (s *Service) Complete(ctx context.Context, caller types.Identity, reportID string) error {

	if caller.Role != types.RoleVolunteer {
		return types.ErrRoleNotAllowed
	}

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return err
	}

	if report.IsClosed {
		return nil
	}

	if !report.VolunteerResponded || report.VolunteerID == nil || *report.VolunteerID != caller.UserID {
		return types.ErrNotAssigned
	}

	if report.IsCompleted {
		return nil
	}

	return s.reports.SetCompleted(ctx, reportID)
}

// Report returns a single record. Reporters see only their own;
// volunteers see any.
func (s *Service) Report(ctx context.Context, caller types.Identity, reportID string) (*types.ReportView, error) {

	report, err := s.reports.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if caller.Role != types.RoleVolunteer && report.ReporterUsername != caller.Username {
		return nil, types.ErrNotReportOwner
	}

	view := s.augment(ctx, report)
	return view, nil
}

// ReporterView lists the caller's own reports, newest first, each
// joined with the assigned volunteer's username and contact.
func (s *Service) ReporterView(ctx context.Context, caller types.Identity) ([]*types.ReportView, error) {

	records, err := s.reports.ReportsByReporter(ctx, caller.Username)
	if err != nil {
		return nil, err
	}

	views := make([]*types.ReportView, 0, len(records))
	for _, record := range records {
		views = append(views, s.augment(ctx, record))
	}

	return views, nil
}

// VolunteerView lists all reports for the volunteer pool, optionally
// filtered by type or to still-open incidents.
func (s *Service) VolunteerView(ctx context.Context, caller types.Identity, filter store.ReportFilter) ([]*types.ReportView, error) {

	if caller.Role != types.RoleVolunteer {
		return nil, types.ErrRoleNotAllowed
	}

	records, err := s.reports.Reports(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]*types.ReportView, 0, len(records))
	for _, record := range records {
		view := &types.ReportView{Report: *record, State: record.State()}
		views = append(views, view)
	}

	return views, nil
}

// ViewFor resolves the role-scoped live view used by subscriptions.
func (s *Service) ViewFor(ctx context.Context, identity types.Identity) ([]*types.ReportView, error) {
	if identity.Role == types.RoleVolunteer {
		return s.VolunteerView(ctx, identity, store.ReportFilter{})
	}
	return s.ReporterView(ctx, identity)
}

func (s *Service) UnreadCount(ctx context.Context, caller types.Identity) (int, error) {
	if caller.Role != types.RoleUser {
		return 0, types.ErrRoleNotAllowed
	}
	return s.reports.UnreadCount(ctx, caller.Username)
}

func (s *Service) MarkAllRead(ctx context.Context, caller types.Identity) error {
	if caller.Role != types.RoleUser {
		return types.ErrRoleNotAllowed
	}
	return s.reports.MarkAllRead(ctx, caller.Username)
}

// augment performs the best-effort volunteer join. A lookup failure
// degrades to placeholder fields, it never fails the view.
func (s *Service) augment(ctx context.Context, report *types.Report) *types.ReportView {

	view := &types.ReportView{Report: *report, State: report.State()}

	if !report.VolunteerResponded || report.VolunteerID == nil {
		return view
	}

	volunteer, err := s.volunteers.Volunteer(ctx, *report.VolunteerID)
	if err != nil {
		s.logger.WithError(err).WithField("volunteer_id", *report.VolunteerID).
			Warn("volunteer lookup failed, using placeholder")
		view.VolunteerUsername = utils.StringPtr(unknownVolunteerName)
		view.VolunteerContactNo = utils.StringPtr(unknownVolunteerContact)
		return view
	}

	view.VolunteerUsername = utils.StringPtr(volunteer.Username)
	view.VolunteerContactNo = utils.StringPtr(volunteer.Contact)

	return view
}
