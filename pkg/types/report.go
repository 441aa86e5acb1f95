package types

import (
	"time"
)

// ReportState is the effective lifecycle state of a report. The stored
// representation keeps the individual flags so partial updates stay
// single-field; the state is derived, highest priority flag wins.
type ReportState string

const (
	ReportStateOpen      ReportState = "OPEN"
	ReportStateResponded ReportState = "RESPONDED"
	ReportStateCompleted ReportState = "COMPLETED"
	ReportStateClosed    ReportState = "CLOSED"
)

type Report struct {
	ID                 string    `db:"id" json:"id"`
	ReporterUsername   string    `db:"reporter_username" json:"reporterUsername"`
	ReporterContact    string    `db:"reporter_contact" json:"reporterContact"`
	DisasterType       string    `db:"disaster_type" json:"disasterType"`
	Description        *string   `db:"description" json:"description,omitempty"`
	LocationLabel      string    `db:"location_label" json:"locationLabel"`
	Latitude           *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude          *float64  `db:"longitude" json:"longitude,omitempty"`
	IsRead             bool      `db:"is_read" json:"isRead"`
	VolunteerResponded bool      `db:"volunteer_responded" json:"volunteerResponded"`
	VolunteerID        *string   `db:"volunteer_id" json:"volunteerId,omitempty"`
	VolunteerLat       *float64  `db:"volunteer_lat" json:"volunteerLat,omitempty"`
	VolunteerLng       *float64  `db:"volunteer_lng" json:"volunteerLng,omitempty"`
	IsCompleted        bool      `db:"is_completed" json:"isCompleted"`
	IsClosed           bool      `db:"is_closed" json:"isClosed"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// State collapses the stored flags into the effective lifecycle state,
// priority CLOSED > COMPLETED > RESPONDED > OPEN.
func (r *Report) State() ReportState {
	switch {
	case r.IsClosed:
		return ReportStateClosed
	case r.IsCompleted:
		return ReportStateCompleted
	case r.VolunteerResponded:
		return ReportStateResponded
	default:
		return ReportStateOpen
	}
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" form:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" form:"longitude" validate:"required,gte=-180,lte=180"`
}

// ReportView is a report as delivered to a client, augmented with the
// assigned volunteer's projection fields and the derived state.
type ReportView struct {
	Report
	State              ReportState `json:"state"`
	VolunteerUsername  *string     `json:"volunteerUsername,omitempty"`
	VolunteerContactNo *string     `json:"volunteerContactNo,omitempty"`
}
