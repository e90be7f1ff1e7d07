package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Session types.
const (
	SessionTypeInPerson   = "in-person"
	SessionTypeTelehealth = "telehealth"
	SessionTypeGroup      = "group"
	SessionTypeFamily     = "family"
)

// Appointment statuses. Records transition status instead of being deleted.
const (
	AppointmentStatusScheduled   = "scheduled"
	AppointmentStatusCompleted   = "completed"
	AppointmentStatusCancelled   = "cancelled"
	AppointmentStatusRescheduled = "rescheduled"
)

// Appointment sources.
const (
	AppointmentSourceManual   = "manual"
	AppointmentSourceExternal = "external"
)

// AppointmentRequirements is the optional requirements block attached to an
// appointment or scheduling request.
type AppointmentRequirements struct {
	Accessibility   bool     `json:"accessibility"`
	RoomPreference  string   `json:"room_preference,omitempty"`
	SpecialFeatures []string `json:"special_features,omitempty"`
}

// AppointmentRecord is a scheduled session occupying (or, for telehealth,
// nominally attached to) an office.
type AppointmentRecord struct {
	ID            string         `db:"id" json:"id"`
	ClientID      string         `db:"client_id" json:"client_id"`
	ClientName    string         `db:"client_name" json:"client_name"`
	ClinicianID   string         `db:"clinician_id" json:"clinician_id"`
	ClinicianName string         `db:"clinician_name" json:"clinician_name"`
	OfficeID      string         `db:"office_id" json:"office_id"`
	SessionType   string         `db:"session_type" json:"session_type"`
	StartTime     time.Time      `db:"start_time" json:"start_time"`
	EndTime       time.Time      `db:"end_time" json:"end_time"`
	Status        string         `db:"status" json:"status"`
	Source        string         `db:"source" json:"source"`
	Requirements  types.JSONText `db:"requirements" json:"requirements,omitempty"`
	Notes         string         `db:"notes" json:"notes"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// ParseRequirements decodes the requirements column, defaulting missing or
// malformed payloads to an empty block rather than failing.
func (a *AppointmentRecord) ParseRequirements() AppointmentRequirements {
	var req AppointmentRequirements
	if len(a.Requirements) == 0 {
		return req
	}
	if err := json.Unmarshal(a.Requirements, &req); err != nil {
		return AppointmentRequirements{}
	}
	return req
}

// IsTelehealth reports whether the appointment occupies no physical room.
func (a *AppointmentRecord) IsTelehealth() bool {
	return a.SessionType == SessionTypeTelehealth
}

// Overlaps reports whether two appointments collide on absolute instants.
// Ranges are half-open: [start, end).
func (a *AppointmentRecord) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}

// AppointmentFilter describes query params for listing appointments.
type AppointmentFilter struct {
	ClinicianID string
	ClientID    string
	OfficeID    string
	Status      string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
