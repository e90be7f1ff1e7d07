package models

import "time"

// Conflict resolution verdicts.
const (
	ResolutionRelocate       = "relocate"
	ResolutionCannotRelocate = "cannot-relocate"
)

// SchedulingRequest asks the assignment engine for an office.
type SchedulingRequest struct {
	ClientID        string                   `json:"client_id" validate:"required"`
	ClientName      string                   `json:"client_name"`
	ClinicianID     string                   `json:"clinician_id" validate:"required"`
	StartTime       time.Time                `json:"start_time" validate:"required"`
	DurationMinutes int                      `json:"duration_minutes" validate:"required,gt=0"`
	SessionType     string                   `json:"session_type" validate:"required,oneof=in-person telehealth group family"`
	ClientAge       *int                     `json:"client_age,omitempty"`
	Requirements    *AppointmentRequirements `json:"requirements,omitempty"`
}

// EndTime is always start + duration; never calendar-local arithmetic.
func (r *SchedulingRequest) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationMinutes) * time.Minute)
}

// NeedsAccessibility reports whether the request demands an accessible room.
func (r *SchedulingRequest) NeedsAccessibility() bool {
	return r.Requirements != nil && r.Requirements.Accessibility
}

// RoomPreference returns the requested room in canonical form, or "".
func (r *SchedulingRequest) RoomPreference() string {
	if r.Requirements == nil || r.Requirements.RoomPreference == "" {
		return ""
	}
	return StandardOfficeID(r.Requirements.RoomPreference)
}

// RequiredFeatures returns the special features the request demands.
func (r *SchedulingRequest) RequiredFeatures() []string {
	if r.Requirements == nil {
		return nil
	}
	return r.Requirements.SpecialFeatures
}

// SchedulingConflict records a collision between a candidate office and an
// existing booking, together with the relocation verdict.
type SchedulingConflict struct {
	OfficeID        string            `json:"office_id"`
	ExistingBooking AppointmentRecord `json:"existing_booking"`
	Resolution      string            `json:"resolution"`
	TargetOfficeID  string            `json:"target_office_id,omitempty"`
	Reason          string            `json:"reason"`
}

// EvaluationEntry is one step of the engine's append-only decision log.
type EvaluationEntry struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// SchedulingResult is the engine's verdict. The engine never fails by
// panicking past its boundary; errors are surfaced in Error.
type SchedulingResult struct {
	Success   bool                 `json:"success"`
	OfficeID  string               `json:"office_id,omitempty"`
	Score     int                  `json:"score"`
	Conflicts []SchedulingConflict `json:"conflicts,omitempty"`
	Notes     string               `json:"notes,omitempty"`
	Log       []EvaluationEntry    `json:"evaluation_log,omitempty"`
	Error     string               `json:"error,omitempty"`
}
