package models

import "time"

// Summary conflict types.
const (
	SummaryConflictDoubleBooking = "double-booking"
	SummaryConflictAccessibility = "accessibility"
	SummaryConflictCapacity      = "capacity"
)

// Severity levels shared by summary conflicts and alerts.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Alert categories.
const (
	AlertTypeScheduling = "scheduling"
	AlertTypeCapacity   = "capacity"
)

// SummaryConflict is a problem surfaced by daily aggregation.
type SummaryConflict struct {
	Type           string   `json:"type"`
	Severity       string   `json:"severity"`
	Description    string   `json:"description"`
	OfficeID       string   `json:"office_id,omitempty"`
	ClinicianID    string   `json:"clinician_id,omitempty"`
	AppointmentIDs []string `json:"appointment_ids,omitempty"`
}

// OfficeUtilization counts booked slots against a fixed per-day capacity.
type OfficeUtilization struct {
	OfficeID     string   `json:"office_id"`
	BookedSlots  int      `json:"booked_slots"`
	TotalSlots   int      `json:"total_slots"`
	Notes        []string `json:"notes,omitempty"`
}

// SummaryAlert is a coarse-grained roll-up, deduplicated by category.
type SummaryAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// DailyScheduleSummary is the aggregated operational report for one day.
type DailyScheduleSummary struct {
	Date         string                       `json:"date"`
	Appointments []AppointmentRecord          `json:"appointments"`
	Conflicts    []SummaryConflict            `json:"conflicts"`
	Utilization  map[string]OfficeUtilization `json:"office_utilization"`
	Alerts       []SummaryAlert               `json:"alerts"`
	GeneratedAt  time.Time                    `json:"generated_at"`
}
