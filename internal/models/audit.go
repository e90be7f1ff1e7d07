package models

import "time"

// AuditEventType constants key every externally visible decision.
const (
	AuditAppointmentCreated      = "APPOINTMENT_CREATED"
	AuditAppointmentUpdated      = "APPOINTMENT_UPDATED"
	AuditAppointmentCancelled    = "APPOINTMENT_CANCELLED"
	AuditAppointmentRescheduled  = "APPOINTMENT_RESCHEDULED"
	AuditConflictResolved        = "CONFLICT_RESOLVED"
	AuditDailyAssignmentsUpdated = "DAILY_ASSIGNMENTS_UPDATED"
	AuditWebhookReceived         = "WEBHOOK_RECEIVED"
	AuditSystemError             = "SYSTEM_ERROR"
	AuditLoginEvent              = "LOGIN"
	AuditUserCreated             = "USER_CREATED"
	AuditUserUpdated             = "USER_UPDATED"
	AuditUserDeactivated         = "USER_DEACTIVATED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	EventType  string    `db:"event_type" json:"event_type"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Detail     []byte    `db:"detail" json:"detail,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
