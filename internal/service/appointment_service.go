package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
)

type appointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.AppointmentRecord, error)
	ListForDate(ctx context.Context, date string) ([]models.AppointmentRecord, error)
	ListForOffice(ctx context.Context, officeID, date string) ([]models.AppointmentRecord, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, int, error)
	Create(ctx context.Context, record *models.AppointmentRecord) error
	Update(ctx context.Context, record *models.AppointmentRecord) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog) error
}

// ScheduleAppointmentRequest is the public payload for booking a session.
type ScheduleAppointmentRequest struct {
	models.SchedulingRequest
	// Force books the winning office even when a conflict cannot be
	// relocated; the conflicts are still returned to the caller.
	Force  bool   `json:"force"`
	Source string `json:"-"`
	Notes  string `json:"notes"`
}

// AppointmentService orchestrates the assignment engine against storage:
// it builds snapshots, runs the engine, applies relocations, persists the
// record and emits audit events. The engine itself stays pure.
type AppointmentService struct {
	appointments appointmentRepository
	catalog      *CatalogService
	engine       *OfficeAssignmentService
	audit        auditRecorder
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	loc          *time.Location
}

// NewAppointmentService wires scheduling dependencies.
func NewAppointmentService(
	appointments appointmentRepository,
	catalog *CatalogService,
	engine *OfficeAssignmentService,
	audit auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	timeZone string,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil || timeZone == "" {
		loc = time.UTC
	}
	return &AppointmentService{
		appointments: appointments,
		catalog:      catalog,
		engine:       engine,
		audit:        audit,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		loc:          loc,
	}
}

// Schedule runs the full booking flow and returns both the persisted record
// and the engine result (conflicts, notes, evaluation log).
func (s *AppointmentService) Schedule(ctx context.Context, req ScheduleAppointmentRequest) (*models.AppointmentRecord, *models.SchedulingResult, error) {
	if err := s.validator.Struct(req.SchedulingRequest); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduling payload")
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	pref, err := s.catalog.ClientPreference(ctx, req.ClientID)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := s.bookingsByOffice(ctx, req.StartTime)
	if err != nil {
		return nil, nil, err
	}

	result := s.engine.FindOptimalOffice(req.SchedulingRequest, snapshot, pref, bookings)
	s.metrics.ObserveAssignment(result.Success, len(result.Conflicts))
	if !result.Success {
		s.recordAudit(ctx, models.AuditSystemError, "appointment", nil, map[string]interface{}{
			"client_id": req.ClientID,
			"error":     result.Error,
		})
		if result.Error == "clinician not found" {
			return nil, &result, appErrors.Clone(appErrors.ErrNotFound, result.Error)
		}
		return nil, &result, appErrors.Clone(appErrors.ErrNoOfficeAvailable, result.Error)
	}

	if blocked := unresolvedConflicts(result.Conflicts); len(blocked) > 0 && !req.Force {
		return nil, &result, appErrors.Clone(appErrors.ErrConflict, blocked[0].Reason)
	}
	if err := s.applyRelocations(ctx, result.Conflicts); err != nil {
		return nil, &result, err
	}

	record := s.buildRecord(req, snapshot, pref, result)
	if err := s.appointments.Create(ctx, record); err != nil {
		return nil, &result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save appointment")
	}

	s.recordAudit(ctx, models.AuditAppointmentCreated, "appointment", &record.ID, map[string]interface{}{
		"office_id":    record.OfficeID,
		"clinician_id": record.ClinicianID,
		"session_type": record.SessionType,
		"notes":        result.Notes,
	})
	return record, &result, nil
}

// Reschedule moves an existing appointment to a new time, re-running the
// assignment flow for the new window.
func (s *AppointmentService) Reschedule(ctx context.Context, id string, start time.Time, durationMinutes int, force bool) (*models.AppointmentRecord, *models.SchedulingResult, error) {
	existing, err := s.findExisting(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if existing.Status == models.AppointmentStatusCancelled || existing.Status == models.AppointmentStatusCompleted {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "appointment can no longer be rescheduled")
	}

	requirements := existing.ParseRequirements()
	req := ScheduleAppointmentRequest{
		SchedulingRequest: models.SchedulingRequest{
			ClientID:        existing.ClientID,
			ClientName:      existing.ClientName,
			ClinicianID:     existing.ClinicianID,
			StartTime:       start,
			DurationMinutes: durationMinutes,
			SessionType:     existing.SessionType,
			Requirements:    &requirements,
		},
		Force: force,
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	pref, err := s.catalog.ClientPreference(ctx, existing.ClientID)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := s.bookingsByOffice(ctx, start)
	if err != nil {
		return nil, nil, err
	}
	// The appointment being moved must not conflict with itself.
	for office, records := range bookings {
		kept := records[:0]
		for _, record := range records {
			if record.ID != existing.ID {
				kept = append(kept, record)
			}
		}
		bookings[office] = kept
	}

	result := s.engine.FindOptimalOffice(req.SchedulingRequest, snapshot, pref, bookings)
	s.metrics.ObserveAssignment(result.Success, len(result.Conflicts))
	if !result.Success {
		return nil, &result, appErrors.Clone(appErrors.ErrNoOfficeAvailable, result.Error)
	}
	if blocked := unresolvedConflicts(result.Conflicts); len(blocked) > 0 && !force {
		return nil, &result, appErrors.Clone(appErrors.ErrConflict, blocked[0].Reason)
	}
	if err := s.applyRelocations(ctx, result.Conflicts); err != nil {
		return nil, &result, err
	}

	existing.OfficeID = result.OfficeID
	existing.StartTime = start
	existing.EndTime = req.EndTime()
	existing.Status = models.AppointmentStatusRescheduled
	existing.Notes = result.Notes
	existing.UpdatedAt = time.Now().UTC()
	if err := s.appointments.Update(ctx, existing); err != nil {
		return nil, &result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	s.recordAudit(ctx, models.AuditAppointmentRescheduled, "appointment", &existing.ID, map[string]interface{}{
		"office_id":  existing.OfficeID,
		"start_time": existing.StartTime,
	})
	return existing, &result, nil
}

// Cancel transitions the appointment to cancelled; records are never
// deleted in place.
func (s *AppointmentService) Cancel(ctx context.Context, id, reason string) (*models.AppointmentRecord, error) {
	existing, err := s.findExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.AppointmentStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "appointment already cancelled")
	}
	existing.Status = models.AppointmentStatusCancelled
	if reason != "" {
		existing.Notes = reason
	}
	existing.UpdatedAt = time.Now().UTC()
	if err := s.appointments.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}
	s.recordAudit(ctx, models.AuditAppointmentCancelled, "appointment", &existing.ID, map[string]interface{}{
		"reason": reason,
	})
	return existing, nil
}

// Complete marks a finished session.
func (s *AppointmentService) Complete(ctx context.Context, id string) (*models.AppointmentRecord, error) {
	existing, err := s.findExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.AppointmentStatusScheduled && existing.Status != models.AppointmentStatusRescheduled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only scheduled appointments can be completed")
	}
	existing.Status = models.AppointmentStatusCompleted
	existing.UpdatedAt = time.Now().UTC()
	if err := s.appointments.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}
	s.recordAudit(ctx, models.AuditAppointmentUpdated, "appointment", &existing.ID, map[string]interface{}{
		"status": existing.Status,
	})
	return existing, nil
}

// GetByID returns one appointment.
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*models.AppointmentRecord, error) {
	return s.findExisting(ctx, id)
}

// List returns appointments matching the filter plus a total count.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	records, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return records, total, nil
}

// ListForDate returns the full day's appointments for aggregation.
func (s *AppointmentService) ListForDate(ctx context.Context, date string) ([]models.AppointmentRecord, error) {
	records, err := s.appointments.ListForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments for date")
	}
	return records, nil
}

func (s *AppointmentService) findExisting(ctx context.Context, id string) (*models.AppointmentRecord, error) {
	record, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return record, nil
}

// bookingsByOffice loads the request day's bookings grouped by canonical
// office id, the in-memory index the conflict resolver works against.
func (s *AppointmentService) bookingsByOffice(ctx context.Context, start time.Time) (map[string][]models.AppointmentRecord, error) {
	date := start.In(s.loc).Format(dateLayout)
	records, err := s.appointments.ListForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing bookings")
	}
	grouped := make(map[string][]models.AppointmentRecord)
	for _, record := range records {
		key := models.StandardOfficeID(record.OfficeID)
		grouped[key] = append(grouped[key], record)
	}
	return grouped, nil
}

// applyRelocations moves displaced bookings to their resolved target office.
func (s *AppointmentService) applyRelocations(ctx context.Context, conflicts []models.SchedulingConflict) error {
	for _, conflict := range conflicts {
		if conflict.Resolution != models.ResolutionRelocate {
			continue
		}
		moved := conflict.ExistingBooking
		moved.OfficeID = conflict.TargetOfficeID
		moved.UpdatedAt = time.Now().UTC()
		if err := s.appointments.Update(ctx, &moved); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to relocate existing booking")
		}
		s.metrics.ObserveRelocation()
		s.recordAudit(ctx, models.AuditConflictResolved, "appointment", &moved.ID, map[string]interface{}{
			"from_office": conflict.OfficeID,
			"to_office":   conflict.TargetOfficeID,
		})
		s.recordAudit(ctx, models.AuditDailyAssignmentsUpdated, "appointment", &moved.ID, nil)
	}
	return nil
}

func (s *AppointmentService) buildRecord(
	req ScheduleAppointmentRequest,
	snapshot CatalogSnapshot,
	pref *models.ClientPreference,
	result models.SchedulingResult,
) *models.AppointmentRecord {
	now := time.Now().UTC()
	source := req.Source
	if source == "" {
		source = models.AppointmentSourceManual
	}
	clientName := req.ClientName
	if clientName == "" && pref != nil {
		clientName = pref.ClientName
	}
	clinicianName := ""
	if clinician := snapshot.FindClinician(req.ClinicianID); clinician != nil {
		clinicianName = clinician.Name
	}
	var requirements json.RawMessage
	if req.Requirements != nil {
		requirements, _ = json.Marshal(req.Requirements)
	}
	notes := result.Notes
	if req.Notes != "" {
		notes = req.Notes
	}
	return &models.AppointmentRecord{
		ID:            uuid.NewString(),
		ClientID:      req.ClientID,
		ClientName:    clientName,
		ClinicianID:   req.ClinicianID,
		ClinicianName: clinicianName,
		OfficeID:      result.OfficeID,
		SessionType:   req.SessionType,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime(),
		Status:        models.AppointmentStatusScheduled,
		Source:        source,
		Requirements:  types.JSONText(requirements),
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func unresolvedConflicts(conflicts []models.SchedulingConflict) []models.SchedulingConflict {
	var blocked []models.SchedulingConflict
	for _, conflict := range conflicts {
		if conflict.Resolution == models.ResolutionCannotRelocate {
			blocked = append(blocked, conflict)
		}
	}
	return blocked
}

func (s *AppointmentService) recordAudit(ctx context.Context, eventType, resource string, resourceID *string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	var payload []byte
	if detail != nil {
		payload, _ = json.Marshal(detail)
	}
	entry := &models.AuditLog{
		EventType:  eventType,
		Resource:   resource,
		ResourceID: resourceID,
		Detail:     payload,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit event", zap.String("event", eventType), zap.Error(err))
	}
}
