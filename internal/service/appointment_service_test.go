package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
)

type mockAppointmentRepo struct {
	records    map[string]*models.AppointmentRecord
	created    []*models.AppointmentRecord
	updated    []*models.AppointmentRecord
	listErr    error
	createErr  error
	updateErr  error
	findErr    error
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{records: map[string]*models.AppointmentRecord{}}
}

func (m *mockAppointmentRepo) FindByID(_ context.Context, id string) (*models.AppointmentRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	record, ok := m.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockAppointmentRepo) ListForDate(_ context.Context, date string) ([]models.AppointmentRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.AppointmentRecord
	for _, record := range m.records {
		if record.StartTime.UTC().Format("2006-01-02") == date {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) ListForOffice(_ context.Context, officeID, date string) ([]models.AppointmentRecord, error) {
	var out []models.AppointmentRecord
	for _, record := range m.records {
		if models.SameOffice(record.OfficeID, officeID) && record.StartTime.UTC().Format("2006-01-02") == date {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (m *mockAppointmentRepo) List(_ context.Context, _ models.AppointmentFilter) ([]models.AppointmentRecord, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var out []models.AppointmentRecord
	for _, record := range m.records {
		out = append(out, *record)
	}
	return out, len(out), nil
}

func (m *mockAppointmentRepo) Create(_ context.Context, record *models.AppointmentRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *record
	m.records[record.ID] = &copied
	m.created = append(m.created, &copied)
	return nil
}

func (m *mockAppointmentRepo) Update(_ context.Context, record *models.AppointmentRecord) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *record
	m.records[record.ID] = &copied
	m.updated = append(m.updated, &copied)
	return nil
}

type mockAudit struct {
	entries []*models.AuditLog
	err     error
}

func (m *mockAudit) Record(_ context.Context, entry *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAudit) events() []string {
	var out []string
	for _, entry := range m.entries {
		out = append(out, entry.EventType)
	}
	return out
}

type mockOfficeRepo struct {
	offices []models.Office
	err     error
}

func (m *mockOfficeRepo) List(_ context.Context) ([]models.Office, error) {
	return append([]models.Office(nil), m.offices...), m.err
}

func (m *mockOfficeRepo) FindByID(_ context.Context, id string) (*models.Office, error) {
	for i := range m.offices {
		if models.SameOffice(m.offices[i].ID, id) {
			office := m.offices[i]
			return &office, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockOfficeRepo) Create(_ context.Context, office *models.Office) error {
	m.offices = append(m.offices, *office)
	return nil
}

func (m *mockOfficeRepo) Update(_ context.Context, office *models.Office) error {
	for i := range m.offices {
		if models.SameOffice(m.offices[i].ID, office.ID) {
			m.offices[i] = *office
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockOfficeRepo) SetInService(_ context.Context, id string, inService bool) error {
	for i := range m.offices {
		if models.SameOffice(m.offices[i].ID, id) {
			m.offices[i].InService = inService
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockClinicianRepo struct {
	clinicians []models.Clinician
	err        error
}

func (m *mockClinicianRepo) List(_ context.Context) ([]models.Clinician, error) {
	return append([]models.Clinician(nil), m.clinicians...), m.err
}

func (m *mockClinicianRepo) Create(_ context.Context, clinician *models.Clinician) error {
	m.clinicians = append(m.clinicians, *clinician)
	return nil
}

func (m *mockClinicianRepo) Update(_ context.Context, clinician *models.Clinician) error {
	for i := range m.clinicians {
		if m.clinicians[i].ID == clinician.ID {
			m.clinicians[i] = *clinician
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockRuleRepo struct {
	rules []models.AssignmentRule
	err   error
}

func (m *mockRuleRepo) List(_ context.Context) ([]models.AssignmentRule, error) {
	return append([]models.AssignmentRule(nil), m.rules...), m.err
}

func (m *mockRuleRepo) Create(_ context.Context, rule *models.AssignmentRule) error {
	m.rules = append(m.rules, *rule)
	return nil
}

func (m *mockRuleRepo) Update(_ context.Context, rule *models.AssignmentRule) error {
	for i := range m.rules {
		if m.rules[i].ID == rule.ID {
			m.rules[i] = *rule
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockRuleRepo) Deactivate(_ context.Context, id string) error {
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].Active = false
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockPreferenceRepo struct {
	prefs map[string]*models.ClientPreference
	err   error
}

func (m *mockPreferenceRepo) GetByClient(_ context.Context, clientID string) (*models.ClientPreference, error) {
	if m.err != nil {
		return nil, m.err
	}
	pref, ok := m.prefs[clientID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return pref, nil
}

func (m *mockPreferenceRepo) Upsert(_ context.Context, pref *models.ClientPreference) error {
	if m.prefs == nil {
		m.prefs = map[string]*models.ClientPreference{}
	}
	m.prefs[pref.ClientID] = pref
	return nil
}

func newAppointmentFixture(t *testing.T) (*AppointmentService, *mockAppointmentRepo, *mockAudit) {
	t.Helper()
	snapshot := testSnapshot()
	catalog := NewCatalogService(
		&mockOfficeRepo{offices: snapshot.Offices},
		&mockClinicianRepo{clinicians: snapshot.Clinicians},
		&mockRuleRepo{},
		&mockPreferenceRepo{},
		nil,
		zap.NewNop(),
	)
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())
	repo := newMockAppointmentRepo()
	audit := &mockAudit{}
	svc := NewAppointmentService(repo, catalog, engine, audit, nil, validator.New(), zap.NewNop(), "UTC")
	return svc, repo, audit
}

func TestAppointmentScheduleSuccess(t *testing.T) {
	svc, repo, audit := newAppointmentFixture(t)

	record, result, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{
		SchedulingRequest: schedulingRequest(t, "clin-primary", models.SessionTypeInPerson),
	})

	require.NoError(t, err)
	require.NotNil(t, record)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "B-1", record.OfficeID)
	assert.Equal(t, models.AppointmentStatusScheduled, record.Status)
	assert.Equal(t, models.AppointmentSourceManual, record.Source)
	assert.Equal(t, "Dana Ruiz", record.ClinicianName)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, record.StartTime.Add(time.Hour), record.EndTime)
	require.Len(t, repo.created, 1)
	assert.Contains(t, audit.events(), models.AuditAppointmentCreated)
}

func TestAppointmentScheduleInvalidPayload(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	_, _, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestAppointmentScheduleUnresolvedConflictBlocks(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	// An equal-priority booking already holds the requested room for the
	// whole window, so the conflict cannot be relocated, and the room pin
	// leaves no alternative candidate.
	existing := booking("held", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	repo.records[existing.ID] = &existing

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.Requirements = &models.AppointmentRequirements{RoomPreference: "b-1"}

	record, result, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{
		SchedulingRequest: req,
	})

	require.Error(t, err)
	assert.Nil(t, record)
	require.NotNil(t, result, "engine result is returned alongside the conflict error")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.created, 0)
}

func TestAppointmentScheduleForceOverridesConflict(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	existing := booking("held", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	repo.records[existing.ID] = &existing

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.Requirements = &models.AppointmentRequirements{RoomPreference: "b-1"}

	record, result, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{
		SchedulingRequest: req,
		Force:             true,
	})

	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "B-1", record.OfficeID)
	require.Len(t, result.Conflicts, 1, "conflict is still surfaced to the caller")
}

func TestAppointmentScheduleRelocatesLowerPriorityBooking(t *testing.T) {
	svc, repo, audit := newAppointmentFixture(t)

	// A telehealth session nominally holds B-1; an in-person request for the
	// same window displaces it to the first free room.
	existing := booking("tele", "B-1", models.SessionTypeTelehealth, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	repo.records[existing.ID] = &existing

	record, result, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{
		SchedulingRequest: schedulingRequest(t, "clin-primary", models.SessionTypeInPerson),
	})

	require.NoError(t, err)
	assert.Equal(t, "B-1", record.OfficeID)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ResolutionRelocate, result.Conflicts[0].Resolution)

	moved := repo.records["tele"]
	require.NotNil(t, moved)
	assert.Equal(t, result.Conflicts[0].TargetOfficeID, moved.OfficeID)
	assert.Contains(t, audit.events(), models.AuditConflictResolved)
}

func TestAppointmentScheduleUnknownClinician(t *testing.T) {
	svc, _, _ := newAppointmentFixture(t)

	req := schedulingRequest(t, "clin-ghost", models.SessionTypeInPerson)
	_, result, err := svc.Schedule(context.Background(), ScheduleAppointmentRequest{SchedulingRequest: req})

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestAppointmentRescheduleIgnoresOwnBooking(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	existing := booking("appt-1", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	repo.records[existing.ID] = &existing

	// Move by 30 minutes into a window that still overlaps the original
	// slot; only the appointment itself occupies it, so no conflict.
	record, result, err := svc.Reschedule(context.Background(), "appt-1", mustTime(t, "2026-03-02T14:30:00Z"), 60, false)

	require.NoError(t, err)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, models.AppointmentStatusRescheduled, record.Status)
	assert.Equal(t, mustTime(t, "2026-03-02T15:30:00Z"), record.EndTime)
}

func TestAppointmentRescheduleTerminalStatus(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	existing := booking("appt-1", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	existing.Status = models.AppointmentStatusCompleted
	repo.records[existing.ID] = &existing

	_, _, err := svc.Reschedule(context.Background(), "appt-1", mustTime(t, "2026-03-03T10:00:00Z"), 60, false)

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCancelIsStatusTransition(t *testing.T) {
	svc, repo, audit := newAppointmentFixture(t)

	existing := booking("appt-1", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	repo.records[existing.ID] = &existing

	record, err := svc.Cancel(context.Background(), "appt-1", "client request")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, record.Status)
	assert.Equal(t, "client request", record.Notes)
	assert.Contains(t, audit.events(), models.AuditAppointmentCancelled)

	_, err = svc.Cancel(context.Background(), "appt-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestAppointmentCompleteRequiresScheduled(t *testing.T) {
	svc, repo, _ := newAppointmentFixture(t)

	existing := booking("appt-1", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)
	existing.Status = models.AppointmentStatusCancelled
	repo.records[existing.ID] = &existing

	_, err := svc.Complete(context.Background(), "appt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	existing.Status = models.AppointmentStatusScheduled
	repo.records[existing.ID] = &existing
	record, err := svc.Complete(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCompleted, record.Status)
}

func TestAppointmentGetByIDNotFound(t *testing.T) {
	svc, _, _ := newAppointmentFixture(t)

	_, err := svc.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
