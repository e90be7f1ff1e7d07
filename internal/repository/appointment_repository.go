package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

const appointmentColumns = `id, client_id, client_name, clinician_id, clinician_name, office_id,
        session_type, start_time, end_time, status, source, requirements, notes, created_at, updated_at`

// AppointmentRepository manages persistence for appointment records. Date
// bounds are computed in the practice's local time zone so same-day queries
// match what front-desk staff see on the calendar.
type AppointmentRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB, loc *time.Location) *AppointmentRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentRepository{db: db, loc: loc}
}

// FindByID fetches an appointment by ID.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.AppointmentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var record models.AppointmentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListForDate returns all appointments that start on the given local date
// (formatted 2006-01-02).
func (r *AppointmentRepository) ListForDate(ctx context.Context, date string) ([]models.AppointmentRecord, error) {
	dayStart, dayEnd, err := r.dayBounds(date)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM appointments
        WHERE start_time >= $1 AND start_time < $2 ORDER BY start_time`, appointmentColumns)
	var records []models.AppointmentRecord
	if err := r.db.SelectContext(ctx, &records, query, dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("list appointments for date: %w", err)
	}
	return records, nil
}

// ListForOffice returns a single office's appointments on the given local date.
func (r *AppointmentRepository) ListForOffice(ctx context.Context, officeID, date string) ([]models.AppointmentRecord, error) {
	dayStart, dayEnd, err := r.dayBounds(date)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM appointments
        WHERE office_id = $1 AND start_time >= $2 AND start_time < $3 ORDER BY start_time`, appointmentColumns)
	var records []models.AppointmentRecord
	if err := r.db.SelectContext(ctx, &records, query, models.StandardOfficeID(officeID), dayStart, dayEnd); err != nil {
		return nil, fmt.Errorf("list appointments for office: %w", err)
	}
	return records, nil
}

// List returns appointments matching the filter with a total count.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.AppointmentRecord, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.ClinicianID != "" {
		conditions = append(conditions, fmt.Sprintf("clinician_id = $%d", len(args)+1))
		args = append(args, filter.ClinicianID)
	}
	if filter.ClientID != "" {
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)+1))
		args = append(args, filter.ClientID)
	}
	if filter.OfficeID != "" {
		conditions = append(conditions, fmt.Sprintf("office_id = $%d", len(args)+1))
		args = append(args, models.StandardOfficeID(filter.OfficeID))
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_time >= $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}

	where := strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY start_time DESC LIMIT %d OFFSET %d`,
		appointmentColumns, where, size, offset)
	var records []models.AppointmentRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM appointments WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	return records, total, nil
}

// Create inserts a new appointment record.
func (r *AppointmentRepository) Create(ctx context.Context, record *models.AppointmentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.OfficeID = models.StandardOfficeID(record.OfficeID)
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO appointments (id, client_id, client_name, clinician_id, clinician_name, office_id,
        session_type, start_time, end_time, status, source, requirements, notes, created_at, updated_at)
        VALUES (:id, :client_id, :client_name, :clinician_id, :clinician_name, :office_id,
        :session_type, :start_time, :end_time, :status, :source, :requirements, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// Update modifies an existing appointment record.
func (r *AppointmentRepository) Update(ctx context.Context, record *models.AppointmentRecord) error {
	record.OfficeID = models.StandardOfficeID(record.OfficeID)
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET client_id = :client_id, client_name = :client_name,
        clinician_id = :clinician_id, clinician_name = :clinician_name, office_id = :office_id,
        session_type = :session_type, start_time = :start_time, end_time = :end_time, status = :status,
        source = :source, requirements = :requirements, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) dayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, r.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}
