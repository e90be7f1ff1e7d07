package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// OfficeRepository manages persistence for office records.
type OfficeRepository struct {
	db *sqlx.DB
}

// NewOfficeRepository constructs an OfficeRepository.
func NewOfficeRepository(db *sqlx.DB) *OfficeRepository {
	return &OfficeRepository{db: db}
}

// List returns every office ordered by id.
func (r *OfficeRepository) List(ctx context.Context) ([]models.Office, error) {
	const query = `SELECT id, name, in_service, is_accessible, size, special_features,
        primary_clinician_id, alternative_clinicians, is_flex_space, created_at, updated_at
        FROM offices ORDER BY id`
	var offices []models.Office
	if err := r.db.SelectContext(ctx, &offices, query); err != nil {
		return nil, fmt.Errorf("list offices: %w", err)
	}
	return offices, nil
}

// FindByID fetches an office by its canonical id.
func (r *OfficeRepository) FindByID(ctx context.Context, id string) (*models.Office, error) {
	const query = `SELECT id, name, in_service, is_accessible, size, special_features,
        primary_clinician_id, alternative_clinicians, is_flex_space, created_at, updated_at
        FROM offices WHERE id = $1`
	var office models.Office
	if err := r.db.GetContext(ctx, &office, query, models.StandardOfficeID(id)); err != nil {
		return nil, err
	}
	return &office, nil
}

// Create inserts a new office. The id is stored in canonical form.
func (r *OfficeRepository) Create(ctx context.Context, office *models.Office) error {
	office.ID = models.StandardOfficeID(office.ID)
	now := time.Now().UTC()
	if office.CreatedAt.IsZero() {
		office.CreatedAt = now
	}
	office.UpdatedAt = now
	const query = `INSERT INTO offices (id, name, in_service, is_accessible, size, special_features,
        primary_clinician_id, alternative_clinicians, is_flex_space, created_at, updated_at)
        VALUES (:id, :name, :in_service, :is_accessible, :size, :special_features,
        :primary_clinician_id, :alternative_clinicians, :is_flex_space, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("create office: %w", err)
	}
	return nil
}

// Update modifies an existing office.
func (r *OfficeRepository) Update(ctx context.Context, office *models.Office) error {
	office.ID = models.StandardOfficeID(office.ID)
	office.UpdatedAt = time.Now().UTC()
	const query = `UPDATE offices SET name = :name, in_service = :in_service, is_accessible = :is_accessible,
        size = :size, special_features = :special_features, primary_clinician_id = :primary_clinician_id,
        alternative_clinicians = :alternative_clinicians, is_flex_space = :is_flex_space, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, office); err != nil {
		return fmt.Errorf("update office: %w", err)
	}
	return nil
}

// SetInService toggles whether the office accepts bookings.
func (r *OfficeRepository) SetInService(ctx context.Context, id string, inService bool) error {
	const query = `UPDATE offices SET in_service = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, models.StandardOfficeID(id), inService, time.Now().UTC()); err != nil {
		return fmt.Errorf("set office in_service: %w", err)
	}
	return nil
}
