package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// ClinicianRepository manages persistence for clinician records.
type ClinicianRepository struct {
	db *sqlx.DB
}

// NewClinicianRepository constructs a ClinicianRepository.
func NewClinicianRepository(db *sqlx.DB) *ClinicianRepository {
	return &ClinicianRepository{db: db}
}

// List returns every active clinician ordered by name.
func (r *ClinicianRepository) List(ctx context.Context) ([]models.Clinician, error) {
	const query = `SELECT id, name, email, role, preferred_offices, active, created_at, updated_at
        FROM clinicians WHERE active = true ORDER BY name`
	var clinicians []models.Clinician
	if err := r.db.SelectContext(ctx, &clinicians, query); err != nil {
		return nil, fmt.Errorf("list clinicians: %w", err)
	}
	return clinicians, nil
}

// FindByID fetches a clinician by ID.
func (r *ClinicianRepository) FindByID(ctx context.Context, id string) (*models.Clinician, error) {
	const query = `SELECT id, name, email, role, preferred_offices, active, created_at, updated_at
        FROM clinicians WHERE id = $1`
	var clinician models.Clinician
	if err := r.db.GetContext(ctx, &clinician, query, id); err != nil {
		return nil, err
	}
	return &clinician, nil
}

// Create inserts a new clinician record.
func (r *ClinicianRepository) Create(ctx context.Context, clinician *models.Clinician) error {
	if clinician.ID == "" {
		clinician.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if clinician.CreatedAt.IsZero() {
		clinician.CreatedAt = now
	}
	clinician.UpdatedAt = now
	const query = `INSERT INTO clinicians (id, name, email, role, preferred_offices, active, created_at, updated_at)
        VALUES (:id, :name, :email, :role, :preferred_offices, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, clinician); err != nil {
		return fmt.Errorf("create clinician: %w", err)
	}
	return nil
}

// Update modifies an existing clinician.
func (r *ClinicianRepository) Update(ctx context.Context, clinician *models.Clinician) error {
	clinician.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clinicians SET name = :name, email = :email, role = :role,
        preferred_offices = :preferred_offices, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, clinician); err != nil {
		return fmt.Errorf("update clinician: %w", err)
	}
	return nil
}

// Deactivate marks a clinician as inactive.
func (r *ClinicianRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE clinicians SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate clinician: %w", err)
	}
	return nil
}
