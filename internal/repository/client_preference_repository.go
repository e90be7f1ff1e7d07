package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// ClientPreferenceRepository manages persistence for client preferences.
type ClientPreferenceRepository struct {
	db *sqlx.DB
}

// NewClientPreferenceRepository constructs a ClientPreferenceRepository.
func NewClientPreferenceRepository(db *sqlx.DB) *ClientPreferenceRepository {
	return &ClientPreferenceRepository{db: db}
}

// List returns every stored client preference.
func (r *ClientPreferenceRepository) List(ctx context.Context) ([]models.ClientPreference, error) {
	const query = `SELECT client_id, client_name, mobility_needs, sensory_preferences, physical_needs,
        room_consistency, assigned_office, special_features, created_at, updated_at
        FROM client_preferences ORDER BY client_name`
	var prefs []models.ClientPreference
	if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
		return nil, fmt.Errorf("list client preferences: %w", err)
	}
	return prefs, nil
}

// GetByClient fetches a preference record by client id. Callers translate
// sql.ErrNoRows to "no preference".
func (r *ClientPreferenceRepository) GetByClient(ctx context.Context, clientID string) (*models.ClientPreference, error) {
	const query = `SELECT client_id, client_name, mobility_needs, sensory_preferences, physical_needs,
        room_consistency, assigned_office, special_features, created_at, updated_at
        FROM client_preferences WHERE client_id = $1`
	var pref models.ClientPreference
	if err := r.db.GetContext(ctx, &pref, query, clientID); err != nil {
		return nil, err
	}
	return &pref, nil
}

// Upsert stores or replaces the preference record for a client.
func (r *ClientPreferenceRepository) Upsert(ctx context.Context, pref *models.ClientPreference) error {
	now := time.Now().UTC()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now
	const query = `INSERT INTO client_preferences (client_id, client_name, mobility_needs, sensory_preferences,
        physical_needs, room_consistency, assigned_office, special_features, created_at, updated_at)
        VALUES (:client_id, :client_name, :mobility_needs, :sensory_preferences,
        :physical_needs, :room_consistency, :assigned_office, :special_features, :created_at, :updated_at)
        ON CONFLICT (client_id) DO UPDATE SET client_name = EXCLUDED.client_name,
        mobility_needs = EXCLUDED.mobility_needs, sensory_preferences = EXCLUDED.sensory_preferences,
        physical_needs = EXCLUDED.physical_needs, room_consistency = EXCLUDED.room_consistency,
        assigned_office = EXCLUDED.assigned_office, special_features = EXCLUDED.special_features,
        updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, pref); err != nil {
		return fmt.Errorf("upsert client preference: %w", err)
	}
	return nil
}

// Delete removes the preference record for a client.
func (r *ClientPreferenceRepository) Delete(ctx context.Context, clientID string) error {
	const query = `DELETE FROM client_preferences WHERE client_id = $1`
	if _, err := r.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("delete client preference: %w", err)
	}
	return nil
}
