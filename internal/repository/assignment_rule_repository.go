package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// AssignmentRuleRepository manages persistence for office assignment rules.
type AssignmentRuleRepository struct {
	db *sqlx.DB
}

// NewAssignmentRuleRepository constructs an AssignmentRuleRepository.
func NewAssignmentRuleRepository(db *sqlx.DB) *AssignmentRuleRepository {
	return &AssignmentRuleRepository{db: db}
}

// List returns active rules ordered by priority, highest first.
func (r *AssignmentRuleRepository) List(ctx context.Context) ([]models.AssignmentRule, error) {
	const query = `SELECT id, name, priority, rule_type, condition, office_ids, override_level, active, created_at, updated_at
        FROM assignment_rules WHERE active = true ORDER BY priority DESC, name`
	var rules []models.AssignmentRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list assignment rules: %w", err)
	}
	return rules, nil
}

// FindByID fetches a rule by ID.
func (r *AssignmentRuleRepository) FindByID(ctx context.Context, id string) (*models.AssignmentRule, error) {
	const query = `SELECT id, name, priority, rule_type, condition, office_ids, override_level, active, created_at, updated_at
        FROM assignment_rules WHERE id = $1`
	var rule models.AssignmentRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Create inserts a new assignment rule.
func (r *AssignmentRuleRepository) Create(ctx context.Context, rule *models.AssignmentRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	const query = `INSERT INTO assignment_rules (id, name, priority, rule_type, condition, office_ids, override_level, active, created_at, updated_at)
        VALUES (:id, :name, :priority, :rule_type, :condition, :office_ids, :override_level, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create assignment rule: %w", err)
	}
	return nil
}

// Update modifies an existing assignment rule.
func (r *AssignmentRuleRepository) Update(ctx context.Context, rule *models.AssignmentRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignment_rules SET name = :name, priority = :priority, rule_type = :rule_type,
        condition = :condition, office_ids = :office_ids, override_level = :override_level, active = :active,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update assignment rule: %w", err)
	}
	return nil
}

// Deactivate retires a rule without deleting its history.
func (r *AssignmentRuleRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE assignment_rules SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate assignment rule: %w", err)
	}
	return nil
}
