package models

import (
	"time"

	"github.com/lib/pq"
)

// Assignment rule types.
const (
	RuleTypeAccessibility   = "accessibility"
	RuleTypeAgeGroup        = "age_group"
	RuleTypeSessionType     = "session_type"
	RuleTypeFixed           = "fixed"
	RuleTypeRoomConsistency = "room_consistency"
	RuleTypeSpecialFeatures = "special_features"
)

// Rule override levels.
const (
	OverrideLevelHard = "hard"
	OverrideLevelSoft = "soft"
	OverrideLevelNone = "none"
)

// AssignmentRule is a weighted office assignment rule. Condition is free
// text interpreted per rule type (e.g. ">6 && <=12" for age_group rules).
type AssignmentRule struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Priority      int            `db:"priority" json:"priority"`
	RuleType      string         `db:"rule_type" json:"rule_type"`
	Condition     string         `db:"condition" json:"condition"`
	OfficeIDs     pq.StringArray `db:"office_ids" json:"office_ids"`
	OverrideLevel string         `db:"override_level" json:"override_level"`
	Active        bool           `db:"active" json:"active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// AppliesToOffice reports whether the rule's office set includes the office,
// compared in canonical form.
func (r *AssignmentRule) AppliesToOffice(officeID string) bool {
	for _, id := range r.OfficeIDs {
		if SameOffice(id, officeID) {
			return true
		}
	}
	return false
}

// IsHard reports whether the rule carries a hard override level.
func (r *AssignmentRule) IsHard() bool {
	return r.OverrideLevel == OverrideLevelHard
}
