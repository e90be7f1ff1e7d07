package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Office size classes.
const (
	OfficeSizeSmall  = "small"
	OfficeSizeMedium = "medium"
	OfficeSizeLarge  = "large"
)

// Office represents a physical therapy room snapshot.
type Office struct {
	ID                   string         `db:"id" json:"id"`
	Name                 string         `db:"name" json:"name"`
	InService            bool           `db:"in_service" json:"in_service"`
	IsAccessible         bool           `db:"is_accessible" json:"is_accessible"`
	Size                 string         `db:"size" json:"size"`
	SpecialFeatures      pq.StringArray `db:"special_features" json:"special_features"`
	PrimaryClinicianID   string         `db:"primary_clinician_id" json:"primary_clinician_id"`
	AlternativeClinician pq.StringArray `db:"alternative_clinicians" json:"alternative_clinicians"`
	IsFlexSpace          bool           `db:"is_flex_space" json:"is_flex_space"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`

	// Derived by the catalog layer from clinician preferred-office lists.
	PreferredByClinicians []string `db:"-" json:"preferred_by_clinicians,omitempty"`
}

// HasFeature reports whether the office advertises the given special feature.
func (o *Office) HasFeature(feature string) bool {
	needle := strings.ToLower(strings.TrimSpace(feature))
	for _, f := range o.SpecialFeatures {
		if strings.ToLower(strings.TrimSpace(f)) == needle {
			return true
		}
	}
	return false
}

// HasAllFeatures reports whether the office supersets the required feature list.
func (o *Office) HasAllFeatures(features []string) bool {
	for _, f := range features {
		if !o.HasFeature(f) {
			return false
		}
	}
	return true
}

// StandardOfficeID normalises an office identifier to the canonical
// `<Floor>-<unit>` form: uppercase floor letter, lowercase unit token.
// "b-1" → "B-1", "A-A" → "A-a", "Ba" → "B-a". All office id comparisons
// must go through this function.
func StandardOfficeID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if idx := strings.Index(s, "-"); idx > 0 {
		floor := strings.ToUpper(strings.TrimSpace(s[:idx]))
		unit := strings.ToLower(strings.TrimSpace(s[idx+1:]))
		if floor == "" || unit == "" {
			return strings.ToUpper(s)
		}
		return floor + "-" + unit
	}
	if len(s) == 2 {
		return strings.ToUpper(s[:1]) + "-" + strings.ToLower(s[1:])
	}
	return strings.ToUpper(s)
}

// SameOffice compares two raw office identifiers in canonical form.
func SameOffice(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return StandardOfficeID(a) == StandardOfficeID(b)
}
