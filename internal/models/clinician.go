package models

import (
	"time"

	"github.com/lib/pq"
)

// Clinician roles.
const (
	ClinicianRoleOwner          = "owner"
	ClinicianRoleAdmin          = "admin"
	ClinicianRoleClinician      = "clinician"
	ClinicianRoleIntern         = "intern"
	ClinicianRoleScheduler      = "scheduler"
	ClinicianRolePostGradFellow = "postgrad_fellow"
)

// Clinician represents a therapist able to hold sessions.
type Clinician struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Email              string         `db:"email" json:"email"`
	Role               string         `db:"role" json:"role"`
	PreferredOfficeIDs pq.StringArray `db:"preferred_offices" json:"preferred_offices"`
	Active             bool           `db:"active" json:"active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`

	// Derived by the catalog layer from Office.PrimaryClinicianID and the
	// alternative clinician lists.
	PrimaryOfficeIDs   []string `db:"-" json:"primary_offices,omitempty"`
	AlternateOfficeIDs []string `db:"-" json:"alternate_offices,omitempty"`
}

// PrefersOffice reports whether the office id is in the clinician's
// preferred-office list, compared in canonical form.
func (c *Clinician) PrefersOffice(officeID string) bool {
	for _, id := range c.PreferredOfficeIDs {
		if SameOffice(id, officeID) {
			return true
		}
	}
	return false
}
