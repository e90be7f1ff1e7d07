package models

import (
	"time"

	"github.com/lib/pq"
)

// ClientPreference stores accessibility and room preferences for a client.
// Absence of a record means "no preference" and is never an error.
type ClientPreference struct {
	ClientID           string         `db:"client_id" json:"client_id"`
	ClientName         string         `db:"client_name" json:"client_name"`
	MobilityNeeds      pq.StringArray `db:"mobility_needs" json:"mobility_needs"`
	SensoryPreferences pq.StringArray `db:"sensory_preferences" json:"sensory_preferences"`
	PhysicalNeeds      pq.StringArray `db:"physical_needs" json:"physical_needs"`
	RoomConsistency    int            `db:"room_consistency" json:"room_consistency"`
	AssignedOffice     string         `db:"assigned_office" json:"assigned_office"`
	SpecialFeatures    pq.StringArray `db:"special_features" json:"special_features"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// HasMobilityNeeds reports whether the client recorded any mobility need.
func (p *ClientPreference) HasMobilityNeeds() bool {
	return p != nil && len(p.MobilityNeeds) > 0
}
