package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	appt := AppointmentRecord{StartTime: base, EndTime: base.Add(time.Hour)}

	assert.True(t, appt.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, appt.Overlaps(base.Add(59*time.Minute), base.Add(2*time.Hour)))
	assert.False(t, appt.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)), "touching endpoints do not overlap")
	assert.False(t, appt.Overlaps(base.Add(-time.Hour), base))
}

func TestParseRequirementsDefaultsOnBadPayload(t *testing.T) {
	appt := AppointmentRecord{}
	assert.Equal(t, AppointmentRequirements{}, appt.ParseRequirements())

	appt.Requirements = []byte(`{not json`)
	assert.Equal(t, AppointmentRequirements{}, appt.ParseRequirements())

	appt.Requirements = []byte(`{"accessibility":true,"room_preference":"b-1"}`)
	req := appt.ParseRequirements()
	assert.True(t, req.Accessibility)
	assert.Equal(t, "b-1", req.RoomPreference)
}

func TestSchedulingRequestHelpers(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	req := SchedulingRequest{StartTime: start, DurationMinutes: 45}

	assert.Equal(t, start.Add(45*time.Minute), req.EndTime())
	assert.False(t, req.NeedsAccessibility())
	assert.Empty(t, req.RoomPreference())
	assert.Nil(t, req.RequiredFeatures())

	req.Requirements = &AppointmentRequirements{
		Accessibility:   true,
		RoomPreference:  "b-2",
		SpecialFeatures: []string{"ramp"},
	}
	assert.True(t, req.NeedsAccessibility())
	assert.Equal(t, "B-2", req.RoomPreference())
	assert.Equal(t, []string{"ramp"}, req.RequiredFeatures())
}
