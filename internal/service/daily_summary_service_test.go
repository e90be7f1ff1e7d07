package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

func summaryService(t *testing.T) *DailySummaryService {
	t.Helper()
	return NewDailySummaryService(DailySummaryConfig{
		SlotsPerOfficeDay:   8,
		HighUtilization:     0.8,
		CriticalUtilization: 0.9,
		TimeZone:            "UTC",
	}, zap.NewNop())
}

func TestGenerateDailySummaryDoubleBookingPair(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	a := booking("a1", "B-1", models.SessionTypeInPerson, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)
	b := booking("a2", "B-1", models.SessionTypeInPerson, "2026-03-02T10:30:00Z", "2026-03-02T11:30:00Z", t)
	// Same clinician on both, so the pair also yields a clinician conflict.
	b.ClinicianID = a.ClinicianID
	b.ClinicianName = a.ClinicianName

	summary := svc.GenerateDailySummary("2026-03-02", offices, []models.AppointmentRecord{a, b}, nil, nil)

	require.Len(t, summary.Conflicts, 2, "one office-scoped and one clinician-scoped record per overlapping pair")
	assert.Equal(t, models.SummaryConflictDoubleBooking, summary.Conflicts[0].Type)
	assert.Equal(t, "B-1", summary.Conflicts[0].OfficeID)
	assert.ElementsMatch(t, []string{"a1", "a2"}, summary.Conflicts[0].AppointmentIDs)
	assert.Equal(t, a.ClinicianID, summary.Conflicts[1].ClinicianID)

	require.Len(t, summary.Alerts, 1)
	assert.Equal(t, models.AlertTypeScheduling, summary.Alerts[0].Type)
	assert.Equal(t, models.SeverityHigh, summary.Alerts[0].Severity)
}

func TestGenerateDailySummaryTelehealthNeverDoubleBooks(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	a := booking("a1", "B-1", models.SessionTypeTelehealth, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)
	b := booking("a2", "B-1", models.SessionTypeInPerson, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)

	summary := svc.GenerateDailySummary("2026-03-02", offices, []models.AppointmentRecord{a, b}, nil, nil)

	assert.Empty(t, summary.Conflicts, "pairs involving a telehealth session are skipped in aggregation")
	assert.Empty(t, summary.Alerts)
}

func TestGenerateDailySummarySkipsCancelledAndOtherDays(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	cancelled := booking("a1", "B-1", models.SessionTypeInPerson, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)
	cancelled.Status = models.AppointmentStatusCancelled
	yesterday := booking("a2", "B-1", models.SessionTypeInPerson, "2026-03-01T10:00:00Z", "2026-03-01T11:00:00Z", t)
	kept := booking("a3", "B-1", models.SessionTypeInPerson, "2026-03-02T10:30:00Z", "2026-03-02T11:30:00Z", t)

	summary := svc.GenerateDailySummary("2026-03-02", offices, []models.AppointmentRecord{cancelled, yesterday, kept}, nil, nil)

	// Cancelled records still appear in the day's listing but produce no
	// conflicts and no utilization.
	assert.Len(t, summary.Appointments, 2)
	assert.Empty(t, summary.Conflicts)
	assert.Equal(t, 1, summary.Utilization["B-1"].BookedSlots)
}

func TestGenerateDailySummarySkipsMalformedRecords(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	malformed := models.AppointmentRecord{ID: "", OfficeID: "B-1", SessionType: models.SessionTypeInPerson}
	kept := booking("a1", "B-1", models.SessionTypeInPerson, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)

	summary := svc.GenerateDailySummary("2026-03-02", offices, []models.AppointmentRecord{malformed, kept}, nil, nil)

	require.Len(t, summary.Appointments, 1, "a malformed record is dropped, never aborts the day")
	assert.Equal(t, "a1", summary.Appointments[0].ID)
}

func TestGenerateDailySummaryOverCapacityConflict(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	// Nine non-overlapping sessions against an eight-slot day.
	var appointments []models.AppointmentRecord
	hours := []string{"08", "09", "10", "11", "12", "13", "14", "15", "16"}
	for _, hour := range hours {
		appointments = append(appointments, booking("b1-"+hour, "B-1", models.SessionTypeInPerson,
			"2026-03-02T"+hour+":00:00Z", "2026-03-02T"+hour+":45:00Z", t))
	}

	summary := svc.GenerateDailySummary("2026-03-02", offices, appointments, nil, nil)

	require.Len(t, summary.Conflicts, 1)
	assert.Equal(t, models.SummaryConflictCapacity, summary.Conflicts[0].Type)
	assert.Equal(t, models.SeverityHigh, summary.Conflicts[0].Severity)
	assert.Equal(t, "B-1", summary.Conflicts[0].OfficeID)
	assert.Equal(t, 9, summary.Utilization["B-1"].BookedSlots)
}

func TestGenerateDailySummaryUtilizationThresholds(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{
		{ID: "B-1", InService: true},
		{ID: "B-2", InService: true},
		{ID: "C-1", InService: true},
	}

	var appointments []models.AppointmentRecord
	hours := []string{"08", "09", "10", "11", "12", "13", "14", "15"}
	// B-1 at 8/8 (critical), B-2 at 7/8 (high), C-1 at 6/8 (no note).
	for i, hour := range hours {
		appointments = append(appointments, booking("b1-"+hour, "B-1", models.SessionTypeInPerson,
			"2026-03-02T"+hour+":00:00Z", "2026-03-02T"+hour+":45:00Z", t))
		if i < 7 {
			appointments = append(appointments, booking("b2-"+hour, "B-2", models.SessionTypeInPerson,
				"2026-03-02T"+hour+":00:00Z", "2026-03-02T"+hour+":45:00Z", t))
		}
		if i < 6 {
			appointments = append(appointments, booking("c1-"+hour, "C-1", models.SessionTypeInPerson,
				"2026-03-02T"+hour+":00:00Z", "2026-03-02T"+hour+":45:00Z", t))
		}
	}

	summary := svc.GenerateDailySummary("2026-03-02", offices, appointments, nil, nil)

	assert.Equal(t, 8, summary.Utilization["B-1"].BookedSlots)
	assert.Contains(t, summary.Utilization["B-1"].Notes, "Critical capacity warning")
	assert.Equal(t, 7, summary.Utilization["B-2"].BookedSlots)
	assert.Contains(t, summary.Utilization["B-2"].Notes, "High utilization")
	assert.Equal(t, 6, summary.Utilization["C-1"].BookedSlots)
	assert.Empty(t, summary.Utilization["C-1"].Notes, "6/8 is below the high-utilization threshold")

	var capacity *models.SummaryAlert
	for i := range summary.Alerts {
		if summary.Alerts[i].Type == models.AlertTypeCapacity {
			capacity = &summary.Alerts[i]
		}
	}
	require.NotNil(t, capacity)
	assert.Equal(t, models.SeverityHigh, capacity.Severity, "a critical office escalates the capacity alert")
	assert.Contains(t, capacity.Message, "2 office(s)")
}

func TestGenerateDailySummaryFlexSpaceNote(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-5", InService: true, IsFlexSpace: true}}

	summary := svc.GenerateDailySummary("2026-03-02", offices, nil, nil, nil)

	assert.Contains(t, summary.Utilization["B-5"].Notes, "Flex space - coordinate with team")
}

func TestGenerateDailySummaryAccessibilityConflict(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{
		{ID: "B-1", InService: true, IsAccessible: false},
		{ID: "C-1", InService: true, IsAccessible: true},
	}

	inWrongRoom := booking("a1", "B-1", models.SessionTypeInPerson, "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", t)
	inRightRoom := booking("a2", "C-1", models.SessionTypeInPerson, "2026-03-02T12:00:00Z", "2026-03-02T13:00:00Z", t)
	inRightRoom.ClientID = inWrongRoom.ClientID

	prefs := map[string]*models.ClientPreference{
		inWrongRoom.ClientID: {ClientID: inWrongRoom.ClientID, MobilityNeeds: []string{"wheelchair"}},
	}

	summary := svc.GenerateDailySummary("2026-03-02", offices, []models.AppointmentRecord{inWrongRoom, inRightRoom}, nil, prefs)

	require.Len(t, summary.Conflicts, 1)
	assert.Equal(t, models.SummaryConflictAccessibility, summary.Conflicts[0].Type)
	assert.Equal(t, "B-1", summary.Conflicts[0].OfficeID)
	assert.Equal(t, []string{"a1"}, summary.Conflicts[0].AppointmentIDs)
}

func TestGenerateDailySummaryEmptyDay(t *testing.T) {
	svc := summaryService(t)
	offices := []models.Office{{ID: "B-1", InService: true}}

	summary := svc.GenerateDailySummary("2026-03-02", offices, nil, nil, nil)

	assert.Empty(t, summary.Appointments)
	assert.NotNil(t, summary.Conflicts)
	assert.Empty(t, summary.Conflicts)
	assert.Empty(t, summary.Alerts)
	assert.Equal(t, 0, summary.Utilization["B-1"].BookedSlots)
	assert.Equal(t, 8, summary.Utilization["B-1"].TotalSlots)
}
