package service

import (
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

func testSnapshot() CatalogSnapshot {
	return CatalogSnapshot{
		Offices: []models.Office{
			{
				ID:                 "B-1",
				Name:               "Room B-1",
				InService:          true,
				IsAccessible:       true,
				Size:               models.OfficeSizeMedium,
				PrimaryClinicianID: "clin-primary",
			},
			{
				ID:                   "B-2",
				Name:                 "Room B-2",
				InService:            true,
				Size:                 models.OfficeSizeLarge,
				SpecialFeatures:      []string{"group", "sensory-friendly"},
				AlternativeClinician: []string{"clin-primary", "clin-alt"},
			},
			{
				ID:        "C-1",
				Name:      "Room C-1",
				InService: true,
				Size:      models.OfficeSizeSmall,
			},
		},
		Clinicians: []models.Clinician{
			{ID: "clin-primary", Name: "Dana Ruiz", Role: models.ClinicianRoleClinician, Active: true, PreferredOfficeIDs: []string{"B-1", "B-2", "C-1"}},
			{ID: "clin-alt", Name: "Sam Okafor", Role: models.ClinicianRoleClinician, Active: true, PreferredOfficeIDs: []string{"B-2", "C-1"}},
		},
	}
}

func schedulingRequest(t *testing.T, clinicianID, sessionType string) models.SchedulingRequest {
	t.Helper()
	return models.SchedulingRequest{
		ClientID:        "client-1",
		ClientName:      "Jordan Lee",
		ClinicianID:     clinicianID,
		SessionType:     sessionType,
		StartTime:       mustTime(t, "2026-03-02T14:00:00Z"),
		DurationMinutes: 60,
	}
}

func TestFindOptimalOfficePrimaryClinicianDominates(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	result := engine.FindOptimalOffice(schedulingRequest(t, "clin-primary", models.SessionTypeInPerson), snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-1", result.OfficeID, "primary-clinician office beats alternates regardless of other points")
	assert.GreaterOrEqual(t, result.Score, 1000)
	assert.Contains(t, result.Notes, "HARD: Primary clinician office")
	assert.NotEmpty(t, result.Log)
}

func TestFindOptimalOfficeDeterministic(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())
	snapshot := testSnapshot()
	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)

	first := engine.FindOptimalOffice(req, snapshot, nil, nil)
	second := engine.FindOptimalOffice(req, snapshot, nil, nil)

	assert.Equal(t, first.OfficeID, second.OfficeID)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Notes, second.Notes)
	assert.Equal(t, first.Log, second.Log)
}

func TestFindOptimalOfficeInvalidRequest(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())

	result := engine.FindOptimalOffice(models.SchedulingRequest{SessionType: "haircut"}, testSnapshot(), nil, nil)

	assert.False(t, result.Success)
	assert.Equal(t, "invalid scheduling request", result.Error)
	assert.NotEmpty(t, result.Log)
}

func TestFindOptimalOfficeUnknownClinician(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())

	result := engine.FindOptimalOffice(schedulingRequest(t, "clin-missing", models.SessionTypeInPerson), testSnapshot(), nil, nil)

	assert.False(t, result.Success)
	assert.Equal(t, "clinician not found", result.Error)
}

func TestFindOptimalOfficeAccessibilityHardFilter(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.Requirements = &models.AppointmentRequirements{Accessibility: true}

	result := engine.FindOptimalOffice(req, snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-1", result.OfficeID, "only accessible office survives the filter")
}

func TestFindOptimalOfficeGroupNeedsGroupRoom(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	result := engine.FindOptimalOffice(schedulingRequest(t, "clin-alt", models.SessionTypeGroup), snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-2", result.OfficeID)
	assert.Contains(t, result.Notes, "Supports group sessions")
}

func TestFindOptimalOfficeDefaultFallback(t *testing.T) {
	snapshot := CatalogSnapshot{
		Offices: []models.Office{
			{ID: "B-1", InService: true},
			{ID: "B-2", InService: true},
		},
		Clinicians: []models.Clinician{
			// No preferred offices and no primary room: every office is
			// dropped by the hard filter.
			{ID: "clin-new", Name: "New Hire", Active: true},
		},
	}

	engine := NewOfficeAssignmentService(nil, "b-1", validator.New(), zap.NewNop())
	result := engine.FindOptimalOffice(schedulingRequest(t, "clin-new", models.SessionTypeInPerson), snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-1", result.OfficeID, "configured default id is canonicalised and used as fallback")

	engine = NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	result = engine.FindOptimalOffice(schedulingRequest(t, "clin-new", models.SessionTypeInPerson), snapshot, nil, nil)
	assert.False(t, result.Success)
	assert.Equal(t, "no offices match requirements", result.Error)
}

func TestFindOptimalOfficeRoomConsistencyPreference(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	pref := &models.ClientPreference{
		ClientID:        "client-1",
		RoomConsistency: 5,
		// Stored form differs in case from the catalog id; canonical
		// comparison still matches.
		AssignedOffice: "b-2",
	}

	result := engine.FindOptimalOffice(schedulingRequest(t, "clin-alt", models.SessionTypeInPerson), snapshot, pref, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-2", result.OfficeID)
	assert.Contains(t, result.Notes, "Room consistency 5/5")
}

func TestFindOptimalOfficeConflictedCandidateLosesToClean(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	bookings := map[string][]models.AppointmentRecord{
		"B-1": {booking("busy", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)},
	}

	result := engine.FindOptimalOffice(req, snapshot, nil, bookings)

	require.True(t, result.Success, result.Error)
	// B-1 carries the hard primary tag but also an unresolvable overlap, so
	// the clean candidates win; B-2 outranks C-1 as alternate + preferred.
	assert.Equal(t, "B-2", result.OfficeID)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, scoreAlternateClinician+scorePreferredOffice, result.Score)

	var truncated bool
	for _, entry := range result.Log {
		if entry.Stage == "conflict" && strings.Contains(entry.Detail, "B-1") {
			truncated = true
		}
	}
	assert.True(t, truncated, "conflict on B-1 should appear in the evaluation log")
}

func TestFindOptimalOfficeConflictedOnlyCandidateStillChosen(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.Requirements = &models.AppointmentRequirements{RoomPreference: "b-1"}
	bookings := map[string][]models.AppointmentRecord{
		"B-1": {booking("busy", "B-1", models.SessionTypeInPerson, "2026-03-02T14:00:00Z", "2026-03-02T15:00:00Z", t)},
	}

	result := engine.FindOptimalOffice(req, snapshot, nil, bookings)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-1", result.OfficeID)
	assert.Equal(t, 0, result.Score)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ResolutionCannotRelocate, result.Conflicts[0].Resolution)
}

func TestApplyRuleAgeGroup(t *testing.T) {
	age := 9
	req := models.SchedulingRequest{ClientAge: &age, SessionType: models.SessionTypeInPerson}
	office := models.Office{ID: "B-5"}

	rule := models.AssignmentRule{
		Name:          "school age",
		RuleType:      models.RuleTypeAgeGroup,
		Condition:     ">6 && <=12",
		OfficeIDs:     []string{"B-5"},
		OverrideLevel: models.OverrideLevelSoft,
		Active:        true,
	}

	points, reason, err := applyRule(rule, req, office)
	require.NoError(t, err)
	assert.Equal(t, scoreRuleAgeGroupSoft, points)
	assert.Contains(t, reason, "school age")

	rule.OverrideLevel = models.OverrideLevelHard
	points, _, err = applyRule(rule, req, office)
	require.NoError(t, err)
	assert.Equal(t, scoreRuleAgeGroupHard, points)

	// Out of range contributes nothing.
	teen := 15
	req.ClientAge = &teen
	points, _, err = applyRule(rule, req, office)
	require.NoError(t, err)
	assert.Zero(t, points)

	// Missing age is a silent zero, not an error.
	req.ClientAge = nil
	points, _, err = applyRule(rule, req, office)
	require.NoError(t, err)
	assert.Zero(t, points)
}

func TestEvalAgeCondition(t *testing.T) {
	cases := []struct {
		cond    string
		age     int
		want    bool
		wantErr bool
	}{
		{">6 && <=12", 9, true, false},
		{">6 && <=12", 6, false, false},
		{">6 && <=12", 12, true, false},
		{"<=5", 5, true, false},
		{"<=5", 6, false, false},
		{">=13", 13, true, false},
		{"< 10", 9, true, false},
		{"", 9, false, true},
		{"between 6 and 12", 9, false, true},
		{">six", 9, false, true},
	}
	for _, tc := range cases {
		got, err := evalAgeCondition(tc.cond, tc.age)
		if tc.wantErr {
			assert.Error(t, err, tc.cond)
			continue
		}
		require.NoError(t, err, tc.cond)
		assert.Equal(t, tc.want, got, "%s with age %d", tc.cond, tc.age)
	}
}

func TestUnparseableRuleConditionIsSkipped(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()
	snapshot.Rules = []models.AssignmentRule{
		{
			Name:          "broken",
			RuleType:      models.RuleTypeAgeGroup,
			Condition:     "ages six through twelve",
			OfficeIDs:     []string{"B-1"},
			OverrideLevel: models.OverrideLevelHard,
			Active:        true,
			Priority:      100,
		},
	}

	age := 9
	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.ClientAge = &age

	result := engine.FindOptimalOffice(req, snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "B-1", result.OfficeID)
	assert.NotContains(t, result.Notes, "broken", "unparseable rule contributes nothing")
}

func TestPickWinnerHardTagBeatsHigherSoftScore(t *testing.T) {
	soft := officeCandidate{office: models.Office{ID: "B-2"}, score: 5000}
	hard := officeCandidate{office: models.Office{ID: "B-1"}, score: 1000, hard: true}

	winner := pickWinner([]officeCandidate{soft, hard})
	assert.Equal(t, "B-1", winner.office.ID)

	// Ties inside the hard pool break by input order.
	hard2 := officeCandidate{office: models.Office{ID: "C-1"}, score: 1000, hard: true}
	winner = pickWinner([]officeCandidate{hard, hard2})
	assert.Equal(t, "B-1", winner.office.ID)
}

func TestPickWinnerUnresolvedOverlapLosesToClean(t *testing.T) {
	conflicted := officeCandidate{
		office: models.Office{ID: "B-1"},
		hard:   true,
		conflicts: []models.SchedulingConflict{
			{Resolution: models.ResolutionCannotRelocate},
		},
	}
	soft := officeCandidate{office: models.Office{ID: "B-2"}, score: 700}

	winner := pickWinner([]officeCandidate{conflicted, soft})
	assert.Equal(t, "B-2", winner.office.ID, "hard tag does not rescue an unresolvable overlap")

	// A relocatable overlap keeps the office eligible.
	conflicted.conflicts[0].Resolution = models.ResolutionRelocate
	winner = pickWinner([]officeCandidate{conflicted, soft})
	assert.Equal(t, "B-1", winner.office.ID)

	// The sole candidate is chosen regardless of its overlap.
	conflicted.conflicts[0].Resolution = models.ResolutionCannotRelocate
	winner = pickWinner([]officeCandidate{conflicted})
	assert.Equal(t, "B-1", winner.office.ID)
}

func TestStandardOfficeIDPinnedRoom(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "", validator.New(), zap.NewNop())
	snapshot := testSnapshot()

	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)
	req.Requirements = &models.AppointmentRequirements{RoomPreference: "c-1"}

	result := engine.FindOptimalOffice(req, snapshot, nil, nil)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "C-1", result.OfficeID, "pinned room request wins even over the primary office")
}

func TestEngineRunsUnderConcurrentCallers(t *testing.T) {
	engine := NewOfficeAssignmentService(nil, "B-1", validator.New(), zap.NewNop())
	snapshot := testSnapshot()
	req := schedulingRequest(t, "clin-primary", models.SessionTypeInPerson)

	done := make(chan models.SchedulingResult, 8)
	for i := 0; i < 8; i++ {
		go func() {
			done <- engine.FindOptimalOffice(req, snapshot, nil, nil)
		}()
	}
	deadline := time.After(5 * time.Second)
	for i := 0; i < 8; i++ {
		select {
		case result := <-done:
			require.True(t, result.Success)
			assert.Equal(t, "B-1", result.OfficeID)
		case <-deadline:
			t.Fatal("engine call did not return")
		}
	}
}
