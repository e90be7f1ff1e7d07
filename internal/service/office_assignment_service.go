package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// Score weights for office assignment. Primary-clinician ownership is the
// only contribution tagged HARD; among candidates free of unresolvable
// overlaps, a hard-tagged candidate beats any soft score.
const (
	scorePrimaryClinician      = 1000
	scoreAlternateClinician    = 500
	scorePreferredOffice       = 200
	scoreRuleAccessibilityHard = 1000
	scoreRuleAccessibilitySoft = 200
	scoreRuleAgeGroupHard      = 800
	scoreRuleAgeGroupSoft      = 150
	scoreRuleSessionTypeHard   = 600
	scoreRuleSessionTypeSoft   = 100
	scoreRoomConsistencyUnit   = 50
	scoreMobilityAccessible    = 300
	scoreFeatureMatch          = 50
	scoreGroupCapable          = 200
	scoreFamilyLargeRoom       = 150
)

const (
	hardReasonPrimary = "HARD: Primary clinician office"
	featureGroup      = "group"
)

// OfficeAssignmentService selects the optimal office for a scheduling
// request: hard-filter, score, resolve conflicts, pick a winner. It is a
// pure function of its inputs; identical inputs always yield identical
// results, including the evaluation log.
type OfficeAssignmentService struct {
	resolver        *ConflictResolver
	defaultOfficeID string
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewOfficeAssignmentService wires the engine. defaultOfficeID is the
// configured fallback room used when no office survives filtering.
func NewOfficeAssignmentService(resolver *ConflictResolver, defaultOfficeID string, validate *validator.Validate, logger *zap.Logger) *OfficeAssignmentService {
	if resolver == nil {
		resolver = NewConflictResolver(logger)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficeAssignmentService{
		resolver:        resolver,
		defaultOfficeID: models.StandardOfficeID(defaultOfficeID),
		validator:       validate,
		logger:          logger,
	}
}

type officeCandidate struct {
	office    models.Office
	score     int
	reasons   []string
	conflicts []models.SchedulingConflict
	hard      bool
}

// unresolved reports whether any overlap on the candidate could not be
// relocated away.
func (c officeCandidate) unresolved() bool {
	for _, conflict := range c.conflicts {
		if conflict.Resolution == models.ResolutionCannotRelocate {
			return true
		}
	}
	return false
}

type evaluationLog struct {
	entries []models.EvaluationEntry
}

func (l *evaluationLog) add(stage, format string, args ...interface{}) {
	l.entries = append(l.entries, models.EvaluationEntry{Stage: stage, Detail: fmt.Sprintf(format, args...)})
}

// FindOptimalOffice implements the assignment pipeline. Expected failures
// (unknown clinician, no candidates) come back as a failed result, never an
// error; unexpected panics are caught at the boundary and converted too.
func (s *OfficeAssignmentService) FindOptimalOffice(
	req models.SchedulingRequest,
	snapshot CatalogSnapshot,
	pref *models.ClientPreference,
	bookingsByOffice map[string][]models.AppointmentRecord,
) (result models.SchedulingResult) {
	log := &evaluationLog{}
	defer func() {
		if rec := recover(); rec != nil {
			log.add("error", "scoring aborted: %v", rec)
			s.logger.Error("office assignment panic", zap.Any("cause", rec))
			result = models.SchedulingResult{
				Success: false,
				Error:   fmt.Sprintf("internal error during office assignment: %v", rec),
				Log:     log.entries,
			}
		}
	}()

	if err := s.validator.Struct(req); err != nil {
		log.add("request", "invalid request: %v", err)
		return models.SchedulingResult{Success: false, Error: "invalid scheduling request", Log: log.entries}
	}
	log.add("request", "client=%s clinician=%s session=%s start=%s duration=%dm",
		req.ClientID, req.ClinicianID, req.SessionType, req.StartTime.UTC().Format("2006-01-02T15:04:05Z07:00"), req.DurationMinutes)

	clinician := snapshot.FindClinician(req.ClinicianID)
	if clinician == nil {
		log.add("clinician", "clinician %s not found", req.ClinicianID)
		return models.SchedulingResult{Success: false, Error: "clinician not found", Log: log.entries}
	}
	log.add("clinician", "resolved %s (%s)", clinician.Name, clinician.ID)

	candidates := s.filterOffices(req, *clinician, snapshot.Offices, log)
	if len(candidates) == 0 {
		fallback, ok := s.defaultOfficeFallback(req, snapshot.Offices, log)
		if !ok {
			log.add("filter", "no offices match requirements and no usable default office")
			return models.SchedulingResult{Success: false, Error: "no offices match requirements", Log: log.entries}
		}
		candidates = []models.Office{fallback}
	}

	scored := make([]officeCandidate, 0, len(candidates))
	for _, office := range candidates {
		scored = append(scored, s.scoreOffice(office, req, *clinician, pref, snapshot, bookingsByOffice, log))
	}

	winner := pickWinner(scored)
	log.add("selection", "selected %s with score %d", models.StandardOfficeID(winner.office.ID), winner.score)

	return models.SchedulingResult{
		Success:   true,
		OfficeID:  models.StandardOfficeID(winner.office.ID),
		Score:     winner.score,
		Conflicts: winner.conflicts,
		Notes:     strings.Join(winner.reasons, "; "),
		Log:       log.entries,
	}
}

// filterOffices applies the hard constraints in order, logging every drop.
func (s *OfficeAssignmentService) filterOffices(
	req models.SchedulingRequest,
	clinician models.Clinician,
	offices []models.Office,
	log *evaluationLog,
) []models.Office {
	roomPref := req.RoomPreference()
	required := req.RequiredFeatures()

	var candidates []models.Office
	for _, office := range offices {
		id := models.StandardOfficeID(office.ID)
		switch {
		case !office.InService:
			log.add("filter", "%s dropped: out of service", id)
		case req.NeedsAccessibility() && !office.IsAccessible:
			log.add("filter", "%s dropped: accessibility required", id)
		case !office.HasAllFeatures(required):
			log.add("filter", "%s dropped: missing required features", id)
		case req.SessionType == models.SessionTypeGroup && !office.HasFeature(featureGroup):
			log.add("filter", "%s dropped: not suitable for group sessions", id)
		case !clinician.PrefersOffice(office.ID) && office.PrimaryClinicianID != clinician.ID:
			log.add("filter", "%s dropped: not in clinician's preferred offices", id)
		case roomPref != "" && id != roomPref:
			log.add("filter", "%s dropped: request pinned to room %s", id, roomPref)
		default:
			candidates = append(candidates, office)
		}
	}
	log.add("filter", "%d of %d offices remain after hard filters", len(candidates), len(offices))
	return candidates
}

// defaultOfficeFallback returns the configured default office when it exists,
// is in service, and using it would not violate any explicit requirement.
func (s *OfficeAssignmentService) defaultOfficeFallback(
	req models.SchedulingRequest,
	offices []models.Office,
	log *evaluationLog,
) (models.Office, bool) {
	if s.defaultOfficeID == "" {
		return models.Office{}, false
	}
	for _, office := range offices {
		if !models.SameOffice(office.ID, s.defaultOfficeID) {
			continue
		}
		if !office.InService {
			return models.Office{}, false
		}
		if req.NeedsAccessibility() && !office.IsAccessible {
			return models.Office{}, false
		}
		if rp := req.RoomPreference(); rp != "" && rp != s.defaultOfficeID {
			return models.Office{}, false
		}
		if !office.HasAllFeatures(req.RequiredFeatures()) {
			return models.Office{}, false
		}
		if req.SessionType == models.SessionTypeGroup && !office.HasFeature(featureGroup) {
			return models.Office{}, false
		}
		log.add("fallback", "no candidates; using default office %s", s.defaultOfficeID)
		return office, true
	}
	return models.Office{}, false
}

func (s *OfficeAssignmentService) scoreOffice(
	office models.Office,
	req models.SchedulingRequest,
	clinician models.Clinician,
	pref *models.ClientPreference,
	snapshot CatalogSnapshot,
	bookingsByOffice map[string][]models.AppointmentRecord,
	log *evaluationLog,
) officeCandidate {
	id := models.StandardOfficeID(office.ID)
	candidate := officeCandidate{office: office}

	// Overlap check happens before scoring: a conflicted office scores 0
	// and, unless the overlap can be relocated away, pickWinner passes it
	// over whenever a clean candidate exists. Conflicts are still surfaced
	// to the caller either way.
	candidate.conflicts = s.resolver.CheckConflicts(office, req, bookingsByOffice, snapshot.Offices)

	add := func(points int, reason string) {
		candidate.score += points
		candidate.reasons = append(candidate.reasons, reason)
		log.add("score", "%s +%d: %s", id, points, reason)
	}

	if office.PrimaryClinicianID == clinician.ID {
		add(scorePrimaryClinician, hardReasonPrimary)
		candidate.hard = true
	}
	for _, altID := range office.AlternativeClinician {
		if altID == clinician.ID {
			add(scoreAlternateClinician, "Listed as alternative clinician")
			break
		}
	}
	if clinician.PrefersOffice(office.ID) {
		add(scorePreferredOffice, "Clinician preferred office")
	}

	for _, rule := range activeRulesForOffice(snapshot.Rules, office.ID) {
		points, reason, err := applyRule(rule, req, office)
		if err != nil {
			// Unparseable conditions are a zero-contribution rule, never an
			// abort of the scoring pass.
			log.add("rule", "%s rule %q skipped: %v", id, rule.Name, err)
			continue
		}
		if points > 0 {
			add(points, reason)
		}
	}

	if pref != nil {
		if pref.RoomConsistency > 0 && pref.AssignedOffice != "" && models.SameOffice(pref.AssignedOffice, office.ID) {
			add(scoreRoomConsistencyUnit*pref.RoomConsistency, fmt.Sprintf("Room consistency %d/5: previously assigned office", pref.RoomConsistency))
		}
		if pref.HasMobilityNeeds() && office.IsAccessible {
			add(scoreMobilityAccessible, "Accessible office for mobility needs")
		}
		for _, feature := range pref.SensoryPreferences {
			if office.HasFeature(feature) {
				add(scoreFeatureMatch, fmt.Sprintf("Sensory feature match: %s", feature))
			}
		}
		for _, feature := range pref.PhysicalNeeds {
			if office.HasFeature(feature) {
				add(scoreFeatureMatch, fmt.Sprintf("Physical feature match: %s", feature))
			}
		}
	}

	switch req.SessionType {
	case models.SessionTypeGroup:
		if office.HasFeature(featureGroup) {
			add(scoreGroupCapable, "Supports group sessions")
		}
	case models.SessionTypeFamily:
		if office.Size == models.OfficeSizeLarge {
			add(scoreFamilyLargeRoom, "Large room for family session")
		}
	}

	if len(candidate.conflicts) > 0 {
		log.add("conflict", "%s has %d overlapping booking(s); score truncated to 0", id, len(candidate.conflicts))
		candidate.score = 0
	}

	return candidate
}

// pickWinner chooses among scored candidates. A candidate with an
// unresolvable overlap is eligible only when every candidate has one; a
// relocatable overlap keeps the office in play since the existing session
// moves. Within the surviving pool a HARD-tagged reason beats any soft
// score, then the highest score wins and ties break by input order.
func pickWinner(candidates []officeCandidate) officeCandidate {
	pool := candidates
	var clean []officeCandidate
	for _, c := range candidates {
		if !c.unresolved() {
			clean = append(clean, c)
		}
	}
	if len(clean) > 0 {
		pool = clean
	}
	var hard []officeCandidate
	for _, c := range pool {
		if c.hard {
			hard = append(hard, c)
		}
	}
	if len(hard) > 0 {
		pool = hard
	}
	winner := pool[0]
	for _, c := range pool[1:] {
		if c.score > winner.score {
			winner = c
		}
	}
	return winner
}

// activeRulesForOffice returns the active rules covering the office, sorted
// by priority descending (higher priority evaluated and logged first).
// Contributions are additive, so the direction affects only log order.
func activeRulesForOffice(rules []models.AssignmentRule, officeID string) []models.AssignmentRule {
	var matched []models.AssignmentRule
	for _, rule := range rules {
		if rule.Active && rule.AppliesToOffice(officeID) {
			matched = append(matched, rule)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	return matched
}

func applyRule(rule models.AssignmentRule, req models.SchedulingRequest, office models.Office) (int, string, error) {
	switch rule.RuleType {
	case models.RuleTypeAccessibility:
		if req.NeedsAccessibility() && office.IsAccessible {
			if rule.IsHard() {
				return scoreRuleAccessibilityHard, fmt.Sprintf("Accessibility rule %q (hard)", rule.Name), nil
			}
			return scoreRuleAccessibilitySoft, fmt.Sprintf("Accessibility rule %q", rule.Name), nil
		}
	case models.RuleTypeAgeGroup:
		if req.ClientAge == nil {
			return 0, "", nil
		}
		ok, err := evalAgeCondition(rule.Condition, *req.ClientAge)
		if err != nil {
			return 0, "", err
		}
		if ok {
			if rule.IsHard() {
				return scoreRuleAgeGroupHard, fmt.Sprintf("Age group rule %q (hard)", rule.Name), nil
			}
			return scoreRuleAgeGroupSoft, fmt.Sprintf("Age group rule %q", rule.Name), nil
		}
	case models.RuleTypeSessionType:
		if strings.EqualFold(strings.TrimSpace(rule.Condition), req.SessionType) {
			if rule.IsHard() {
				return scoreRuleSessionTypeHard, fmt.Sprintf("Session type rule %q (hard)", rule.Name), nil
			}
			return scoreRuleSessionTypeSoft, fmt.Sprintf("Session type rule %q", rule.Name), nil
		}
	}
	return 0, "", nil
}

// evalAgeCondition evaluates numeric age conditions of the forms
// ">N && <=M", "<=N" and ">=N" (single "<N" / ">N" clauses also accepted).
func evalAgeCondition(cond string, age int) (bool, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false, fmt.Errorf("empty condition")
	}
	for _, clause := range strings.Split(cond, "&&") {
		clause = strings.TrimSpace(clause)
		var op, rest string
		switch {
		case strings.HasPrefix(clause, "<="):
			op, rest = "<=", clause[2:]
		case strings.HasPrefix(clause, ">="):
			op, rest = ">=", clause[2:]
		case strings.HasPrefix(clause, "<"):
			op, rest = "<", clause[1:]
		case strings.HasPrefix(clause, ">"):
			op, rest = ">", clause[1:]
		default:
			return false, fmt.Errorf("unsupported clause %q", clause)
		}
		bound, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return false, fmt.Errorf("invalid bound in clause %q", clause)
		}
		var ok bool
		switch op {
		case "<=":
			ok = age <= bound
		case ">=":
			ok = age >= bound
		case "<":
			ok = age < bound
		case ">":
			ok = age > bound
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
