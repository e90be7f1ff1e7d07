package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

const dateLayout = "2006-01-02"

// DailySummaryConfig tunes aggregation thresholds.
type DailySummaryConfig struct {
	SlotsPerOfficeDay   int
	HighUtilization     float64
	CriticalUtilization float64
	TimeZone            string
}

// DailySummaryService aggregates one day of appointments into conflicts,
// per-office utilization and coarse alerts. Aggregation is pure and
// deterministic; a single malformed record is skipped, never aborts the day.
type DailySummaryService struct {
	slotsPerDay int
	high        float64
	critical    float64
	loc         *time.Location
	logger      *zap.Logger
}

// NewDailySummaryService constructs the aggregator. The same-day test runs
// in one fixed time zone to avoid UTC-midnight boundary misclassification.
func NewDailySummaryService(cfg DailySummaryConfig, logger *zap.Logger) *DailySummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotsPerOfficeDay <= 0 {
		cfg.SlotsPerOfficeDay = 8
	}
	if cfg.HighUtilization <= 0 {
		cfg.HighUtilization = 0.8
	}
	if cfg.CriticalUtilization <= 0 {
		cfg.CriticalUtilization = 0.9
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil || cfg.TimeZone == "" {
		if cfg.TimeZone != "" {
			logger.Warn("unknown scheduler time zone, falling back to UTC", zap.String("zone", cfg.TimeZone))
		}
		loc = time.UTC
	}
	return &DailySummaryService{
		slotsPerDay: cfg.SlotsPerOfficeDay,
		high:        cfg.HighUtilization,
		critical:    cfg.CriticalUtilization,
		loc:         loc,
		logger:      logger,
	}
}

// GenerateDailySummary builds the operational summary for the given date
// (formatted 2006-01-02). clientPreferences is keyed by client id.
func (s *DailySummaryService) GenerateDailySummary(
	date string,
	offices []models.Office,
	appointments []models.AppointmentRecord,
	clinicians []models.Clinician,
	clientPreferences map[string]*models.ClientPreference,
) *models.DailyScheduleSummary {
	summary := &models.DailyScheduleSummary{
		Date:        date,
		Conflicts:   []models.SummaryConflict{},
		Utilization: make(map[string]models.OfficeUtilization, len(offices)),
		Alerts:      []models.SummaryAlert{},
		GeneratedAt: time.Now().UTC(),
	}

	dayAppointments := s.appointmentsOn(date, appointments)
	summary.Appointments = dayAppointments

	active := make([]models.AppointmentRecord, 0, len(dayAppointments))
	for _, appt := range dayAppointments {
		if appt.Status == models.AppointmentStatusCancelled {
			continue
		}
		active = append(active, appt)
	}

	summary.Conflicts = append(summary.Conflicts, s.doubleBookings(active)...)
	summary.Conflicts = append(summary.Conflicts, s.accessibilityConflicts(active, offices, clientPreferences)...)

	s.computeUtilization(summary, offices, active)
	s.deriveAlerts(summary)

	return summary
}

// appointmentsOn filters to records on the date in the fixed zone, skipping
// malformed rows so one bad record cannot abort the whole summary.
func (s *DailySummaryService) appointmentsOn(date string, appointments []models.AppointmentRecord) []models.AppointmentRecord {
	matched := make([]models.AppointmentRecord, 0, len(appointments))
	for _, appt := range appointments {
		if appt.ID == "" || appt.StartTime.IsZero() || appt.EndTime.IsZero() {
			s.logger.Warn("skipping malformed appointment record", zap.String("id", appt.ID))
			continue
		}
		if appt.StartTime.In(s.loc).Format(dateLayout) != date {
			continue
		}
		matched = append(matched, appt)
	}
	return matched
}

// doubleBookings walks every unordered pair once. A single overlapping pair
// can yield two records: one office-scoped and one clinician-scoped.
// Telehealth sessions are skipped entirely here.
func (s *DailySummaryService) doubleBookings(appointments []models.AppointmentRecord) []models.SummaryConflict {
	var conflicts []models.SummaryConflict
	for i := 0; i < len(appointments); i++ {
		for j := i + 1; j < len(appointments); j++ {
			a, b := appointments[i], appointments[j]
			if a.IsTelehealth() || b.IsTelehealth() {
				continue
			}
			if !a.Overlaps(b.StartTime, b.EndTime) {
				continue
			}
			if models.SameOffice(a.OfficeID, b.OfficeID) {
				conflicts = append(conflicts, models.SummaryConflict{
					Type:           models.SummaryConflictDoubleBooking,
					Severity:       models.SeverityHigh,
					Description:    fmt.Sprintf("office %s double-booked", models.StandardOfficeID(a.OfficeID)),
					OfficeID:       models.StandardOfficeID(a.OfficeID),
					AppointmentIDs: []string{a.ID, b.ID},
				})
			}
			if a.ClinicianID != "" && a.ClinicianID == b.ClinicianID {
				conflicts = append(conflicts, models.SummaryConflict{
					Type:           models.SummaryConflictDoubleBooking,
					Severity:       models.SeverityHigh,
					Description:    fmt.Sprintf("clinician %s double-booked", a.ClinicianName),
					ClinicianID:    a.ClinicianID,
					AppointmentIDs: []string{a.ID, b.ID},
				})
			}
		}
	}
	return conflicts
}

func (s *DailySummaryService) accessibilityConflicts(
	appointments []models.AppointmentRecord,
	offices []models.Office,
	clientPreferences map[string]*models.ClientPreference,
) []models.SummaryConflict {
	officeByID := make(map[string]models.Office, len(offices))
	for _, office := range offices {
		officeByID[models.StandardOfficeID(office.ID)] = office
	}

	var conflicts []models.SummaryConflict
	for _, appt := range appointments {
		pref := clientPreferences[appt.ClientID]
		if !pref.HasMobilityNeeds() {
			continue
		}
		office, ok := officeByID[models.StandardOfficeID(appt.OfficeID)]
		if !ok {
			s.logger.Warn("appointment references unknown office",
				zap.String("appointment", appt.ID), zap.String("office", appt.OfficeID))
			continue
		}
		if office.IsAccessible {
			continue
		}
		conflicts = append(conflicts, models.SummaryConflict{
			Type:           models.SummaryConflictAccessibility,
			Severity:       models.SeverityHigh,
			Description:    fmt.Sprintf("client with mobility needs assigned to inaccessible office %s", models.StandardOfficeID(appt.OfficeID)),
			OfficeID:       models.StandardOfficeID(appt.OfficeID),
			AppointmentIDs: []string{appt.ID},
		})
	}
	return conflicts
}

// computeUtilization counts bookings against a fixed per-office capacity of
// slotsPerDay (an 8-hour day at one appointment-hour per slot).
func (s *DailySummaryService) computeUtilization(
	summary *models.DailyScheduleSummary,
	offices []models.Office,
	appointments []models.AppointmentRecord,
) {
	counts := make(map[string]int)
	for _, appt := range appointments {
		counts[models.StandardOfficeID(appt.OfficeID)]++
	}

	for _, office := range offices {
		id := models.StandardOfficeID(office.ID)
		util := models.OfficeUtilization{
			OfficeID:    id,
			BookedSlots: counts[id],
			TotalSlots:  s.slotsPerDay,
		}
		ratio := float64(util.BookedSlots) / float64(util.TotalSlots)
		if ratio > s.critical {
			util.Notes = append(util.Notes, "Critical capacity warning")
		} else if ratio > s.high {
			util.Notes = append(util.Notes, "High utilization")
		}
		if office.IsFlexSpace {
			util.Notes = append(util.Notes, "Flex space - coordinate with team")
		}
		if util.BookedSlots > util.TotalSlots {
			summary.Conflicts = append(summary.Conflicts, models.SummaryConflict{
				Type:        models.SummaryConflictCapacity,
				Severity:    models.SeverityHigh,
				Description: fmt.Sprintf("%s booked for %d slots against a capacity of %d", id, util.BookedSlots, util.TotalSlots),
				OfficeID:    id,
			})
		}
		summary.Utilization[id] = util
	}
}

// deriveAlerts rolls conflicts and utilization up into at most one alert per
// category.
func (s *DailySummaryService) deriveAlerts(summary *models.DailyScheduleSummary) {
	highConflicts := 0
	for _, conflict := range summary.Conflicts {
		if conflict.Severity == models.SeverityHigh {
			highConflicts++
		}
	}
	if highConflicts > 0 {
		summary.Alerts = append(summary.Alerts, models.SummaryAlert{
			Type:     models.AlertTypeScheduling,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("%d high-severity scheduling conflict(s) detected", highConflicts),
		})
	}

	busyOffices := 0
	anyCritical := false
	for _, util := range summary.Utilization {
		ratio := float64(util.BookedSlots) / float64(util.TotalSlots)
		if ratio > s.high {
			busyOffices++
		}
		if ratio > s.critical {
			anyCritical = true
		}
	}
	if busyOffices > 0 {
		severity := models.SeverityMedium
		if anyCritical {
			severity = models.SeverityHigh
		}
		summary.Alerts = append(summary.Alerts, models.SummaryAlert{
			Type:     models.AlertTypeCapacity,
			Severity: severity,
			Message:  fmt.Sprintf("%d office(s) above %d%% utilization", busyOffices, int(s.high*100)),
		})
	}
}
