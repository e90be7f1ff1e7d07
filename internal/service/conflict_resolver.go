package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// Fixed session priorities used for relocation decisions. A new booking may
// only displace an existing one when its priority is strictly greater.
const (
	priorityInPerson   = 100
	priorityGroup      = 75
	priorityFamily     = 75
	priorityTelehealth = 25
	priorityUnknown    = 50
)

// ConflictResolver detects time overlaps between a scheduling request and
// existing bookings, and decides whether a lower-priority existing booking
// can be moved to another room.
type ConflictResolver struct {
	logger *zap.Logger
}

// NewConflictResolver constructs the resolver.
func NewConflictResolver(logger *zap.Logger) *ConflictResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictResolver{logger: logger}
}

// SessionPriority returns the fixed relocation priority for a session type.
func SessionPriority(sessionType string) int {
	switch sessionType {
	case models.SessionTypeInPerson:
		return priorityInPerson
	case models.SessionTypeGroup:
		return priorityGroup
	case models.SessionTypeFamily:
		return priorityFamily
	case models.SessionTypeTelehealth:
		return priorityTelehealth
	default:
		return priorityUnknown
	}
}

// CheckConflicts returns one conflict per existing booking in the office
// whose time range overlaps the request. Two telehealth sessions never
// conflict with each other; a telehealth session does conflict with a
// physical-room session. bookingsByOffice is keyed by canonical office id.
func (r *ConflictResolver) CheckConflicts(
	office models.Office,
	req models.SchedulingRequest,
	bookingsByOffice map[string][]models.AppointmentRecord,
	offices []models.Office,
) []models.SchedulingConflict {
	var conflicts []models.SchedulingConflict
	start := req.StartTime
	end := req.EndTime()

	for _, booking := range bookingsByOffice[models.StandardOfficeID(office.ID)] {
		if booking.Status == models.AppointmentStatusCancelled {
			continue
		}
		if !booking.Overlaps(start, end) {
			continue
		}
		if req.SessionType == models.SessionTypeTelehealth && booking.IsTelehealth() {
			continue
		}
		conflicts = append(conflicts, r.resolveConflict(office, req, booking, bookingsByOffice, offices))
	}
	return conflicts
}

// resolveConflict decides whether the existing booking can be relocated to
// make room for the request.
func (r *ConflictResolver) resolveConflict(
	office models.Office,
	req models.SchedulingRequest,
	existing models.AppointmentRecord,
	bookingsByOffice map[string][]models.AppointmentRecord,
	offices []models.Office,
) models.SchedulingConflict {
	conflict := models.SchedulingConflict{
		OfficeID:        models.StandardOfficeID(office.ID),
		ExistingBooking: existing,
	}

	if SessionPriority(req.SessionType) <= SessionPriority(existing.SessionType) {
		conflict.Resolution = models.ResolutionCannotRelocate
		conflict.Reason = "existing session has priority"
		return conflict
	}

	if target, ok := r.findAlternativeOffice(office, existing, bookingsByOffice, offices); ok {
		conflict.Resolution = models.ResolutionRelocate
		conflict.TargetOfficeID = target
		conflict.Reason = fmt.Sprintf("existing session can move to %s", target)
		r.logger.Debug("conflict resolved by relocation",
			zap.String("office", conflict.OfficeID),
			zap.String("appointment", existing.ID),
			zap.String("target", target))
		return conflict
	}

	conflict.Resolution = models.ResolutionCannotRelocate
	conflict.Reason = "no alternative offices available"
	return conflict
}

// findAlternativeOffice searches, first-fit in input order, for an
// in-service office matching the existing booking's accessibility need with
// zero overlapping bookings in the booking's window.
func (r *ConflictResolver) findAlternativeOffice(
	current models.Office,
	existing models.AppointmentRecord,
	bookingsByOffice map[string][]models.AppointmentRecord,
	offices []models.Office,
) (string, bool) {
	needsAccessible := existing.ParseRequirements().Accessibility

	for _, candidate := range offices {
		if models.SameOffice(candidate.ID, current.ID) {
			continue
		}
		if !candidate.InService {
			continue
		}
		if needsAccessible && !candidate.IsAccessible {
			continue
		}
		if r.hasOverlap(candidate, existing, bookingsByOffice) {
			continue
		}
		return models.StandardOfficeID(candidate.ID), true
	}
	return "", false
}

func (r *ConflictResolver) hasOverlap(
	office models.Office,
	moving models.AppointmentRecord,
	bookingsByOffice map[string][]models.AppointmentRecord,
) bool {
	for _, booking := range bookingsByOffice[models.StandardOfficeID(office.ID)] {
		if booking.Status == models.AppointmentStatusCancelled {
			continue
		}
		if !booking.Overlaps(moving.StartTime, moving.EndTime) {
			continue
		}
		if moving.IsTelehealth() && booking.IsTelehealth() {
			continue
		}
		return true
	}
	return false
}
