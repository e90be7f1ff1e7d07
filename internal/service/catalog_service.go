package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
)

const catalogSnapshotCacheKey = "catalog:snapshot"

// CatalogSnapshot is the immutable office/clinician/rule view handed to the
// assignment engine. The engine never reaches back into storage.
type CatalogSnapshot struct {
	Offices    []models.Office         `json:"offices"`
	Clinicians []models.Clinician      `json:"clinicians"`
	Rules      []models.AssignmentRule `json:"rules"`
}

// FindClinician returns the clinician with the id, or nil.
func (s *CatalogSnapshot) FindClinician(id string) *models.Clinician {
	for i := range s.Clinicians {
		if s.Clinicians[i].ID == id {
			return &s.Clinicians[i]
		}
	}
	return nil
}

// FindOffice returns the office with the id (canonical comparison), or nil.
func (s *CatalogSnapshot) FindOffice(id string) *models.Office {
	for i := range s.Offices {
		if models.SameOffice(s.Offices[i].ID, id) {
			return &s.Offices[i]
		}
	}
	return nil
}

type officeLister interface {
	List(ctx context.Context) ([]models.Office, error)
	FindByID(ctx context.Context, id string) (*models.Office, error)
	Create(ctx context.Context, office *models.Office) error
	Update(ctx context.Context, office *models.Office) error
	SetInService(ctx context.Context, id string, inService bool) error
}

type clinicianLister interface {
	List(ctx context.Context) ([]models.Clinician, error)
	Create(ctx context.Context, clinician *models.Clinician) error
	Update(ctx context.Context, clinician *models.Clinician) error
}

type assignmentRuleLister interface {
	List(ctx context.Context) ([]models.AssignmentRule, error)
	Create(ctx context.Context, rule *models.AssignmentRule) error
	Update(ctx context.Context, rule *models.AssignmentRule) error
	Deactivate(ctx context.Context, id string) error
}

type clientPreferenceReader interface {
	GetByClient(ctx context.Context, clientID string) (*models.ClientPreference, error)
	Upsert(ctx context.Context, pref *models.ClientPreference) error
}

// CatalogService assembles catalog snapshots, deriving the office/clinician
// cross-links and caching the result between writes.
type CatalogService struct {
	offices     officeLister
	clinicians  clinicianLister
	rules       assignmentRuleLister
	preferences clientPreferenceReader
	cache       *CacheService
	logger      *zap.Logger
}

// NewCatalogService wires catalog dependencies.
func NewCatalogService(
	offices officeLister,
	clinicians clinicianLister,
	rules assignmentRuleLister,
	preferences clientPreferenceReader,
	cache *CacheService,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		offices:     offices,
		clinicians:  clinicians,
		rules:       rules,
		preferences: preferences,
		cache:       cache,
		logger:      logger,
	}
}

// Snapshot returns the current catalog, from cache when possible.
func (s *CatalogService) Snapshot(ctx context.Context) (CatalogSnapshot, error) {
	var snapshot CatalogSnapshot
	if s.cache.Enabled() {
		hit, err := s.cache.Get(ctx, catalogSnapshotCacheKey, &snapshot)
		if err == nil && hit {
			return snapshot, nil
		}
	}

	offices, err := s.offices.List(ctx)
	if err != nil {
		return CatalogSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offices")
	}
	clinicians, err := s.clinicians.List(ctx)
	if err != nil {
		return CatalogSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clinicians")
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return CatalogSnapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment rules")
	}

	snapshot = buildSnapshot(offices, clinicians, rules)

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, catalogSnapshotCacheKey, snapshot, 0); err != nil {
			s.logger.Warn("failed to cache catalog snapshot", zap.Error(err))
		}
	}
	return snapshot, nil
}

// ClientPreference fetches one client's preference record; absence is a
// valid no-preference answer, not an error.
func (s *CatalogService) ClientPreference(ctx context.Context, clientID string) (*models.ClientPreference, error) {
	if clientID == "" {
		return nil, nil
	}
	pref, err := s.preferences.GetByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client preference")
	}
	return pref, nil
}

// GetOffice fetches one office by canonical id.
func (s *CatalogService) GetOffice(ctx context.Context, id string) (*models.Office, error) {
	office, err := s.offices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "office not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load office")
	}
	return office, nil
}

// SaveOffice creates or updates an office and drops the cached snapshot.
func (s *CatalogService) SaveOffice(ctx context.Context, office *models.Office, isNew bool) error {
	if models.StandardOfficeID(office.ID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "office id is required")
	}
	var err error
	if isNew {
		err = s.offices.Create(ctx, office)
	} else {
		err = s.offices.Update(ctx, office)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save office")
	}
	s.Invalidate(ctx)
	return nil
}

// SetOfficeInService toggles availability of an office for new bookings.
func (s *CatalogService) SetOfficeInService(ctx context.Context, id string, inService bool) error {
	if err := s.offices.SetInService(ctx, id, inService); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update office service state")
	}
	s.Invalidate(ctx)
	return nil
}

// SaveClinician creates or updates a clinician and drops the cached snapshot.
func (s *CatalogService) SaveClinician(ctx context.Context, clinician *models.Clinician, isNew bool) error {
	var err error
	if isNew {
		err = s.clinicians.Create(ctx, clinician)
	} else {
		err = s.clinicians.Update(ctx, clinician)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save clinician")
	}
	s.Invalidate(ctx)
	return nil
}

// SaveRule creates or updates an assignment rule and drops the cached snapshot.
func (s *CatalogService) SaveRule(ctx context.Context, rule *models.AssignmentRule, isNew bool) error {
	switch rule.RuleType {
	case models.RuleTypeAccessibility, models.RuleTypeAgeGroup, models.RuleTypeSessionType,
		models.RuleTypeFixed, models.RuleTypeRoomConsistency, models.RuleTypeSpecialFeatures:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown rule type")
	}
	var err error
	if isNew {
		err = s.rules.Create(ctx, rule)
	} else {
		err = s.rules.Update(ctx, rule)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save assignment rule")
	}
	s.Invalidate(ctx)
	return nil
}

// DeactivateRule retires a rule and drops the cached snapshot.
func (s *CatalogService) DeactivateRule(ctx context.Context, id string) error {
	if err := s.rules.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate assignment rule")
	}
	s.Invalidate(ctx)
	return nil
}

// SaveClientPreference upserts a client's preference record.
func (s *CatalogService) SaveClientPreference(ctx context.Context, pref *models.ClientPreference) error {
	if pref.ClientID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "client id is required")
	}
	if pref.AssignedOffice != "" {
		pref.AssignedOffice = models.StandardOfficeID(pref.AssignedOffice)
	}
	if err := s.preferences.Upsert(ctx, pref); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save client preference")
	}
	return nil
}

// Invalidate drops the cached snapshot after catalog writes.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, catalogSnapshotCacheKey); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}

// buildSnapshot standardizes office ids and derives the cross-links the
// data model treats as derived fields: office preferred-by membership and
// clinician primary/alternate office associations.
func buildSnapshot(offices []models.Office, clinicians []models.Clinician, rules []models.AssignmentRule) CatalogSnapshot {
	for i := range offices {
		offices[i].ID = models.StandardOfficeID(offices[i].ID)
		offices[i].PreferredByClinicians = nil
	}
	for i := range clinicians {
		clinicians[i].PrimaryOfficeIDs = nil
		clinicians[i].AlternateOfficeIDs = nil
	}

	for oi := range offices {
		for ci := range clinicians {
			if clinicians[ci].PrefersOffice(offices[oi].ID) {
				offices[oi].PreferredByClinicians = append(offices[oi].PreferredByClinicians, clinicians[ci].ID)
			}
			if offices[oi].PrimaryClinicianID == clinicians[ci].ID {
				clinicians[ci].PrimaryOfficeIDs = append(clinicians[ci].PrimaryOfficeIDs, offices[oi].ID)
			}
			for _, altID := range offices[oi].AlternativeClinician {
				if altID == clinicians[ci].ID {
					clinicians[ci].AlternateOfficeIDs = append(clinicians[ci].AlternateOfficeIDs, offices[oi].ID)
					break
				}
			}
		}
	}

	return CatalogSnapshot{Offices: offices, Clinicians: clinicians, Rules: rules}
}
