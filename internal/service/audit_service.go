package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
)

type auditRepository interface {
	Record(ctx context.Context, entry *models.AuditLog) error
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AuditService exposes the audit trail to handlers and records
// system-level events such as webhook deliveries.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record persists an audit entry.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) error {
	return s.repo.Record(ctx, entry)
}

// RecordWebhook logs an inbound webhook delivery. Failures are logged and
// swallowed so audit hiccups never reject a valid event.
func (s *AuditService) RecordWebhook(ctx context.Context, eventType, eventID string) {
	detail, _ := json.Marshal(map[string]string{"event_type": eventType, "event_id": eventID})
	entry := &models.AuditLog{
		EventType: models.AuditWebhookReceived,
		Resource:  "webhook",
		Detail:    detail,
	}
	if eventID != "" {
		entry.ResourceID = &eventID
	}
	if err := s.repo.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to record webhook audit entry", zap.Error(err))
	}
}

// History returns the newest audit entries for a resource.
func (s *AuditService) History(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	entries, err := s.repo.ListByResource(ctx, resource, resourceID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit history")
	}
	return entries, nil
}
