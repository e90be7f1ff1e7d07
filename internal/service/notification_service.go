package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
)

// Notification is a rendered message handed to a sender. Delivery transport
// is out of scope; senders are fire-and-forget from the core's perspective.
type Notification struct {
	Subject        string
	Body           string
	Recipients     []string
	AttachmentName string
	Attachment     []byte
}

// NotificationSender delivers a notification.
type NotificationSender interface {
	Send(ctx context.Context, notification Notification) error
}

// LogSender writes notifications to the structured log. It is the default
// sink when no delivery transport is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-backed sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, notification Notification) error {
	s.logger.Info("notification dispatched",
		zap.String("subject", notification.Subject),
		zap.Strings("recipients", notification.Recipients),
		zap.Int("attachment_bytes", len(notification.Attachment)))
	return nil
}

// NotificationService renders daily summaries and alerts into notifications.
type NotificationService struct {
	sender     NotificationSender
	recipients []string
	enabled    bool
	logger     *zap.Logger
}

// NewNotificationService wires the sink.
func NewNotificationService(sender NotificationSender, recipients []string, enabled bool, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	return &NotificationService{sender: sender, recipients: recipients, enabled: enabled, logger: logger}
}

// SendDailySummary renders and dispatches the summary, optionally attaching
// a PDF report.
func (s *NotificationService) SendDailySummary(ctx context.Context, summary *models.DailyScheduleSummary, pdf []byte) error {
	if !s.enabled {
		return nil
	}
	notification := Notification{
		Subject:    fmt.Sprintf("Daily schedule summary for %s", summary.Date),
		Body:       renderSummaryBody(summary),
		Recipients: s.recipients,
	}
	if len(pdf) > 0 {
		notification.AttachmentName = fmt.Sprintf("daily-summary-%s.pdf", summary.Date)
		notification.Attachment = pdf
	}
	if err := s.sender.Send(ctx, notification); err != nil {
		s.logger.Warn("failed to dispatch daily summary", zap.String("date", summary.Date), zap.Error(err))
		return err
	}
	return nil
}

func renderSummaryBody(summary *models.DailyScheduleSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Appointments: %d\n", len(summary.Appointments))
	fmt.Fprintf(&b, "Conflicts: %d\n", len(summary.Conflicts))
	for _, conflict := range summary.Conflicts {
		fmt.Fprintf(&b, "  [%s/%s] %s\n", conflict.Type, conflict.Severity, conflict.Description)
	}
	for _, alert := range summary.Alerts {
		fmt.Fprintf(&b, "ALERT [%s/%s] %s\n", alert.Type, alert.Severity, alert.Message)
	}
	return b.String()
}
