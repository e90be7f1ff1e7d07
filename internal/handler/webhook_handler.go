package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/response"
)

const webhookSignatureHeader = "X-Webhook-Signature"

// Webhook event types accepted from the external booking system.
const (
	WebhookAppointmentCreated   = "appointment.created"
	WebhookAppointmentCancelled = "appointment.cancelled"
)

type webhookEvent struct {
	Type      string    `json:"type"`
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	AppointmentID   string                          `json:"appointment_id,omitempty"`
	ClientID        string                          `json:"client_id,omitempty"`
	ClientName      string                          `json:"client_name,omitempty"`
	ClinicianID     string                          `json:"clinician_id,omitempty"`
	StartTime       time.Time                       `json:"start_time,omitempty"`
	DurationMinutes int                             `json:"duration_minutes,omitempty"`
	SessionType     string                          `json:"session_type,omitempty"`
	ClientAge       *int                            `json:"client_age,omitempty"`
	Requirements    *models.AppointmentRequirements `json:"requirements,omitempty"`
	Reason          string                          `json:"reason,omitempty"`
}

// WebhookHandler ingests booking events from the external practice
// management system. Payloads are authenticated with an HMAC-SHA256
// signature over the raw body.
type WebhookHandler struct {
	appointments *service.AppointmentService
	audit        *service.AuditService
	secret       []byte
	logger       *zap.Logger
}

// NewWebhookHandler creates a new handler.
func NewWebhookHandler(appointments *service.AppointmentService, audit *service.AuditService, secret string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{appointments: appointments, audit: audit, secret: []byte(secret), logger: logger}
}

// Receive godoc
// @Summary Ingest booking webhook
// @Description Accepts signed appointment events from the booking system
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Webhook-Signature header string true "Hex HMAC-SHA256 of the raw body"
// @Param payload body webhookEvent true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /webhooks/bookings [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable body"))
		return
	}

	if !h.verifySignature(body, c.GetHeader(webhookSignatureHeader)) {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidSignature, "webhook signature mismatch"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "malformed event payload"))
		return
	}

	h.audit.RecordWebhook(c.Request.Context(), event.Type, event.EventID)

	switch event.Type {
	case WebhookAppointmentCreated:
		h.handleCreated(c, event)
	case WebhookAppointmentCancelled:
		h.handleCancelled(c, event)
	default:
		// Unknown event types are acknowledged so the sender does not
		// retry them forever.
		h.logger.Info("ignoring unknown webhook event", zap.String("type", event.Type))
		response.JSON(c, http.StatusOK, gin.H{"status": "ignored"}, nil)
	}
}

func (h *WebhookHandler) handleCreated(c *gin.Context, event webhookEvent) {
	req := service.ScheduleAppointmentRequest{
		SchedulingRequest: models.SchedulingRequest{
			ClientID:        event.ClientID,
			ClientName:      event.ClientName,
			ClinicianID:     event.ClinicianID,
			StartTime:       event.StartTime,
			DurationMinutes: event.DurationMinutes,
			SessionType:     event.SessionType,
			ClientAge:       event.ClientAge,
			Requirements:    event.Requirements,
		},
		Source: models.AppointmentSourceExternal,
	}

	record, result, err := h.appointments.Schedule(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scheduleResponse{Appointment: record, Result: result}, nil)
}

func (h *WebhookHandler) handleCancelled(c *gin.Context, event webhookEvent) {
	if event.AppointmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "appointment_id is required"))
		return
	}
	record, err := h.appointments.Cancel(c.Request.Context(), event.AppointmentID, event.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
