package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/response"
)

// AppointmentHandler exposes appointment scheduling endpoints.
type AppointmentHandler struct {
	service *service.AppointmentService
}

// NewAppointmentHandler creates a new handler.
func NewAppointmentHandler(svc *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: svc}
}

type scheduleResponse struct {
	Appointment *models.AppointmentRecord `json:"appointment,omitempty"`
	Result      *models.SchedulingResult  `json:"result,omitempty"`
}

// Schedule godoc
// @Summary Book an appointment
// @Description Run office assignment for a session and persist the booking
// @Tags Appointments
// @Accept json
// @Produce json
// @Param payload body service.ScheduleAppointmentRequest true "Scheduling payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [post]
func (h *AppointmentHandler) Schedule(c *gin.Context) {
	var req service.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scheduling payload"))
		return
	}
	req.Source = models.AppointmentSourceManual

	record, result, err := h.service.Schedule(c.Request.Context(), req)
	if err != nil {
		// Engine results carry the evaluation log even on failure; surface
		// them alongside the error envelope.
		if result != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Error: appErr, Data: scheduleResponse{Result: result}})
			return
		}
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, scheduleResponse{Appointment: record, Result: result}, nil)
}

type rescheduleRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,gt=0"`
	Force           bool      `json:"force"`
}

// Reschedule godoc
// @Summary Reschedule an appointment
// @Description Move an appointment to a new time, re-running office assignment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body rescheduleRequest true "Reschedule payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/reschedule [post]
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}

	record, result, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req.StartTime, req.DurationMinutes, req.Force)
	if err != nil {
		if result != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Error: appErr, Data: scheduleResponse{Result: result}})
			return
		}
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, scheduleResponse{Appointment: record, Result: result}, nil)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Description Transition an appointment to cancelled
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var payload struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&payload)

	record, err := h.service.Cancel(c.Request.Context(), c.Param("id"), payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Complete godoc
// @Summary Complete an appointment
// @Description Mark a scheduled appointment as completed
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	record, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Get godoc
// @Summary Get appointment
// @Description Fetch one appointment by id
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	record, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List appointments
// @Description List appointments with optional filters
// @Tags Appointments
// @Produce json
// @Param clinician_id query string false "Clinician filter"
// @Param client_id query string false "Client filter"
// @Param office_id query string false "Office filter"
// @Param status query string false "Status filter"
// @Param from query string false "RFC3339 lower bound on start time"
// @Param to query string false "RFC3339 upper bound on start time"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter := models.AppointmentFilter{
		ClinicianID: c.Query("clinician_id"),
		ClientID:    c.Query("client_id"),
		OfficeID:    c.Query("office_id"),
		Status:      c.Query("status"),
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		filter.To = &ts
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
