package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/response"
)

// ReportHandler exposes daily schedule summary endpoints.
type ReportHandler struct {
	service *service.DailyReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.DailyReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

func reportDate(c *gin.Context) (string, bool) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return "", false
	}
	return date, true
}

// Daily godoc
// @Summary Daily schedule summary
// @Description Aggregated conflicts, utilization and alerts for a date
// @Tags Reports
// @Produce json
// @Param date query string true "Date formatted YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/daily [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}
	summary, err := h.service.GenerateSummary(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ExportCSV godoc
// @Summary Export daily schedule as CSV
// @Tags Reports
// @Produce text/csv
// @Param date query string true "Date formatted YYYY-MM-DD"
// @Success 200 {string} string "CSV payload"
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/daily/export/csv [get]
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}
	data, err := h.service.ExportCSV(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=daily-schedule-%s.csv", date))
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportPDF godoc
// @Summary Export daily schedule as PDF
// @Tags Reports
// @Produce application/pdf
// @Param date query string true "Date formatted YYYY-MM-DD"
// @Success 200 {string} string "PDF payload"
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/daily/export/pdf [get]
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}
	data, err := h.service.ExportPDF(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=daily-schedule-%s.pdf", date))
	c.Data(http.StatusOK, "application/pdf", data)
}

// Dispatch godoc
// @Summary Dispatch the daily summary
// @Description Queue generation and delivery of the summary to the team
// @Tags Reports
// @Produce json
// @Param date query string true "Date formatted YYYY-MM-DD"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/daily/dispatch [post]
func (h *ReportHandler) Dispatch(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}
	if err := h.service.EnqueueDispatch(date); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue dispatch"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "queued", "date": date}, nil)
}
