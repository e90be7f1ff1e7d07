package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/response"
)

// AuditHandler exposes the audit trail for administrators.
type AuditHandler struct {
	audit *service.AuditService
}

// NewAuditHandler creates a new handler.
func NewAuditHandler(audit *service.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// History godoc
// @Summary Audit trail for a resource
// @Description Most recent audit events, newest first
// @Tags Audit
// @Produce json
// @Param resource query string true "Resource kind, e.g. appointment"
// @Param resource_id query string false "Resource identifier"
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /audit [get]
func (h *AuditHandler) History(c *gin.Context) {
	resource := c.Query("resource")
	if resource == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "resource query parameter is required"))
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	entries, err := h.audit.History(c.Request.Context(), resource, c.Query("resource_id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
