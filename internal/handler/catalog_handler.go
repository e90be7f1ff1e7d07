package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/response"
)

// CatalogHandler exposes office, clinician and rule management endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Snapshot godoc
// @Summary Catalog snapshot
// @Description Offices, clinicians and rules with derived cross-links
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /catalog [get]
func (h *CatalogHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// GetOffice godoc
// @Summary Get office
// @Tags Catalog
// @Produce json
// @Param id path string true "Office ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /offices/{id} [get]
func (h *CatalogHandler) GetOffice(c *gin.Context) {
	office, err := h.service.GetOffice(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// CreateOffice godoc
// @Summary Create office
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.Office true "Office payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /offices [post]
func (h *CatalogHandler) CreateOffice(c *gin.Context) {
	var office models.Office
	if err := c.ShouldBindJSON(&office); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid office payload"))
		return
	}
	if err := h.service.SaveOffice(c.Request.Context(), &office, true); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, office)
}

// UpdateOffice godoc
// @Summary Update office
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Office ID"
// @Param payload body models.Office true "Office payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /offices/{id} [put]
func (h *CatalogHandler) UpdateOffice(c *gin.Context) {
	var office models.Office
	if err := c.ShouldBindJSON(&office); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid office payload"))
		return
	}
	office.ID = c.Param("id")
	if err := h.service.SaveOffice(c.Request.Context(), &office, false); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office, nil)
}

// SetOfficeInService godoc
// @Summary Toggle office availability
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Office ID"
// @Param payload body map[string]bool true "in_service flag"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /offices/{id}/in-service [put]
func (h *CatalogHandler) SetOfficeInService(c *gin.Context) {
	var payload struct {
		InService *bool `json:"in_service" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "in_service flag required"))
		return
	}
	if err := h.service.SetOfficeInService(c.Request.Context(), c.Param("id"), *payload.InService); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateClinician godoc
// @Summary Create clinician
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.Clinician true "Clinician payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /clinicians [post]
func (h *CatalogHandler) CreateClinician(c *gin.Context) {
	var clinician models.Clinician
	if err := c.ShouldBindJSON(&clinician); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clinician payload"))
		return
	}
	clinician.Active = true
	if err := h.service.SaveClinician(c.Request.Context(), &clinician, true); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clinician)
}

// UpdateClinician godoc
// @Summary Update clinician
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Clinician ID"
// @Param payload body models.Clinician true "Clinician payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /clinicians/{id} [put]
func (h *CatalogHandler) UpdateClinician(c *gin.Context) {
	var clinician models.Clinician
	if err := c.ShouldBindJSON(&clinician); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clinician payload"))
		return
	}
	clinician.ID = c.Param("id")
	if err := h.service.SaveClinician(c.Request.Context(), &clinician, false); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clinician, nil)
}

// CreateRule godoc
// @Summary Create assignment rule
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body models.AssignmentRule true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /rules [post]
func (h *CatalogHandler) CreateRule(c *gin.Context) {
	var rule models.AssignmentRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}
	rule.Active = true
	if err := h.service.SaveRule(c.Request.Context(), &rule, true); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Update assignment rule
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body models.AssignmentRule true "Rule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /rules/{id} [put]
func (h *CatalogHandler) UpdateRule(c *gin.Context) {
	var rule models.AssignmentRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}
	rule.ID = c.Param("id")
	if err := h.service.SaveRule(c.Request.Context(), &rule, false); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// DeactivateRule godoc
// @Summary Deactivate assignment rule
// @Tags Catalog
// @Produce json
// @Param id path string true "Rule ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /rules/{id} [delete]
func (h *CatalogHandler) DeactivateRule(c *gin.Context) {
	if err := h.service.DeactivateRule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetClientPreference godoc
// @Summary Get client preference
// @Tags Catalog
// @Produce json
// @Param clientId path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{clientId}/preferences [get]
func (h *CatalogHandler) GetClientPreference(c *gin.Context) {
	pref, err := h.service.ClientPreference(c.Request.Context(), c.Param("clientId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if pref == nil {
		// No record means no stated preference; return an empty block
		// rather than 404.
		pref = &models.ClientPreference{ClientID: c.Param("clientId")}
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// SaveClientPreference godoc
// @Summary Upsert client preference
// @Tags Catalog
// @Accept json
// @Produce json
// @Param clientId path string true "Client ID"
// @Param payload body models.ClientPreference true "Preference payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /clients/{clientId}/preferences [put]
func (h *CatalogHandler) SaveClientPreference(c *gin.Context) {
	var pref models.ClientPreference
	if err := c.ShouldBindJSON(&pref); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid preference payload"))
		return
	}
	pref.ClientID = c.Param("clientId")
	if err := h.service.SaveClientPreference(c.Request.Context(), &pref); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}
