package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

type TemplateHandler struct {
	BaseHandler
	templateService services.TemplateService
}

func NewTemplateHandler(templateService services.TemplateService, logger utils.Logger) *TemplateHandler {
	return &TemplateHandler{
		BaseHandler:     NewBaseHandler(logger),
		templateService: templateService,
	}
}

// CreateTemplate creates a new test template with its initial draft version
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	template, err := h.templateService.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// GetTemplate retrieves a template by ID
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	template, err := h.templateService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// ListTemplates lists templates with search and pagination
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.TemplateFilters{
		Search:    h.parseStringQueryPtr(c, "search"),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	response, err := h.templateService.ListTemplates(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateTemplate updates template metadata
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating template", "template_id", id)

	var req services.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	template, err := h.templateService.UpdateTemplate(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// DeleteTemplate deletes a template and its unused versions
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting template", "template_id", id)

	if err := h.templateService.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Template deleted successfully"})
}

// ===== VERSION ENDPOINTS =====

// CreateVersion creates a new draft version for a template
func (h *TemplateHandler) CreateVersion(c *gin.Context) {
	templateID := h.parseIDParam(c, "id")
	if templateID == 0 {
		return
	}

	var req services.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	version, err := h.templateService.CreateVersion(c.Request.Context(), templateID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, version)
}

// ListVersions lists a template's versions
func (h *TemplateHandler) ListVersions(c *gin.Context) {
	templateID := h.parseIDParam(c, "id")
	if templateID == 0 {
		return
	}

	versions, err := h.templateService.ListVersions(c.Request.Context(), templateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, versions)
}

// UpdateVersion updates draft version metadata
func (h *TemplateHandler) UpdateVersion(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	var req services.UpdateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	version, err := h.templateService.UpdateVersion(c.Request.Context(), versionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, version)
}

// DeleteVersion deletes a version that no test references
func (h *TemplateHandler) DeleteVersion(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	h.LogRequest(c, "Deleting version", "version_id", versionID)

	if err := h.templateService.DeleteVersion(c.Request.Context(), versionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Version deleted successfully"})
}

// PublishVersion flips a draft version to published
func (h *TemplateHandler) PublishVersion(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	h.LogRequest(c, "Publishing version", "version_id", versionID)

	version, err := h.templateService.PublishVersion(c.Request.Context(), versionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, version)
}
