package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/models"
	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

type AdministrationHandler struct {
	BaseHandler
	administrationService services.AdministrationService
}

func NewAdministrationHandler(administrationService services.AdministrationService, logger utils.Logger) *AdministrationHandler {
	return &AdministrationHandler{
		BaseHandler:           NewBaseHandler(logger),
		administrationService: administrationService,
	}
}

// ===== PERIOD ENDPOINTS =====

// CreatePeriod creates an application period
func (h *AdministrationHandler) CreatePeriod(c *gin.Context) {
	var req services.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	period, err := h.administrationService.CreatePeriod(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, period)
}

// ListPeriods lists all application periods
func (h *AdministrationHandler) ListPeriods(c *gin.Context) {
	periods, err := h.administrationService.ListPeriods(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, periods)
}

// UpdatePeriod updates an application period
func (h *AdministrationHandler) UpdatePeriod(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.PeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	period, err := h.administrationService.UpdatePeriod(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, period)
}

// DeletePeriod deletes a period with no tests attached
func (h *AdministrationHandler) DeletePeriod(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting period", "period_id", id)

	if err := h.administrationService.DeletePeriod(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Period deleted successfully"})
}

// ===== TEST ENDPOINTS =====

// CreateTest binds a published version to a period under an access code
func (h *AdministrationHandler) CreateTest(c *gin.Context) {
	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	test, err := h.administrationService.CreateTest(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest retrieves a test by ID
func (h *AdministrationHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.administrationService.GetTest(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListTests lists tests with filters and pagination
func (h *AdministrationHandler) ListTests(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.TestFilters{
		PeriodID:  h.parseUintQueryPtr(c, "period_id"),
		VersionID: h.parseUintQueryPtr(c, "version_id"),
		Search:    h.parseStringQueryPtr(c, "search"),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if status := c.Query("status"); status != "" {
		s := models.TestStatus(status)
		filters.Status = &s
	}

	response, err := h.administrationService.ListTests(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// UpdateTest updates a test's metadata or status
func (h *AdministrationHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	test, err := h.administrationService.UpdateTest(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest deletes a test with no submissions
func (h *AdministrationHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	if err := h.administrationService.DeleteTest(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted successfully"})
}
