package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/repositories"
	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ResultsHandler struct {
	BaseHandler
	resultsService services.ResultsService
}

func NewResultsHandler(resultsService services.ResultsService, logger utils.Logger) *ResultsHandler {
	return &ResultsHandler{
		BaseHandler:    NewBaseHandler(logger),
		resultsService: resultsService,
	}
}

// GetFilterOptions returns the dropdown values for the results screen
func (h *ResultsHandler) GetFilterOptions(c *gin.Context) {
	options, err := h.resultsService.FilterOptions(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// ListResults lists completed submissions matching the filters
func (h *ResultsHandler) ListResults(c *gin.Context) {
	filters, ok := h.parseResultFilters(c)
	if !ok {
		return
	}

	response, err := h.resultsService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ExportResults streams the filtered results as an XLSX workbook
func (h *ResultsHandler) ExportResults(c *gin.Context) {
	filters, ok := h.parseResultFilters(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting results")

	data, filename, err := h.resultsService.Export(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *ResultsHandler) parseResultFilters(c *gin.Context) (repositories.ResultFilters, bool) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 20)

	filters := repositories.ResultFilters{
		TestID:    h.parseUintQueryPtr(c, "test_id"),
		VersionID: h.parseUintQueryPtr(c, "version_id"),
		PeriodID:  h.parseUintQueryPtr(c, "period_id"),
		Search:    h.parseStringQueryPtr(c, "search"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}

	for _, q := range []struct {
		name string
		dest **time.Time
	}{
		{"date_from", &filters.DateFrom},
		{"date_to", &filters.DateTo},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.RespondWithError(c, http.StatusBadRequest,
				fmt.Sprintf("Invalid %s, expected YYYY-MM-DD", q.name), err)
			return filters, false
		}
		*q.dest = &parsed
	}

	return filters, true
}
