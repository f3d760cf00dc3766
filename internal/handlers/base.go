package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
	"github.com/evalhub/survey-builder-service/internal/validator"
)

type ErrorResponse struct {
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler shares.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs through the request-scoped logger so lines carry the
// request id.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.FromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) RespondWithError(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}

// parseIDParam parses a numeric path parameter; a zero return means the
// 400 response has already been written.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	idStr := c.Param(param)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) parseUintQueryPtr(c *gin.Context, param string) *uint {
	valueStr := c.Query(param)
	if valueStr == "" {
		return nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil {
		return nil
	}
	v := uint(value)
	return &v
}

func (h *BaseHandler) parseStringQueryPtr(c *gin.Context, param string) *string {
	value := c.Query(param)
	if value == "" {
		return nil
	}
	return &value
}

// handleServiceError maps the service error taxonomy to HTTP statuses:
// 400 validation, 404 not found, 409 conflicts, 422 semantic payload
// problems, 500 everything else.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var conflictErr *services.ConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: conflictErr.Error(),
			Details: map[string]interface{}{
				"resource": conflictErr.Resource,
				"id":       conflictErr.ID,
				"detail":   conflictErr.Detail,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrOptionNotFound),
		errors.Is(err, services.ErrPeriodNotFound),
		errors.Is(err, services.ErrTestNotFound),
		errors.Is(err, services.ErrStudentNotFound),
		errors.Is(err, services.ErrAssignmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrVersionLocked),
		errors.Is(err, services.ErrNotDraft),
		errors.Is(err, services.ErrNotPublished),
		errors.Is(err, services.ErrDuplicateName),
		errors.Is(err, services.ErrDuplicateVersion),
		errors.Is(err, services.ErrDuplicateAccessCode),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrDependencyConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrInvalidPayload),
		errors.Is(err, services.ErrScopeMismatch),
		errors.Is(err, services.ErrQuestionTypeNoOptions):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: err.Error(),
		})

	default:
		utils.FromContext(c, h.logger).Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
