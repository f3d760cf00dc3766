package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

// PublicHandler serves the unauthenticated student-facing endpoints.
// Everything is keyed by the test access code from the URL.
type PublicHandler struct {
	BaseHandler
	publicTestService services.PublicTestService
}

func NewPublicHandler(publicTestService services.PublicTestService, logger utils.Logger) *PublicHandler {
	return &PublicHandler{
		BaseHandler:       NewBaseHandler(logger),
		publicTestService: publicTestService,
	}
}

func (h *PublicHandler) accessCode(c *gin.Context) string {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Access code is required", nil)
	}
	return code
}

// LookupTest resolves an access code to an active test
func (h *PublicHandler) LookupTest(c *gin.Context) {
	code := h.accessCode(c)
	if code == "" {
		return
	}

	test, err := h.publicTestService.Lookup(c.Request.Context(), code)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// StartTest registers the student and returns the question tree
func (h *PublicHandler) StartTest(c *gin.Context) {
	code := h.accessCode(c)
	if code == "" {
		return
	}

	var student services.StudentPayload
	if err := c.ShouldBindJSON(&student); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	response, err := h.publicTestService.Start(c.Request.Context(), code, &student)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SubmitTest stores the answer set and completes the assignment
func (h *PublicHandler) SubmitTest(c *gin.Context) {
	code := h.accessCode(c)
	if code == "" {
		return
	}

	var req services.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Submitting test answers", "access_code", code)

	if err := h.publicTestService.Submit(c.Request.Context(), code, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test submitted successfully"})
}
