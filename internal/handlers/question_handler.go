package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evalhub/survey-builder-service/internal/ordering"
	"github.com/evalhub/survey-builder-service/internal/services"
	"github.com/evalhub/survey-builder-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// CreateQuestion adds a question to a draft version
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), versionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestion retrieves a question with options and children
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion edits a question on a draft version
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion removes a question and closes the order gap
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted successfully"})
}

// ListQuestions returns a version's full question tree in order
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	questions, err := h.questionService.ListTree(c.Request.Context(), versionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ReorderQuestions applies a full permutation of a version's root questions
func (h *QuestionHandler) ReorderQuestions(c *gin.Context) {
	versionID := h.parseIDParam(c, "version_id")
	if versionID == 0 {
		return
	}

	var req ordering.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Reordering questions", "version_id", versionID)

	questions, err := h.questionService.Reorder(c.Request.Context(), versionID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ===== OPTION ENDPOINTS =====

// CreateOption adds an answer option to a question
func (h *QuestionHandler) CreateOption(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req services.CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	option, err := h.questionService.CreateOption(c.Request.Context(), questionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, option)
}

// UpdateOption edits an answer option
func (h *QuestionHandler) UpdateOption(c *gin.Context) {
	optionID := h.parseIDParam(c, "option_id")
	if optionID == 0 {
		return
	}

	var req services.UpdateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	option, err := h.questionService.UpdateOption(c.Request.Context(), optionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, option)
}

// DeleteOption removes an answer option and closes the order gap
func (h *QuestionHandler) DeleteOption(c *gin.Context) {
	optionID := h.parseIDParam(c, "option_id")
	if optionID == 0 {
		return
	}

	if err := h.questionService.DeleteOption(c.Request.Context(), optionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Option deleted successfully"})
}

// ListOptions returns a question's options in order
func (h *QuestionHandler) ListOptions(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	options, err := h.questionService.ListOptions(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// ReorderOptions applies a full permutation of a question's options
func (h *QuestionHandler) ReorderOptions(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	var req ordering.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	h.LogRequest(c, "Reordering options", "question_id", questionID)

	options, err := h.questionService.ReorderOptions(c.Request.Context(), questionID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}
