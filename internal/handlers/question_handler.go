package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

// maxImportSize caps uploaded workbooks at 10 MiB
const maxImportSize = 10 << 20

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	validator       *validator.Validator
}

func NewQuestionHandler(questionService services.QuestionService, v *validator.Validator, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		validator:       v,
	}
}

// CreateQuestion adds one question to the pool
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	h.LogRequest(c, "Creating question")

	var req validator.QuestionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), &req, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Question created successfully",
		Data:    question,
	})
}

// GetQuestion retrieves a pool question with its options
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetQuestion(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: question})
}

// ListQuestions lists pool questions with pagination and filters
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.QuestionFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if topicID := h.parseIntQuery(c, "topic_id", 0); topicID > 0 {
		id := uint(topicID)
		filters.TopicID = &id
	}
	if qType := strings.TrimSpace(c.Query("type")); qType != "" {
		questionType := models.QuestionType(qType)
		filters.Type = &questionType
	}
	if difficulty := strings.TrimSpace(c.Query("difficulty")); difficulty != "" {
		level := models.DifficultyLevel(difficulty)
		filters.Difficulty = &level
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filters.Search = &search
	}

	questions, total, err := h.questionService.ListQuestions(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:  questions,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// DeleteQuestion removes a question from the pool
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.DeleteQuestion(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted"})
}

// ImportQuestions imports pool questions from an uploaded XLSX workbook
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	h.LogRequest(c, "Importing questions")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	if header.Size > maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Message: "Workbook exceeds the 10 MiB limit",
		})
		return
	}

	result, err := h.questionService.ImportQuestionsXLSX(c.Request.Context(), file, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Import finished",
		Data:    result,
	})
}
