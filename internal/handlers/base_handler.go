package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
)

// ErrorResponse is the envelope for every error reply
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the envelope for non-list replies
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// PaginatedResponse is the envelope for list replies
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// BaseHandler carries the pieces every handler shares
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs the start of a handler with request-scoped fields
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
	logger.Info(msg, args...)
}

func (h *BaseHandler) getUserID(c *gin.Context) string {
	userID, exists := c.Get("user_id")
	if !exists {
		return ""
	}
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// parseIDParam parses a numeric path parameter; a zero return means the
// response was already written
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

// handleServiceError maps the service error taxonomy to HTTP statuses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationError *services.ValidationError
	if errors.As(err, &validationError) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationError.Error(),
		})
		return
	}

	var notFoundError *services.NotFoundError
	if errors.As(err, &notFoundError) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: notFoundError.Error(),
		})
		return
	}

	var conflictError *services.ConflictError
	if errors.As(err, &conflictError) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: conflictError.Message,
		})
		return
	}

	var expiredError *services.ExpiredError
	if errors.As(err, &expiredError) {
		c.JSON(http.StatusGone, ErrorResponse{
			Message: expiredError.Error(),
		})
		return
	}

	var poolError *services.InsufficientPoolError
	if errors.As(err, &poolError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Question pool cannot satisfy the blueprint",
			Details: poolError.Error(),
		})
		return
	}

	var gradingError *services.GradingError
	if errors.As(err, &gradingError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: gradingError.Message,
		})
		return
	}

	logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
	logger.Error("Unhandled service error", "error", err, "path", c.Request.URL.Path)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal server error",
	})
}
