package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

type BlueprintHandler struct {
	BaseHandler
	paperService services.PaperService
	validator    *validator.Validator
}

func NewBlueprintHandler(paperService services.PaperService, v *validator.Validator, logger utils.Logger) *BlueprintHandler {
	return &BlueprintHandler{
		BaseHandler:  NewBaseHandler(logger),
		paperService: paperService,
		validator:    v,
	}
}

// CreateBlueprint creates a blueprint with its selection rules
func (h *BlueprintHandler) CreateBlueprint(c *gin.Context) {
	h.LogRequest(c, "Creating blueprint")

	var req validator.BlueprintCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	blueprint, err := h.paperService.CreateBlueprint(c.Request.Context(), &req, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Blueprint created successfully",
		Data:    blueprint,
	})
}

// GetBlueprint retrieves a blueprint with its rules
func (h *BlueprintHandler) GetBlueprint(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	blueprint, err := h.paperService.GetBlueprint(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: blueprint})
}

// ListBlueprints lists blueprints with pagination and search
func (h *BlueprintHandler) ListBlueprints(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.BlueprintFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filters.Search = &search
	}
	if createdBy := strings.TrimSpace(c.Query("created_by")); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	blueprints, total, err := h.paperService.ListBlueprints(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:  blueprints,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// CloneBlueprint deep-copies a blueprint under a new name
func (h *BlueprintHandler) CloneBlueprint(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Cloning blueprint", "blueprint_id", id)

	var req validator.CloneBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if errs := h.validator.Validate(&req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: errs.Error(),
		})
		return
	}

	clone, err := h.paperService.CloneBlueprint(c.Request.Context(), id, req.Name, h.getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Blueprint cloned successfully",
		Data:    clone,
	})
}

// GeneratePaper assembles a paper from the blueprint with an optional seed
func (h *BlueprintHandler) GeneratePaper(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.GeneratePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Generating paper", "blueprint_id", id, "seed", req.Seed)

	paper, err := h.paperService.GeneratePaper(c.Request.Context(), id, req.Seed)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Paper generated successfully",
		Data:    paper,
	})
}

// ValidateBlueprint reports whether the blueprint can generate a paper
func (h *BlueprintHandler) ValidateBlueprint(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.paperService.ValidateBlueprint(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: result})
}

// PreviewQuestions returns a capped, unshuffled preview of the pool the
// blueprint draws from
func (h *BlueprintHandler) PreviewQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	limit := h.parseIntQuery(c, "limit", 10)

	preview, err := h.paperService.PreviewQuestions(c.Request.Context(), id, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Data: preview})
}
