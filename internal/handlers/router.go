package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/config"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

type HandlerManager struct {
	blueprintHandler *BlueprintHandler
	examHandler      *ExamHandler
	attemptHandler   *AttemptHandler
	scoringHandler   *ScoringHandler
	questionHandler  *QuestionHandler
	authMiddleware   *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	return &HandlerManager{
		blueprintHandler: NewBlueprintHandler(serviceManager.Paper(), validator, logger),
		examHandler:      NewExamHandler(serviceManager.Exam(), logger),
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		scoringHandler:   NewScoringHandler(serviceManager.Scoring(), validator, logger),
		questionHandler:  NewQuestionHandler(serviceManager.Question(), validator, logger),
		authMiddleware:   NewCasdoorAuthMiddleware(casdoorConfig),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)
	graders := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleProctor, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Blueprint and paper assembly routes
		blueprints := v1.Group("/blueprints")
		{
			blueprints.POST("", staffOnly, hm.blueprintHandler.CreateBlueprint)
			blueprints.GET("", staffOnly, hm.blueprintHandler.ListBlueprints)
			blueprints.GET("/:id", staffOnly, hm.blueprintHandler.GetBlueprint)
			blueprints.POST("/:id/clone", staffOnly, hm.blueprintHandler.CloneBlueprint)
			blueprints.POST("/:id/generate", staffOnly, hm.blueprintHandler.GeneratePaper)
			blueprints.GET("/:id/validate", staffOnly, hm.blueprintHandler.ValidateBlueprint)
			blueprints.GET("/:id/preview", staffOnly, hm.blueprintHandler.PreviewQuestions)
		}

		// Exam routes
		exams := v1.Group("/exams")
		{
			exams.POST("", staffOnly, hm.examHandler.CreateExam)
			exams.POST("/:id/publish", staffOnly, hm.examHandler.PublishExam)
			exams.GET("/:id/questions", staffOnly, hm.examHandler.GetExamWithQuestions)

			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/current/:exam_id", hm.attemptHandler.GetCurrentAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answer", hm.attemptHandler.SaveAnswer)
			attempts.POST("/:id/time", hm.attemptHandler.UpdateTime)
			attempts.POST("/:id/pause", hm.attemptHandler.PauseAttempt)
			attempts.POST("/:id/resume", hm.attemptHandler.ResumeAttempt)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/sections/:section_id/start", hm.attemptHandler.StartSection)
			attempts.POST("/:id/sections/:section_id/submit", hm.attemptHandler.SubmitSection)
		}

		// Scoring routes
		scores := v1.Group("/scores")
		{
			scores.POST("/attempts/:attempt_id/evaluate", graders, hm.scoringHandler.EvaluateAttempt)
			scores.POST("/attempts/:attempt_id/recompute", graders, hm.scoringHandler.RecomputeScore)
			scores.GET("/attempts/:attempt_id", hm.scoringHandler.GetResults)
			scores.GET("/attempts/:attempt_id/sections", hm.scoringHandler.GetSectionScores)
			scores.GET("/topics/me", hm.scoringHandler.GetMyTopicScores)
			scores.GET("/topics/user/:user_id", staffOnly, hm.scoringHandler.GetTopicScores)
		}

		// Question pool routes
		questions := v1.Group("/questions")
		questions.Use(staffOnly)
		{
			questions.POST("", hm.questionHandler.CreateQuestion)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.GET("/:id", hm.questionHandler.GetQuestion)
			questions.DELETE("/:id", hm.questionHandler.DeleteQuestion)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})
}
