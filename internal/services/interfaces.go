package services

import (
	"context"
	"io"
	"time"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

// ===== PAPER ASSEMBLY =====

// Paper is an assembled question paper. It is a value, not a stored
// entity: the same blueprint and seed always rebuild the same paper.
type Paper struct {
	BlueprintID    uint            `json:"blueprint_id"`
	Seed           string          `json:"seed"`
	GeneratedAt    time.Time       `json:"generated_at"`
	TotalQuestions int             `json:"total_questions"`
	TotalMarks     float64         `json:"total_marks"`
	Questions      []PaperQuestion `json:"questions"`
}

// PaperQuestion is one slot of an assembled paper
type PaperQuestion struct {
	Position     int              `json:"position"`
	RulePosition int              `json:"rule_position"`
	Question     *models.Question `json:"question"`
}

// PaperPreview is a capped, unshuffled sample of a blueprint's draw.
// TotalInBlueprint is the full paper size every rule together would
// request, so callers can show "5 of 20".
type PaperPreview struct {
	Questions        []PaperQuestion `json:"questions"`
	TotalInBlueprint int             `json:"total_in_blueprint"`
}

// BlueprintValidationResult reports whether a blueprint can generate
type BlueprintValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	Errors         []string `json:"errors,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	TotalQuestions int      `json:"total_questions"`
}

// PaperService assembles papers from blueprints
type PaperService interface {
	CreateBlueprint(ctx context.Context, req *validator.BlueprintCreateRequest, createdBy string) (*models.Blueprint, error)
	GetBlueprint(ctx context.Context, id uint) (*models.Blueprint, error)
	ListBlueprints(ctx context.Context, filters repositories.BlueprintFilters) ([]*models.Blueprint, int64, error)
	CloneBlueprint(ctx context.Context, id uint, newName, createdBy string) (*models.Blueprint, error)

	GeneratePaper(ctx context.Context, blueprintID uint, seed string) (*Paper, error)
	ValidateBlueprint(ctx context.Context, blueprintID uint) (*BlueprintValidationResult, error)
	PreviewQuestions(ctx context.Context, blueprintID uint, limit int) (*PaperPreview, error)
}

// ===== EXAMS =====

// CreateExamRequest builds an exam, optionally materializing a generated
// paper into its question layout
type CreateExamRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=255"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	BlueprintID     uint    `json:"blueprint_id" validate:"required"`
	Seed            string  `json:"seed" validate:"omitempty,max=128"`
	DurationSeconds int     `json:"duration_seconds" validate:"required,exam_duration"`
	SectionName     string  `json:"section_name" validate:"omitempty,max=255"`
}

// ExamService creates and publishes exams from assembled papers
type ExamService interface {
	CreateExam(ctx context.Context, req *CreateExamRequest, createdBy string) (*models.Exam, error)
	GetExam(ctx context.Context, id uint) (*models.Exam, error)
	GetExamWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	PublishExam(ctx context.Context, id uint, userID string) (*models.Exam, error)
	ListExams(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
}

// ===== ATTEMPTS =====

// TimeRemainingResponse is returned by time syncs
type TimeRemainingResponse struct {
	AttemptID        uint                 `json:"attempt_id"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Status           models.AttemptStatus `json:"status"`
}

// SubmitAttemptResponse carries the terminal attempt plus the scoring
// outcome. ScoringError is set when evaluation failed after a successful
// submission; the attempt stays submitted regardless.
type SubmitAttemptResponse struct {
	Attempt      *models.ExamAttempt `json:"attempt"`
	Score        *models.UserScore   `json:"score,omitempty"`
	ScoringError string              `json:"scoring_error,omitempty"`
}

// AttemptService manages the attempt lifecycle
type AttemptService interface {
	StartAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error)
	GetAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error)
	GetCurrentAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error)
	ListAttempts(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error)

	SaveAnswer(ctx context.Context, attemptID uint, userID string, req *validator.SaveAnswerRequest) error
	UpdateTime(ctx context.Context, attemptID uint, userID string, elapsedSeconds int) (*TimeRemainingResponse, error)

	PauseAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error)
	ResumeAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error)
	SubmitAttempt(ctx context.Context, attemptID uint, userID string, answers []validator.SaveAnswerRequest) (*SubmitAttemptResponse, error)

	StartSection(ctx context.Context, attemptID, sectionID uint, userID string) error
	SubmitSection(ctx context.Context, attemptID, sectionID uint, userID string) error

	// HandleTimeout force-submits an exhausted attempt and triggers scoring
	HandleTimeout(ctx context.Context, attemptID uint) error

	// SweepOverdueAttempts auto-submits attempts whose wall-clock budget
	// elapsed; returns how many were closed
	SweepOverdueAttempts(ctx context.Context) (int, error)
}

// ===== SCORING =====

// ManualGrade overrides the evaluator's verdict for one answer, used for
// DESCRIPTIVE grading
type ManualGrade struct {
	QuestionID   uint
	IsCorrect    *bool
	MarksAwarded float64
	GradedBy     string
}

// AttemptResult bundles the overall score with its section breakdown
type AttemptResult struct {
	Score    *models.UserScore      `json:"score"`
	Sections []*models.SectionScore `json:"sections"`
}

// ScoringService evaluates attempts and aggregates scores
type ScoringService interface {
	EvaluateAttempt(ctx context.Context, attemptID uint, manualGrades []ManualGrade) (*models.UserScore, error)
	RecomputeScore(ctx context.Context, attemptID uint) (*models.UserScore, error)

	GetResults(ctx context.Context, attemptID uint) (*AttemptResult, error)
	GetSectionScores(ctx context.Context, attemptID uint) ([]*models.SectionScore, error)
	GetTopicScores(ctx context.Context, userID string) ([]*models.TopicScore, error)
}

// ===== QUESTION POOL =====

// ImportResult summarizes an XLSX question import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// QuestionService manages the question pool
type QuestionService interface {
	CreateQuestion(ctx context.Context, req *validator.QuestionCreateRequest, createdBy string) (*models.Question, error)
	GetQuestion(ctx context.Context, id uint) (*models.Question, error)
	ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error)
	DeleteQuestion(ctx context.Context, id uint) error

	// ImportQuestionsXLSX parses an uploaded workbook and feeds the pool
	ImportQuestionsXLSX(ctx context.Context, reader io.Reader, createdBy string) (*ImportResult, error)
}
