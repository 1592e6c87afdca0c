package repositories

import (
	"context"
	"time"

	"github.com/examforge/exam-service/internal/models"
)

// BlueprintRepository manages paper blueprints and their rules
type BlueprintRepository interface {
	Create(ctx context.Context, blueprint *models.Blueprint) error
	GetByID(ctx context.Context, id uint) (*models.Blueprint, error)
	GetByIDWithRules(ctx context.Context, id uint) (*models.Blueprint, error)
	Update(ctx context.Context, blueprint *models.Blueprint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters BlueprintFilters) ([]*models.Blueprint, int64, error)
}

// BlueprintFilters for listing blueprints
type BlueprintFilters struct {
	CreatedBy *string
	Search    *string
	Limit     int
	Offset    int
}

// TopicRepository manages question topics
type TopicRepository interface {
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id uint) (*models.Topic, error)
	GetByName(ctx context.Context, name string) (*models.Topic, error)
	List(ctx context.Context) ([]*models.Topic, error)
}

// QuestionRepository manages the question pool
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	CreateBatch(ctx context.Context, questions []*models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters QuestionFilters) ([]*models.Question, int64, error)

	// Pool queries used by paper assembly. A nil topicID selects the whole
	// pool. Candidates come back in stable primary-key order.
	FindCandidates(ctx context.Context, topicID *uint) ([]*models.Question, error)
	CountCandidates(ctx context.Context, topicID *uint) (int64, error)
}

// QuestionFilters for listing pool questions
type QuestionFilters struct {
	TopicID    *uint
	Type       *models.QuestionType
	Difficulty *models.DifficultyLevel
	CreatedBy  *string
	Search     *string
	Limit      int
	Offset     int
}

// ExamRepository manages exams and their section/question layout
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)
}

// ExamFilters for listing exams
type ExamFilters struct {
	Status    *models.ExamStatus
	CreatedBy *string
	Limit     int
	Offset    int
}

// AttemptRepository manages exam attempts
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.ExamAttempt, error)
	Update(ctx context.Context, attempt *models.ExamAttempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// Single-active-attempt queries
	GetActiveAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error)
	HasActiveAttempt(ctx context.Context, examID uint, userID string) (bool, error)

	// GetOverdueAttempts returns active attempts whose wall-clock budget ran
	// out before cutoff, for the background sweeper.
	GetOverdueAttempts(ctx context.Context, cutoff time.Time) ([]*models.ExamAttempt, error)
}

// AttemptFilters for listing attempts
type AttemptFilters struct {
	ExamID *uint
	UserID *string
	Status *models.AttemptStatus
	Limit  int
	Offset int
}

// SectionAttemptRepository manages per-section attempt state
type SectionAttemptRepository interface {
	CreateBatch(ctx context.Context, sections []*models.SectionAttempt) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.SectionAttempt, error)
	GetByAttemptAndSection(ctx context.Context, attemptID, sectionID uint) (*models.SectionAttempt, error)
	Update(ctx context.Context, section *models.SectionAttempt) error
}

// AnswerRepository manages saved answers within attempts
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.QuestionAnswer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionAnswer, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.QuestionAnswer, error)
	Update(ctx context.Context, answer *models.QuestionAnswer) error
	UpdateBatch(ctx context.Context, answers []*models.QuestionAnswer) error
}

// ScoreRepository manages evaluated scores. Upserts are keyed by the
// natural unique index of each score type and are safe to repeat.
type ScoreRepository interface {
	UpsertUserScore(ctx context.Context, score *models.UserScore) error
	GetUserScore(ctx context.Context, attemptID uint) (*models.UserScore, error)
	GetUserScores(ctx context.Context, userID string, examID *uint) ([]*models.UserScore, error)

	UpsertSectionScore(ctx context.Context, score *models.SectionScore) error
	GetSectionScores(ctx context.Context, attemptID uint) ([]*models.SectionScore, error)

	UpsertTopicScore(ctx context.Context, score *models.TopicScore) error
	GetTopicScores(ctx context.Context, userID string) ([]*models.TopicScore, error)
}
