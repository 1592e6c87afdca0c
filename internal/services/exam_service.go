package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	paper     PaperService
}

// NewExamService creates the exam service
func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.Publisher, paper PaperService) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
		paper:     paper,
	}
}

// CreateExam generates a paper from the blueprint and materializes it as a
// draft exam. Rules with distinct positions become sections; a non-empty
// SectionName collapses the paper into a single section instead.
func (s *examService) CreateExam(ctx context.Context, req *CreateExamRequest, createdBy string) (*models.Exam, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	paper, err := s.paper.GeneratePaper(ctx, req.BlueprintID, req.Seed)
	if err != nil {
		return nil, err
	}

	blueprintID := req.BlueprintID
	exam := &models.Exam{
		Title:           req.Title,
		Description:     req.Description,
		BlueprintID:     &blueprintID,
		DurationSeconds: req.DurationSeconds,
		Status:          models.ExamDraft,
		CreatedBy:       createdBy,
	}
	exam.Sections = buildSections(paper, req.SectionName)

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam created",
		"exam_id", exam.ID,
		"blueprint_id", req.BlueprintID,
		"seed", paper.Seed,
		"questions", paper.TotalQuestions,
		"created_by", createdBy)

	return exam, nil
}

// GetExam retrieves an exam without its question layout
func (s *examService) GetExam(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("exam", id)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// GetExamWithQuestions retrieves an exam with its full section layout
func (s *examService) GetExamWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("exam", id)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

// PublishExam opens a draft exam for attempts. Publishing is one-way;
// archived exams cannot come back.
func (s *examService) PublishExam(ctx context.Context, id uint, userID string) (*models.Exam, error) {
	exam, err := s.GetExamWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}

	if exam.Status != models.ExamDraft {
		return nil, NewConflictError("exam %d is %s, only a draft can be published", id, exam.Status)
	}
	if len(exam.Sections) == 0 {
		return nil, NewValidationError("exam %d has no sections", id)
	}

	exam.Status = models.ExamPublished
	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to publish exam: %w", err)
	}

	s.logger.InfoContext(ctx, "Exam published",
		"exam_id", id,
		"published_by", userID)

	return exam, nil
}

// ListExams lists exams with filters
func (s *examService) ListExams(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	return s.repo.Exam().List(ctx, filters)
}

// buildSections turns an assembled paper into the exam's section layout.
// Question positions restart at 1 within each section.
func buildSections(paper *Paper, singleName string) []models.ExamSection {
	if singleName != "" {
		section := models.ExamSection{Name: singleName, Position: 1}
		for i, pq := range paper.Questions {
			section.Questions = append(section.Questions, models.ExamQuestion{
				QuestionID: pq.Question.ID,
				Position:   i + 1,
			})
		}
		return []models.ExamSection{section}
	}

	var sections []models.ExamSection
	index := make(map[int]int)
	for _, pq := range paper.Questions {
		at, ok := index[pq.RulePosition]
		if !ok {
			at = len(sections)
			index[pq.RulePosition] = at
			sections = append(sections, models.ExamSection{
				Name:     fmt.Sprintf("Section %d", len(sections)+1),
				Position: len(sections) + 1,
			})
		}
		sections[at].Questions = append(sections[at].Questions, models.ExamQuestion{
			QuestionID: pq.Question.ID,
			Position:   len(sections[at].Questions) + 1,
		})
	}
	return sections
}
