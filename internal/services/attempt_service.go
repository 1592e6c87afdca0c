package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

// attemptLockCount stripes per-attempt locks so concurrent saves and time
// syncs on the same attempt serialize without a global bottleneck
const attemptLockCount = 64

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	scoring   ScoringService

	locks [attemptLockCount]sync.Mutex
}

// NewAttemptService creates the attempt lifecycle service
func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.Publisher, scoring ScoringService) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
		scoring:   scoring,
	}
}

func (s *attemptService) lock(attemptID uint) *sync.Mutex {
	return &s.locks[attemptID%attemptLockCount]
}

// StartAttempt creates an attempt with its section attempts in one
// transaction. The single-active-attempt rule is checked again inside the
// transaction so two racing starts cannot both slip through.
func (s *attemptService) StartAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("exam", examID)
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if !exam.IsOpen() {
		return nil, NewValidationError("exam %d is not open for attempts", examID)
	}

	var attempt *models.ExamAttempt
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		hasActive, err := txRepo.Attempt().HasActiveAttempt(ctx, examID, userID)
		if err != nil {
			return err
		}
		if hasActive {
			return NewConflictError("user %s already has an active attempt for exam %d", userID, examID)
		}

		now := time.Now().UTC()
		attempt = &models.ExamAttempt{
			ExamID:           examID,
			UserID:           userID,
			Status:           models.AttemptInProgress,
			RemainingSeconds: exam.DurationSeconds,
			StartedAt:        &now,
		}
		if err := txRepo.Attempt().Create(ctx, attempt); err != nil {
			return err
		}

		sections := make([]*models.SectionAttempt, 0, len(exam.Sections))
		for _, section := range exam.Sections {
			sections = append(sections, &models.SectionAttempt{
				AttemptID: attempt.ID,
				SectionID: section.ID,
				Status:    models.AttemptNotStarted,
			})
		}
		return txRepo.SectionAttempt().CreateBatch(ctx, sections)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempt started",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"user_id", userID)

	s.publishEvent(ctx, events.EventAttemptStarted, map[string]interface{}{
		"attempt_id": attempt.ID,
		"exam_id":    examID,
		"user_id":    userID,
	})

	return attempt, nil
}

// GetAttempt retrieves an attempt with sections and answers. A non-empty
// userID restricts access to the owner.
func (s *attemptService) GetAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if userID != "" && attempt.UserID != userID {
		return nil, NewNotFoundError("attempt", attemptID)
	}
	return attempt, nil
}

// GetCurrentAttempt returns the user's active attempt for an exam
func (s *attemptService) GetCurrentAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error) {
	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("attempt", fmt.Sprintf("exam %d user %s", examID, userID))
		}
		return nil, fmt.Errorf("failed to get current attempt: %w", err)
	}
	return attempt, nil
}

// ListAttempts lists attempts with filters
func (s *attemptService) ListAttempts(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	return s.repo.Attempt().List(ctx, filters)
}

// SaveAnswer upserts one answer. Any non-terminal attempt accepts saves,
// paused included; only the time budget freezes during a pause. Saving
// resets the answer's grade so a changed answer never keeps a stale
// verdict.
func (s *attemptService) SaveAnswer(ctx context.Context, attemptID uint, userID string, req *validator.SaveAnswerRequest) error {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.Status.IsTerminal() {
			return NewValidationError("attempt %d is already submitted", attemptID)
		}

		if err := s.verifyQuestionInExam(ctx, txRepo, attempt.ExamID, req.QuestionID); err != nil {
			return err
		}

		return s.upsertAnswer(ctx, txRepo, attemptID, req)
	})
}

// UpdateTime applies a server-authoritative elapsed delta. The remaining
// budget floors at zero and crossing zero auto-submits in the same
// transaction; scoring then runs fail-soft outside it.
func (s *attemptService) UpdateTime(ctx context.Context, attemptID uint, userID string, elapsedSeconds int) (*TimeRemainingResponse, error) {
	if elapsedSeconds <= 0 {
		return nil, NewValidationError("elapsed seconds must be positive")
	}

	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	var resp *TimeRemainingResponse
	expired := false

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress {
			return NewValidationError("attempt %d is not in progress", attemptID)
		}

		attempt.TimeSpentSeconds += elapsedSeconds
		attempt.RemainingSeconds -= elapsedSeconds
		if attempt.RemainingSeconds <= 0 {
			attempt.RemainingSeconds = 0
			expired = true
		}

		if expired {
			if err := s.finalizeAttempt(ctx, txRepo, attempt, models.AttemptAutoSubmitted); err != nil {
				return err
			}
		} else if err := txRepo.Attempt().Update(ctx, attempt); err != nil {
			return err
		}

		resp = &TimeRemainingResponse{
			AttemptID:        attempt.ID,
			RemainingSeconds: attempt.RemainingSeconds,
			Status:           attempt.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired {
		s.afterAutoSubmit(ctx, attemptID)
	}

	return resp, nil
}

// PauseAttempt freezes an in-progress attempt
func (s *attemptService) PauseAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error) {
	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	var attempt *models.ExamAttempt
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		attempt, err = s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress {
			return NewValidationError("only an in-progress attempt can be paused")
		}

		attempt.Status = models.AttemptPaused
		return txRepo.Attempt().Update(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.EventAttemptPaused, map[string]interface{}{"attempt_id": attemptID})

	return attempt, nil
}

// ResumeAttempt reopens a paused attempt. An exhausted attempt is
// force-submitted instead and the caller gets ExpiredError.
func (s *attemptService) ResumeAttempt(ctx context.Context, attemptID uint, userID string) (*models.ExamAttempt, error) {
	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	var attempt *models.ExamAttempt
	expired := false

	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		attempt, err = s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptPaused {
			return NewValidationError("only a paused attempt can be resumed")
		}

		if attempt.RemainingSeconds <= 0 {
			expired = true
			return s.finalizeAttempt(ctx, txRepo, attempt, models.AttemptAutoSubmitted)
		}

		attempt.Status = models.AttemptInProgress
		return txRepo.Attempt().Update(ctx, attempt)
	})
	if err != nil {
		return nil, err
	}

	if expired {
		s.afterAutoSubmit(ctx, attemptID)
		return nil, &ExpiredError{AttemptID: attemptID}
	}

	s.publishEvent(ctx, events.EventAttemptResumed, map[string]interface{}{"attempt_id": attemptID})

	return attempt, nil
}

// SubmitAttempt upserts the final answer batch and moves the attempt to
// SUBMITTED in one transaction. Scoring runs after the transaction and is
// fail-soft: a grading failure leaves the attempt submitted and comes
// back in ScoringError instead of undoing the submission.
func (s *attemptService) SubmitAttempt(ctx context.Context, attemptID uint, userID string, answers []validator.SaveAnswerRequest) (*SubmitAttemptResponse, error) {
	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	var attempt *models.ExamAttempt
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		attempt, err = s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if attempt.Status.IsTerminal() {
			return NewConflictError("attempt %d is already submitted", attemptID)
		}

		for i := range answers {
			if err := s.verifyQuestionInExam(ctx, txRepo, attempt.ExamID, answers[i].QuestionID); err != nil {
				return err
			}
			if err := s.upsertAnswer(ctx, txRepo, attemptID, &answers[i]); err != nil {
				return err
			}
		}

		return s.finalizeAttempt(ctx, txRepo, attempt, models.AttemptSubmitted)
	})
	if err != nil {
		return nil, err
	}

	resp := &SubmitAttemptResponse{Attempt: attempt}

	score, err := s.scoring.EvaluateAttempt(ctx, attemptID, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Scoring failed after submission",
			"attempt_id", attemptID,
			"error", err)
		resp.ScoringError = err.Error()
	} else {
		resp.Score = score
		s.publishEvent(ctx, events.EventResultPublished, map[string]interface{}{
			"attempt_id": attemptID,
			"user_id":    attempt.UserID,
			"percentage": score.Percentage,
			"grade":      score.Grade,
		})
	}

	s.publishEvent(ctx, events.EventAttemptSubmitted, map[string]interface{}{
		"attempt_id": attemptID,
		"exam_id":    attempt.ExamID,
		"user_id":    attempt.UserID,
	})

	return resp, nil
}

// StartSection opens a section of an in-progress attempt
func (s *attemptService) StartSection(ctx context.Context, attemptID, sectionID uint, userID string) error {
	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if !attempt.CanMutate() {
			return NewValidationError("attempt %d is not in progress", attemptID)
		}

		section, err := txRepo.SectionAttempt().GetByAttemptAndSection(ctx, attemptID, sectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("section attempt", sectionID)
			}
			return err
		}
		if section.Status != models.AttemptNotStarted {
			return NewValidationError("section %d is already started", sectionID)
		}

		now := time.Now().UTC()
		section.Status = models.AttemptInProgress
		section.StartedAt = &now
		return txRepo.SectionAttempt().Update(ctx, section)
	})
}

// SubmitSection closes a section of an in-progress attempt
func (s *attemptService) SubmitSection(ctx context.Context, attemptID, sectionID uint, userID string) error {
	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := s.getOwnedAttempt(ctx, txRepo, attemptID, userID)
		if err != nil {
			return err
		}
		if !attempt.CanMutate() {
			return NewValidationError("attempt %d is not in progress", attemptID)
		}

		section, err := txRepo.SectionAttempt().GetByAttemptAndSection(ctx, attemptID, sectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("section attempt", sectionID)
			}
			return err
		}
		if section.Status.IsTerminal() {
			return NewConflictError("section %d is already submitted", sectionID)
		}

		now := time.Now().UTC()
		section.Status = models.AttemptSubmitted
		section.SubmittedAt = &now
		return txRepo.SectionAttempt().Update(ctx, section)
	})
}

// HandleTimeout force-submits an exhausted attempt. Safe to call on an
// already terminal attempt.
func (s *attemptService) HandleTimeout(ctx context.Context, attemptID uint) error {
	mu := s.lock(attemptID)
	mu.Lock()
	defer mu.Unlock()

	closed := false
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attempt, err := txRepo.Attempt().GetByID(ctx, attemptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("attempt", attemptID)
			}
			return err
		}
		if attempt.Status.IsTerminal() {
			return nil
		}

		attempt.RemainingSeconds = 0
		closed = true
		return s.finalizeAttempt(ctx, txRepo, attempt, models.AttemptAutoSubmitted)
	})
	if err != nil {
		return err
	}

	if closed {
		s.afterAutoSubmit(ctx, attemptID)
	}

	return nil
}

// SweepOverdueAttempts closes attempts whose wall-clock budget elapsed
func (s *attemptService) SweepOverdueAttempts(ctx context.Context) (int, error) {
	overdue, err := s.repo.Attempt().GetOverdueAttempts(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to find overdue attempts: %w", err)
	}

	closed := 0
	for _, attempt := range overdue {
		if err := s.HandleTimeout(ctx, attempt.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to close overdue attempt",
				"attempt_id", attempt.ID,
				"error", err)
			continue
		}
		closed++
	}

	if closed > 0 {
		s.logger.InfoContext(ctx, "Swept overdue attempts", "closed", closed)
	}

	return closed, nil
}

// ===== helpers =====

func (s *attemptService) getOwnedAttempt(ctx context.Context, txRepo repositories.Repository, attemptID uint, userID string) (*models.ExamAttempt, error) {
	attempt, err := txRepo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if userID != "" && attempt.UserID != userID {
		return nil, NewNotFoundError("attempt", attemptID)
	}
	return attempt, nil
}

func (s *attemptService) verifyQuestionInExam(ctx context.Context, txRepo repositories.Repository, examID, questionID uint) error {
	exam, err := txRepo.Exam().GetByIDWithQuestions(ctx, examID)
	if err != nil {
		return fmt.Errorf("failed to get exam layout: %w", err)
	}
	for _, section := range exam.Sections {
		for _, eq := range section.Questions {
			if eq.QuestionID == questionID {
				return nil
			}
		}
	}
	return NewValidationError("question %d is not part of exam %d", questionID, examID)
}

func (s *attemptService) upsertAnswer(ctx context.Context, txRepo repositories.Repository, attemptID uint, req *validator.SaveAnswerRequest) error {
	answer, err := txRepo.Answer().GetByAttemptAndQuestion(ctx, attemptID, req.QuestionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up answer: %w", err)
		}
		return txRepo.Answer().Create(ctx, &models.QuestionAnswer{
			AttemptID:        attemptID,
			QuestionID:       req.QuestionID,
			UserAnswer:       datatypes.JSON(req.Answer),
			TimeTakenSeconds: req.TimeTakenSeconds,
		})
	}

	answer.UserAnswer = datatypes.JSON(req.Answer)
	answer.TimeTakenSeconds += req.TimeTakenSeconds
	answer.IsCorrect = nil
	answer.MarksAwarded = 0
	answer.GradedAt = nil
	answer.GradedBy = nil
	return txRepo.Answer().Update(ctx, answer)
}

// finalizeAttempt moves the attempt and all its non-terminal sections to
// the terminal status inside the caller's transaction
func (s *attemptService) finalizeAttempt(ctx context.Context, txRepo repositories.Repository, attempt *models.ExamAttempt, status models.AttemptStatus) error {
	now := time.Now().UTC()
	attempt.Status = status
	attempt.SubmittedAt = &now
	if err := txRepo.Attempt().Update(ctx, attempt); err != nil {
		return err
	}

	sections, err := txRepo.SectionAttempt().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return err
	}
	for _, section := range sections {
		if section.Status.IsTerminal() {
			continue
		}
		section.Status = status
		section.SubmittedAt = &now
		if err := txRepo.SectionAttempt().Update(ctx, section); err != nil {
			return err
		}
	}

	return nil
}

// afterAutoSubmit runs fail-soft scoring and event publishing once an
// attempt was auto-submitted
func (s *attemptService) afterAutoSubmit(ctx context.Context, attemptID uint) {
	if _, err := s.scoring.EvaluateAttempt(ctx, attemptID, nil); err != nil {
		s.logger.ErrorContext(ctx, "Scoring failed after auto-submission",
			"attempt_id", attemptID,
			"error", err)
	}

	s.publishEvent(ctx, events.EventAttemptExpired, map[string]interface{}{"attempt_id": attemptID})
}

func (s *attemptService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Data: data}); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
