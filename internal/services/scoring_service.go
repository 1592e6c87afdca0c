package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

type scoringService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

// NewScoringService creates the evaluation and aggregation service
func NewScoringService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.Publisher) ScoringService {
	return &scoringService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// sectionTally accumulates per-section aggregates during evaluation
type sectionTally struct {
	totalMarks   float64
	marksSecured float64
	correct      int
	wrong        int
	unanswered   int
}

// topicTally accumulates per-topic aggregates during evaluation
type topicTally struct {
	totalMarks   float64
	marksSecured float64
	correct      int
	wrong        int
}

// EvaluateAttempt grades every answered question of a terminal attempt and
// upserts the overall, per-section and per-topic scores. The upserts are
// keyed by the attempt, so repeated evaluation overwrites rather than
// duplicates. Manual grades override the automatic verdict per question
// and are how DESCRIPTIVE answers get marks.
//
// Counters are exclusive: a question is counted correct or wrong by its
// verdict, unanswered when no answer was saved, and not counted at all
// when it is answered but still awaiting a manual grade.
func (s *scoringService) EvaluateAttempt(ctx context.Context, attemptID uint, manualGrades []ManualGrade) (*models.UserScore, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("attempt", attemptID)
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsTerminal() {
		return nil, NewValidationError("attempt %d is not submitted yet", attemptID)
	}

	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam layout: %w", err)
	}

	saved, err := s.repo.Answer().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	answersByQuestion := make(map[uint]*models.QuestionAnswer, len(saved))
	for _, answer := range saved {
		answersByQuestion[answer.QuestionID] = answer
	}

	examQuestions := make(map[uint]struct{})
	for _, section := range exam.Sections {
		for _, eq := range section.Questions {
			examQuestions[eq.QuestionID] = struct{}{}
		}
	}

	overrides := make(map[uint]ManualGrade, len(manualGrades))
	for _, grade := range manualGrades {
		if _, ok := examQuestions[grade.QuestionID]; !ok {
			return nil, NewGradingError("manual grade references question %d outside exam %d", grade.QuestionID, exam.ID)
		}
		overrides[grade.QuestionID] = grade
	}

	now := time.Now().UTC()

	score := &models.UserScore{
		AttemptID:   attemptID,
		UserID:      attempt.UserID,
		ExamID:      exam.ID,
		EvaluatedAt: now,
	}
	sections := make(map[uint]*sectionTally)
	topics := make(map[uint]*topicTally)
	var graded []*models.QuestionAnswer

	for _, section := range exam.Sections {
		tally := &sectionTally{}
		sections[section.ID] = tally

		for _, eq := range section.Questions {
			if eq.Question == nil {
				return nil, NewGradingError("exam %d question %d is not loaded", exam.ID, eq.QuestionID)
			}
			question := eq.Question

			score.TotalMarks += question.Marks
			tally.totalMarks += question.Marks

			topic, ok := topics[question.TopicID]
			if !ok {
				topic = &topicTally{}
				topics[question.TopicID] = topic
			}
			topic.totalMarks += question.Marks

			answer, answered := answersByQuestion[eq.QuestionID]
			if answered {
				answered = answer.IsAnswered()
			}

			override, hasOverride := overrides[eq.QuestionID]
			if !answered && !hasOverride {
				score.UnansweredCount++
				tally.unanswered++
				continue
			}

			var verdict *bool
			var marks float64
			if hasOverride {
				verdict = override.IsCorrect
				marks = override.MarksAwarded
			} else {
				verdict, marks, err = EvaluateAnswer(question, answer.UserAnswer)
				if err != nil {
					return nil, NewGradingError("failed to grade question %d: %v", eq.QuestionID, err)
				}
			}

			if answer == nil {
				answer = &models.QuestionAnswer{
					AttemptID:  attemptID,
					QuestionID: eq.QuestionID,
				}
			}
			answer.IsCorrect = verdict
			answer.MarksAwarded = marks
			answer.GradedAt = &now
			if hasOverride && override.GradedBy != "" {
				gradedBy := override.GradedBy
				answer.GradedBy = &gradedBy
			}
			graded = append(graded, answer)

			score.MarksSecured += marks
			tally.marksSecured += marks
			topic.marksSecured += marks

			switch {
			case verdict == nil:
				// answered but awaiting a manual grade, counted nowhere
			case *verdict:
				score.CorrectCount++
				tally.correct++
				topic.correct++
			default:
				score.WrongCount++
				tally.wrong++
				topic.wrong++
			}
		}
	}

	score.Percentage = percentageOf(score.MarksSecured, score.TotalMarks)
	score.Grade = models.GradeFromPercentage(score.Percentage)

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Answer().UpdateBatch(ctx, graded); err != nil {
			return fmt.Errorf("failed to persist verdicts: %w", err)
		}

		if err := txRepo.Score().UpsertUserScore(ctx, score); err != nil {
			return fmt.Errorf("failed to upsert score: %w", err)
		}

		for sectionID, tally := range sections {
			percentage := percentageOf(tally.marksSecured, tally.totalMarks)
			sectionScore := &models.SectionScore{
				AttemptID:         attemptID,
				SectionID:         sectionID,
				TotalMarks:        tally.totalMarks,
				MarksSecured:      tally.marksSecured,
				Percentage:        percentage,
				PerformanceStatus: models.PerformanceFromPercentage(percentage),
				CorrectCount:      tally.correct,
				WrongCount:        tally.wrong,
				UnansweredCount:   tally.unanswered,
			}
			if err := txRepo.Score().UpsertSectionScore(ctx, sectionScore); err != nil {
				return fmt.Errorf("failed to upsert section score: %w", err)
			}
		}

		for topicID, tally := range topics {
			topicScore := &models.TopicScore{
				TopicID:      topicID,
				UserID:       attempt.UserID,
				AttemptID:    attemptID,
				TotalMarks:   tally.totalMarks,
				MarksSecured: tally.marksSecured,
				Percentage:   percentageOf(tally.marksSecured, tally.totalMarks),
				CorrectCount: tally.correct,
				WrongCount:   tally.wrong,
			}
			if err := txRepo.Score().UpsertTopicScore(ctx, topicScore); err != nil {
				return fmt.Errorf("failed to upsert topic score: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempt evaluated",
		"attempt_id", attemptID,
		"user_id", attempt.UserID,
		"marks_secured", score.MarksSecured,
		"total_marks", score.TotalMarks,
		"grade", score.Grade)

	return score, nil
}

// RecomputeScore re-runs evaluation without manual overrides. Existing
// manually graded verdicts on answers are recomputed from the current
// answer keys, so it is the tool for fixing a corrected key.
func (s *scoringService) RecomputeScore(ctx context.Context, attemptID uint) (*models.UserScore, error) {
	return s.EvaluateAttempt(ctx, attemptID, nil)
}

// GetResults returns the overall score with its section breakdown
func (s *scoringService) GetResults(ctx context.Context, attemptID uint) (*AttemptResult, error) {
	score, err := s.repo.Score().GetUserScore(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("score", attemptID)
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	sections, err := s.repo.Score().GetSectionScores(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to get section scores: %w", err)
	}

	return &AttemptResult{Score: score, Sections: sections}, nil
}

// GetSectionScores returns the per-section breakdown of an attempt
func (s *scoringService) GetSectionScores(ctx context.Context, attemptID uint) ([]*models.SectionScore, error) {
	return s.repo.Score().GetSectionScores(ctx, attemptID)
}

// GetTopicScores returns the user's latest per-topic snapshots
func (s *scoringService) GetTopicScores(ctx context.Context, userID string) ([]*models.TopicScore, error) {
	return s.repo.Score().GetTopicScores(ctx, userID)
}

// percentageOf guards the zero-total case
func percentageOf(secured, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return secured / total * 100
}
