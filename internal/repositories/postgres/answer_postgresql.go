package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Create creates a new answer row
func (a *AnswerPostgreSQL) Create(ctx context.Context, answer *models.QuestionAnswer) error {
	if err := a.db.WithContext(ctx).Create(answer).Error; err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	return nil
}

// GetByAttempt retrieves all answers of an attempt
func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionAnswer, error) {
	var answers []*models.QuestionAnswer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}

// GetByAttemptAndQuestion retrieves the answer for one question of an attempt
func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.QuestionAnswer, error) {
	var answer models.QuestionAnswer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// Update saves an answer
func (a *AnswerPostgreSQL) Update(ctx context.Context, answer *models.QuestionAnswer) error {
	if err := a.db.WithContext(ctx).Save(answer).Error; err != nil {
		return fmt.Errorf("failed to update answer: %w", err)
	}
	return nil
}

// UpdateBatch saves graded answers in one transaction
func (a *AnswerPostgreSQL) UpdateBatch(ctx context.Context, answers []*models.QuestionAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, answer := range answers {
			if err := tx.Save(answer).Error; err != nil {
				return fmt.Errorf("failed to update answer %d: %w", answer.ID, err)
			}
		}
		return nil
	})
}
