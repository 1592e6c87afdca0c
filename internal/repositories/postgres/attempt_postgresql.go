package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

var activeStatuses = []models.AttemptStatus{
	models.AttemptNotStarted,
	models.AttemptInProgress,
	models.AttemptPaused,
}

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// Create creates a new attempt
func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by ID
func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// GetByIDWithAnswers retrieves an attempt with sections and answers
func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Preload("Sections").
		Preload("Answers").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Update saves an attempt
func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	if err := a.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

// List retrieves attempts with filters and total count
func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.ExamAttempt{})

	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var attempts []*models.ExamAttempt
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

// GetActiveAttempt returns the single active attempt for a (exam, user)
// pair, or gorm.ErrRecordNotFound when there is none
func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := a.db.WithContext(ctx).
		Where("exam_id = ? AND user_id = ? AND status IN ?", examID, userID, activeStatuses).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// HasActiveAttempt reports whether an active attempt exists for the pair
func (a *AttemptPostgreSQL) HasActiveAttempt(ctx context.Context, examID uint, userID string) (bool, error) {
	_, err := a.GetActiveAttempt(ctx, examID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check active attempt: %w", err)
	}
	return true, nil
}

// GetOverdueAttempts returns active attempts whose remaining budget has
// elapsed in wall-clock terms by cutoff. updated_at advances on every
// server-side time update, so updated_at + remaining is the earliest
// moment the attempt can expire.
func (a *AttemptPostgreSQL) GetOverdueAttempts(ctx context.Context, cutoff time.Time) ([]*models.ExamAttempt, error) {
	var attempts []*models.ExamAttempt
	err := a.db.WithContext(ctx).
		Where("status IN ?", []models.AttemptStatus{models.AttemptInProgress, models.AttemptPaused}).
		Where("updated_at + remaining_seconds * interval '1 second' < ?", cutoff).
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get overdue attempts: %w", err)
	}
	return attempts, nil
}

// SectionAttemptPostgreSQL implements SectionAttemptRepository
type SectionAttemptPostgreSQL struct {
	db *gorm.DB
}

func NewSectionAttemptPostgreSQL(db *gorm.DB) repositories.SectionAttemptRepository {
	return &SectionAttemptPostgreSQL{db: db}
}

// CreateBatch creates section attempts for a new exam attempt
func (s *SectionAttemptPostgreSQL) CreateBatch(ctx context.Context, sections []*models.SectionAttempt) error {
	if len(sections) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(sections).Error; err != nil {
		return fmt.Errorf("failed to create section attempts: %w", err)
	}
	return nil
}

// GetByAttempt retrieves all section attempts of an attempt
func (s *SectionAttemptPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.SectionAttempt, error) {
	var sections []*models.SectionAttempt
	if err := s.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("section_id ASC").
		Find(&sections).Error; err != nil {
		return nil, fmt.Errorf("failed to get section attempts: %w", err)
	}
	return sections, nil
}

// GetByAttemptAndSection retrieves one section attempt
func (s *SectionAttemptPostgreSQL) GetByAttemptAndSection(ctx context.Context, attemptID, sectionID uint) (*models.SectionAttempt, error) {
	var section models.SectionAttempt
	if err := s.db.WithContext(ctx).
		Where("attempt_id = ? AND section_id = ?", attemptID, sectionID).
		First(&section).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

// Update saves a section attempt
func (s *SectionAttemptPostgreSQL) Update(ctx context.Context, section *models.SectionAttempt) error {
	if err := s.db.WithContext(ctx).Save(section).Error; err != nil {
		return fmt.Errorf("failed to update section attempt: %w", err)
	}
	return nil
}
