package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/cache"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewExamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ExamRepository {
	return &ExamPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates an exam with its sections and question layout. The
// layout rows are inserted explicitly because exam_questions carries both
// the section and the exam key.
func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sections := exam.Sections
		exam.Sections = nil

		if err := tx.Create(exam).Error; err != nil {
			return err
		}

		for i := range sections {
			questions := sections[i].Questions
			sections[i].Questions = nil
			sections[i].ExamID = exam.ID

			if err := tx.Create(&sections[i]).Error; err != nil {
				return err
			}

			for j := range questions {
				questions[j].ExamID = exam.ID
				questions[j].SectionID = sections[i].ID
			}
			if len(questions) > 0 {
				if err := tx.Create(&questions).Error; err != nil {
					return err
				}
			}
			sections[i].Questions = questions
		}

		exam.Sections = sections
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create exam: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exam, "list:*")

	return nil
}

// GetByID retrieves an exam without its question layout
func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

// GetByIDWithQuestions retrieves an exam with sections, layout and full
// question data, cached since scoring and attempts read it repeatedly
func (e *ExamPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	cacheKey := fmt.Sprintf("questions:%d", id)
	var exam models.Exam

	err := e.cacheManager.Exam.CacheOrExecute(ctx, cacheKey, &exam, cache.ExamCacheConfig.TTL, func() (interface{}, error) {
		var dbExam models.Exam
		if err := e.db.WithContext(ctx).
			Preload("Sections", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			}).
			Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			}).
			Preload("Sections.Questions.Question").
			Preload("Sections.Questions.Question.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order("number ASC")
			}).
			First(&dbExam, id).Error; err != nil {
			return nil, err
		}
		return &dbExam, nil
	})

	if err != nil {
		return nil, err
	}

	return &exam, nil
}

// Update saves an exam
func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}

	cache.InvalidateExamCache(ctx, e.cacheManager, exam.ID)

	return nil
}

// List retrieves exams with filters and total count
func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.Exam{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var exams []*models.Exam
	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}
