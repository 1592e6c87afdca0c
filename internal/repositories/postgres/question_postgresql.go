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

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== BASIC CRUD OPERATIONS =====

// Create creates a new question and invalidates pool caches
func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	q.cacheManager.InvalidateQuestionPool(ctx, question.TopicID)

	return nil
}

// CreateBatch creates questions in one insert, used by XLSX import
func (q *QuestionPostgreSQL) CreateBatch(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}

	if err := q.db.WithContext(ctx).CreateInBatches(questions, 100).Error; err != nil {
		return fmt.Errorf("failed to create questions batch: %w", err)
	}

	touched := make(map[uint]struct{})
	for _, question := range questions {
		if _, ok := touched[question.TopicID]; ok {
			continue
		}
		touched[question.TopicID] = struct{}{}
		q.cacheManager.InvalidateQuestionPool(ctx, question.TopicID)
	}

	return nil
}

// GetByID retrieves a question with its options
func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// GetByIDs retrieves multiple questions with options, in primary-key order
func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var questions []*models.Question
	if err := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// Update updates a question
func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Save(question).Error; err != nil {
		return fmt.Errorf("failed to update question: %w", err)
	}

	q.cacheManager.InvalidateQuestionPool(ctx, question.TopicID)

	return nil
}

// Delete removes a question and its options
func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	var question models.Question
	if err := q.db.WithContext(ctx).Select("id, topic_id").First(&question, id).Error; err != nil {
		return fmt.Errorf("failed to get question before delete: %w", err)
	}

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.QuestionOption{}).Error; err != nil {
			return fmt.Errorf("failed to delete question options: %w", err)
		}
		if err := tx.Delete(&models.Question{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete question: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	q.cacheManager.InvalidateQuestionPool(ctx, question.TopicID)

	return nil
}

// List retrieves questions with filters and total count
func (q *QuestionPostgreSQL) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	query := q.db.WithContext(ctx).Model(&models.Question{})

	if filters.TopicID != nil {
		query = query.Where("topic_id = ?", *filters.TopicID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != nil && *filters.Search != "" {
		query = query.Where("text ILIKE ?", "%"+*filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var questions []*models.Question
	if err := query.Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("number ASC")
	}).Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}

	return questions, total, nil
}

// ===== POOL QUERIES =====

// FindCandidates returns the full eligible pool for a blueprint rule in
// stable primary-key order. Paper assembly shuffles this snapshot itself,
// so no randomization happens here.
func (q *QuestionPostgreSQL) FindCandidates(ctx context.Context, topicID *uint) ([]*models.Question, error) {
	query := q.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Order("id ASC")

	if topicID != nil {
		query = query.Where("topic_id = ?", *topicID)
	}

	var questions []*models.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidate questions: %w", err)
	}

	return questions, nil
}

// CountCandidates counts the eligible pool for a rule, cached briefly since
// blueprint validation hits it repeatedly
func (q *QuestionPostgreSQL) CountCandidates(ctx context.Context, topicID *uint) (int64, error) {
	cacheKey := "pool:all"
	if topicID != nil {
		cacheKey = fmt.Sprintf("pool:%d", *topicID)
	}

	var count int64
	err := q.cacheManager.Question.CacheOrExecute(ctx, cacheKey, &count, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		query := q.db.WithContext(ctx).Model(&models.Question{})
		if topicID != nil {
			query = query.Where("topic_id = ?", *topicID)
		}

		var dbCount int64
		if err := query.Count(&dbCount).Error; err != nil {
			return nil, fmt.Errorf("failed to count candidate questions: %w", err)
		}
		return dbCount, nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}
