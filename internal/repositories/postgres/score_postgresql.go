package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examforge/exam-service/internal/cache"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type ScorePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewScorePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ScoreRepository {
	return &ScorePostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// UpsertUserScore inserts or overwrites the score row for an attempt.
// Re-evaluation hits the same (attempt_id, user_id) key, keeping the
// operation idempotent.
func (s *ScorePostgreSQL) UpsertUserScore(ctx context.Context, score *models.UserScore) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_marks", "marks_secured", "percentage", "grade",
				"correct_count", "wrong_count", "unanswered_count",
				"evaluated_at", "updated_at",
			}),
		}).
		Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user score: %w", err)
	}

	cache.InvalidateScoreCache(ctx, s.cacheManager, score.AttemptID, score.UserID)

	return nil
}

// GetUserScore retrieves the overall score of an attempt, cached
func (s *ScorePostgreSQL) GetUserScore(ctx context.Context, attemptID uint) (*models.UserScore, error) {
	cacheKey := fmt.Sprintf("attempt:%d", attemptID)
	var score models.UserScore

	err := s.cacheManager.Score.CacheOrExecute(ctx, cacheKey, &score, cache.ScoreCacheConfig.TTL, func() (interface{}, error) {
		var dbScore models.UserScore
		if err := s.db.WithContext(ctx).
			Where("attempt_id = ?", attemptID).
			First(&dbScore).Error; err != nil {
			return nil, err
		}
		return &dbScore, nil
	})

	if err != nil {
		return nil, err
	}

	return &score, nil
}

// GetUserScores retrieves a user's score history, optionally per exam
func (s *ScorePostgreSQL) GetUserScores(ctx context.Context, userID string, examID *uint) ([]*models.UserScore, error) {
	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if examID != nil {
		query = query.Where("exam_id = ?", *examID)
	}

	var scores []*models.UserScore
	if err := query.Order("evaluated_at DESC").Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to get user scores: %w", err)
	}
	return scores, nil
}

// UpsertSectionScore inserts or overwrites one section's score row
func (s *ScorePostgreSQL) UpsertSectionScore(ctx context.Context, score *models.SectionScore) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "section_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_marks", "marks_secured", "percentage", "performance_status",
				"correct_count", "wrong_count", "unanswered_count", "updated_at",
			}),
		}).
		Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert section score: %w", err)
	}
	return nil
}

// GetSectionScores retrieves the section breakdown of an attempt
func (s *ScorePostgreSQL) GetSectionScores(ctx context.Context, attemptID uint) ([]*models.SectionScore, error) {
	var scores []*models.SectionScore
	if err := s.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("section_id ASC").
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to get section scores: %w", err)
	}
	return scores, nil
}

// UpsertTopicScore overwrites the (topic, user) snapshot with data from
// the latest evaluated attempt
func (s *ScorePostgreSQL) UpsertTopicScore(ctx context.Context, score *models.TopicScore) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "topic_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"attempt_id", "total_marks", "marks_secured", "percentage",
				"correct_count", "wrong_count", "updated_at",
			}),
		}).
		Create(score).Error
	if err != nil {
		return fmt.Errorf("failed to upsert topic score: %w", err)
	}
	return nil
}

// GetTopicScores retrieves all topic snapshots for a user
func (s *ScorePostgreSQL) GetTopicScores(ctx context.Context, userID string) ([]*models.TopicScore, error) {
	var scores []*models.TopicScore
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("topic_id ASC").
		Find(&scores).Error; err != nil {
		return nil, fmt.Errorf("failed to get topic scores: %w", err)
	}
	return scores, nil
}
