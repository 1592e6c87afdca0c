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

type BlueprintPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewBlueprintPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.BlueprintRepository {
	return &BlueprintPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a blueprint together with its rules
func (b *BlueprintPostgreSQL) Create(ctx context.Context, blueprint *models.Blueprint) error {
	if err := b.db.WithContext(ctx).Create(blueprint).Error; err != nil {
		return fmt.Errorf("failed to create blueprint: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, b.cacheManager.Blueprint, "list:*")

	return nil
}

// GetByID retrieves a blueprint without its rules
func (b *BlueprintPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Blueprint, error) {
	var blueprint models.Blueprint
	if err := b.db.WithContext(ctx).First(&blueprint, id).Error; err != nil {
		return nil, err
	}
	return &blueprint, nil
}

// GetByIDWithRules retrieves a blueprint with rules in position order, cached
func (b *BlueprintPostgreSQL) GetByIDWithRules(ctx context.Context, id uint) (*models.Blueprint, error) {
	cacheKey := fmt.Sprintf("id:%d:rules", id)
	var blueprint models.Blueprint

	err := b.cacheManager.Blueprint.CacheOrExecute(ctx, cacheKey, &blueprint, cache.BlueprintCacheConfig.TTL, func() (interface{}, error) {
		var dbBlueprint models.Blueprint
		if err := b.db.WithContext(ctx).
			Preload("Rules", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC")
			}).
			First(&dbBlueprint, id).Error; err != nil {
			return nil, err
		}
		return &dbBlueprint, nil
	})

	if err != nil {
		return nil, err
	}

	return &blueprint, nil
}

// Update saves a blueprint and replaces its rules
func (b *BlueprintPostgreSQL) Update(ctx context.Context, blueprint *models.Blueprint) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blueprint_id = ?", blueprint.ID).Delete(&models.BlueprintRule{}).Error; err != nil {
			return fmt.Errorf("failed to replace blueprint rules: %w", err)
		}
		if err := tx.Save(blueprint).Error; err != nil {
			return fmt.Errorf("failed to update blueprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.cacheManager.InvalidateBlueprint(ctx, blueprint.ID)

	return nil
}

// Delete removes a blueprint and its rules
func (b *BlueprintPostgreSQL) Delete(ctx context.Context, id uint) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blueprint_id = ?", id).Delete(&models.BlueprintRule{}).Error; err != nil {
			return fmt.Errorf("failed to delete blueprint rules: %w", err)
		}
		if err := tx.Delete(&models.Blueprint{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete blueprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.cacheManager.InvalidateBlueprint(ctx, id)

	return nil
}

// List retrieves blueprints with filters and total count
func (b *BlueprintPostgreSQL) List(ctx context.Context, filters repositories.BlueprintFilters) ([]*models.Blueprint, int64, error) {
	query := b.db.WithContext(ctx).Model(&models.Blueprint{})

	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.Search != nil && *filters.Search != "" {
		query = query.Where("name ILIKE ?", "%"+*filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count blueprints: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var blueprints []*models.Blueprint
	if err := query.Find(&blueprints).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list blueprints: %w", err)
	}

	return blueprints, total, nil
}
