package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type TopicPostgreSQL struct {
	db *gorm.DB
}

func NewTopicPostgreSQL(db *gorm.DB) repositories.TopicRepository {
	return &TopicPostgreSQL{db: db}
}

func (t *TopicPostgreSQL) Create(ctx context.Context, topic *models.Topic) error {
	if err := t.db.WithContext(ctx).Create(topic).Error; err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	return nil
}

func (t *TopicPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Topic, error) {
	var topic models.Topic
	if err := t.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (t *TopicPostgreSQL) GetByName(ctx context.Context, name string) (*models.Topic, error) {
	var topic models.Topic
	if err := t.db.WithContext(ctx).Where("name = ?", name).First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (t *TopicPostgreSQL) List(ctx context.Context) ([]*models.Topic, error) {
	var topics []*models.Topic
	if err := t.db.WithContext(ctx).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}
