package models

import (
	"time"

	"gorm.io/datatypes"
)

// Blueprint describes how a paper is assembled from the question pool.
// Rules are applied in Position order; each rule contributes a contiguous
// block of questions to the generated paper.
type Blueprint struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	CreatedBy   string    `json:"created_by" gorm:"size:255;not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Rules []BlueprintRule `json:"rules,omitempty" gorm:"foreignKey:BlueprintID;constraint:OnDelete:CASCADE"`
}

func (Blueprint) TableName() string {
	return "blueprints"
}

// TotalQuestions is the paper size this blueprint produces
func (b *Blueprint) TotalQuestions() int {
	total := 0
	for _, rule := range b.Rules {
		total += rule.QuestionCount
	}
	return total
}

// BlueprintRule selects QuestionCount questions from the pool.
// A nil TopicID means the rule draws from all topics.
// DifficultyDistribution is an optional JSON object mapping difficulty
// levels to requested counts, e.g. {"EASY": 3, "MEDIUM": 2}.
type BlueprintRule struct {
	ID                     uint           `json:"id" gorm:"primaryKey"`
	BlueprintID            uint           `json:"blueprint_id" gorm:"not null;index"`
	Position               int            `json:"position" gorm:"not null"`
	TopicID                *uint          `json:"topic_id,omitempty" gorm:"index"`
	QuestionCount          int            `json:"question_count" gorm:"not null"`
	DifficultyDistribution datatypes.JSON `json:"difficulty_distribution,omitempty" gorm:"type:jsonb"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`

	// Relationships
	Topic *Topic `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
}

func (BlueprintRule) TableName() string {
	return "blueprint_rules"
}
