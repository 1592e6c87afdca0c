package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionType represents the type of question
type QuestionType string

const (
	MCQ             QuestionType = "MCQ"
	MSQ             QuestionType = "MSQ"
	TrueFalse       QuestionType = "TRUE_FALSE"
	FillInTheBlank  QuestionType = "FILL_IN_THE_BLANK"
	MatchTheColumns QuestionType = "MATCH_THE_COLUMNS"
	Descriptive     QuestionType = "DESCRIPTIVE"
)

// DifficultyLevel represents question difficulty
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "EASY"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHard   DifficultyLevel = "HARD"
)

// Topic groups questions into a subject area used by blueprint rules
type Topic struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Topic) TableName() string {
	return "topics"
}

// Question is a single pool question. CorrectAnswer holds the type-specific
// answer key as JSON:
//   - FILL_IN_THE_BLANK: a string or an array of accepted strings
//   - MATCH_THE_COLUMNS: an object mapping left-column keys to right-column values
//   - MCQ/MSQ/TRUE_FALSE: unused, the flagged options are authoritative
type Question struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	TopicID       uint            `json:"topic_id" gorm:"not null;index"`
	Type          QuestionType    `json:"type" gorm:"size:30;not null;index"`
	Text          string          `json:"text" gorm:"type:text;not null"`
	Marks         float64         `json:"marks" gorm:"not null"`
	NegativeMarks float64         `json:"negative_marks" gorm:"default:0"`
	Difficulty    DifficultyLevel `json:"difficulty" gorm:"size:10;not null;index"`
	CorrectAnswer datatypes.JSON  `json:"correct_answer,omitempty" gorm:"type:jsonb"`
	Explanation   *string         `json:"explanation,omitempty" gorm:"type:text"`
	CreatedBy     string          `json:"created_by" gorm:"size:255;not null;index"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	Topic   *Topic           `json:"topic,omitempty" gorm:"foreignKey:TopicID"`
	Options []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

func (Question) TableName() string {
	return "questions"
}

// HasNegativeMarking reports whether a wrong answer costs marks
func (q *Question) HasNegativeMarking() bool {
	return q.NegativeMarks > 0
}

// IsAutoGradable reports whether the evaluator can grade this type without
// a human verdict
func (q *Question) IsAutoGradable() bool {
	return q.Type != Descriptive
}

// QuestionOption is one selectable option of a choice question.
// Number is the stable 1-based identifier students submit; IsCorrect flags
// the answer key for MCQ/MSQ/TRUE_FALSE.
type QuestionOption struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	QuestionID uint      `json:"question_id" gorm:"not null;index"`
	Number     int       `json:"number" gorm:"not null"`
	Text       string    `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool      `json:"is_correct" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}
