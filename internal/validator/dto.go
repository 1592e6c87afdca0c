package validator

import (
	"encoding/json"

	"github.com/examforge/exam-service/internal/models"
)

// BlueprintCreateRequest represents the request structure for creating blueprints
type BlueprintCreateRequest struct {
	Name        string                 `json:"name" validate:"required,blueprint_name"`
	Description *string                `json:"description" validate:"omitempty,max=1000"`
	Rules       []BlueprintRuleRequest `json:"rules" validate:"required,min=1,dive"`
}

// BlueprintRuleRequest is one selection rule of a blueprint.
// A nil TopicID draws from the whole pool.
type BlueprintRuleRequest struct {
	TopicID                *uint          `json:"topic_id"`
	QuestionCount          int            `json:"question_count" validate:"required,rule_count"`
	DifficultyDistribution map[string]int `json:"difficulty_distribution,omitempty"`
}

// GeneratePaperRequest represents a paper generation request
type GeneratePaperRequest struct {
	Seed string `json:"seed" validate:"omitempty,max=128"`
}

// CloneBlueprintRequest represents a blueprint clone request
type CloneBlueprintRequest struct {
	Name string `json:"name" validate:"required,blueprint_name"`
}

// QuestionCreateRequest represents the request structure for creating questions
type QuestionCreateRequest struct {
	TopicID       uint                    `json:"topic_id" validate:"required"`
	Type          models.QuestionType     `json:"type" validate:"required,question_type"`
	Text          string                  `json:"text" validate:"required,min=1,max=2000"`
	Marks         float64                 `json:"marks" validate:"required,gt=0"`
	NegativeMarks float64                 `json:"negative_marks" validate:"gte=0"`
	Difficulty    models.DifficultyLevel  `json:"difficulty" validate:"required,difficulty_level"`
	CorrectAnswer json.RawMessage         `json:"correct_answer,omitempty"`
	Explanation   *string                 `json:"explanation" validate:"omitempty,max=1000"`
	Options       []QuestionOptionRequest `json:"options" validate:"omitempty,dive"`
}

// QuestionOptionRequest is one option of a choice question
type QuestionOptionRequest struct {
	Number    int    `json:"number" validate:"required,min=1"`
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// StartAttemptRequest represents an attempt start request
type StartAttemptRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

// SaveAnswerRequest represents saving one answer within an attempt
type SaveAnswerRequest struct {
	QuestionID       uint            `json:"question_id" validate:"required"`
	Answer           json.RawMessage `json:"answer"`
	TimeTakenSeconds int             `json:"time_taken_seconds" validate:"gte=0"`
}

// SubmitAttemptRequest represents the final submission of an attempt
type SubmitAttemptRequest struct {
	Answers []SaveAnswerRequest `json:"answers" validate:"omitempty,dive"`
}

// UpdateTimeRequest reports elapsed seconds since the last sync
type UpdateTimeRequest struct {
	ElapsedSeconds int `json:"elapsed_seconds" validate:"required,gt=0"`
}

// ManualGradeRequest represents a manual grade for one answer
type ManualGradeRequest struct {
	QuestionID   uint    `json:"question_id" validate:"required"`
	IsCorrect    *bool   `json:"is_correct"`
	MarksAwarded float64 `json:"marks_awarded"`
	Feedback     *string `json:"feedback" validate:"omitempty,max=2000"`
}

// EvaluateAttemptRequest carries optional manual grades for evaluation
type EvaluateAttemptRequest struct {
	ManualGrades []ManualGradeRequest `json:"manual_grades" validate:"omitempty,dive"`
}
