package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptStatus represents the state of an exam attempt
type AttemptStatus string

const (
	AttemptNotStarted    AttemptStatus = "NOT_STARTED"
	AttemptInProgress    AttemptStatus = "IN_PROGRESS"
	AttemptPaused        AttemptStatus = "PAUSED"
	AttemptSubmitted     AttemptStatus = "SUBMITTED"
	AttemptAutoSubmitted AttemptStatus = "AUTO_SUBMITTED"
)

// IsTerminal reports whether no further mutation of the attempt is allowed
func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSubmitted || s == AttemptAutoSubmitted
}

// IsActive reports whether the attempt still occupies the single-active slot
// for its (user, exam) pair
func (s AttemptStatus) IsActive() bool {
	return s == AttemptNotStarted || s == AttemptInProgress || s == AttemptPaused
}

// ExamAttempt is one student's run at an exam. RemainingSeconds and
// TimeSpentSeconds are server-authoritative; clients only report elapsed
// deltas.
type ExamAttempt struct {
	ID               uint          `json:"id" gorm:"primaryKey"`
	ExamID           uint          `json:"exam_id" gorm:"not null;index:idx_attempt_exam_user"`
	UserID           string        `json:"user_id" gorm:"size:255;not null;index:idx_attempt_exam_user"`
	Status           AttemptStatus `json:"status" gorm:"size:20;not null;default:'IN_PROGRESS';index"`
	RemainingSeconds int           `json:"remaining_seconds" gorm:"not null"`
	TimeSpentSeconds int           `json:"time_spent_seconds" gorm:"default:0"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	SubmittedAt      *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Relationships
	Exam     *Exam            `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Sections []SectionAttempt `json:"sections,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
	Answers  []QuestionAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// CanMutate reports whether time and section state may still change.
// Answer saves are gated on IsTerminal instead: a paused attempt keeps
// accepting saves while its time budget stays frozen.
func (a *ExamAttempt) CanMutate() bool {
	return a.Status == AttemptInProgress
}

// SectionAttempt tracks per-section progress within an attempt.
// Terminal transitions of the parent attempt force-submit every
// non-terminal section.
type SectionAttempt struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	AttemptID   uint          `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_section"`
	SectionID   uint          `json:"section_id" gorm:"not null;uniqueIndex:idx_attempt_section"`
	Status      AttemptStatus `json:"status" gorm:"size:20;not null;default:'NOT_STARTED'"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (SectionAttempt) TableName() string {
	return "section_attempts"
}

// QuestionAnswer is the latest saved answer for one question of an attempt.
// UserAnswer keeps the raw submitted JSON; the evaluator interprets it per
// question type. IsCorrect stays nil until graded (and forever for ungraded
// DESCRIPTIVE answers).
type QuestionAnswer struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	AttemptID        uint           `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID       uint           `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	UserAnswer       datatypes.JSON `json:"user_answer,omitempty" gorm:"type:jsonb"`
	IsCorrect        *bool          `json:"is_correct,omitempty"`
	MarksAwarded     float64        `json:"marks_awarded" gorm:"default:0"`
	TimeTakenSeconds int            `json:"time_taken_seconds" gorm:"default:0"`
	GradedAt         *time.Time     `json:"graded_at,omitempty"`
	GradedBy         *string        `json:"graded_by,omitempty" gorm:"size:255"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// Relationships
	Question *Question `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
}

func (QuestionAnswer) TableName() string {
	return "question_answers"
}

// IsAnswered reports whether the student actually supplied a value
func (qa *QuestionAnswer) IsAnswered() bool {
	if len(qa.UserAnswer) == 0 {
		return false
	}
	s := string(qa.UserAnswer)
	return s != "null" && s != `""` && s != "[]" && s != "{}"
}
