package services

import (
	"errors"
	"fmt"

	"github.com/examforge/exam-service/internal/validator"
)

// Sentinel errors for common lookup failures
var (
	ErrBlueprintNotFound = &NotFoundError{Resource: "blueprint"}
	ErrExamNotFound      = &NotFoundError{Resource: "exam"}
	ErrAttemptNotFound   = &NotFoundError{Resource: "attempt"}
	ErrQuestionNotFound  = &NotFoundError{Resource: "question"}
	ErrScoreNotFound     = &NotFoundError{Resource: "score"}
)

// NotFoundError indicates a referenced resource does not exist
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s not found: %v", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is lets wrapped instances match the per-resource sentinels
func (e *NotFoundError) Is(target error) bool {
	var t *NotFoundError
	if errors.As(target, &t) {
		return t.Resource == e.Resource
	}
	return false
}

// NewNotFoundError creates a NotFoundError for a concrete ID
func NewNotFoundError(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError indicates rejected input. Fields carries the per-field
// breakdown when the failure came from struct validation.
type ValidationError struct {
	Message string
	Fields  validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Fields.Error()
}

// NewValidationError creates a ValidationError with a plain message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientPoolError indicates a blueprint rule requests more questions
// than the pool holds. Generation fails atomically, no partial paper.
type InsufficientPoolError struct {
	BlueprintID uint
	RuleIndex   int
	TopicID     *uint
	Requested   int
	Available   int
}

func (e *InsufficientPoolError) Error() string {
	topic := "all topics"
	if e.TopicID != nil {
		topic = fmt.Sprintf("topic %d", *e.TopicID)
	}
	return fmt.Sprintf("blueprint %d rule %d: requested %d questions from %s but only %d available",
		e.BlueprintID, e.RuleIndex, e.Requested, topic, e.Available)
}

// ConflictError indicates the operation clashes with existing state, such
// as a second active attempt for the same exam
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflictError creates a ConflictError
func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ExpiredError indicates the attempt's time budget ran out
type ExpiredError struct {
	AttemptID uint
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("attempt %d has expired", e.AttemptID)
}

// GradingError indicates evaluation could not complete, such as a manual
// grade referencing a question outside the attempt's exam
type GradingError struct {
	Message string
}

func (e *GradingError) Error() string {
	return e.Message
}

// NewGradingError creates a GradingError
func NewGradingError(format string, args ...interface{}) *GradingError {
	return &GradingError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is any NotFoundError
func IsNotFound(err error) bool {
	var t *NotFoundError
	return errors.As(err, &t)
}
