package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/examforge/exam-service/internal/models"
)

// Validator wraps go-playground validation with exam-domain rules
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents one failed field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// New creates a validator with all domain rules registered
func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerDomainRules()

	return v
}

// Validate validates a struct, returning ValidationErrors or nil
func (v *Validator) Validate(s interface{}) ValidationErrors {
	var errors ValidationErrors

	err := v.validate.Struct(s)
	if err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errors = append(errors, ValidationError{
				Field:   fieldErr.Field(),
				Message: v.getErrorMessage(fieldErr),
				Value:   fieldErr.Value(),
				Rule:    fieldErr.Tag(),
			})
		}
	}

	return errors
}

func (v *Validator) registerDomainRules() {
	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		switch models.QuestionType(fl.Field().String()) {
		case models.MCQ, models.MSQ, models.TrueFalse,
			models.FillInTheBlank, models.MatchTheColumns, models.Descriptive:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		switch models.DifficultyLevel(fl.Field().String()) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			return true
		}
		return false
	})

	// Exam duration between 1 minute and 6 hours
	v.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		seconds := fl.Field().Int()
		return seconds >= 60 && seconds <= 21600
	})

	// Blueprint rules draw at least one question each
	v.validate.RegisterValidation("rule_count", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() >= 1
	})

	v.validate.RegisterValidation("blueprint_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 200
	})
}

// getErrorMessage returns user-friendly error messages
func (v *Validator) getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "question_type":
		return "must be a valid question type"
	case "difficulty_level":
		return "must be EASY, MEDIUM, or HARD"
	case "exam_duration":
		return "must be between 60 and 21600 seconds"
	case "rule_count":
		return "must request at least one question"
	case "blueprint_name":
		return "must be between 1 and 200 characters"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
