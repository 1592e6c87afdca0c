package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/examforge/exam-service/internal/models"
)

// EvaluateAnswer grades one answered question and returns the verdict and
// the marks delta. It is pure: no storage, no clock, no randomness.
//
// Verdicts per type:
//   - MCQ / TRUE_FALSE: selected option number against the flagged option;
//     wrong answers cost NegativeMarks
//   - MSQ: exact set match, all or nothing; picking any wrong option costs
//     NegativeMarks, a mere subset of correct options scores zero
//   - FILL_IN_THE_BLANK: trimmed case-insensitive match against the
//     accepted strings, never negative
//   - MATCH_THE_COLUMNS: every pair must match, never negative
//   - DESCRIPTIVE: nil verdict and zero marks until manually graded
//
// A malformed payload counts as answered-and-wrong (zero marks, no
// negative marking). A broken answer key is an error: the question cannot
// be graded at all.
func EvaluateAnswer(question *models.Question, raw datatypes.JSON) (*bool, float64, error) {
	switch question.Type {
	case models.MCQ, models.TrueFalse:
		return evaluateSingleChoice(question, raw)
	case models.MSQ:
		return evaluateMultiChoice(question, raw)
	case models.FillInTheBlank:
		return evaluateFillBlank(question, raw)
	case models.MatchTheColumns:
		return evaluateMatch(question, raw)
	case models.Descriptive:
		return nil, 0, nil
	default:
		return nil, 0, fmt.Errorf("unknown question type %q", question.Type)
	}
}

func evaluateSingleChoice(question *models.Question, raw datatypes.JSON) (*bool, float64, error) {
	correct, ok := correctOptionNumbers(question)
	if !ok || len(correct) != 1 {
		return nil, 0, fmt.Errorf("question %d has no single correct option flagged", question.ID)
	}

	selected, ok := parseOptionNumber(raw)
	if !ok {
		return boolPtr(false), 0, nil
	}

	if _, isCorrect := correct[selected]; isCorrect {
		return boolPtr(true), question.Marks, nil
	}
	return boolPtr(false), -question.NegativeMarks, nil
}

func evaluateMultiChoice(question *models.Question, raw datatypes.JSON) (*bool, float64, error) {
	correct, ok := correctOptionNumbers(question)
	if !ok {
		return nil, 0, fmt.Errorf("question %d has no correct options flagged", question.ID)
	}

	selected, ok := parseOptionNumbers(raw)
	if !ok || len(selected) == 0 {
		return boolPtr(false), 0, nil
	}

	pickedWrong := false
	for number := range selected {
		if _, exists := correct[number]; !exists {
			pickedWrong = true
			break
		}
	}

	if pickedWrong {
		return boolPtr(false), -question.NegativeMarks, nil
	}
	if len(selected) == len(correct) {
		return boolPtr(true), question.Marks, nil
	}
	// Subset of correct options: wrong, but not penalized
	return boolPtr(false), 0, nil
}

func evaluateFillBlank(question *models.Question, raw datatypes.JSON) (*bool, float64, error) {
	accepted, err := acceptedStrings(question.CorrectAnswer)
	if err != nil {
		return nil, 0, fmt.Errorf("question %d has an invalid answer key: %w", question.ID, err)
	}

	var answer string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return boolPtr(false), 0, nil
	}

	normalized := normalizeText(answer)
	for _, candidate := range accepted {
		if normalizeText(candidate) == normalized {
			return boolPtr(true), question.Marks, nil
		}
	}
	return boolPtr(false), 0, nil
}

func evaluateMatch(question *models.Question, raw datatypes.JSON) (*bool, float64, error) {
	var key map[string]string
	if err := json.Unmarshal(question.CorrectAnswer, &key); err != nil || len(key) == 0 {
		return nil, 0, fmt.Errorf("question %d has an invalid matching key", question.ID)
	}

	var answer map[string]string
	if err := json.Unmarshal(raw, &answer); err != nil {
		return boolPtr(false), 0, nil
	}

	for left, right := range key {
		if answer[left] != right {
			return boolPtr(false), 0, nil
		}
	}
	return boolPtr(true), question.Marks, nil
}

// correctOptionNumbers collects the flagged option numbers of a choice
// question
func correctOptionNumbers(question *models.Question) (map[int]struct{}, bool) {
	correct := make(map[int]struct{})
	for _, option := range question.Options {
		if option.IsCorrect {
			correct[option.Number] = struct{}{}
		}
	}
	return correct, len(correct) > 0
}

// parseOptionNumber accepts a JSON number or numeric string
func parseOptionNumber(raw datatypes.JSON) (int, bool) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return int(number), true
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, err := strconv.Atoi(strings.TrimSpace(text)); err == nil {
			return parsed, true
		}
	}

	return 0, false
}

// parseOptionNumbers accepts a JSON array of numbers or numeric strings
func parseOptionNumbers(raw datatypes.JSON) (map[int]struct{}, bool) {
	var values []json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}

	selected := make(map[int]struct{}, len(values))
	for _, value := range values {
		number, ok := parseOptionNumber(datatypes.JSON(value))
		if !ok {
			return nil, false
		}
		selected[number] = struct{}{}
	}
	return selected, true
}

// acceptedStrings parses a fill-blank key: a single string or an array
func acceptedStrings(key datatypes.JSON) ([]string, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty answer key")
	}

	var single string
	if err := json.Unmarshal(key, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return nil, fmt.Errorf("blank answer key")
		}
		return []string{single}, nil
	}

	var many []string
	if err := json.Unmarshal(key, &many); err != nil || len(many) == 0 {
		return nil, fmt.Errorf("answer key must be a string or a non-empty array")
	}
	return many, nil
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func boolPtr(v bool) *bool {
	return &v
}
