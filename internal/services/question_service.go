package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

// importBatchSize bounds memory while feeding large workbooks into the pool
const importBatchSize = 200

type questionService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

// NewQuestionService creates the question pool service
func NewQuestionService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
	}
}

// CreateQuestion validates and stores one pool question with its options
func (s *questionService) CreateQuestion(ctx context.Context, req *validator.QuestionCreateRequest, createdBy string) (*models.Question, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if err := checkAnswerKey(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Topic().GetByID(ctx, req.TopicID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("topic", req.TopicID)
		}
		return nil, fmt.Errorf("failed to get topic: %w", err)
	}

	question := buildQuestion(req, createdBy)
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.InfoContext(ctx, "Question created",
		"question_id", question.ID,
		"topic_id", question.TopicID,
		"type", question.Type)

	return question, nil
}

// GetQuestion retrieves a question with its options
func (s *questionService) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("question", id)
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// ListQuestions lists pool questions with filters
func (s *questionService) ListQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return s.repo.Question().List(ctx, filters)
}

// DeleteQuestion removes a question and its options from the pool
func (s *questionService) DeleteQuestion(ctx context.Context, id uint) error {
	if _, err := s.GetQuestion(ctx, id); err != nil {
		return err
	}
	return s.repo.Question().Delete(ctx, id)
}

// ImportQuestionsXLSX parses the first sheet of an uploaded workbook and
// feeds valid rows into the pool in batches. Bad rows are skipped and
// reported per row number; they never abort the import.
//
// Expected columns, in order:
//
//	topic | type | text | marks | negative_marks | difficulty | options | correct_answer | explanation
//
// Options are pipe-separated, correct ones prefixed with *. The
// correct_answer column is only read for FILL_IN_THE_BLANK and
// MATCH_THE_COLUMNS keys. Unknown topics are created on the fly.
func (s *questionService) ImportQuestionsXLSX(ctx context.Context, reader io.Reader, createdBy string) (*ImportResult, error) {
	workbook, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, NewValidationError("failed to open workbook: %v", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("workbook has no data rows")
	}

	result := &ImportResult{}
	topicCache := make(map[string]uint)
	var batch []*models.Question

	for i, row := range rows[1:] {
		rowNumber := i + 2

		question, topicName, err := parseImportRow(row, createdBy)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}

		topicID, err := s.resolveTopic(ctx, topicCache, topicName)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}
		question.TopicID = topicID

		batch = append(batch, question)
		if len(batch) >= importBatchSize {
			if err := s.flushBatch(ctx, batch, result); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.flushBatch(ctx, batch, result); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "Question import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"created_by", createdBy)

	return result, nil
}

func (s *questionService) flushBatch(ctx context.Context, batch []*models.Question, result *ImportResult) error {
	if err := s.repo.Question().CreateBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to store imported questions: %w", err)
	}
	result.Imported += len(batch)
	return nil
}

// resolveTopic looks a topic up by name, creating it when missing
func (s *questionService) resolveTopic(ctx context.Context, cache map[string]uint, name string) (uint, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	topic, err := s.repo.Topic().GetByName(ctx, name)
	if err == nil {
		cache[name] = topic.ID
		return topic.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up topic %q: %w", name, err)
	}

	topic = &models.Topic{Name: name}
	if err := s.repo.Topic().Create(ctx, topic); err != nil {
		return 0, fmt.Errorf("failed to create topic %q: %w", name, err)
	}
	cache[name] = topic.ID
	return topic.ID, nil
}

// parseImportRow builds a question from one sheet row, returning the topic
// name for separate resolution
func parseImportRow(row []string, createdBy string) (*models.Question, string, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	topicName := cell(0)
	if topicName == "" {
		return nil, "", fmt.Errorf("missing topic")
	}

	questionType := models.QuestionType(strings.ToUpper(cell(1)))
	switch questionType {
	case models.MCQ, models.MSQ, models.TrueFalse, models.FillInTheBlank, models.MatchTheColumns, models.Descriptive:
	default:
		return nil, "", fmt.Errorf("unknown question type %q", cell(1))
	}

	text := cell(2)
	if text == "" {
		return nil, "", fmt.Errorf("missing question text")
	}

	marks, err := strconv.ParseFloat(cell(3), 64)
	if err != nil || marks <= 0 {
		return nil, "", fmt.Errorf("invalid marks %q", cell(3))
	}

	negativeMarks := 0.0
	if raw := cell(4); raw != "" {
		negativeMarks, err = strconv.ParseFloat(raw, 64)
		if err != nil || negativeMarks < 0 {
			return nil, "", fmt.Errorf("invalid negative marks %q", raw)
		}
	}

	difficulty := models.DifficultyLevel(strings.ToUpper(cell(5)))
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return nil, "", fmt.Errorf("unknown difficulty %q", cell(5))
	}

	question := &models.Question{
		Type:          questionType,
		Text:          text,
		Marks:         marks,
		NegativeMarks: negativeMarks,
		Difficulty:    difficulty,
		CreatedBy:     createdBy,
	}
	if explanation := cell(8); explanation != "" {
		question.Explanation = &explanation
	}

	switch questionType {
	case models.MCQ, models.MSQ, models.TrueFalse:
		options, err := parseImportOptions(cell(6))
		if err != nil {
			return nil, "", err
		}
		correct := 0
		for _, option := range options {
			if option.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return nil, "", fmt.Errorf("no correct option flagged")
		}
		if questionType != models.MSQ && correct != 1 {
			return nil, "", fmt.Errorf("%s needs exactly one correct option", questionType)
		}
		question.Options = options

	case models.FillInTheBlank:
		key, err := parseImportAnswerKey(cell(7))
		if err != nil {
			return nil, "", err
		}
		question.CorrectAnswer = key

	case models.MatchTheColumns:
		raw := cell(7)
		var pairs map[string]string
		if err := json.Unmarshal([]byte(raw), &pairs); err != nil || len(pairs) == 0 {
			return nil, "", fmt.Errorf("matching key must be a JSON object of pairs")
		}
		question.CorrectAnswer = datatypes.JSON(raw)
	}

	return question, topicName, nil
}

// parseImportOptions splits a pipe-separated option cell; a * prefix flags
// the correct option
func parseImportOptions(cell string) ([]models.QuestionOption, error) {
	parts := strings.Split(cell, "|")
	var options []models.QuestionOption
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		option := models.QuestionOption{Number: len(options) + 1, Text: text}
		if strings.HasPrefix(text, "*") {
			option.IsCorrect = true
			option.Text = strings.TrimSpace(strings.TrimPrefix(text, "*"))
		}
		options = append(options, option)
	}
	if len(options) < 2 {
		return nil, fmt.Errorf("need at least two options")
	}
	return options, nil
}

// parseImportAnswerKey accepts a plain string or a JSON array of accepted
// answers
func parseImportAnswerKey(cell string) (datatypes.JSON, error) {
	if cell == "" {
		return nil, fmt.Errorf("missing answer key")
	}

	if strings.HasPrefix(cell, "[") {
		var accepted []string
		if err := json.Unmarshal([]byte(cell), &accepted); err != nil || len(accepted) == 0 {
			return nil, fmt.Errorf("answer key array is not valid JSON")
		}
		return datatypes.JSON(cell), nil
	}

	encoded, err := json.Marshal(cell)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answer key: %w", err)
	}
	return datatypes.JSON(encoded), nil
}

// checkAnswerKey enforces the per-type key shape on direct creation
func checkAnswerKey(req *validator.QuestionCreateRequest) error {
	switch req.Type {
	case models.MCQ, models.MSQ, models.TrueFalse:
		correct := 0
		for _, option := range req.Options {
			if option.IsCorrect {
				correct++
			}
		}
		if len(req.Options) < 2 {
			return NewValidationError("%s questions need at least two options", req.Type)
		}
		if correct == 0 {
			return NewValidationError("%s questions need a correct option flagged", req.Type)
		}
		if req.Type != models.MSQ && correct != 1 {
			return NewValidationError("%s questions need exactly one correct option", req.Type)
		}

	case models.FillInTheBlank:
		if _, err := acceptedStrings(datatypes.JSON(req.CorrectAnswer)); err != nil {
			return NewValidationError("invalid answer key: %v", err)
		}

	case models.MatchTheColumns:
		var pairs map[string]string
		if err := json.Unmarshal(req.CorrectAnswer, &pairs); err != nil || len(pairs) == 0 {
			return NewValidationError("matching key must be a JSON object of pairs")
		}
	}
	return nil
}

// buildQuestion maps a validated request to the model
func buildQuestion(req *validator.QuestionCreateRequest, createdBy string) *models.Question {
	question := &models.Question{
		TopicID:       req.TopicID,
		Type:          req.Type,
		Text:          req.Text,
		Marks:         req.Marks,
		NegativeMarks: req.NegativeMarks,
		Difficulty:    req.Difficulty,
		Explanation:   req.Explanation,
		CreatedBy:     createdBy,
	}
	if len(req.CorrectAnswer) > 0 {
		question.CorrectAnswer = datatypes.JSON(req.CorrectAnswer)
	}
	for _, option := range req.Options {
		question.Options = append(question.Options, models.QuestionOption{
			Number:    option.Number,
			Text:      option.Text,
			IsCorrect: option.IsCorrect,
		})
	}
	return question
}
