package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

func newQuestionService(repo *fakeRepository) QuestionService {
	return NewQuestionService(repo, nil, testLogger(), validator.New())
}

func validMCQRequest(topicID uint) *validator.QuestionCreateRequest {
	return &validator.QuestionCreateRequest{
		TopicID:    topicID,
		Type:       models.MCQ,
		Text:       "capital of France?",
		Marks:      4,
		Difficulty: models.DifficultyEasy,
		Options: []validator.QuestionOptionRequest{
			{Number: 1, Text: "Paris", IsCorrect: true},
			{Number: 2, Text: "Lyon"},
		},
	}
}

func TestCreateQuestion(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "capitals"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}

	question, err := newQuestionService(repo).CreateQuestion(context.Background(), validMCQRequest(topic.ID), "teacher-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if question.ID == 0 {
		t.Error("question not assigned an ID")
	}
	if len(question.Options) != 2 {
		t.Errorf("options = %d, want 2", len(question.Options))
	}
	if question.CreatedBy != "teacher-1" {
		t.Errorf("created by = %q", question.CreatedBy)
	}
}

func TestCreateQuestionUnknownTopic(t *testing.T) {
	service := newQuestionService(newFakeRepository())
	_, err := service.CreateQuestion(context.Background(), validMCQRequest(42), "teacher-1")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found for missing topic, got %v", err)
	}
}

func TestCreateQuestionKeyShapes(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "keys"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	service := newQuestionService(repo)

	tests := []struct {
		name    string
		mutate  func(req *validator.QuestionCreateRequest)
		wantErr bool
	}{
		{
			name:   "valid mcq",
			mutate: func(req *validator.QuestionCreateRequest) {},
		},
		{
			name: "mcq with one option",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Options = req.Options[:1]
			},
			wantErr: true,
		},
		{
			name: "mcq without correct flag",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Options[0].IsCorrect = false
			},
			wantErr: true,
		},
		{
			name: "mcq with two correct flags",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Options[1].IsCorrect = true
			},
			wantErr: true,
		},
		{
			name: "msq allows several correct flags",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.MSQ
				req.Options[1].IsCorrect = true
			},
		},
		{
			name: "fill blank with string key",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.FillInTheBlank
				req.Options = nil
				req.CorrectAnswer = []byte(`"paris"`)
			},
		},
		{
			name: "fill blank with variant list",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.FillInTheBlank
				req.Options = nil
				req.CorrectAnswer = []byte(`["colour","color"]`)
			},
		},
		{
			name: "fill blank with empty list",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.FillInTheBlank
				req.Options = nil
				req.CorrectAnswer = []byte(`[]`)
			},
			wantErr: true,
		},
		{
			name: "match with pair object",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.MatchTheColumns
				req.Options = nil
				req.CorrectAnswer = []byte(`{"H2O":"water"}`)
			},
		},
		{
			name: "match with array key",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.MatchTheColumns
				req.Options = nil
				req.CorrectAnswer = []byte(`["water"]`)
			},
			wantErr: true,
		},
		{
			name: "descriptive needs no key",
			mutate: func(req *validator.QuestionCreateRequest) {
				req.Type = models.Descriptive
				req.Options = nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validMCQRequest(topic.ID)
			tt.mutate(req)

			_, err := service.CreateQuestion(context.Background(), req, "teacher-1")
			if tt.wantErr {
				var validation *ValidationError
				if !errors.As(err, &validation) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDeleteQuestion(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "deletable"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	service := newQuestionService(repo)

	question, err := service.CreateQuestion(context.Background(), validMCQRequest(topic.ID), "teacher-1")
	if err != nil {
		t.Fatal(err)
	}

	if err := service.DeleteQuestion(context.Background(), question.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := service.DeleteQuestion(context.Background(), question.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}

// importWorkbook builds an in-memory workbook with the import header row
// plus the given data rows
func importWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Reader {
	t.Helper()
	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	header := []interface{}{"topic", "type", "text", "marks", "negative_marks", "difficulty", "options", "correct_answer", "explanation"}
	if err := workbook.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := workbook.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestImportQuestionsXLSX(t *testing.T) {
	repo := newFakeRepository()
	service := newQuestionService(repo)

	reader := importWorkbook(t,
		[]interface{}{"algebra", "MCQ", "2 + 2 = ?", "2", "0.5", "EASY", "3|*4|5", "", "basic addition"},
		[]interface{}{"algebra", "FILL_IN_THE_BLANK", "the square root of 9 is ____", "3", "", "MEDIUM", "", "3", ""},
		[]interface{}{"chemistry", "MATCH_THE_COLUMNS", "match the formulas", "5", "", "HARD", "", `{"H2O":"water","NaCl":"salt"}`, ""},
	)

	result, err := service.ImportQuestionsXLSX(context.Background(), reader, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Imported != 3 || result.Skipped != 0 {
		t.Fatalf("imported %d skipped %d, want 3 and 0; errors: %v", result.Imported, result.Skipped, result.Errors)
	}

	// unknown topics were created on the fly
	if _, err := repo.Topic().GetByName(context.Background(), "algebra"); err != nil {
		t.Error("topic algebra not created")
	}
	if _, err := repo.Topic().GetByName(context.Background(), "chemistry"); err != nil {
		t.Error("topic chemistry not created")
	}

	questions, _, err := repo.Question().List(context.Background(), repositories.QuestionFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(questions) != 3 {
		t.Fatalf("stored questions = %d, want 3", len(questions))
	}

	mcq := questions[0]
	if len(mcq.Options) != 3 {
		t.Fatalf("mcq options = %d, want 3", len(mcq.Options))
	}
	if !mcq.Options[1].IsCorrect || mcq.Options[1].Text != "4" {
		t.Errorf("starred option not flagged correct: %+v", mcq.Options[1])
	}
	if mcq.NegativeMarks != 0.5 {
		t.Errorf("negative marks = %f, want 0.5", mcq.NegativeMarks)
	}
}

func TestImportQuestionsXLSXBadRowsSkipped(t *testing.T) {
	repo := newFakeRepository()
	service := newQuestionService(repo)

	reader := importWorkbook(t,
		[]interface{}{"algebra", "MCQ", "good row", "2", "", "EASY", "*yes|no", "", ""},
		[]interface{}{"", "MCQ", "missing topic", "2", "", "EASY", "*yes|no", "", ""},
		[]interface{}{"algebra", "ESSAY_V2", "bad type", "2", "", "EASY", "", "", ""},
		[]interface{}{"algebra", "MCQ", "no correct flag", "2", "", "EASY", "yes|no", "", ""},
		[]interface{}{"algebra", "MCQ", "bad marks", "zero", "", "EASY", "*yes|no", "", ""},
	)

	result, err := service.ImportQuestionsXLSX(context.Background(), reader, "teacher-1")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Imported != 1 {
		t.Errorf("imported = %d, want 1", result.Imported)
	}
	if result.Skipped != 4 {
		t.Errorf("skipped = %d, want 4", result.Skipped)
	}
	if len(result.Errors) != 4 {
		t.Fatalf("errors = %v, want one per bad row", result.Errors)
	}
	// errors are reported against workbook row numbers
	if !bytes.Contains([]byte(result.Errors[0]), []byte("row 3")) {
		t.Errorf("first error = %q, want a row 3 reference", result.Errors[0])
	}
}

func TestImportQuestionsXLSXEmptyWorkbook(t *testing.T) {
	service := newQuestionService(newFakeRepository())

	reader := importWorkbook(t)
	_, err := service.ImportQuestionsXLSX(context.Background(), reader, "teacher-1")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for a header-only workbook, got %v", err)
	}
}

func TestImportQuestionsXLSXNotAWorkbook(t *testing.T) {
	service := newQuestionService(newFakeRepository())

	_, err := service.ImportQuestionsXLSX(context.Background(), bytes.NewReader([]byte("not xlsx")), "teacher-1")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for a broken file, got %v", err)
	}
}

func TestParseImportOptions(t *testing.T) {
	options, err := parseImportOptions("Berlin|*Paris| Madrid ")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("options = %d, want 3", len(options))
	}
	if options[0].IsCorrect || !options[1].IsCorrect || options[2].IsCorrect {
		t.Errorf("correct flags wrong: %+v", options)
	}
	if options[1].Text != "Paris" {
		t.Errorf("star prefix not stripped: %q", options[1].Text)
	}
	if options[2].Text != "Madrid" {
		t.Errorf("whitespace not trimmed: %q", options[2].Text)
	}

	if _, err := parseImportOptions("only-one"); err == nil {
		t.Error("expected error for a single option")
	}
}

func TestParseImportAnswerKey(t *testing.T) {
	key, err := parseImportAnswerKey("paris")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if string(key) != `"paris"` {
		t.Errorf("key = %s, want JSON-encoded string", key)
	}

	key, err = parseImportAnswerKey(`["colour","color"]`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if string(key) != `["colour","color"]` {
		t.Errorf("key = %s, want the array kept verbatim", key)
	}

	if _, err := parseImportAnswerKey(""); err == nil {
		t.Error("expected error for a missing key")
	}
	if _, err := parseImportAnswerKey("[broken"); err == nil {
		t.Error("expected error for a broken array")
	}
}
