package services

import (
	"context"
	"errors"
	"testing"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/validator"
)

func newExamService(repo *fakeRepository) ExamService {
	v := validator.New()
	logger := testLogger()
	paper := NewPaperService(repo, nil, logger, v, nil)
	return NewExamService(repo, nil, logger, v, nil, paper)
}

func TestCreateExamFromBlueprint(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "algebra"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	seedPool(t, repo, topic.ID, 10)
	blueprint := seedBlueprint(t, repo,
		models.BlueprintRule{Position: 1, TopicID: &topic.ID, QuestionCount: 3},
		models.BlueprintRule{Position: 2, TopicID: &topic.ID, QuestionCount: 2},
	)

	service := newExamService(repo)
	req := &CreateExamRequest{
		Title:           "midterm",
		BlueprintID:     blueprint.ID,
		Seed:            "midterm-2026",
		DurationSeconds: 3600,
	}

	exam, err := service.CreateExam(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if exam.Status != models.ExamDraft {
		t.Errorf("status = %s, want DRAFT", exam.Status)
	}
	if len(exam.Sections) != 2 {
		t.Fatalf("sections = %d, want one per rule", len(exam.Sections))
	}
	if len(exam.Sections[0].Questions) != 3 || len(exam.Sections[1].Questions) != 2 {
		t.Errorf("section sizes = %d and %d, want 3 and 2",
			len(exam.Sections[0].Questions), len(exam.Sections[1].Questions))
	}
	// positions restart within each section
	for _, section := range exam.Sections {
		for i, eq := range section.Questions {
			if eq.Position != i+1 {
				t.Errorf("section %q position %d, want %d", section.Name, eq.Position, i+1)
			}
		}
	}
}

func TestCreateExamSingleSection(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "geometry"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	seedPool(t, repo, topic.ID, 10)
	blueprint := seedBlueprint(t, repo,
		models.BlueprintRule{Position: 1, TopicID: &topic.ID, QuestionCount: 3},
		models.BlueprintRule{Position: 2, TopicID: &topic.ID, QuestionCount: 2},
	)

	req := &CreateExamRequest{
		Title:           "quiz",
		BlueprintID:     blueprint.ID,
		Seed:            "quiz-1",
		DurationSeconds: 600,
		SectionName:     "All Questions",
	}
	exam, err := newExamService(repo).CreateExam(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if len(exam.Sections) != 1 {
		t.Fatalf("sections = %d, want the single named section", len(exam.Sections))
	}
	if exam.Sections[0].Name != "All Questions" {
		t.Errorf("section name = %q", exam.Sections[0].Name)
	}
	if len(exam.Sections[0].Questions) != 5 {
		t.Errorf("questions = %d, want all 5", len(exam.Sections[0].Questions))
	}
}

func TestCreateExamDeterministicLayout(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "history"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	seedPool(t, repo, topic.ID, 15)
	blueprint := seedBlueprint(t, repo, models.BlueprintRule{Position: 1, TopicID: &topic.ID, QuestionCount: 6})

	service := newExamService(repo)
	req := &CreateExamRequest{Title: "final", BlueprintID: blueprint.ID, Seed: "final-a", DurationSeconds: 3600}

	first, err := service.CreateExam(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := service.CreateExam(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}

	for i := range first.Sections[0].Questions {
		if first.Sections[0].Questions[i].QuestionID != second.Sections[0].Questions[i].QuestionID {
			t.Fatalf("same seed produced different layouts at position %d", i+1)
		}
	}
}

func TestCreateExamValidation(t *testing.T) {
	service := newExamService(newFakeRepository())

	tests := []struct {
		name string
		req  *CreateExamRequest
	}{
		{name: "missing title", req: &CreateExamRequest{BlueprintID: 1, DurationSeconds: 600}},
		{name: "duration too short", req: &CreateExamRequest{Title: "x", BlueprintID: 1, DurationSeconds: 30}},
		{name: "duration too long", req: &CreateExamRequest{Title: "x", BlueprintID: 1, DurationSeconds: 90000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateExam(context.Background(), tt.req, "teacher-1")
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateExamInsufficientPoolPropagates(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "tiny"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	seedPool(t, repo, topic.ID, 1)
	blueprint := seedBlueprint(t, repo, models.BlueprintRule{Position: 1, TopicID: &topic.ID, QuestionCount: 5})

	req := &CreateExamRequest{Title: "x", BlueprintID: blueprint.ID, DurationSeconds: 600}
	_, err := newExamService(repo).CreateExam(context.Background(), req, "teacher-1")

	var poolErr *InsufficientPoolError
	if !errors.As(err, &poolErr) {
		t.Fatalf("expected InsufficientPoolError, got %v", err)
	}
}

func TestPublishExam(t *testing.T) {
	repo := newFakeRepository()
	topic := &models.Topic{Name: "science"}
	if err := repo.Topic().Create(context.Background(), topic); err != nil {
		t.Fatal(err)
	}
	seedPool(t, repo, topic.ID, 5)
	blueprint := seedBlueprint(t, repo, models.BlueprintRule{Position: 1, TopicID: &topic.ID, QuestionCount: 3})

	service := newExamService(repo)
	req := &CreateExamRequest{Title: "pop quiz", BlueprintID: blueprint.ID, DurationSeconds: 600}
	exam, err := service.CreateExam(context.Background(), req, "teacher-1")
	if err != nil {
		t.Fatal(err)
	}

	published, err := service.PublishExam(context.Background(), exam.ID, "teacher-1")
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published.Status != models.ExamPublished {
		t.Errorf("status = %s, want PUBLISHED", published.Status)
	}

	// publishing is one-way
	_, err = service.PublishExam(context.Background(), exam.ID, "teacher-1")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError on re-publish, got %v", err)
	}
}

func TestPublishExamWithoutSections(t *testing.T) {
	repo := newFakeRepository()
	exam := &models.Exam{Title: "empty", DurationSeconds: 600, Status: models.ExamDraft, CreatedBy: "teacher-1"}
	if err := repo.Exam().Create(context.Background(), exam); err != nil {
		t.Fatal(err)
	}

	_, err := newExamService(repo).PublishExam(context.Background(), exam.ID, "teacher-1")
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGetExamNotFound(t *testing.T) {
	service := newExamService(newFakeRepository())
	if _, err := service.GetExam(context.Background(), 42); !IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
