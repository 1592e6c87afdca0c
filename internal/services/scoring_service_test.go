package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/validator"
)

type scoringFixture struct {
	repo    *fakeRepository
	service ScoringService
	exam    *models.Exam
	attempt *models.ExamAttempt

	mcq, blank, essay *models.Question
	topicA, topicB    *models.Topic
}

// newScoringFixture seeds a submitted attempt over a three-question exam:
// an MCQ worth 4 (negative 1), a fill-blank worth 3 and a descriptive
// worth 10. The MCQ and fill-blank share a topic, the descriptive has
// its own.
func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()
	ctx := context.Background()
	repo := newFakeRepository()

	topicA := &models.Topic{Name: "mechanics"}
	topicB := &models.Topic{Name: "writing"}
	for _, topic := range []*models.Topic{topicA, topicB} {
		if err := repo.Topic().Create(ctx, topic); err != nil {
			t.Fatal(err)
		}
	}

	mcq := &models.Question{
		TopicID:       topicA.ID,
		Type:          models.MCQ,
		Text:          "unit of force?",
		Marks:         4,
		NegativeMarks: 1,
		Difficulty:    models.DifficultyEasy,
		CreatedBy:     "teacher-1",
		Options: []models.QuestionOption{
			{Number: 1, Text: "Newton", IsCorrect: true},
			{Number: 2, Text: "Joule"},
		},
	}
	blank := &models.Question{
		TopicID:       topicA.ID,
		Type:          models.FillInTheBlank,
		Text:          "F = m times ____",
		Marks:         3,
		Difficulty:    models.DifficultyEasy,
		CreatedBy:     "teacher-1",
		CorrectAnswer: datatypes.JSON(`"a"`),
	}
	essay := &models.Question{
		TopicID:    topicB.ID,
		Type:       models.Descriptive,
		Text:       "explain inertia",
		Marks:      10,
		Difficulty: models.DifficultyMedium,
		CreatedBy:  "teacher-1",
	}
	for _, q := range []*models.Question{mcq, blank, essay} {
		if err := repo.Question().Create(ctx, q); err != nil {
			t.Fatal(err)
		}
	}

	exam := &models.Exam{
		Title:           "physics final",
		DurationSeconds: 3600,
		Status:          models.ExamPublished,
		CreatedBy:       "teacher-1",
		Sections: []models.ExamSection{
			{
				Name:     "Section 1",
				Position: 1,
				Questions: []models.ExamQuestion{
					{QuestionID: mcq.ID, Position: 1},
					{QuestionID: blank.ID, Position: 2},
					{QuestionID: essay.ID, Position: 3},
				},
			},
		},
	}
	if err := repo.Exam().Create(ctx, exam); err != nil {
		t.Fatal(err)
	}

	attempt := &models.ExamAttempt{
		ExamID: exam.ID,
		UserID: "student-1",
		Status: models.AttemptSubmitted,
	}
	if err := repo.Attempt().Create(ctx, attempt); err != nil {
		t.Fatal(err)
	}

	return &scoringFixture{
		repo:    repo,
		service: NewScoringService(repo, nil, testLogger(), validator.New(), nil),
		exam:    exam,
		attempt: attempt,
		mcq:     mcq,
		blank:   blank,
		essay:   essay,
		topicA:  topicA,
		topicB:  topicB,
	}
}

func (f *scoringFixture) saveRaw(t *testing.T, questionID uint, raw string) {
	t.Helper()
	err := f.repo.Answer().Create(context.Background(), &models.QuestionAnswer{
		AttemptID:  f.attempt.ID,
		QuestionID: questionID,
		UserAnswer: datatypes.JSON(raw),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEvaluateAttemptCounters(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.saveRaw(t, f.mcq.ID, `1`)
	f.saveRaw(t, f.blank.ID, `"wrong"`)
	f.saveRaw(t, f.essay.ID, `"a long essay"`)

	score, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if score.TotalMarks != 17 {
		t.Errorf("TotalMarks = %f, want 17", score.TotalMarks)
	}
	if score.MarksSecured != 4 {
		t.Errorf("MarksSecured = %f, want 4", score.MarksSecured)
	}
	// the ungraded descriptive answer is counted in no bucket
	if score.CorrectCount != 1 || score.WrongCount != 1 || score.UnansweredCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 1 correct, 1 wrong, 0 unanswered",
			score.CorrectCount, score.WrongCount, score.UnansweredCount)
	}
	if score.Grade != "F" {
		t.Errorf("grade = %s, want F for %f%%", score.Grade, score.Percentage)
	}
}

func TestEvaluateAttemptAllUnanswered(t *testing.T) {
	f := newScoringFixture(t)

	score, err := f.service.EvaluateAttempt(context.Background(), f.attempt.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if score.UnansweredCount != 3 {
		t.Errorf("UnansweredCount = %d, want 3", score.UnansweredCount)
	}
	if score.MarksSecured != 0 || score.Percentage != 0 {
		t.Errorf("empty attempt scored %f (%f%%)", score.MarksSecured, score.Percentage)
	}
}

func TestEvaluateAttemptNegativeTotalNotFloored(t *testing.T) {
	f := newScoringFixture(t)

	f.saveRaw(t, f.mcq.ID, `2`)

	score, err := f.service.EvaluateAttempt(context.Background(), f.attempt.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if score.MarksSecured != -1 {
		t.Errorf("MarksSecured = %f, want -1 kept as computed", score.MarksSecured)
	}
	if score.Percentage >= 0 {
		t.Errorf("Percentage = %f, want negative", score.Percentage)
	}
}

func TestEvaluateAttemptManualOverride(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.saveRaw(t, f.essay.ID, `"a long essay"`)

	correct := true
	grades := []ManualGrade{{QuestionID: f.essay.ID, IsCorrect: &correct, MarksAwarded: 8, GradedBy: "teacher-1"}}
	score, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, grades)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	if score.MarksSecured != 8 {
		t.Errorf("MarksSecured = %f, want the manual 8", score.MarksSecured)
	}
	if score.CorrectCount != 1 {
		t.Errorf("CorrectCount = %d, want 1 after manual grading", score.CorrectCount)
	}

	answer, err := f.repo.Answer().GetByAttemptAndQuestion(ctx, f.attempt.ID, f.essay.ID)
	if err != nil {
		t.Fatal(err)
	}
	if answer.GradedBy == nil || *answer.GradedBy != "teacher-1" {
		t.Errorf("GradedBy = %v, want teacher-1", answer.GradedBy)
	}
	if answer.MarksAwarded != 8 {
		t.Errorf("MarksAwarded = %f, want 8", answer.MarksAwarded)
	}
}

func TestEvaluateAttemptOverrideOutsideExam(t *testing.T) {
	f := newScoringFixture(t)

	correct := true
	grades := []ManualGrade{{QuestionID: 9999, IsCorrect: &correct, MarksAwarded: 5}}
	_, err := f.service.EvaluateAttempt(context.Background(), f.attempt.ID, grades)

	var grading *GradingError
	if !errors.As(err, &grading) {
		t.Fatalf("expected GradingError, got %v", err)
	}
}

func TestEvaluateAttemptRequiresTerminal(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.attempt.Status = models.AttemptInProgress
	if err := f.repo.Attempt().Update(ctx, f.attempt); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRecomputeScoreOverwrites(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.saveRaw(t, f.mcq.ID, `1`)

	first, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	second, err := f.service.RecomputeScore(ctx, f.attempt.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("recompute created a new score row: %d vs %d", second.ID, first.ID)
	}
	if second.MarksSecured != first.MarksSecured || second.Grade != first.Grade {
		t.Errorf("recompute changed a stable result: %+v vs %+v", second, first)
	}
}

func TestRecomputeScoreAfterKeyFix(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.saveRaw(t, f.blank.ID, `"acceleration"`)

	first, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if first.MarksSecured != 0 {
		t.Fatalf("MarksSecured = %f before the key fix, want 0", first.MarksSecured)
	}

	f.blank.CorrectAnswer = datatypes.JSON(`["a","acceleration"]`)
	if err := f.repo.Question().Update(ctx, f.blank); err != nil {
		t.Fatal(err)
	}

	second, err := f.service.RecomputeScore(ctx, f.attempt.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if second.MarksSecured != 3 {
		t.Errorf("MarksSecured = %f after the key fix, want 3", second.MarksSecured)
	}
	if second.CorrectCount != 1 || second.WrongCount != 0 {
		t.Errorf("counters = %d/%d after recompute, want 1/0", second.CorrectCount, second.WrongCount)
	}
}

func TestEvaluateAttemptSectionAndTopicBreakdown(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.saveRaw(t, f.mcq.ID, `1`)
	f.saveRaw(t, f.blank.ID, `"a"`)

	if _, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}

	sections, err := f.service.GetSectionScores(ctx, f.attempt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(sections))
	}
	section := sections[0]
	if section.TotalMarks != 17 || section.MarksSecured != 7 {
		t.Errorf("section marks = %f/%f, want 7/17", section.MarksSecured, section.TotalMarks)
	}
	if section.CorrectCount != 2 || section.WrongCount != 0 || section.UnansweredCount != 1 {
		t.Errorf("section counters = %d/%d/%d, want 2 correct, 0 wrong, 1 unanswered",
			section.CorrectCount, section.WrongCount, section.UnansweredCount)
	}
	if section.PerformanceStatus != models.PerformanceAverage {
		t.Errorf("performance = %s for %f%%, want AVERAGE", section.PerformanceStatus, section.Percentage)
	}

	topics, err := f.service.GetTopicScores(ctx, "student-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(topics))
	}
	byTopic := make(map[uint]*models.TopicScore)
	for _, topic := range topics {
		byTopic[topic.TopicID] = topic
	}
	if got := byTopic[f.topicA.ID]; got == nil || got.MarksSecured != 7 || got.TotalMarks != 7 {
		t.Errorf("topic A score = %+v, want 7/7", got)
	}
	if got := byTopic[f.topicB.ID]; got == nil || got.MarksSecured != 0 || got.TotalMarks != 10 {
		t.Errorf("topic B score = %+v, want 0/10", got)
	}
}

func TestGetResults(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	if _, err := f.service.GetResults(ctx, f.attempt.ID); !IsNotFound(err) {
		t.Fatalf("expected not-found before evaluation, got %v", err)
	}

	f.saveRaw(t, f.mcq.ID, `1`)
	if _, err := f.service.EvaluateAttempt(ctx, f.attempt.ID, nil); err != nil {
		t.Fatal(err)
	}

	result, err := f.service.GetResults(ctx, f.attempt.ID)
	if err != nil {
		t.Fatalf("get results failed: %v", err)
	}
	if result.Score == nil || result.Score.AttemptID != f.attempt.ID {
		t.Fatalf("result score = %+v", result.Score)
	}
	if len(result.Sections) != 1 {
		t.Errorf("result sections = %d, want 1", len(result.Sections))
	}
}
