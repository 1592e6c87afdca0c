package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. It is not
// safe for concurrent use beyond what the services themselves serialize.
type fakeRepository struct {
	nextID uint

	blueprints map[uint]*models.Blueprint
	topics     map[uint]*models.Topic
	questions  map[uint]*models.Question
	exams      map[uint]*models.Exam
	attempts   map[uint]*models.ExamAttempt
	sections   map[uint]*models.SectionAttempt
	answers    map[uint]*models.QuestionAnswer

	userScores    map[uint]*models.UserScore
	sectionScores map[string]*models.SectionScore
	topicScores   map[string]*models.TopicScore
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		blueprints:    make(map[uint]*models.Blueprint),
		topics:        make(map[uint]*models.Topic),
		questions:     make(map[uint]*models.Question),
		exams:         make(map[uint]*models.Exam),
		attempts:      make(map[uint]*models.ExamAttempt),
		sections:      make(map[uint]*models.SectionAttempt),
		answers:       make(map[uint]*models.QuestionAnswer),
		userScores:    make(map[uint]*models.UserScore),
		sectionScores: make(map[string]*models.SectionScore),
		topicScores:   make(map[string]*models.TopicScore),
	}
}

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) Blueprint() repositories.BlueprintRepository { return &fakeBlueprints{f} }
func (f *fakeRepository) Topic() repositories.TopicRepository         { return &fakeTopics{f} }
func (f *fakeRepository) Question() repositories.QuestionRepository   { return &fakeQuestions{f} }
func (f *fakeRepository) Exam() repositories.ExamRepository           { return &fakeExams{f} }
func (f *fakeRepository) Attempt() repositories.AttemptRepository     { return &fakeAttempts{f} }
func (f *fakeRepository) SectionAttempt() repositories.SectionAttemptRepository {
	return &fakeSectionAttempts{f}
}
func (f *fakeRepository) Answer() repositories.AnswerRepository { return &fakeAnswers{f} }
func (f *fakeRepository) Score() repositories.ScoreRepository   { return &fakeScores{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== blueprints =====

type fakeBlueprints struct{ f *fakeRepository }

func (r *fakeBlueprints) Create(ctx context.Context, blueprint *models.Blueprint) error {
	blueprint.ID = r.f.id()
	for i := range blueprint.Rules {
		blueprint.Rules[i].ID = r.f.id()
		blueprint.Rules[i].BlueprintID = blueprint.ID
	}
	r.f.blueprints[blueprint.ID] = blueprint
	return nil
}

func (r *fakeBlueprints) GetByID(ctx context.Context, id uint) (*models.Blueprint, error) {
	blueprint, ok := r.f.blueprints[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return blueprint, nil
}

func (r *fakeBlueprints) GetByIDWithRules(ctx context.Context, id uint) (*models.Blueprint, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeBlueprints) Update(ctx context.Context, blueprint *models.Blueprint) error {
	r.f.blueprints[blueprint.ID] = blueprint
	return nil
}

func (r *fakeBlueprints) Delete(ctx context.Context, id uint) error {
	delete(r.f.blueprints, id)
	return nil
}

func (r *fakeBlueprints) List(ctx context.Context, filters repositories.BlueprintFilters) ([]*models.Blueprint, int64, error) {
	var out []*models.Blueprint
	for _, blueprint := range r.f.blueprints {
		if filters.Search != nil && !strings.Contains(strings.ToLower(blueprint.Name), strings.ToLower(*filters.Search)) {
			continue
		}
		out = append(out, blueprint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// ===== topics =====

type fakeTopics struct{ f *fakeRepository }

func (r *fakeTopics) Create(ctx context.Context, topic *models.Topic) error {
	topic.ID = r.f.id()
	r.f.topics[topic.ID] = topic
	return nil
}

func (r *fakeTopics) GetByID(ctx context.Context, id uint) (*models.Topic, error) {
	topic, ok := r.f.topics[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return topic, nil
}

func (r *fakeTopics) GetByName(ctx context.Context, name string) (*models.Topic, error) {
	for _, topic := range r.f.topics {
		if topic.Name == name {
			return topic, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTopics) List(ctx context.Context) ([]*models.Topic, error) {
	var out []*models.Topic
	for _, topic := range r.f.topics {
		out = append(out, topic)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== questions =====

type fakeQuestions struct{ f *fakeRepository }

func (r *fakeQuestions) Create(ctx context.Context, question *models.Question) error {
	question.ID = r.f.id()
	for i := range question.Options {
		question.Options[i].ID = r.f.id()
		question.Options[i].QuestionID = question.ID
	}
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestions) CreateBatch(ctx context.Context, questions []*models.Question) error {
	for _, question := range questions {
		if err := r.Create(ctx, question); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQuestions) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, ok := r.f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return question, nil
}

func (r *fakeQuestions) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, id := range ids {
		if question, ok := r.f.questions[id]; ok {
			out = append(out, question)
		}
	}
	return out, nil
}

func (r *fakeQuestions) Update(ctx context.Context, question *models.Question) error {
	r.f.questions[question.ID] = question
	return nil
}

func (r *fakeQuestions) Delete(ctx context.Context, id uint) error {
	delete(r.f.questions, id)
	return nil
}

func (r *fakeQuestions) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var out []*models.Question
	for _, question := range r.f.questions {
		if filters.TopicID != nil && question.TopicID != *filters.TopicID {
			continue
		}
		out = append(out, question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeQuestions) FindCandidates(ctx context.Context, topicID *uint) ([]*models.Question, error) {
	var out []*models.Question
	for _, question := range r.f.questions {
		if topicID != nil && question.TopicID != *topicID {
			continue
		}
		out = append(out, question)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeQuestions) CountCandidates(ctx context.Context, topicID *uint) (int64, error) {
	candidates, err := r.FindCandidates(ctx, topicID)
	if err != nil {
		return 0, err
	}
	return int64(len(candidates)), nil
}

// ===== exams =====

type fakeExams struct{ f *fakeRepository }

func (r *fakeExams) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = r.f.id()
	for i := range exam.Sections {
		exam.Sections[i].ID = r.f.id()
		exam.Sections[i].ExamID = exam.ID
		for j := range exam.Sections[i].Questions {
			exam.Sections[i].Questions[j].ID = r.f.id()
			exam.Sections[i].Questions[j].ExamID = exam.ID
			exam.Sections[i].Questions[j].SectionID = exam.Sections[i].ID
		}
	}
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExams) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, ok := r.f.exams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (r *fakeExams) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// resolve question pointers the way preloading would
	for i := range exam.Sections {
		for j := range exam.Sections[i].Questions {
			eq := &exam.Sections[i].Questions[j]
			if eq.Question == nil {
				eq.Question = r.f.questions[eq.QuestionID]
			}
		}
	}
	return exam, nil
}

func (r *fakeExams) Update(ctx context.Context, exam *models.Exam) error {
	r.f.exams[exam.ID] = exam
	return nil
}

func (r *fakeExams) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var out []*models.Exam
	for _, exam := range r.f.exams {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		out = append(out, exam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// ===== attempts =====

type fakeAttempts struct{ f *fakeRepository }

func (r *fakeAttempts) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	attempt.ID = r.f.id()
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttempts) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	attempt, ok := r.f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (r *fakeAttempts) GetByIDWithAnswers(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeAttempts) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	r.f.attempts[attempt.ID] = attempt
	return nil
}

func (r *fakeAttempts) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	var out []*models.ExamAttempt
	for _, attempt := range r.f.attempts {
		if filters.ExamID != nil && attempt.ExamID != *filters.ExamID {
			continue
		}
		if filters.UserID != nil && attempt.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		out = append(out, attempt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeAttempts) GetActiveAttempt(ctx context.Context, examID uint, userID string) (*models.ExamAttempt, error) {
	for _, attempt := range r.f.attempts {
		if attempt.ExamID == examID && attempt.UserID == userID && attempt.Status.IsActive() {
			return attempt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAttempts) HasActiveAttempt(ctx context.Context, examID uint, userID string) (bool, error) {
	_, err := r.GetActiveAttempt(ctx, examID, userID)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *fakeAttempts) GetOverdueAttempts(ctx context.Context, cutoff time.Time) ([]*models.ExamAttempt, error) {
	var out []*models.ExamAttempt
	for _, attempt := range r.f.attempts {
		if !attempt.Status.IsTerminal() && attempt.RemainingSeconds == 0 {
			out = append(out, attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== section attempts =====

type fakeSectionAttempts struct{ f *fakeRepository }

func (r *fakeSectionAttempts) CreateBatch(ctx context.Context, sections []*models.SectionAttempt) error {
	for _, section := range sections {
		section.ID = r.f.id()
		r.f.sections[section.ID] = section
	}
	return nil
}

func (r *fakeSectionAttempts) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.SectionAttempt, error) {
	var out []*models.SectionAttempt
	for _, section := range r.f.sections {
		if section.AttemptID == attemptID {
			out = append(out, section)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSectionAttempts) GetByAttemptAndSection(ctx context.Context, attemptID, sectionID uint) (*models.SectionAttempt, error) {
	for _, section := range r.f.sections {
		if section.AttemptID == attemptID && section.SectionID == sectionID {
			return section, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSectionAttempts) Update(ctx context.Context, section *models.SectionAttempt) error {
	r.f.sections[section.ID] = section
	return nil
}

// ===== answers =====

type fakeAnswers struct{ f *fakeRepository }

func (r *fakeAnswers) Create(ctx context.Context, answer *models.QuestionAnswer) error {
	answer.ID = r.f.id()
	r.f.answers[answer.ID] = answer
	return nil
}

func (r *fakeAnswers) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.QuestionAnswer, error) {
	var out []*models.QuestionAnswer
	for _, answer := range r.f.answers {
		if answer.AttemptID == attemptID {
			out = append(out, answer)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAnswers) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.QuestionAnswer, error) {
	for _, answer := range r.f.answers {
		if answer.AttemptID == attemptID && answer.QuestionID == questionID {
			return answer, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAnswers) Update(ctx context.Context, answer *models.QuestionAnswer) error {
	if answer.ID == 0 {
		return r.Create(ctx, answer)
	}
	r.f.answers[answer.ID] = answer
	return nil
}

func (r *fakeAnswers) UpdateBatch(ctx context.Context, answers []*models.QuestionAnswer) error {
	for _, answer := range answers {
		if err := r.Update(ctx, answer); err != nil {
			return err
		}
	}
	return nil
}

// ===== scores =====

type fakeScores struct{ f *fakeRepository }

func (r *fakeScores) UpsertUserScore(ctx context.Context, score *models.UserScore) error {
	if existing, ok := r.f.userScores[score.AttemptID]; ok {
		score.ID = existing.ID
	} else {
		score.ID = r.f.id()
	}
	r.f.userScores[score.AttemptID] = score
	return nil
}

func (r *fakeScores) GetUserScore(ctx context.Context, attemptID uint) (*models.UserScore, error) {
	score, ok := r.f.userScores[attemptID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return score, nil
}

func (r *fakeScores) GetUserScores(ctx context.Context, userID string, examID *uint) ([]*models.UserScore, error) {
	var out []*models.UserScore
	for _, score := range r.f.userScores {
		if score.UserID != userID {
			continue
		}
		if examID != nil && score.ExamID != *examID {
			continue
		}
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeScores) UpsertSectionScore(ctx context.Context, score *models.SectionScore) error {
	key := sectionScoreKey(score.AttemptID, score.SectionID)
	if existing, ok := r.f.sectionScores[key]; ok {
		score.ID = existing.ID
	} else {
		score.ID = r.f.id()
	}
	r.f.sectionScores[key] = score
	return nil
}

func (r *fakeScores) GetSectionScores(ctx context.Context, attemptID uint) ([]*models.SectionScore, error) {
	var out []*models.SectionScore
	for _, score := range r.f.sectionScores {
		if score.AttemptID == attemptID {
			out = append(out, score)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SectionID < out[j].SectionID })
	return out, nil
}

func (r *fakeScores) UpsertTopicScore(ctx context.Context, score *models.TopicScore) error {
	key := topicScoreKey(score.TopicID, score.UserID)
	if existing, ok := r.f.topicScores[key]; ok {
		score.ID = existing.ID
	} else {
		score.ID = r.f.id()
	}
	r.f.topicScores[key] = score
	return nil
}

func (r *fakeScores) GetTopicScores(ctx context.Context, userID string) ([]*models.TopicScore, error) {
	var out []*models.TopicScore
	for _, score := range r.f.topicScores {
		if score.UserID == userID {
			out = append(out, score)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func sectionScoreKey(attemptID, sectionID uint) string {
	return fmt.Sprintf("%d:%d", attemptID, sectionID)
}

func topicScoreKey(topicID uint, userID string) string {
	return fmt.Sprintf("%d:%s", topicID, userID)
}
