package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
	"github.com/examforge/exam-service/internal/validator"
)

type stubScoringService struct {
	lastAttemptID uint
	lastGrades    []services.ManualGrade
}

func (s *stubScoringService) EvaluateAttempt(_ context.Context, attemptID uint, grades []services.ManualGrade) (*models.UserScore, error) {
	s.lastAttemptID = attemptID
	s.lastGrades = grades
	return &models.UserScore{AttemptID: attemptID}, nil
}

func (s *stubScoringService) RecomputeScore(_ context.Context, attemptID uint) (*models.UserScore, error) {
	return &models.UserScore{AttemptID: attemptID}, nil
}

func (s *stubScoringService) GetResults(context.Context, uint) (*services.AttemptResult, error) {
	return &services.AttemptResult{}, nil
}

func (s *stubScoringService) GetSectionScores(context.Context, uint) ([]*models.SectionScore, error) {
	return nil, nil
}

func (s *stubScoringService) GetTopicScores(context.Context, string) ([]*models.TopicScore, error) {
	return nil, nil
}

func newScoringRouter(svc services.ScoringService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := NewScoringHandler(svc, validator.New(), logger)

	router := gin.New()
	router.POST("/attempts/:attempt_id/evaluate", handler.EvaluateAttempt)
	return router
}

// an evaluate call with no manual grades may omit the body entirely
func TestEvaluateAttemptEmptyBody(t *testing.T) {
	stub := &stubScoringService{}
	router := newScoringRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/attempts/7/evaluate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if stub.lastAttemptID != 7 {
		t.Errorf("attempt id = %d, want 7", stub.lastAttemptID)
	}
	if len(stub.lastGrades) != 0 {
		t.Errorf("manual grades = %d, want none", len(stub.lastGrades))
	}
}

func TestEvaluateAttemptMalformedBody(t *testing.T) {
	router := newScoringRouter(&stubScoringService{})

	req := httptest.NewRequest(http.MethodPost, "/attempts/7/evaluate", strings.NewReader(`{"manual_grades": [`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEvaluateAttemptForwardsManualGrades(t *testing.T) {
	stub := &stubScoringService{}
	router := newScoringRouter(stub)

	body, err := json.Marshal(validator.EvaluateAttemptRequest{
		ManualGrades: []validator.ManualGradeRequest{{QuestionID: 3, MarksAwarded: 6}},
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/attempts/7/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	if len(stub.lastGrades) != 1 {
		t.Fatalf("manual grades = %d, want 1", len(stub.lastGrades))
	}
	if stub.lastGrades[0].QuestionID != 3 || stub.lastGrades[0].MarksAwarded != 6 {
		t.Errorf("grade = %+v, want question 3 with 6 marks", stub.lastGrades[0])
	}
}
