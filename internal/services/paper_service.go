package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

type paperService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

// NewPaperService creates the paper assembly service
func NewPaperService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.Publisher) PaperService {
	return &paperService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		publisher: publisher,
	}
}

// CreateBlueprint validates and stores a blueprint with its rules
func (s *paperService) CreateBlueprint(ctx context.Context, req *validator.BlueprintCreateRequest, createdBy string) (*models.Blueprint, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	blueprint := &models.Blueprint{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   createdBy,
	}

	for i, ruleReq := range req.Rules {
		rule := models.BlueprintRule{
			Position:      i + 1,
			TopicID:       ruleReq.TopicID,
			QuestionCount: ruleReq.QuestionCount,
		}
		if len(ruleReq.DifficultyDistribution) > 0 {
			dist, err := json.Marshal(ruleReq.DifficultyDistribution)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal difficulty distribution: %w", err)
			}
			rule.DifficultyDistribution = datatypes.JSON(dist)
		}
		blueprint.Rules = append(blueprint.Rules, rule)
	}

	if err := s.repo.Blueprint().Create(ctx, blueprint); err != nil {
		return nil, fmt.Errorf("failed to create blueprint: %w", err)
	}

	s.logger.InfoContext(ctx, "Blueprint created",
		"blueprint_id", blueprint.ID,
		"rules", len(blueprint.Rules),
		"created_by", createdBy)

	return blueprint, nil
}

// GetBlueprint retrieves a blueprint with its rules
func (s *paperService) GetBlueprint(ctx context.Context, id uint) (*models.Blueprint, error) {
	blueprint, err := s.repo.Blueprint().GetByIDWithRules(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("blueprint", id)
		}
		return nil, fmt.Errorf("failed to get blueprint: %w", err)
	}
	return blueprint, nil
}

// ListBlueprints lists blueprints with filters
func (s *paperService) ListBlueprints(ctx context.Context, filters repositories.BlueprintFilters) ([]*models.Blueprint, int64, error) {
	return s.repo.Blueprint().List(ctx, filters)
}

// CloneBlueprint deep-copies a blueprint and its rules under a new name
func (s *paperService) CloneBlueprint(ctx context.Context, id uint, newName, createdBy string) (*models.Blueprint, error) {
	source, err := s.GetBlueprint(ctx, id)
	if err != nil {
		return nil, err
	}

	clone := &models.Blueprint{
		Name:        newName,
		Description: source.Description,
		CreatedBy:   createdBy,
	}
	for _, rule := range source.Rules {
		clone.Rules = append(clone.Rules, models.BlueprintRule{
			Position:               rule.Position,
			TopicID:                rule.TopicID,
			QuestionCount:          rule.QuestionCount,
			DifficultyDistribution: rule.DifficultyDistribution,
		})
	}

	if err := s.repo.Blueprint().Create(ctx, clone); err != nil {
		return nil, fmt.Errorf("failed to clone blueprint: %w", err)
	}

	s.logger.InfoContext(ctx, "Blueprint cloned",
		"source_id", id,
		"clone_id", clone.ID)

	return clone, nil
}

// GeneratePaper assembles a paper from the blueprint. Rules run in
// position order, each drawing its count from a freshly fetched pool
// snapshot shuffled by the seeded generator. An empty seed falls back to
// a random one, making that paper explicitly non-reproducible.
//
// Generation is atomic: any rule that cannot be satisfied fails the whole
// paper with InsufficientPoolError.
func (s *paperService) GeneratePaper(ctx context.Context, blueprintID uint, seed string) (*Paper, error) {
	blueprint, err := s.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	if len(blueprint.Rules) == 0 {
		return nil, NewValidationError("blueprint %d has no rules", blueprintID)
	}

	if seed == "" {
		seed = uuid.New().String()
	}
	rng := newSeededRand(seed)

	paper := &Paper{
		BlueprintID: blueprintID,
		Seed:        seed,
		GeneratedAt: time.Now().UTC(),
	}

	position := 1
	for i, rule := range blueprint.Rules {
		if rule.QuestionCount < 1 {
			return nil, NewValidationError("blueprint %d rule %d requests %d questions", blueprintID, i, rule.QuestionCount)
		}

		candidates, err := s.repo.Question().FindCandidates(ctx, rule.TopicID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pool for rule %d: %w", i, err)
		}

		if len(candidates) < rule.QuestionCount {
			return nil, &InsufficientPoolError{
				BlueprintID: blueprintID,
				RuleIndex:   i,
				TopicID:     rule.TopicID,
				Requested:   rule.QuestionCount,
				Available:   len(candidates),
			}
		}

		shuffled := make([]*models.Question, len(candidates))
		copy(shuffled, candidates)
		rng.shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		for _, question := range shuffled[:rule.QuestionCount] {
			paper.Questions = append(paper.Questions, PaperQuestion{
				Position:     position,
				RulePosition: rule.Position,
				Question:     question,
			})
			paper.TotalMarks += question.Marks
			position++
		}
	}

	paper.TotalQuestions = len(paper.Questions)

	s.logger.InfoContext(ctx, "Paper generated",
		"blueprint_id", blueprintID,
		"seed", seed,
		"questions", paper.TotalQuestions)

	s.publishEvent(ctx, events.EventPaperGenerated, map[string]interface{}{
		"blueprint_id": blueprintID,
		"seed":         seed,
		"questions":    paper.TotalQuestions,
	})

	return paper, nil
}

// ValidateBlueprint checks whether the blueprint can generate a paper.
// Pool shortfalls and empty rules are errors; a difficulty distribution
// whose counts do not sum to the rule's question count is only a warning.
func (s *paperService) ValidateBlueprint(ctx context.Context, blueprintID uint) (*BlueprintValidationResult, error) {
	blueprint, err := s.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	result := &BlueprintValidationResult{IsValid: true}

	if len(blueprint.Rules) == 0 {
		result.IsValid = false
		result.Errors = append(result.Errors, "blueprint has no rules")
		return result, nil
	}

	for i, rule := range blueprint.Rules {
		if rule.QuestionCount < 1 {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("rule %d: question count must be at least 1", i))
			continue
		}
		result.TotalQuestions += rule.QuestionCount

		available, err := s.repo.Question().CountCandidates(ctx, rule.TopicID)
		if err != nil {
			return nil, fmt.Errorf("failed to count pool for rule %d: %w", i, err)
		}
		if available < int64(rule.QuestionCount) {
			result.IsValid = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("rule %d: requested %d questions but only %d available", i, rule.QuestionCount, available))
		}

		if len(rule.DifficultyDistribution) > 0 {
			var dist map[string]int
			if err := json.Unmarshal(rule.DifficultyDistribution, &dist); err != nil {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("rule %d: difficulty distribution is not valid JSON", i))
				continue
			}
			sum := 0
			for _, count := range dist {
				sum += count
			}
			if sum != rule.QuestionCount {
				result.Warnings = append(result.Warnings,
					fmt.Sprintf("rule %d: difficulty distribution sums to %d, question count is %d", i, sum, rule.QuestionCount))
			}
		}
	}

	return result, nil
}

// PreviewQuestions returns up to limit questions the blueprint draws
// from, in stable pool order, together with the full paper size the
// rules would request. Previewing never consumes a seed, so it is
// deliberately not a shuffled paper.
func (s *paperService) PreviewQuestions(ctx context.Context, blueprintID uint, limit int) (*PaperPreview, error) {
	blueprint, err := s.GetBlueprint(ctx, blueprintID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 10
	}

	preview := &PaperPreview{}
	position := 1
	for _, rule := range blueprint.Rules {
		preview.TotalInBlueprint += rule.QuestionCount

		if len(preview.Questions) >= limit {
			continue
		}

		candidates, err := s.repo.Question().FindCandidates(ctx, rule.TopicID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch pool for preview: %w", err)
		}

		take := rule.QuestionCount
		if take > len(candidates) {
			take = len(candidates)
		}
		for _, question := range candidates[:take] {
			if len(preview.Questions) >= limit {
				break
			}
			preview.Questions = append(preview.Questions, PaperQuestion{
				Position:     position,
				RulePosition: rule.Position,
				Question:     question,
			})
			position++
		}
	}

	return preview, nil
}

func (s *paperService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Data: data}); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
