package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

// ServiceManager wires and hands out the service layer
type ServiceManager interface {
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error

	Paper() PaperService
	Exam() ExamService
	Attempt() AttemptService
	Scoring() ScoringService
	Question() QuestionService
}

// ServiceManagerConfig carries the shared dependencies of every service
type ServiceManagerConfig struct {
	Repository repositories.Repository
	DB         *gorm.DB
	Logger     *slog.Logger
	Validator  *validator.Validator
	Publisher  events.Publisher
}

// DefaultServiceManager is the production ServiceManager
type DefaultServiceManager struct {
	mu          sync.RWMutex
	config      ServiceManagerConfig
	initialized bool

	paper    PaperService
	exam     ExamService
	attempt  AttemptService
	scoring  ScoringService
	question QuestionService
}

// NewDefaultServiceManager creates an uninitialized manager
func NewDefaultServiceManager(config ServiceManagerConfig) *DefaultServiceManager {
	return &DefaultServiceManager{config: config}
}

// Initialize constructs the services. Scoring is built before attempts
// because submission triggers evaluation.
func (m *DefaultServiceManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return fmt.Errorf("service manager already initialized")
	}
	if m.config.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if m.config.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if m.config.Validator == nil {
		return fmt.Errorf("validator is required")
	}

	cfg := m.config
	m.paper = NewPaperService(cfg.Repository, cfg.DB, cfg.Logger, cfg.Validator, cfg.Publisher)
	m.exam = NewExamService(cfg.Repository, cfg.DB, cfg.Logger, cfg.Validator, cfg.Publisher, m.paper)
	m.scoring = NewScoringService(cfg.Repository, cfg.DB, cfg.Logger, cfg.Validator, cfg.Publisher)
	m.attempt = NewAttemptService(cfg.Repository, cfg.DB, cfg.Logger, cfg.Validator, cfg.Publisher, m.scoring)
	m.question = NewQuestionService(cfg.Repository, cfg.DB, cfg.Logger, cfg.Validator)

	m.initialized = true
	cfg.Logger.InfoContext(ctx, "Service manager initialized")

	return nil
}

// HealthCheck verifies the backing repository is reachable
func (m *DefaultServiceManager) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	return m.config.Repository.Ping(ctx)
}

// Shutdown releases the manager's resources
func (m *DefaultServiceManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	m.initialized = false
	m.config.Logger.InfoContext(ctx, "Service manager shut down")

	return nil
}

func (m *DefaultServiceManager) Paper() PaperService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.paper
}

func (m *DefaultServiceManager) Exam() ExamService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.exam
}

func (m *DefaultServiceManager) Attempt() AttemptService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.attempt
}

func (m *DefaultServiceManager) Scoring() ScoringService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.scoring
}

func (m *DefaultServiceManager) Question() QuestionService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.initialized {
		panic("service manager not initialized")
	}
	return m.question
}
