package repositories

import "context"

// Repository aggregates every entity repository behind one interface
type Repository interface {
	// Authoring domain
	Blueprint() BlueprintRepository
	Topic() TopicRepository
	Question() QuestionRepository
	Exam() ExamRepository

	// Attempt domain
	Attempt() AttemptRepository
	SectionAttempt() SectionAttemptRepository
	Answer() AnswerRepository

	// Scoring domain
	Score() ScoreRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
