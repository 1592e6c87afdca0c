package events

import (
	"context"
	"time"
)

// Event types published by the exam service
const (
	EventAttemptStarted   = "exam.attempt.started"
	EventAttemptPaused    = "exam.attempt.paused"
	EventAttemptResumed   = "exam.attempt.resumed"
	EventAttemptSubmitted = "exam.attempt.submitted"
	EventAttemptExpired   = "exam.attempt.expired"
	EventResultPublished  = "exam.result.published"
	EventPaperGenerated   = "exam.paper.generated"
)

// Event is the envelope every published message uses
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Publisher publishes domain events to the message broker.
// Publishing is fire-and-forget from the caller's perspective: services
// log failures but never fail the business operation over them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
