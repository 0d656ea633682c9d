package core

import (
	"context"
	"time"
)

// Event names
const (
	EventProfileCreated     = "profile.created"
	EventEnrollmentCreated  = "enrollment.created"
	EventChallengeCompleted = "challenge.completed"
	EventAttemptStarted     = "attempt.started"
	EventAttemptCompleted   = "attempt.completed"
	EventAttemptAbandoned   = "attempt.abandoned"
	EventSubmissionReceived = "submission.received"
	EventSubmissionGraded   = "submission.graded"
)

// Event tells subscribers that a state transition happened, so that cached views can refresh.
type Event struct {
	Name       string
	UserID     string // the learner the event is about
	ResourceID string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func NewEvent(name, userID, resourceID string, data map[string]interface{}) Event {
	return Event{
		Name:       name,
		UserID:     userID,
		ResourceID: resourceID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// EventPublisher is notified after every committed state transition.
// Publish must not block the caller on slow subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...Event) {}

// NoopPublisher discards every event.
var NoopPublisher EventPublisher = noopPublisher{}
