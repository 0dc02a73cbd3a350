package core

import (
	"context"
	"time"
)

// Trust event types
const (
	EventActionFlagged  = "action.flagged"
	EventActionRejected = "action.rejected"
	EventUserFlagged    = "user.flagged"
)

// Event is broadcast to moderation consumers whenever the trust engine sees something worth a look.
type Event struct {
	Type     string    `json:"type"`
	UserID   string    `json:"user_id"`
	ActorID  string    `json:"actor_id,omitempty"`
	ActionID string    `json:"action_id,omitempty"`
	Score    float64   `json:"score"`
	Decision string    `json:"decision,omitempty"`
	Issues   []string  `json:"issues,omitempty"`
	At       time.Time `json:"at"`
}

// EventPublisher is any service that can broadcast trust events.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
