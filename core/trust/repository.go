package trust

import (
	"context"
	"time"
)

//go:generate mockgen -source=repository.go -destination=../../mocks/trust/mock_repository.go -package=mock_trust Repository

// ActionCounts is the number of actions per type.
type ActionCounts map[ActionType]int

// Total sums the counts of every type.
func (c ActionCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// SessionSummary aggregates every action a user recorded in one session.
type SessionSummary struct {
	Actions      int
	StartedAt    time.Time // server timestamp of the first action, zero when Actions is 0
	Fingerprints []string  // distinct fingerprint digests
}

// Repository is the append-only store of validated actions and user flags.
// Listing methods return at most `limit` rows; store failures are returned as-is.
type Repository interface {
	InsertAction(ctx context.Context, action ValidatedAction) error
	// CountActionsSince counts the user's actions with a server timestamp >= since, per type.
	CountActionsSince(ctx context.Context, userID string, since time.Time) (ActionCounts, error)
	// ListRecentActions returns the user's most recent actions, newest first.
	ListRecentActions(ctx context.Context, userID string, limit int) ([]ValidatedAction, error)
	// SummarizeSession aggregates all the user's actions within a session.
	SummarizeSession(ctx context.Context, userID, sessionID string) (SessionSummary, error)
	// ListAllActionsSince returns every user's actions with a server timestamp >= since, newest first.
	ListAllActionsSince(ctx context.Context, since time.Time) ([]ValidatedAction, error)

	InsertFlag(ctx context.Context, flag UserFlag) error
	// ListFlags returns the flags raised against userID (all flags when empty), newest first.
	ListFlags(ctx context.Context, userID string) ([]UserFlag, error)
}
