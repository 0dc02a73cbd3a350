package trust

import (
	"time"

	"github.com/pkg/errors"
)

// ActionType is the kind of gamification event a user submits.
type ActionType string

// Action types
const (
	ActionQuizCompleted     ActionType = "quiz_completed"
	ActionLessonViewed      ActionType = "lesson_viewed"
	ActionMissionProgress   ActionType = "mission_progress"
	ActionAchievementEarned ActionType = "achievement_earned"
)

var (
	AllActionTypes = []ActionType{ActionQuizCompleted, ActionLessonViewed, ActionMissionProgress, ActionAchievementEarned}

	ErrUnknownActionType = errors.New("unknown action type")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

// ParseActionType returns the ActionType named by s.
func ParseActionType(s string) (ActionType, error) {
	switch at := ActionType(s); at {
	case ActionQuizCompleted, ActionLessonViewed, ActionMissionProgress, ActionAchievementEarned:
		return at, nil
	}
	return "", errors.Wrapf(ErrUnknownActionType, "%q", s)
}

func (at ActionType) Valid() bool {
	_, err := ParseActionType(string(at))
	return err == nil
}

// Difficulty of the content an action was performed on.
type Difficulty string

// Difficulties
const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

// ParseDifficulty returns the Difficulty named by s. An empty s means "not supplied".
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyLegendary:
		return d, nil
	}
	return "", errors.Wrapf(ErrUnknownDifficulty, "%q", s)
}

// ActionData is the raw telemetry the client reports with an action.
type ActionData struct {
	ItemID          string     `json:"item_id" validate:"required,max=256"`
	Score           *float64   `json:"score,omitempty"`
	TimeSpent       float64    `json:"time_spent" validate:"gte=0"` // seconds
	Accuracy        *float64   `json:"accuracy,omitempty"`
	Attempts        int        `json:"attempts,omitempty" validate:"gte=0,lte=2147483647"`
	Difficulty      Difficulty `json:"difficulty,omitempty" validate:"omitempty,difficulty"`
	Subject         string     `json:"subject,omitempty" validate:"max=128"`
	SessionID       string     `json:"session_id" validate:"required,max=256,ident"`
	ClientTimestamp float64    `json:"client_timestamp" validate:"gt=0"` // epoch seconds
	PreviousScore   *float64   `json:"previous_score,omitempty"`
}

// Submission is one action submitted for validation.
type Submission struct {
	ActionType        ActionType `json:"action_type" validate:"required,actiontype"`
	Data              ActionData `json:"action_data"`
	ClientFingerprint string     `json:"client_fingerprint" validate:"max=512"`
}

// ValidatedAction is the immutable audit record of a submitted action and its trust score.
type ValidatedAction struct {
	ID                  string              `json:"id"`
	UserID              string              `json:"user_id"`
	ActionType          ActionType          `json:"action_type"`
	ItemID              string              `json:"item_id"`
	SessionID           string              `json:"session_id"`
	ClientFingerprint   string              `json:"client_fingerprint"` // keyed digest, never the raw value
	Score               *float64            `json:"score,omitempty"`
	Accuracy            *float64            `json:"accuracy,omitempty"`
	TimeSpent           float64             `json:"time_spent"`
	Attempts            int                 `json:"attempts"`
	Difficulty          Difficulty          `json:"difficulty,omitempty"`
	Subject             string              `json:"subject,omitempty"`
	ClientTimestamp     float64             `json:"client_timestamp"`
	ServerTimestamp     time.Time           `json:"server_timestamp"` // UTC
	ValidationScore     float64             `json:"validation_score"`
	FlaggedAsSuspicious bool                `json:"flagged_as_suspicious"`
	Metadata            map[string][]string `json:"metadata"`
}

// Checker names, also the keys of ValidatedAction.Metadata.
const (
	CheckerTiming         = "timing"
	CheckerRate           = "rate"
	CheckerConsistency    = "consistency"
	CheckerSession        = "session"
	CheckerActionSpecific = "action_specific"
	CheckerPattern        = "pattern"

	metaPreviousScore = "previous_score"
)

// CheckResult is the partial trust score of one checker, in [0, 1], with the issues it found.
type CheckResult struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

func pass() CheckResult { return CheckResult{Score: 1} }

// penalize multiplies the score by factor and records why.
func (cr *CheckResult) penalize(factor float64, issue string) {
	cr.Score *= factor
	cr.Issues = append(cr.Issues, issue)
}

// Result is what the caller of ValidateAndRecord gets back for an accepted action.
// Rewards must only be granted when CanProceed is true.
type Result struct {
	Validated       bool    `json:"validated"`
	ValidationScore float64 `json:"validation_score"`
	CanProceed      bool    `json:"can_proceed"`
}

// Decision classifies a validation score.
type Decision string

// Decisions
const (
	DecisionPass          Decision = "pass"
	DecisionSoftFlag      Decision = "soft_flag"
	DecisionHardRejection Decision = "hard_rejection"
)

// FlagStatus is the moderation state of a UserFlag.
type FlagStatus string

// Flag statuses
const (
	FlagPendingReview FlagStatus = "pending_review"
	FlagReviewed      FlagStatus = "reviewed"
	FlagDismissed     FlagStatus = "dismissed"
)

// UserFlag is a manual escalation of a user to moderators.
type UserFlag struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	FlaggedBy string     `json:"flagged_by"`
	Reason    string     `json:"reason"`
	Evidence  string     `json:"evidence,omitempty"`
	Status    FlagStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"` // UTC
}

// NewUserFlag contains information needed to flag a user for review.
type NewUserFlag struct {
	Reason   string `json:"reason" validate:"required,max=1000"`
	Evidence string `json:"evidence" validate:"max=10000"`
}

// Stats summarises validated actions over a time range.
type Stats struct {
	TotalActions           int                `json:"total_actions"`
	SuspiciousActions      int                `json:"suspicious_actions"`
	SuspiciousActionRate   float64            `json:"suspicious_action_rate"`
	AverageValidationScore float64            `json:"average_validation_score"`
	ActionsByType          map[ActionType]int `json:"actions_by_type"`
	SuspiciousUsers        int                `json:"suspicious_users"`
}
