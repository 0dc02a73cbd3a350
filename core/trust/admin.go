package trust

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/user"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	DefaultStatsHours   = 24

	maxUserIDLength = 256 // user_id columns are VARCHAR(256)
)

func checkUserID(userID string) error {
	switch {
	case userID == "":
		return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: "user_id is required"})
	case utf8.RuneCountInString(userID) > maxUserIDLength:
		return core.NewValidationError(nil, core.FieldError{Field: "user_id", Error: fmt.Sprintf("user_id must be at most %d characters", maxUserIDLength)})
	}
	return nil
}

// GetUserValidationHistory returns the most recent validated actions of userID, newest first.
// Only the user themselves or an admin may read it. limit defaults to 50 and is capped at 200.
func (svc *Service) GetUserValidationHistory(ctx context.Context, p user.Principal, userID string, limit int) ([]ValidatedAction, error) {
	if !p.CanReadUserData(userID) {
		return nil, ErrPermissionDenied
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	actions, err := svc.repo.ListRecentActions(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing validation history")
	}
	return actions, nil
}

// GetValidationStats summarises every validated action of the last `hours` hours (24 by default). Admins only.
func (svc *Service) GetValidationStats(ctx context.Context, p user.Principal, hours int) (Stats, error) {
	if !p.IsAdmin() {
		return Stats{}, ErrPermissionDenied
	}
	if hours <= 0 {
		hours = DefaultStatsHours
	}

	since := svc.now().UTC().Add(-time.Duration(hours) * time.Hour)
	actions, err := svc.repo.ListAllActionsSince(ctx, since)
	if err != nil {
		return Stats{}, errors.Wrap(err, "listing actions")
	}
	return summarize(actions), nil
}

func summarize(actions []ValidatedAction) Stats {
	stats := Stats{ActionsByType: make(map[ActionType]int)}
	suspects := make(map[string]struct{})
	var scores mean

	for _, a := range actions {
		stats.TotalActions++
		stats.ActionsByType[a.ActionType]++
		scores.add(a.ValidationScore)
		if a.FlaggedAsSuspicious {
			stats.SuspiciousActions++
			suspects[a.UserID] = struct{}{}
		}
	}
	stats.SuspiciousUsers = len(suspects)
	if stats.TotalActions > 0 {
		stats.SuspiciousActionRate = float64(stats.SuspiciousActions) / float64(stats.TotalActions)
		stats.AverageValidationScore = scores.value()
	}
	return stats
}

// FlagUserForReview escalates userID to the moderators. Admins only.
func (svc *Service) FlagUserForReview(ctx context.Context, p user.Principal, userID string, nf NewUserFlag) (UserFlag, error) {
	if !p.IsAdmin() {
		return UserFlag{}, ErrPermissionDenied
	}
	userID = core.CleanString(userID)
	if err := checkUserID(userID); err != nil {
		return UserFlag{}, err
	}
	if err := nf.Validate(svc.validate); err != nil {
		return UserFlag{}, err
	}

	flag := UserFlag{
		ID:        svc.newID(),
		UserID:    userID,
		FlaggedBy: p.UserID,
		Reason:    nf.Reason,
		Evidence:  nf.Evidence,
		Status:    FlagPendingReview,
		CreatedAt: svc.now().UTC(),
	}
	if err := svc.repo.InsertFlag(ctx, flag); err != nil {
		return UserFlag{}, errors.Wrap(err, "recording user flag")
	}

	svc.logger.Warn("user flagged for review", map[string]interface{}{"flag_id": flag.ID, "user_id": userID, "reason": flag.Reason}, p)
	svc.notifyModerators(flag)
	svc.publish(ctx, core.Event{
		Type:    core.EventUserFlagged,
		UserID:  flag.UserID,
		ActorID: flag.FlaggedBy,
		Issues:  []string{flag.Reason},
		At:      flag.CreatedAt,
	})
	return flag, nil
}

func (svc *Service) notifyModerators(flag UserFlag) {
	if svc.mailer == nil || len(svc.conf.ModeratorEmails) == 0 {
		return
	}

	var body strings.Builder
	fmt.Fprintf(&body, "User %s was flagged for review by %s on %s.\n\n", flag.UserID, flag.FlaggedBy, flag.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&body, "Reason:\n%s\n", flag.Reason)
	if flag.Evidence != "" {
		fmt.Fprintf(&body, "\nEvidence:\n%s\n", flag.Evidence)
	}
	fmt.Fprintf(&body, "\nFlag ID: %s\n", flag.ID)

	svc.mailer.SendMessages(&core.EmailMessage{
		To:      svc.conf.ModeratorEmails,
		Subject: "User flagged for review: " + flag.UserID,
		Body:    body.String(),
	})
}

// ListUserFlags returns the flags raised against userID, or every flag when userID is empty. Admins only.
func (svc *Service) ListUserFlags(ctx context.Context, p user.Principal, userID string) ([]UserFlag, error) {
	if !p.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	flags, err := svc.repo.ListFlags(ctx, core.CleanString(userID))
	if err != nil {
		return nil, errors.Wrap(err, "listing user flags")
	}
	return flags, nil
}
