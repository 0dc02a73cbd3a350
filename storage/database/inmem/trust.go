package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/paes/core/trust"
)

var errDuplicateID = errors.New("duplicate id")

type trustRepository struct {
	actions *actionTable
	flags   *flagTable
}

var _ trust.Repository = (*trustRepository)(nil) // interface compliance check

func NewTrustRepository(db *DB) trust.Repository {
	return &trustRepository{actions: db.actions, flags: db.flags}
}

// clone detaches a row from the table: stored rows are never updated.
func clone(a trust.ValidatedAction) trust.ValidatedAction {
	if a.Score != nil {
		v := *a.Score
		a.Score = &v
	}
	if a.Accuracy != nil {
		v := *a.Accuracy
		a.Accuracy = &v
	}
	if a.Metadata != nil {
		md := make(map[string][]string, len(a.Metadata))
		for k, v := range a.Metadata {
			md[k] = append([]string{}, v...)
		}
		a.Metadata = md
	}
	return a
}

func (repo *trustRepository) InsertAction(_ context.Context, action trust.ValidatedAction) error {
	repo.actions.Lock()
	defer repo.actions.Unlock()

	if _, ok := repo.actions.ids[action.ID]; ok {
		return errors.Wrapf(errDuplicateID, "action %q", action.ID)
	}
	repo.actions.ids[action.ID] = struct{}{}
	repo.actions.rows = append(repo.actions.rows, clone(action))
	return nil
}

// selectActions returns the rows matching keep, newest first, at most limit (all when limit <= 0).
func (repo *trustRepository) selectActions(keep func(trust.ValidatedAction) bool, limit int) []trust.ValidatedAction {
	repo.actions.RLock()
	defer repo.actions.RUnlock()

	var res []trust.ValidatedAction
	for i := len(repo.actions.rows) - 1; i >= 0; i-- {
		if a := repo.actions.rows[i]; keep(a) {
			res = append(res, clone(a))
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].ServerTimestamp.After(res[j].ServerTimestamp)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res
}

func (repo *trustRepository) CountActionsSince(_ context.Context, userID string, since time.Time) (trust.ActionCounts, error) {
	repo.actions.RLock()
	defer repo.actions.RUnlock()

	counts := make(trust.ActionCounts)
	for _, a := range repo.actions.rows {
		if a.UserID == userID && !a.ServerTimestamp.Before(since) {
			counts[a.ActionType]++
		}
	}
	return counts, nil
}

func (repo *trustRepository) ListRecentActions(_ context.Context, userID string, limit int) ([]trust.ValidatedAction, error) {
	return repo.selectActions(func(a trust.ValidatedAction) bool {
		return a.UserID == userID
	}, limit), nil
}

func (repo *trustRepository) SummarizeSession(_ context.Context, userID, sessionID string) (trust.SessionSummary, error) {
	repo.actions.RLock()
	defer repo.actions.RUnlock()

	var sum trust.SessionSummary
	seen := make(map[string]struct{})
	for _, a := range repo.actions.rows {
		if a.UserID != userID || a.SessionID != sessionID {
			continue
		}
		if sum.Actions == 0 || a.ServerTimestamp.Before(sum.StartedAt) {
			sum.StartedAt = a.ServerTimestamp
		}
		sum.Actions++
		if _, ok := seen[a.ClientFingerprint]; !ok {
			seen[a.ClientFingerprint] = struct{}{}
			sum.Fingerprints = append(sum.Fingerprints, a.ClientFingerprint)
		}
	}
	return sum, nil
}

func (repo *trustRepository) ListAllActionsSince(_ context.Context, since time.Time) ([]trust.ValidatedAction, error) {
	return repo.selectActions(func(a trust.ValidatedAction) bool {
		return !a.ServerTimestamp.Before(since)
	}, 0), nil
}

func (repo *trustRepository) InsertFlag(_ context.Context, flag trust.UserFlag) error {
	repo.flags.Lock()
	defer repo.flags.Unlock()

	for _, f := range repo.flags.rows {
		if f.ID == flag.ID {
			return errors.Wrapf(errDuplicateID, "flag %q", flag.ID)
		}
	}
	repo.flags.rows = append(repo.flags.rows, flag)
	return nil
}

func (repo *trustRepository) ListFlags(_ context.Context, userID string) ([]trust.UserFlag, error) {
	repo.flags.RLock()
	defer repo.flags.RUnlock()

	var res []trust.UserFlag
	for i := len(repo.flags.rows) - 1; i >= 0; i-- {
		if f := repo.flags.rows[i]; userID == "" || f.UserID == userID {
			res = append(res, f)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}
