package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/trust"
)

const (
	actionsTable = "validated_actions"
	flagsTable   = "user_flags"
)

var (
	psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

	actionColumns = []string{
		"id", "user_id", "action_type", "item_id", "session_id", "client_fingerprint",
		"score", "accuracy", "time_spent", "attempts", "difficulty", "subject",
		"client_timestamp", "server_timestamp", "validation_score", "flagged_as_suspicious", "metadata",
	}
	flagColumns = []string{"id", "user_id", "flagged_by", "reason", "evidence", "status", "created_at"}
)

type actionRow struct {
	ID                  string       `db:"id"`
	UserID              string       `db:"user_id"`
	ActionType          string       `db:"action_type"`
	ItemID              string       `db:"item_id"`
	SessionID           string       `db:"session_id"`
	ClientFingerprint   string       `db:"client_fingerprint"`
	Score               null.Float64 `db:"score"`
	Accuracy            null.Float64 `db:"accuracy"`
	TimeSpent           float64      `db:"time_spent"`
	Attempts            int          `db:"attempts"`
	Difficulty          string       `db:"difficulty"`
	Subject             string       `db:"subject"`
	ClientTimestamp     float64      `db:"client_timestamp"`
	ServerTimestamp     time.Time    `db:"server_timestamp"`
	ValidationScore     float64      `db:"validation_score"`
	FlaggedAsSuspicious bool         `db:"flagged_as_suspicious"`
	Metadata            []byte       `db:"metadata"`
}

func (row actionRow) action() (trust.ValidatedAction, error) {
	a := trust.ValidatedAction{
		ID:                  row.ID,
		UserID:              row.UserID,
		ActionType:          trust.ActionType(row.ActionType),
		ItemID:              row.ItemID,
		SessionID:           row.SessionID,
		ClientFingerprint:   row.ClientFingerprint,
		Score:               row.Score.Ptr(),
		Accuracy:            row.Accuracy.Ptr(),
		TimeSpent:           row.TimeSpent,
		Attempts:            row.Attempts,
		Difficulty:          trust.Difficulty(row.Difficulty),
		Subject:             row.Subject,
		ClientTimestamp:     row.ClientTimestamp,
		ServerTimestamp:     row.ServerTimestamp.UTC(),
		ValidationScore:     row.ValidationScore,
		FlaggedAsSuspicious: row.FlaggedAsSuspicious,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &a.Metadata); err != nil {
			return a, errors.Wrapf(err, "decoding metadata of action %s", row.ID)
		}
	}
	return a, nil
}

type countRow struct {
	ActionType string `db:"action_type"`
	N          int    `db:"n"`
}

type sessionRow struct {
	Actions      int            `db:"actions"`
	StartedAt    null.Time      `db:"started_at"`
	Fingerprints pq.StringArray `db:"fingerprints"`
}

type flagRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	FlaggedBy string    `db:"flagged_by"`
	Reason    string    `db:"reason"`
	Evidence  string    `db:"evidence"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

type trustRepository struct {
	db core.DBExecutor
}

var _ trust.Repository = (*trustRepository)(nil) // interface compliance check

// NewTrustRepository stores the audit log in postgres. db may be a *sqlx.DB or a *sqlx.Tx.
func NewTrustRepository(db core.DBExecutor) trust.Repository {
	return &trustRepository{db: db}
}

func (repo *trustRepository) InsertAction(ctx context.Context, a trust.ValidatedAction) error {
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string][]string{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return errors.Wrap(err, "encoding metadata")
	}

	q, args, err := psql.Insert(actionsTable).Columns(actionColumns...).Values(
		a.ID, a.UserID, string(a.ActionType), a.ItemID, a.SessionID, a.ClientFingerprint,
		null.Float64FromPtr(a.Score), null.Float64FromPtr(a.Accuracy), a.TimeSpent, a.Attempts, string(a.Difficulty), a.Subject,
		a.ClientTimestamp, a.ServerTimestamp.UTC(), a.ValidationScore, a.FlaggedAsSuspicious, string(raw),
	).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "inserting validated action")
	}
	return nil
}

func (repo *trustRepository) selectActions(ctx context.Context, query sq.SelectBuilder) ([]trust.ValidatedAction, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []actionRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting validated actions")
	}

	actions := make([]trust.ValidatedAction, 0, len(rows))
	for _, row := range rows {
		a, err := row.action()
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func newestFirst(userID string) sq.SelectBuilder {
	return psql.Select(actionColumns...).
		From(actionsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("server_timestamp DESC", "id DESC")
}

func (repo *trustRepository) CountActionsSince(ctx context.Context, userID string, since time.Time) (trust.ActionCounts, error) {
	q, args, err := psql.Select("action_type", "count(*) AS n").
		From(actionsTable).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"server_timestamp": since.UTC()}).
		GroupBy("action_type").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []countRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "counting validated actions")
	}

	counts := make(trust.ActionCounts, len(rows))
	for _, row := range rows {
		counts[trust.ActionType(row.ActionType)] = row.N
	}
	return counts, nil
}

func (repo *trustRepository) ListRecentActions(ctx context.Context, userID string, limit int) ([]trust.ValidatedAction, error) {
	return repo.selectActions(ctx, newestFirst(userID).Limit(uint64(limit)))
}

func (repo *trustRepository) SummarizeSession(ctx context.Context, userID, sessionID string) (trust.SessionSummary, error) {
	var sum trust.SessionSummary
	q, args, err := psql.Select(
		"count(*) AS actions",
		"min(server_timestamp) AS started_at",
		"array_agg(DISTINCT client_fingerprint) AS fingerprints",
	).
		From(actionsTable).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return sum, errors.Wrap(err, "building query")
	}
	var row sessionRow
	if err = sqlx.GetContext(ctx, repo.db, &row, q, args...); err != nil {
		return sum, errors.Wrap(err, "summarizing session")
	}

	sum.Actions = row.Actions
	if row.StartedAt.Valid {
		sum.StartedAt = row.StartedAt.Time.UTC()
	}
	sum.Fingerprints = row.Fingerprints
	return sum, nil
}

func (repo *trustRepository) ListAllActionsSince(ctx context.Context, since time.Time) ([]trust.ValidatedAction, error) {
	return repo.selectActions(ctx, psql.Select(actionColumns...).
		From(actionsTable).
		Where(sq.GtOrEq{"server_timestamp": since.UTC()}).
		OrderBy("server_timestamp DESC", "id DESC"))
}

func (repo *trustRepository) InsertFlag(ctx context.Context, f trust.UserFlag) error {
	q, args, err := psql.Insert(flagsTable).Columns(flagColumns...).
		Values(f.ID, f.UserID, f.FlaggedBy, f.Reason, f.Evidence, string(f.Status), f.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, q, args...); err != nil {
		return errors.Wrap(err, "inserting user flag")
	}
	return nil
}

func (repo *trustRepository) ListFlags(ctx context.Context, userID string) ([]trust.UserFlag, error) {
	query := psql.Select(flagColumns...).From(flagsTable).OrderBy("created_at DESC", "id DESC")
	if userID != "" {
		query = query.Where(sq.Eq{"user_id": userID})
	}
	q, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []flagRow
	if err = sqlx.SelectContext(ctx, repo.db, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting user flags")
	}
	flags := make([]trust.UserFlag, 0, len(rows))
	for _, row := range rows {
		flags = append(flags, trust.UserFlag{
			ID:        row.ID,
			UserID:    row.UserID,
			FlaggedBy: row.FlaggedBy,
			Reason:    row.Reason,
			Evidence:  row.Evidence,
			Status:    trust.FlagStatus(row.Status),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return flags, nil
}
