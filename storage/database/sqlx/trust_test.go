package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paes/core/trust"
)

var (
	t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	selectActions = "SELECT id, user_id, action_type, item_id, session_id, client_fingerprint, score, accuracy, time_spent, attempts, difficulty, subject, client_timestamp, server_timestamp, validation_score, flagged_as_suspicious, metadata FROM validated_actions"
)

func newRepo(t *testing.T) (trust.Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewTrustRepository(sqlx.NewDb(db, "postgres")), mock
}

func actionRows() *sqlmock.Rows {
	return sqlmock.NewRows(actionColumns)
}

func addAction(rows *sqlmock.Rows, id string, score interface{}, ts time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "u1", "quiz_completed", "quiz-1", "s1", "digest",
		score, nil, 45.0, 1, "hard", "math",
		float64(ts.Unix()), ts, 0.6, false, []byte(`{"timing":[],"rate":["rate limit exceeded for quiz_completed"]}`),
	)
}

func TestTrustRepository_InsertAction(t *testing.T) {
	score := 85.0
	action := trust.ValidatedAction{
		ID:              "a1",
		UserID:          "u1",
		ActionType:      trust.ActionQuizCompleted,
		ItemID:          "quiz-1",
		SessionID:       "s1",
		Score:           &score,
		TimeSpent:       45,
		Attempts:        1,
		ClientTimestamp: 1709294400,
		ServerTimestamp: t0,
		ValidationScore: 1,
		Metadata:        map[string][]string{"timing": {}},
	}
	query := regexp.QuoteMeta("INSERT INTO validated_actions (id,user_id,action_type,item_id,session_id,client_fingerprint,score,accuracy,time_spent,attempts,difficulty,subject,client_timestamp,server_timestamp,validation_score,flagged_as_suspicious,metadata) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)")

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec(query).
			WithArgs("a1", "u1", "quiz_completed", "quiz-1", "s1", "", 85.0, nil, 45.0, 1, "", "", 1709294400.0, t0, 1.0, false, `{"timing":[]}`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.InsertAction(context.Background(), action))
	})

	t.Run("nil metadata is stored as an empty object", func(t *testing.T) {
		repo, mock := newRepo(t)
		a := action
		a.Metadata = nil
		mock.ExpectExec(query).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), `{}`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.InsertAction(context.Background(), a))
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		dbErr := errors.New("append-only")
		mock.ExpectExec("INSERT INTO validated_actions").WillReturnError(dbErr)
		err := repo.InsertAction(context.Background(), action)
		assert.Equal(t, dbErr, errors.Cause(err))
	})
}

func TestTrustRepository_CountActionsSince(t *testing.T) {
	query := regexp.QuoteMeta("SELECT action_type, count(*) AS n FROM validated_actions WHERE user_id = $1 AND server_timestamp >= $2 GROUP BY action_type")
	since := t0.Add(-time.Minute)

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(query).
			WithArgs("u1", since).
			WillReturnRows(sqlmock.NewRows([]string{"action_type", "n"}).
				AddRow("quiz_completed", 3).
				AddRow("lesson_viewed", 75))

		counts, err := repo.CountActionsSince(context.Background(), "u1", since)
		require.NoError(t, err)
		assert.Equal(t, trust.ActionCounts{trust.ActionQuizCompleted: 3, trust.ActionLessonViewed: 75}, counts)
		assert.Equal(t, 78, counts.Total())
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		dbErr := errors.New("connection refused")
		mock.ExpectQuery(query).WillReturnError(dbErr)
		_, err := repo.CountActionsSince(context.Background(), "u1", since)
		assert.Equal(t, dbErr, errors.Cause(err))
	})
}

func TestTrustRepository_ListRecentActions(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectActions+" WHERE user_id = $1 ORDER BY server_timestamp DESC, id DESC LIMIT 50")).
			WithArgs("u1").
			WillReturnRows(addAction(addAction(actionRows(), "a2", 90.0, t0), "a1", nil, t0.Add(-30*time.Second)))

		actions, err := repo.ListRecentActions(context.Background(), "u1", 50)
		require.NoError(t, err)
		require.Len(t, actions, 2)

		a := actions[0]
		assert.Equal(t, "a2", a.ID)
		assert.Equal(t, trust.ActionQuizCompleted, a.ActionType)
		assert.Equal(t, trust.DifficultyHard, a.Difficulty)
		require.NotNil(t, a.Score)
		assert.Equal(t, 90.0, *a.Score)
		assert.Nil(t, a.Accuracy)
		assert.Equal(t, t0, a.ServerTimestamp)
		assert.Equal(t, []string{"rate limit exceeded for quiz_completed"}, a.Metadata["rate"])
		assert.Nil(t, actions[1].Score)
	})

	t.Run("no actions", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("FROM validated_actions").WithArgs("u1").WillReturnRows(actionRows())

		actions, err := repo.ListRecentActions(context.Background(), "u1", 50)
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("corrupted metadata", func(t *testing.T) {
		repo, mock := newRepo(t)
		rows := actionRows().AddRow(
			"a1", "u1", "quiz_completed", "quiz-1", "s1", "", nil, nil, 45.0, 1, "", "",
			1.0, t0, 1.0, false, []byte(`not json`),
		)
		mock.ExpectQuery("FROM validated_actions").WillReturnRows(rows)
		_, err := repo.ListRecentActions(context.Background(), "u1", 50)
		assert.Error(t, err)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery("FROM validated_actions").WillReturnError(errors.New("connection refused"))
		_, err := repo.ListRecentActions(context.Background(), "u1", 50)
		assert.Error(t, err)
	})
}

func TestTrustRepository_SummarizeSession(t *testing.T) {
	query := regexp.QuoteMeta("SELECT count(*) AS actions, min(server_timestamp) AS started_at, array_agg(DISTINCT client_fingerprint) AS fingerprints FROM validated_actions WHERE user_id = $1 AND session_id = $2")
	columns := []string{"actions", "started_at", "fingerprints"}

	t.Run("ok", func(t *testing.T) {
		repo, mock := newRepo(t)
		started := t0.Add(-9 * time.Hour)
		mock.ExpectQuery(query).
			WithArgs("u1", "s1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(1200, started, []byte("{fp-a,fp-b}")))

		sum, err := repo.SummarizeSession(context.Background(), "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, trust.SessionSummary{Actions: 1200, StartedAt: started, Fingerprints: []string{"fp-a", "fp-b"}}, sum)
	})

	t.Run("new session", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(query).
			WithArgs("u1", "s2").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(0, nil, nil))

		sum, err := repo.SummarizeSession(context.Background(), "u1", "s2")
		require.NoError(t, err)
		assert.Zero(t, sum.Actions)
		assert.True(t, sum.StartedAt.IsZero())
		assert.Empty(t, sum.Fingerprints)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		dbErr := errors.New("connection refused")
		mock.ExpectQuery(query).WillReturnError(dbErr)
		_, err := repo.SummarizeSession(context.Background(), "u1", "s1")
		assert.Equal(t, dbErr, errors.Cause(err))
	})
}

func TestTrustRepository_ListAllActionsSince(t *testing.T) {
	repo, mock := newRepo(t)
	since := t0.Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(selectActions+" WHERE server_timestamp >= $1 ORDER BY server_timestamp DESC, id DESC")).
		WithArgs(since).
		WillReturnRows(addAction(actionRows(), "a1", nil, t0))

	actions, err := repo.ListAllActionsSince(context.Background(), since)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestTrustRepository_flags(t *testing.T) {
	flag := trust.UserFlag{
		ID:        "f1",
		UserID:    "u1",
		FlaggedBy: "admin-1",
		Reason:    "too good to be true",
		Status:    trust.FlagPendingReview,
		CreatedAt: t0,
	}
	flagRows := func() *sqlmock.Rows {
		return sqlmock.NewRows(flagColumns).AddRow("f1", "u1", "admin-1", "too good to be true", "", "pending_review", t0)
	}

	t.Run("insert", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_flags (id,user_id,flagged_by,reason,evidence,status,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)")).
			WithArgs("f1", "u1", "admin-1", "too good to be true", "", "pending_review", t0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.InsertFlag(context.Background(), flag))
	})

	t.Run("list by user", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, flagged_by, reason, evidence, status, created_at FROM user_flags WHERE user_id = $1 ORDER BY created_at DESC, id DESC")).
			WithArgs("u1").
			WillReturnRows(flagRows())

		flags, err := repo.ListFlags(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, []trust.UserFlag{flag}, flags)
	})

	t.Run("list all", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, flagged_by, reason, evidence, status, created_at FROM user_flags ORDER BY created_at DESC, id DESC")).
			WithArgs().
			WillReturnRows(flagRows())

		flags, err := repo.ListFlags(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, flags, 1)
	})
}
