package trust

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func epoch(t time.Time) float64 { return float64(t.Unix()) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newSub(at ActionType, data ActionData) Submission {
	if data.ItemID == "" {
		data.ItemID = "item-1"
	}
	if data.SessionID == "" {
		data.SessionID = "sess-1"
	}
	if data.ClientTimestamp == 0 {
		data.ClientTimestamp = epoch(t0)
	}
	return Submission{ActionType: at, Data: data, ClientFingerprint: "fp-1"}
}

func action(at ActionType, ts time.Time) ValidatedAction {
	return ValidatedAction{UserID: "u1", ActionType: at, SessionID: "sess-1", ClientFingerprint: "fp-1", ServerTimestamp: ts}
}

func checkWant(t *testing.T, got CheckResult, wantScore float64, wantIssues ...string) {
	t.Helper()
	if !approx(got.Score, wantScore) {
		t.Errorf("score = %v, want %v (issues: %v)", got.Score, wantScore, got.Issues)
	}
	if len(got.Issues) != len(wantIssues) {
		t.Fatalf("issues = %v, want %v", got.Issues, wantIssues)
	}
	for i, iss := range wantIssues {
		if !strings.Contains(got.Issues[i], iss) {
			t.Errorf("issues[%d] = %q, want it to contain %q", i, got.Issues[i], iss)
		}
	}
}

func Test_checkTiming(t *testing.T) {
	tests := []struct {
		name       string
		sub        Submission
		wantScore  float64
		wantIssues []string
	}{
		{
			name:      "genuine quiz",
			sub:       newSub(ActionQuizCompleted, ActionData{TimeSpent: 45}),
			wantScore: 1,
		},
		{
			name:      "skew at the limit",
			sub:       newSub(ActionLessonViewed, ActionData{TimeSpent: 15, ClientTimestamp: epoch(t0) - 300}),
			wantScore: 1,
		},
		{
			name:       "client clock too far behind",
			sub:        newSub(ActionLessonViewed, ActionData{TimeSpent: 15, ClientTimestamp: epoch(t0) - 400}),
			wantScore:  0.5,
			wantIssues: []string{"suspicious time difference"},
		},
		{
			name:       "client clock too far ahead",
			sub:        newSub(ActionLessonViewed, ActionData{TimeSpent: 15, ClientTimestamp: epoch(t0) + 301}),
			wantScore:  0.5,
			wantIssues: []string{"suspicious time difference"},
		},
		{
			name:       "quiz too short",
			sub:        newSub(ActionQuizCompleted, ActionData{TimeSpent: 20}),
			wantScore:  0.3,
			wantIssues: []string{"too short"},
		},
		{
			name:      "lesson at minimum",
			sub:       newSub(ActionLessonViewed, ActionData{TimeSpent: 10}),
			wantScore: 1,
		},
		{
			name:       "impossibly fast quiz",
			sub:        newSub(ActionQuizCompleted, ActionData{TimeSpent: 0.5}),
			wantScore:  0.03,
			wantIssues: []string{"too short", "impossibly fast"},
		},
		{
			name:       "everything wrong",
			sub:        newSub(ActionMissionProgress, ActionData{TimeSpent: 0, ClientTimestamp: epoch(t0) - 3600}),
			wantScore:  0.015,
			wantIssues: []string{"time difference", "too short", "impossibly fast"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkTiming(tt.sub, t0), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_checkRate(t *testing.T) {
	tests := []struct {
		name       string
		at         ActionType
		window     ActionCounts
		wantScore  float64
		wantIssues []string
	}{
		{name: "empty window", at: ActionQuizCompleted, wantScore: 1},
		{name: "under quiz limit", at: ActionQuizCompleted, window: ActionCounts{ActionQuizCompleted: 2}, wantScore: 1},
		{
			name:       "quiz limit reached",
			at:         ActionQuizCompleted,
			window:     ActionCounts{ActionQuizCompleted: 3},
			wantScore:  0.2,
			wantIssues: []string{"rate limit exceeded for quiz_completed"},
		},
		{
			name:      "other types do not count towards the type limit",
			at:        ActionQuizCompleted,
			window:    ActionCounts{ActionLessonViewed: 9},
			wantScore: 1,
		},
		{
			name:       "type limit counted over a busy window",
			at:         ActionQuizCompleted,
			window:     ActionCounts{ActionLessonViewed: 60, ActionQuizCompleted: 3},
			wantScore:  0.02,
			wantIssues: []string{"rate limit exceeded for quiz_completed", "extremely high activity rate"},
		},
		{
			name:       "too many actions overall",
			at:         ActionMissionProgress,
			window:     ActionCounts{ActionLessonViewed: 51},
			wantScore:  0.1,
			wantIssues: []string{"extremely high activity rate"},
		},
		{
			name:       "both limits",
			at:         ActionLessonViewed,
			window:     ActionCounts{ActionLessonViewed: 51},
			wantScore:  0.02,
			wantIssues: []string{"rate limit exceeded", "extremely high activity rate"},
		},
		{
			name:      "fifty actions is still fine overall",
			at:        ActionMissionProgress,
			window:    ActionCounts{ActionLessonViewed: 30, ActionQuizCompleted: 2, ActionAchievementEarned: 18},
			wantScore: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkRate(tt.at, tt.window), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_checkConsistency(t *testing.T) {
	quiz := func(subject string, diff Difficulty, score, accuracy *float64, hoursAgo int) ValidatedAction {
		a := action(ActionQuizCompleted, t0.Add(-time.Duration(hoursAgo)*time.Hour))
		a.Subject, a.Difficulty, a.Score, a.Accuracy = subject, diff, score, accuracy
		return a
	}
	history := func(subject string, diff Difficulty, score, accuracy *float64, n int) []ValidatedAction {
		rows := make([]ValidatedAction, 0, n)
		for i := 0; i < n; i++ {
			rows = append(rows, quiz(subject, diff, score, accuracy, i+1))
		}
		return rows
	}

	tests := []struct {
		name       string
		sub        Submission
		recent     []ValidatedAction
		wantScore  float64
		wantIssues []string
	}{
		{
			name:      "nothing to compare",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Difficulty: DifficultyHard}),
			recent:    history("math", DifficultyHard, f64(10), f64(10), 5),
			wantScore: 1,
		},
		{
			name:      "too few samples",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Score: f64(100), Accuracy: f64(100), Difficulty: DifficultyHard}),
			recent:    history("math", DifficultyHard, f64(10), f64(10), 2),
			wantScore: 1,
		},
		{
			name:      "other subjects are ignored",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Score: f64(100), Accuracy: f64(100), Difficulty: DifficultyMedium}),
			recent:    history("history", DifficultyMedium, f64(10), f64(10), 5),
			wantScore: 1,
		},
		{
			name:       "sudden improvement",
			sub:        newSub(ActionQuizCompleted, ActionData{Subject: "math", Score: f64(80), Accuracy: f64(80), Difficulty: DifficultyMedium}),
			recent:     history("math", DifficultyMedium, f64(40), f64(40), 3),
			wantScore:  0.36,
			wantIssues: []string{"sudden score improvement", "sudden accuracy improvement"},
		},
		{
			name:      "steady progress",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Score: f64(70), Accuracy: f64(70), Difficulty: DifficultyMedium}),
			recent:    history("math", DifficultyMedium, f64(60), f64(60), 3),
			wantScore: 1,
		},
		{
			name:       "perfect on hard content out of nowhere",
			sub:        newSub(ActionQuizCompleted, ActionData{Subject: "Matemáticas", Accuracy: f64(100), Difficulty: DifficultyHard}),
			recent:     history("Matemáticas", DifficultyHard, nil, f64(60), 5),
			wantScore:  0.24,
			wantIssues: []string{"sudden accuracy improvement", "perfect score on hard content"},
		},
		{
			name:      "perfect on hard content after a good baseline",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Accuracy: f64(100), Difficulty: DifficultyHard}),
			recent:    history("math", DifficultyHard, nil, f64(80), 5),
			wantScore: 1,
		},
		{
			name:      "means only use rows carrying the value",
			sub:       newSub(ActionQuizCompleted, ActionData{Subject: "math", Score: f64(90), Difficulty: DifficultyEasy}),
			recent:    append(history("math", DifficultyEasy, nil, f64(90), 3), quiz("math", DifficultyEasy, f64(85), nil, 9)),
			wantScore: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkConsistency(tt.sub, tt.recent), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_checkSession(t *testing.T) {
	since := func(age time.Duration, actions int, fps ...string) SessionSummary {
		return SessionSummary{Actions: actions, StartedAt: t0.Add(-age), Fingerprints: fps}
	}

	tests := []struct {
		name        string
		fingerprint string
		session     SessionSummary
		wantScore   float64
		wantIssues  []string
	}{
		{name: "first action of the session", fingerprint: "new", wantScore: 1},
		{name: "same device", fingerprint: "a", session: since(time.Hour, 2, "a"), wantScore: 1},
		{name: "known fingerprint after an update", fingerprint: "a", session: since(time.Hour, 2, "a", "b"), wantScore: 1},
		{
			name:        "unknown device",
			fingerprint: "c",
			session:     since(time.Hour, 2, "a", "b"),
			wantScore:   0.3,
			wantIssues:  []string{"fingerprint inconsistency"},
		},
		{name: "four hours exactly", fingerprint: "a", session: since(4*time.Hour, 500, "a"), wantScore: 1},
		{
			name:        "endless session",
			fingerprint: "a",
			session:     since(5*time.Hour, 2, "a"),
			wantScore:   0.7,
			wantIssues:  []string{"extremely long session"},
		},
		{
			name:        "endless session with thousands of actions",
			fingerprint: "a",
			session:     since(30*time.Hour, 5000, "a"),
			wantScore:   0.7,
			wantIssues:  []string{"extremely long session"},
		},
		{
			name:        "both",
			fingerprint: "z",
			session:     since(5*time.Hour, 1, "a"),
			wantScore:   0.21,
			wantIssues:  []string{"fingerprint inconsistency", "extremely long session"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkSession(tt.fingerprint, t0, tt.session), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_checkActionSpecific(t *testing.T) {
	tests := []struct {
		name       string
		sub        Submission
		wantScore  float64
		wantIssues []string
	}{
		{name: "quiz", sub: newSub(ActionQuizCompleted, ActionData{Score: f64(85), Accuracy: f64(80)}), wantScore: 1},
		{name: "quiz without telemetry", sub: newSub(ActionQuizCompleted, ActionData{}), wantScore: 1},
		{
			name:       "quiz out of range",
			sub:        newSub(ActionQuizCompleted, ActionData{Score: f64(150), Accuracy: f64(150)}),
			wantScore:  0.01,
			wantIssues: []string{"score out of range", "accuracy out of range"},
		},
		{
			name:       "negative quiz score",
			sub:        newSub(ActionQuizCompleted, ActionData{Score: f64(-1)}),
			wantScore:  0.1,
			wantIssues: []string{"score out of range"},
		},
		{
			name:       "score-accuracy mismatch",
			sub:        newSub(ActionQuizCompleted, ActionData{Score: f64(90), Accuracy: f64(70)}),
			wantScore:  0.6,
			wantIssues: []string{"score-accuracy mismatch"},
		},
		{name: "lesson", sub: newSub(ActionLessonViewed, ActionData{TimeSpent: 7200}), wantScore: 1},
		{
			name:       "lesson left open",
			sub:        newSub(ActionLessonViewed, ActionData{TimeSpent: 8000}),
			wantScore:  0.8,
			wantIssues: []string{"unreasonably long lesson"},
		},
		{name: "mission", sub: newSub(ActionMissionProgress, ActionData{ItemID: "mission-42"}), wantScore: 1},
		{
			name:       "bad mission id",
			sub:        newSub(ActionMissionProgress, ActionData{ItemID: "quest-42"}),
			wantScore:  0.5,
			wantIssues: []string{"invalid mission id"},
		},
		{name: "achievement", sub: newSub(ActionAchievementEarned, ActionData{TimeSpent: 99999}), wantScore: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkActionSpecific(tt.sub), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_checkPattern(t *testing.T) {
	// series builds actions spaced by gaps (seconds), newest first
	series := func(at ActionType, score *float64, gaps ...float64) []ValidatedAction {
		ts := t0
		rows := []ValidatedAction{action(at, ts)}
		for _, g := range gaps {
			ts = ts.Add(-time.Duration(g * float64(time.Second)))
			rows = append(rows, action(at, ts))
		}
		for i := range rows {
			rows[i].Score = score
		}
		return rows
	}
	reversed := func(rows []ValidatedAction) []ValidatedAction {
		res := make([]ValidatedAction, len(rows))
		for i, r := range rows {
			res[len(rows)-1-i] = r
		}
		return res
	}

	tests := []struct {
		name       string
		at         ActionType
		recent     []ValidatedAction
		wantScore  float64
		wantIssues []string
	}{
		{name: "not enough history", at: ActionLessonViewed, recent: series(ActionLessonViewed, nil, 30, 30, 30), wantScore: 1},
		{
			name:       "clockwork",
			at:         ActionLessonViewed,
			recent:     series(ActionLessonViewed, nil, 30, 30, 30, 30),
			wantScore:  0.4,
			wantIssues: []string{"suspiciously regular"},
		},
		{
			name:       "order does not matter",
			at:         ActionLessonViewed,
			recent:     reversed(series(ActionLessonViewed, nil, 30, 30, 30, 30)),
			wantScore:  0.4,
			wantIssues: []string{"suspiciously regular"},
		},
		{name: "human cadence", at: ActionLessonViewed, recent: series(ActionLessonViewed, nil, 10, 200, 30, 500), wantScore: 1},
		{name: "regular but slow", at: ActionLessonViewed, recent: series(ActionLessonViewed, nil, 600, 600, 600, 600), wantScore: 1},
		{
			name:       "identical scores",
			at:         ActionQuizCompleted,
			recent:     series(ActionQuizCompleted, f64(80), 10, 200, 30, 500),
			wantScore:  0.3,
			wantIssues: []string{"identical performance"},
		},
		{
			name:       "identical scores like clockwork",
			at:         ActionQuizCompleted,
			recent:     series(ActionQuizCompleted, f64(80), 30, 30, 30, 30),
			wantScore:  0.12,
			wantIssues: []string{"suspiciously regular", "identical performance"},
		},
		{
			name:      "identical scores of another type",
			at:        ActionLessonViewed,
			recent:    series(ActionQuizCompleted, f64(80), 10, 200, 30, 500),
			wantScore: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkWant(t, checkPattern(tt.at, tt.recent), tt.wantScore, tt.wantIssues...)
		})
	}
}

func Test_combine(t *testing.T) {
	outcomes := []outcome{
		{CheckerTiming, CheckResult{Score: 0.5, Issues: []string{"a"}}},
		{CheckerRate, pass()},
		{CheckerConsistency, CheckResult{Score: 0.6, Issues: []string{"b", "c"}}},
		{CheckerSession, pass()},
		{CheckerActionSpecific, CheckResult{Score: 0.8, Issues: []string{"d"}}},
		{CheckerPattern, pass()},
	}
	score, metadata, issues := combine(outcomes)

	if !approx(score, 0.5*0.6*0.8) {
		t.Errorf("score = %v, want the product of partial scores", score)
	}
	if got := strings.Join(issues, ","); got != "a,b,c,d" {
		t.Errorf("issues = %v, want checker order", issues)
	}
	if len(metadata) != 6 {
		t.Errorf("metadata has %d keys, want one per checker", len(metadata))
	}
	if md := metadata[CheckerRate]; md == nil || len(md) != 0 {
		t.Errorf("metadata[rate] = %#v, want empty list", md)
	}
}

// Penalties only ever lower the score.
func Test_evaluate_monotonic(t *testing.T) {
	base := newSub(ActionQuizCompleted, ActionData{TimeSpent: 45, Score: f64(85), Accuracy: f64(87)})
	worse := base
	worse.Data.TimeSpent = 0.5

	score := func(sub Submission) float64 {
		s, _, _ := combine(evaluate(sub, "fp", t0, history{}))
		return s
	}
	if s := score(base); !approx(s, 1) {
		t.Fatalf("baseline score = %v, want 1", s)
	}
	if score(worse) >= score(base) {
		t.Errorf("adding a penalty did not lower the score")
	}
	for _, o := range evaluate(worse, "fp", t0, history{}) {
		if o.Score < 0 || o.Score > 1 {
			t.Errorf("%s score %v out of [0, 1]", o.checker, o.Score)
		}
	}
}

// Checkers only read their inputs: the same snapshot gives the same result and is left untouched.
func Test_checkers_idempotent(t *testing.T) {
	sub := newSub(ActionQuizCompleted, ActionData{
		TimeSpent:       20,
		Subject:         "math",
		Score:           f64(95),
		Accuracy:        f64(80),
		Difficulty:      DifficultyHard,
		ClientTimestamp: epoch(t0) - 400,
	})
	// deliberately out of order
	var recent []ValidatedAction
	for _, age := range []int{90, 30, 150, 60, 120, 180} {
		a := action(ActionQuizCompleted, t0.Add(-time.Duration(age)*time.Second))
		a.Subject, a.Difficulty, a.Score, a.Accuracy = "math", DifficultyHard, f64(40), f64(40)
		recent = append(recent, a)
	}
	h := history{
		window:  ActionCounts{ActionQuizCompleted: 3, ActionLessonViewed: 48},
		recent:  recent,
		session: SessionSummary{Actions: 7, StartedAt: t0.Add(-5 * time.Hour), Fingerprints: []string{"b", "a"}},
	}

	wantRecent := append([]ValidatedAction(nil), recent...)
	wantWindow := ActionCounts{ActionQuizCompleted: 3, ActionLessonViewed: 48}
	wantSession := SessionSummary{Actions: 7, StartedAt: t0.Add(-5 * time.Hour), Fingerprints: []string{"b", "a"}}

	checkers := []struct {
		name string
		run  func() CheckResult
	}{
		{CheckerTiming, func() CheckResult { return checkTiming(sub, t0) }},
		{CheckerRate, func() CheckResult { return checkRate(sub.ActionType, h.window) }},
		{CheckerConsistency, func() CheckResult { return checkConsistency(sub, h.recent) }},
		{CheckerSession, func() CheckResult { return checkSession("c", t0, h.session) }},
		{CheckerActionSpecific, func() CheckResult { return checkActionSpecific(sub) }},
		{CheckerPattern, func() CheckResult { return checkPattern(sub.ActionType, h.recent) }},
	}
	for _, c := range checkers {
		t.Run(c.name, func(t *testing.T) {
			first, second := c.run(), c.run()
			if !reflect.DeepEqual(first, second) {
				t.Errorf("second run = %+v, want %+v", second, first)
			}
			if first.Score == 1 {
				t.Errorf("score = 1, want the snapshot to trigger a penalty")
			}
		})
	}

	if got := evaluate(sub, "c", t0, h); !reflect.DeepEqual(got, evaluate(sub, "c", t0, h)) {
		t.Errorf("evaluate is not repeatable: %+v", got)
	}
	if !reflect.DeepEqual(h.recent, wantRecent) {
		t.Errorf("recent actions were modified")
	}
	if !reflect.DeepEqual(h.window, wantWindow) {
		t.Errorf("window counts were modified: %v", h.window)
	}
	if !reflect.DeepEqual(h.session, wantSession) {
		t.Errorf("session summary was modified: %+v", h.session)
	}
}
