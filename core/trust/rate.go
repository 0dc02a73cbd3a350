package trust

import "time"

const (
	rateWindow         = 60 * time.Second
	maxActionsInWindow = 50 // all types
)

// rateLimit is the maximum number of actions of the given type per rate window.
func rateLimit(at ActionType) int {
	switch at {
	case ActionQuizCompleted:
		return 3
	case ActionLessonViewed:
		return 10
	case ActionMissionProgress:
		return 20
	case ActionAchievementEarned:
		return 5
	}
	return 10
}

// checkRate applies the per-type and overall limits to the sliding window ending now.
// window must count the user's actions recorded since now - rateWindow.
func checkRate(at ActionType, window ActionCounts) CheckResult {
	res := pass()

	if window[at] >= rateLimit(at) {
		res.penalize(0.2, "rate limit exceeded for "+string(at))
	}
	if window.Total() > maxActionsInWindow {
		res.penalize(0.1, "extremely high activity rate")
	}
	return res
}
