package trust

import (
	"math"
	"time"
)

const (
	maxClockSkew   = 300 // seconds
	impossibleTime = 1   // seconds
)

// minTimeSpent is the minimum dwell time, in seconds, a genuine action of the given type needs.
func minTimeSpent(at ActionType) float64 {
	switch at {
	case ActionQuizCompleted:
		return 30
	case ActionLessonViewed:
		return 10
	case ActionMissionProgress:
		return 5
	case ActionAchievementEarned:
		return 5
	}
	return 5
}

// checkTiming validates the client clock against ours and the time spent on the action.
// It needs no history.
func checkTiming(sub Submission, now time.Time) CheckResult {
	res := pass()

	serverTime := float64(now.UnixNano()) / float64(time.Second)
	if math.Abs(serverTime-sub.Data.ClientTimestamp) > maxClockSkew {
		res.penalize(0.5, "suspicious time difference between client and server")
	}

	if sub.Data.TimeSpent < minTimeSpent(sub.ActionType) {
		res.penalize(0.3, "time spent too short for this action")
	}
	if sub.Data.TimeSpent < impossibleTime {
		res.penalize(0.1, "impossibly fast completion")
	}
	return res
}
