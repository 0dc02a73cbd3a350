package trust

import (
	"math"
	"strings"
)

const (
	maxScoreAccuracyGap = 10
	maxLessonTime       = 7200 // seconds
	missionIDMarker     = "mission"
)

// checkActionSpecific runs the structural rules of each action type. It needs no history.
func checkActionSpecific(sub Submission) CheckResult {
	res := pass()
	data := sub.Data

	switch sub.ActionType {
	case ActionQuizCompleted:
		if data.Score != nil && !isPercentage(*data.Score) {
			res.penalize(0.1, "score out of range")
		}
		if data.Accuracy != nil && !isPercentage(*data.Accuracy) {
			res.penalize(0.1, "accuracy out of range")
		}
		if data.Score != nil && data.Accuracy != nil && math.Abs(*data.Score-*data.Accuracy) > maxScoreAccuracyGap {
			res.penalize(0.6, "score-accuracy mismatch")
		}
	case ActionLessonViewed:
		if data.TimeSpent > maxLessonTime {
			res.penalize(0.8, "unreasonably long lesson viewing time")
		}
	case ActionMissionProgress:
		if !strings.Contains(data.ItemID, missionIDMarker) {
			res.penalize(0.5, "invalid mission id format")
		}
	case ActionAchievementEarned:
		// nothing structural to check
	}
	return res
}

func isPercentage(v float64) bool {
	return v >= 0 && v <= 100
}
