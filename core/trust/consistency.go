package trust

const (
	consistencyReadSize   = 20
	consistencyMinSamples = 3

	maxScoreJump    = 1.8
	maxAccuracyJump = 1.5
	// perfect accuracy on hard content needs a baseline at least this good
	gradualAccuracyBaseline = 70
)

// checkConsistency compares the new performance with the user's baseline on the same subject & difficulty.
// recent must hold the user's most recent actions (any type).
func checkConsistency(sub Submission, recent []ValidatedAction) CheckResult {
	res := pass()

	data := sub.Data
	if data.Score == nil && data.Accuracy == nil {
		return res
	}

	var samples int
	var scores, accuracies mean
	for _, a := range recent {
		if a.ActionType != ActionQuizCompleted || a.Subject != data.Subject || a.Difficulty != data.Difficulty {
			continue
		}
		samples++
		if a.Score != nil {
			scores.add(*a.Score)
		}
		if a.Accuracy != nil {
			accuracies.add(*a.Accuracy)
		}
	}
	if samples < consistencyMinSamples {
		return res
	}

	if data.Score != nil && scores.n > 0 && *data.Score > maxScoreJump*scores.value() {
		res.penalize(0.6, "sudden score improvement")
	}
	if data.Accuracy != nil && accuracies.n > 0 {
		histAccuracy := accuracies.value()
		if *data.Accuracy > maxAccuracyJump*histAccuracy {
			res.penalize(0.6, "sudden accuracy improvement")
		}
		if *data.Accuracy == 100 && histAccuracy < gradualAccuracyBaseline && data.Difficulty == DifficultyHard {
			res.penalize(0.4, "perfect score on hard content without gradual improvement")
		}
	}
	return res
}
