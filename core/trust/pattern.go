package trust

import "sort"

const (
	patternReadSize   = 50
	patternMinHistory = 5

	// robotic cadence: low variance at a fast pace
	regularityVarianceRatio = 0.1
	regularityMaxMeanGap    = 120 // seconds

	identicalScoreMinSamples = 5
)

// checkPattern looks for bot-like regularity across the user's recent actions (any type).
func checkPattern(at ActionType, recent []ValidatedAction) CheckResult {
	res := pass()
	if len(recent) < patternMinHistory {
		return res
	}

	history := make([]ValidatedAction, len(recent))
	copy(history, recent)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].ServerTimestamp.After(history[j].ServerTimestamp)
	})

	gaps := make([]float64, 0, len(history)-1)
	for i := 0; i < len(history)-1; i++ {
		gaps = append(gaps, history[i].ServerTimestamp.Sub(history[i+1].ServerTimestamp).Seconds())
	}
	avg, variance := meanAndVariance(gaps)
	if variance < regularityVarianceRatio*avg && avg < regularityMaxMeanGap {
		res.penalize(0.4, "suspiciously regular activity pattern")
	}

	scores := make(map[float64]struct{})
	var scored int
	for _, a := range history {
		if a.ActionType != at || a.Score == nil {
			continue
		}
		scored++
		scores[*a.Score] = struct{}{}
	}
	if scored >= identicalScoreMinSamples && len(scores) == 1 {
		res.penalize(0.3, "identical performance across multiple attempts")
	}
	return res
}
