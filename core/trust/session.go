package trust

import "time"

const maxSessionDuration = 4 * time.Hour

// checkSession validates fingerprint continuity and duration of the submission's session.
// session summarizes the user's earlier actions in that session;
// fingerprint is the digest of the submitted client fingerprint.
func checkSession(fingerprint string, now time.Time, session SessionSummary) CheckResult {
	res := pass()
	if session.Actions == 0 {
		return res
	}

	// a browser update keeps a fingerprint we already know, so only brand new ones count
	known := false
	for _, fp := range session.Fingerprints {
		if fp == fingerprint {
			known = true
			break
		}
	}
	if !known {
		res.penalize(0.3, "fingerprint inconsistency within session")
	}
	if now.Sub(session.StartedAt) > maxSessionDuration {
		res.penalize(0.7, "extremely long session")
	}
	return res
}
