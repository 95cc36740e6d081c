package model

import "time"

const VerdictAccepted = "OK"

// Submission is one entry of a user's Codeforces submission history, as
// returned by the archive API. Only the fields the core consumes are kept.
type Submission struct {
	ContestID    int       `json:"contest_id"`
	ProblemIndex string    `json:"problem_index"`
	ProblemID    string    `json:"problem_id"` // contest number + index
	Rating       *int      `json:"rating,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Verdict      string    `json:"verdict"`
	CreatedAt    time.Time `json:"created_at"`
	Language     string    `json:"language"`
}

// Accepted reports whether the submission passed.
func (s Submission) Accepted() bool {
	return s.Verdict == VerdictAccepted
}

// AcceptedProblemIDs collects the set of problems with at least one accepted
// verdict in the given history.
func AcceptedProblemIDs(subs []Submission) map[string]struct{} {
	solved := make(map[string]struct{})
	for _, s := range subs {
		if s.Accepted() {
			solved[s.ProblemID] = struct{}{}
		}
	}
	return solved
}
