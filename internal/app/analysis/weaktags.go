package analysis

import (
	"sort"

	"cfcatalyst/internal/domain/model"
)

// WeakTags ranks the tags of problems the user has attempted but never
// solved anywhere in their history. Each distinct problem counts once per
// tag, regardless of how many failed attempts it accumulated.
func WeakTags(subs []model.Submission) []model.WeakTag {
	solved := model.AcceptedProblemIDs(subs)

	attempted := map[string][]string{} // problem id -> tags
	for _, s := range subs {
		if s.Accepted() {
			continue
		}
		if _, ok := solved[s.ProblemID]; ok {
			continue
		}
		if _, seen := attempted[s.ProblemID]; !seen {
			attempted[s.ProblemID] = s.Tags
		}
	}

	counts := map[string]int{}
	for _, tags := range attempted {
		for _, t := range tags {
			counts[t]++
		}
	}

	ranked := make([]model.WeakTag, 0, len(counts))
	for t, n := range counts {
		ranked = append(ranked, model.WeakTag{Tag: t, AttemptCount: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AttemptCount != ranked[j].AttemptCount {
			return ranked[i].AttemptCount > ranked[j].AttemptCount
		}
		return ranked[i].Tag < ranked[j].Tag
	})
	return ranked
}

// TopTags returns the first n tag names of a ranking.
func TopTags(ranked []model.WeakTag, n int) []string {
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	tags := make([]string, len(ranked))
	for i, w := range ranked {
		tags[i] = w.Tag
	}
	return tags
}
