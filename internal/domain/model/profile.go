package model

// SlotProfile is the historical fingerprint of one problem slot (A, B, C, …)
// within a contest format.
type SlotProfile struct {
	Index         string   `json:"index"`
	AverageRating int      `json:"average_rating"`
	CommonTags    []string `json:"common_tags"` // ranked, most frequent first
}

// ContestProfile is the derived, per-request fingerprint of a contest format.
// It is recomputed on demand and never persisted authoritatively.
type ContestProfile struct {
	Format         string        `json:"format"`
	ContestsUsed   int           `json:"contests_used"`
	Slots          []SlotProfile `json:"slots"` // ordered A, B, C, …
	OverallTopTags []string      `json:"overall_top_tags"`
}

// WeakTag pairs a tag with the number of distinct problems the user attempted
// but never solved.
type WeakTag struct {
	Tag          string `json:"tag"`
	AttemptCount int    `json:"attempt_count"`
}
