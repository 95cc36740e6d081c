package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// Problem is a single archive problem synced from Codeforces. It is read-only
// for the generation/scoring core; only the periodic sync refreshes its stats.
type Problem struct {
	ID          string    `json:"id"` // contest number + index, e.g. "1800C"
	ContestID   int       `json:"contest_id"`
	Index       string    `json:"index"`
	Name        string    `json:"name"`
	Rating      *int      `json:"rating,omitempty"` // nil for unrated problems
	Tags        []string  `json:"tags"`             // normalized lowercase tag slugs
	SolvedCount int       `json:"solved_count"`
	SyncedAt    time.Time `json:"synced_at"`
}

// ProblemID builds the canonical identifier used across the system.
func ProblemID(contestID int, index string) string {
	return fmt.Sprintf("%d%s", contestID, index)
}

// NormalizeTag maps a raw Codeforces tag name ("binary search",
// "dp") to the slug form stored and filtered on ("binary-search", "dp").
func NormalizeTag(raw string) string {
	return slug.Make(raw)
}

// NormalizeTags normalizes a tag list, dropping empties.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if s := NormalizeTag(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Contest is an archive contest header, used by the profile builder to
// fingerprint a contest format.
type Contest struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Format   string    `json:"format"` // e.g. "Div. 2", "Div. 3", "Educational"
	Phase    string    `json:"phase"`
	StartsAt time.Time `json:"starts_at"`
	Problems []Problem `json:"problems,omitempty"`
}

// Known contest format labels, most specific first. Educational rounds say
// "Div. 2" in their name as well, so order matters.
var contestFormats = []string{"Educational", "Div. 1 + Div. 2", "Div. 1", "Div. 2", "Div. 3", "Div. 4", "Global"}

// ContestFormatFromName extracts the format label from a contest name, or ""
// when no known label matches.
func ContestFormatFromName(name string) string {
	lower := strings.ToLower(name)
	for _, f := range contestFormats {
		if strings.Contains(lower, strings.ToLower(f)) {
			return f
		}
	}
	return ""
}
