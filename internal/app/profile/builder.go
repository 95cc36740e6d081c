package profile

import (
	"context"
	"fmt"
	"math"
	"sort"

	"cfcatalyst/internal/domain/model"

	"github.com/rs/zerolog"
)

const (
	// DefaultContestWindow bounds how many recent finished contests feed a
	// format fingerprint.
	DefaultContestWindow = 50
	// minLinkedProblems excludes contests whose problem data never fully
	// synced; a fingerprint built on 1-2 problems is noise.
	minLinkedProblems = 3

	slotTagLimit    = 3
	overallTagLimit = 3
)

// ContestSource is the slice of the archive the builder reads.
type ContestSource interface {
	RecentFinishedContestsByFormat(ctx context.Context, format string, limit int) ([]model.Contest, error)
}

// Builder derives a statistical fingerprint (average rating and common tags
// per problem slot) for a contest format. Results are ephemeral: recomputed
// per request, never persisted.
type Builder struct {
	contests ContestSource
	window   int
	logger   zerolog.Logger
}

func NewBuilder(contests ContestSource, window int, logger zerolog.Logger) *Builder {
	if window <= 0 {
		window = DefaultContestWindow
	}
	return &Builder{
		contests: contests,
		window:   window,
		logger:   logger.With().Str("component", "profile_builder").Logger(),
	}
}

func (b *Builder) Build(ctx context.Context, format string) (*model.ContestProfile, error) {
	contests, err := b.contests.RecentFinishedContestsByFormat(ctx, format, b.window)
	if err != nil {
		return nil, fmt.Errorf("profile.Build %q: %w", format, err)
	}

	type slotStats struct {
		ratingSum   int
		ratingCount int
		tagCounts   map[string]int
	}
	slots := map[string]*slotStats{}
	overallTags := map[string]int{}
	used := 0

	for _, c := range contests {
		if len(c.Problems) < minLinkedProblems {
			continue
		}
		used++
		for _, p := range c.Problems {
			s, ok := slots[p.Index]
			if !ok {
				s = &slotStats{tagCounts: map[string]int{}}
				slots[p.Index] = s
			}
			if p.Rating != nil {
				s.ratingSum += *p.Rating
				s.ratingCount++
			}
			for _, t := range p.Tags {
				s.tagCounts[t]++
				overallTags[t]++
			}
		}
	}

	profile := &model.ContestProfile{
		Format:         format,
		ContestsUsed:   used,
		OverallTopTags: topTags(overallTags, overallTagLimit),
	}

	indexes := make([]string, 0, len(slots))
	for idx, s := range slots {
		if s.ratingCount == 0 {
			continue // slot never had a rated problem, nothing to target
		}
		indexes = append(indexes, idx)
	}
	sort.Strings(indexes)

	for _, idx := range indexes {
		s := slots[idx]
		profile.Slots = append(profile.Slots, model.SlotProfile{
			Index:         idx,
			AverageRating: int(math.Round(float64(s.ratingSum) / float64(s.ratingCount))),
			CommonTags:    topTags(s.tagCounts, slotTagLimit),
		})
	}

	b.logger.Debug().
		Str("format", format).
		Int("contests_used", used).
		Int("slots", len(profile.Slots)).
		Msg("contest profile built")
	return profile, nil
}

func topTags(counts map[string]int, limit int) []string {
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}
