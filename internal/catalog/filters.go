package catalog

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
	"github.com/gigflow/gigwatch/internal/matching"
)

// Sort orders accepted by Filters.SortBy.
const (
	SortByMatch  = "match"
	SortByDate   = "date"
	SortByBudget = "budget"
)

// Filters narrows and orders a gig result set. The zero value passes
// everything through unchanged.
type Filters struct {
	Platform string
	Skills   []string
	MinScore int
	Location string
	SortBy   string
}

// CacheKey builds the canonical cache key for this filter set. Field order is
// fixed and skills are lowercased so equal filters always map to the same key.
func (f Filters) CacheKey(prefix string) string {
	skills := make([]string, 0, len(f.Skills))
	for _, s := range f.Skills {
		skills = append(skills, strings.ToLower(s))
	}

	return fmt.Sprintf("%s|platform=%s|skills=%s|min=%d|location=%s|sort=%s",
		prefix,
		strings.ToLower(f.Platform),
		strings.Join(skills, ","),
		f.MinScore,
		strings.ToLower(f.Location),
		f.SortBy,
	)
}

func (f Filters) applyToGigs(gigs []*gig.Gig, logger *zap.Logger) []*gig.Gig {
	// Work on a copy so sorting never reorders the caller's slice (the
	// fallback dataset is shared across queries).
	gigs = append([]*gig.Gig(nil), gigs...)
	initial := len(gigs)

	if f.Platform != "" {
		gigs = keepGigs(gigs, func(g *gig.Gig) bool {
			return g.Platform == f.Platform
		})
	}

	if len(f.Skills) > 0 {
		gigs = keepGigs(gigs, func(g *gig.Gig) bool {
			return skillsOverlap(g.SkillsRequired, f.Skills)
		})
	}

	if f.Location != "" {
		location := strings.ToLower(f.Location)
		gigs = keepGigs(gigs, func(g *gig.Gig) bool {
			return strings.Contains(strings.ToLower(g.Location), location)
		})
	}

	f.sortGigs(gigs)

	logger.Debug("filtered gigs",
		zap.Int("initial", initial),
		zap.Int("dropped", initial-len(gigs)),
		zap.Int("left", len(gigs)),
	)

	return gigs
}

func (f Filters) applyToMatches(matches []*gig.MatchResult, logger *zap.Logger) []*gig.MatchResult {
	matches = append([]*gig.MatchResult(nil), matches...)
	initial := len(matches)

	if f.Platform != "" {
		matches = keepMatches(matches, func(m *gig.MatchResult) bool {
			return m.Platform == f.Platform
		})
	}

	if len(f.Skills) > 0 {
		matches = keepMatches(matches, func(m *gig.MatchResult) bool {
			return skillsOverlap(m.SkillsRequired, f.Skills)
		})
	}

	if f.MinScore > 0 {
		matches = keepMatches(matches, func(m *gig.MatchResult) bool {
			return m.Score >= f.MinScore
		})
	}

	if f.Location != "" {
		location := strings.ToLower(f.Location)
		matches = keepMatches(matches, func(m *gig.MatchResult) bool {
			return strings.Contains(strings.ToLower(m.Location), location)
		})
	}

	f.sortMatches(matches)

	logger.Debug("filtered matches",
		zap.Int("initial", initial),
		zap.Int("dropped", initial-len(matches)),
		zap.Int("left", len(matches)),
	)

	return matches
}

func (f Filters) sortGigs(gigs []*gig.Gig) {
	switch f.SortBy {
	case SortByDate:
		sort.SliceStable(gigs, func(i, j int) bool {
			return laterPostedDate(gigs[i].PostedDate, gigs[j].PostedDate)
		})
	case SortByBudget:
		sort.SliceStable(gigs, func(i, j int) bool {
			return higherBudget(gigs[i].Budget, gigs[j].Budget)
		})
	}
}

func (f Filters) sortMatches(matches []*gig.MatchResult) {
	switch f.SortBy {
	case SortByMatch:
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
	case SortByDate:
		sort.SliceStable(matches, func(i, j int) bool {
			return laterPostedDate(matches[i].PostedDate, matches[j].PostedDate)
		})
	case SortByBudget:
		sort.SliceStable(matches, func(i, j int) bool {
			return higherBudget(matches[i].Budget, matches[j].Budget)
		})
	}
}

func keepGigs(gigs []*gig.Gig, keep func(*gig.Gig) bool) []*gig.Gig {
	kept := gigs[:0:0]
	for _, g := range gigs {
		if keep(g) {
			kept = append(kept, g)
		}
	}
	return kept
}

func keepMatches(matches []*gig.MatchResult, keep func(*gig.MatchResult) bool) []*gig.MatchResult {
	kept := matches[:0:0]
	for _, m := range matches {
		if keep(m) {
			kept = append(kept, m)
		}
	}
	return kept
}

// skillsOverlap reports whether any required skill matches any wanted skill,
// case-insensitive substring.
func skillsOverlap(required, wanted []string) bool {
	for _, req := range required {
		req = strings.ToLower(req)
		for _, want := range wanted {
			if strings.Contains(req, strings.ToLower(want)) {
				return true
			}
		}
	}
	return false
}

func laterPostedDate(a, b string) bool {
	ta, okA := gig.ParsePostedDate(a)
	tb, okB := gig.ParsePostedDate(b)
	if !okA || !okB {
		return okA
	}
	return ta.After(tb)
}

func higherBudget(a, b string) bool {
	ra, okA := matching.ParseBudget(a)
	rb, okB := matching.ParseBudget(b)
	if !okA || !okB {
		return false
	}
	return ra.Max > rb.Max
}
