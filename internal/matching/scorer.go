// Package matching ranks gig postings against a user profile with a weighted
// multi-factor score in [0,100].
package matching

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
)

// Factor weights. A factor that cannot be computed for a given gig/profile
// pair is skipped entirely: its weight is excluded from the normalization
// denominator instead of zero-filling the average.
const (
	skillWeight    = 0.6
	budgetWeight   = 0.2
	locationWeight = 0.1
	recencyWeight  = 0.1
)

type Scorer struct {
	logger *zap.Logger

	// now is swapped in tests to pin the recency factor.
	now func() time.Time
}

func NewScorer(logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		logger: logger,
		now:    time.Now,
	}
}

// Score computes the compatibility rating between a gig and a profile.
// It is deterministic for identical inputs and never fails: missing or
// unparseable fields only remove their factor from the weighted average.
func (s *Scorer) Score(g *gig.Gig, profile *gig.UserProfile) int {
	if g == nil || profile == nil {
		return 0
	}

	var total, applied float64

	if len(g.SkillsRequired) > 0 && len(profile.Skills) > 0 {
		matched := 0
		for _, required := range g.SkillsRequired {
			if skillMatches(required, profile.Skills) {
				matched++
			}
		}
		factor := float64(matched) / float64(len(g.SkillsRequired)) * 100
		total += factor * skillWeight
		applied += skillWeight
	}

	if budget, ok := ParseBudget(g.Budget); ok &&
		profile.Preferences.MinBudget > 0 && profile.Preferences.MaxBudget > 0 {
		total += budgetFit(budget, profile.Preferences) * budgetWeight
		applied += budgetWeight
	}

	if g.Location != "" && profile.Preferences.RemoteOk != nil {
		factor := 50.0
		if strings.Contains(strings.ToLower(g.Location), "remote") && *profile.Preferences.RemoteOk {
			factor = 100
		}
		total += factor * locationWeight
		applied += locationWeight
	}

	if posted, ok := gig.ParsePostedDate(g.PostedDate); ok {
		days := math.Floor(s.now().Sub(posted).Hours() / 24)
		factor := math.Max(0, 100-days*10)
		total += factor * recencyWeight
		applied += recencyWeight
	}

	if applied == 0 {
		return 0
	}

	score := int(math.Round(total / applied))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Rank scores every gig and returns the results sorted by score descending.
// The sort is stable: equal scores keep the incoming order.
func (s *Scorer) Rank(gigs []*gig.Gig, profile *gig.UserProfile) []*gig.MatchResult {
	results := make([]*gig.MatchResult, 0, len(gigs))
	for _, g := range gigs {
		if g == nil {
			continue
		}
		results = append(results, &gig.MatchResult{
			Gig:   *g,
			Score: s.Score(g, profile),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	s.logger.Debug("ranked gigs", zap.Int("count", len(results)))

	return results
}

// skillMatches reports whether the required skill overlaps any profile skill.
// The match is a case-insensitive substring test in either direction, so
// "React" matches "React Native" and vice versa.
func skillMatches(required string, skills []string) bool {
	required = strings.ToLower(required)
	for _, skill := range skills {
		skill = strings.ToLower(skill)
		if strings.Contains(skill, required) || strings.Contains(required, skill) {
			return true
		}
	}
	return false
}

// BudgetRange is the numeric range extracted from a budget string.
type BudgetRange struct {
	Min int
	Max int
}

var budgetPattern = regexp.MustCompile(`\$(\d+(?:,\d+)*)\s*-\s*\$(\d+(?:,\d+)*)`)

// ParseBudget extracts a "$A - $B" range from free-form budget text.
// Commas are stripped. ok is false when the text carries no such pattern.
func ParseBudget(text string) (BudgetRange, bool) {
	matches := budgetPattern.FindStringSubmatch(text)
	if matches == nil {
		return BudgetRange{}, false
	}

	low, err := strconv.Atoi(strings.ReplaceAll(matches[1], ",", ""))
	if err != nil {
		return BudgetRange{}, false
	}
	high, err := strconv.Atoi(strings.ReplaceAll(matches[2], ",", ""))
	if err != nil {
		return BudgetRange{}, false
	}

	return BudgetRange{Min: low, Max: high}, true
}

// budgetFit rates how well the gig budget range sits against the profile
// bounds: 100 on overlap, otherwise credit decays with the gap between the
// nearest edges normalized by the nearer profile bound.
func budgetFit(budget BudgetRange, prefs gig.Preferences) float64 {
	if budget.Max >= prefs.MinBudget && budget.Min <= prefs.MaxBudget {
		return 100
	}

	if budget.Max < prefs.MinBudget {
		gap := float64(prefs.MinBudget - budget.Max)
		return math.Max(0, 100-gap/float64(prefs.MinBudget)*100)
	}

	if budget.Min > prefs.MaxBudget {
		gap := float64(budget.Min - prefs.MaxBudget)
		return math.Max(0, 100-gap/float64(prefs.MaxBudget)*100)
	}

	// Unreachable: the three conditions above are exhaustive.
	return 50
}
