package ai

import (
	"context"

	"github.com/gigflow/gigwatch/internal/gig"
)

// Assessment is an AI second opinion on a ranked match.
type Assessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

// Advisor reviews a scored match against the full profile and explains
// whether the gig is worth applying to.
type Advisor interface {
	Assess(ctx context.Context, profile *gig.UserProfile, match *gig.MatchResult) (*Assessment, error)
}
