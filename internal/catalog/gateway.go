package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/cache"
	"github.com/gigflow/gigwatch/internal/gig"
	"github.com/gigflow/gigwatch/internal/matching"
)

// fallbackData is the static dataset served when the remote catalog is
// unreachable. Gig discovery is best-effort: a degraded result set always
// beats an error.
//
//go:embed gigs.json
var fallbackData []byte

// Gateway is the single entry point for gig reads. Every path is
// cache → remote → fallback; remote failures are logged and swallowed here,
// callers never see them.
type Gateway struct {
	client   *Client
	scorer   *matching.Scorer
	cache    *cache.Cache
	logger   *zap.Logger
	fallback []*gig.Gig
}

// NewGateway builds a gateway. client may be nil, which forces every read to
// the fallback dataset (offline mode).
func NewGateway(client *Client, scorer *matching.Scorer, results *cache.Cache, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var fallback []*gig.Gig
	if err := json.Unmarshal(fallbackData, &fallback); err != nil {
		return nil, fmt.Errorf("parse fallback dataset: %w", err)
	}

	return &Gateway{
		client:   client,
		scorer:   scorer,
		cache:    results,
		logger:   logger,
		fallback: fallback,
	}, nil
}

// GetGigs returns the gig feed narrowed by filters.
func (g *Gateway) GetGigs(filters Filters) []*gig.Gig {
	key := filters.CacheKey("gigs")
	if cached, ok := g.cache.Get(key); ok {
		if gigs, ok := cached.([]*gig.Gig); ok {
			return gigs
		}
	}

	gigs := g.fetchGigs()
	gigs = filters.applyToGigs(gigs, g.logger)
	g.cache.Put(key, gigs)

	return gigs
}

// GetMatchingGigs returns gigs scored against the profile, best match first.
func (g *Gateway) GetMatchingGigs(profile *gig.UserProfile, filters Filters) []*gig.MatchResult {
	key := filters.CacheKey("matching|" + profile.ID)
	if cached, ok := g.cache.Get(key); ok {
		if matches, ok := cached.([]*gig.MatchResult); ok {
			return matches
		}
	}

	var matches []*gig.MatchResult
	if g.client != nil {
		remote, err := g.client.MatchingGigs(profile.ID, nil)
		if err != nil {
			g.logger.Warn("remote matching fetch failed, scoring locally", zap.Error(err))
		} else {
			matches = remote
		}
	}

	if matches == nil {
		matches = g.scorer.Rank(g.fetchGigs(), profile)
	}

	matches = filters.applyToMatches(matches, g.logger)
	g.cache.Put(key, matches)

	return matches
}

// SearchGigs runs a free-text search over title, description and skills.
func (g *Gateway) SearchGigs(query string, filters Filters) []*gig.Gig {
	key := filters.CacheKey("search|" + strings.ToLower(query))
	if cached, ok := g.cache.Get(key); ok {
		if gigs, ok := cached.([]*gig.Gig); ok {
			return gigs
		}
	}

	var gigs []*gig.Gig
	if g.client != nil {
		remote, err := g.client.SearchGigs(query, nil)
		if err != nil {
			g.logger.Warn("remote search failed, searching fallback dataset", zap.Error(err))
		} else {
			gigs = remote
		}
	}

	if gigs == nil {
		gigs = searchLocal(g.fallback, query)
	}

	gigs = filters.applyToGigs(gigs, g.logger)
	g.cache.Put(key, gigs)

	return gigs
}

// GetGigByID returns a single gig; ok is false when it exists nowhere.
func (g *Gateway) GetGigByID(id string) (*gig.Gig, bool) {
	key := "gig|" + id
	if cached, ok := g.cache.Get(key); ok {
		if found, ok := cached.(*gig.Gig); ok {
			return found, true
		}
	}

	if g.client != nil {
		remote, err := g.client.GigByID(id)
		if err != nil {
			g.logger.Warn("remote gig fetch failed, checking fallback dataset",
				zap.String("gig_id", id),
				zap.Error(err),
			)
		} else if remote != nil {
			g.cache.Put(key, remote)
			return remote, true
		}
	}

	for _, fallback := range g.fallback {
		if fallback.ID == id {
			g.cache.Put(key, fallback)
			return fallback, true
		}
	}

	return nil, false
}

// fetchGigs is the shared cold path: remote feed, or the fallback dataset
// when the remote fails or no client is configured.
func (g *Gateway) fetchGigs() []*gig.Gig {
	if g.client == nil {
		return g.fallback
	}

	gigs, err := g.client.Gigs(nil)
	if err != nil {
		g.logger.Warn("remote gig fetch failed, serving fallback dataset", zap.Error(err))
		return g.fallback
	}

	return gigs
}

func searchLocal(gigs []*gig.Gig, query string) []*gig.Gig {
	query = strings.ToLower(query)

	var found []*gig.Gig
	for _, g := range gigs {
		if strings.Contains(strings.ToLower(g.Title), query) ||
			strings.Contains(strings.ToLower(g.Description), query) ||
			skillsOverlap(g.SkillsRequired, []string{query}) {
			found = append(found, g)
		}
	}
	return found
}
