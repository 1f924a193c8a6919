package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/cache"
	"github.com/gigflow/gigwatch/internal/gig"
	"github.com/gigflow/gigwatch/internal/matching"
)

func newTestGateway(t *testing.T, client *Client) *Gateway {
	t.Helper()

	gw, err := NewGateway(client, matching.NewScorer(zap.NewNop()), cache.New(time.Minute), zap.NewNop())
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	return gw
}

func newTestClient(baseURL string) *Client {
	return NewClient(context.Background(), zap.NewNop(), baseURL, "", time.Second)
}

func TestRemoteFailureServesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gw := newTestGateway(t, newTestClient(server.URL))

	gigs := gw.GetGigs(Filters{})
	if len(gigs) != 6 {
		t.Fatalf("expected the 6 fallback gigs, got %d", len(gigs))
	}
	if gigs[0].ID != "gig-1" {
		t.Fatalf("unexpected first gig: %s", gigs[0].ID)
	}
}

func TestOfflineModeServesFallback(t *testing.T) {
	gw := newTestGateway(t, nil)

	gigs := gw.GetGigs(Filters{})
	if len(gigs) != 6 {
		t.Fatalf("expected the 6 fallback gigs, got %d", len(gigs))
	}
}

func TestRemoteResultsAreCached(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		json.NewEncoder(w).Encode([]*gig.Gig{
			{ID: "remote-1", Title: "Remote Gig", Platform: gig.PlatformUpwork},
		})
	}))
	defer server.Close()

	gw := newTestGateway(t, newTestClient(server.URL))

	first := gw.GetGigs(Filters{})
	second := gw.GetGigs(Filters{})

	if requests != 1 {
		t.Fatalf("expected a single remote request, got %d", requests)
	}
	if len(first) != 1 || len(second) != 1 || second[0].ID != "remote-1" {
		t.Fatalf("unexpected results: first=%v second=%v", first, second)
	}
}

func TestDifferentFiltersBypassTheCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		json.NewEncoder(w).Encode([]*gig.Gig{})
	}))
	defer server.Close()

	gw := newTestGateway(t, newTestClient(server.URL))

	gw.GetGigs(Filters{Platform: gig.PlatformUpwork})
	gw.GetGigs(Filters{Platform: gig.PlatformFiverr})

	if requests != 2 {
		t.Fatalf("expected two remote requests for distinct filters, got %d", requests)
	}
}

func TestMatchingGigsScoredLocally(t *testing.T) {
	gw := newTestGateway(t, nil)

	profile := &gig.UserProfile{
		ID:     "user-1",
		Skills: []string{"React", "TypeScript"},
		Preferences: gig.Preferences{
			MinBudget: 1000,
			MaxBudget: 5000,
		},
	}

	matches := gw.GetMatchingGigs(profile, Filters{SortBy: SortByMatch})
	if len(matches) != 6 {
		t.Fatalf("expected all fallback gigs scored, got %d", len(matches))
	}
	if matches[0].ID != "gig-1" {
		t.Fatalf("expected the React gig first, got %s", matches[0].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Score < matches[i].Score {
			t.Fatalf("matches not sorted by score at %d: %d < %d", i, matches[i-1].Score, matches[i].Score)
		}
	}
}

func TestMatchingGigsMinScoreFilter(t *testing.T) {
	gw := newTestGateway(t, nil)

	profile := &gig.UserProfile{
		ID:     "user-1",
		Skills: []string{"React"},
	}

	matches := gw.GetMatchingGigs(profile, Filters{MinScore: 60})
	for _, m := range matches {
		if m.Score < 60 {
			t.Fatalf("gig %s with score %d slipped past the minimum", m.ID, m.Score)
		}
	}
}

func TestSearchFallsBackToLocalDataset(t *testing.T) {
	gw := newTestGateway(t, nil)

	byTitle := gw.SearchGigs("dashboard", Filters{})
	if len(byTitle) != 1 || byTitle[0].ID != "gig-1" {
		t.Fatalf("expected gig-1 for title search, got %v", byTitle)
	}

	bySkill := gw.SearchGigs("pandas", Filters{})
	if len(bySkill) != 1 || bySkill[0].ID != "gig-4" {
		t.Fatalf("expected gig-4 for skill search, got %v", bySkill)
	}

	if miss := gw.SearchGigs("blockchain", Filters{}); len(miss) != 0 {
		t.Fatalf("expected no results, got %v", miss)
	}
}

func TestGetGigByID(t *testing.T) {
	gw := newTestGateway(t, nil)

	found, ok := gw.GetGigByID("gig-3")
	if !ok || found.Title != "UI/UX Design for Mobile App" {
		t.Fatalf("expected gig-3, got %v (ok=%v)", found, ok)
	}

	if _, ok := gw.GetGigByID("gig-404"); ok {
		t.Fatal("expected a miss for an unknown id")
	}
}

func TestBudgetSortLeavesFallbackUntouched(t *testing.T) {
	gw := newTestGateway(t, nil)

	sorted := gw.GetGigs(Filters{SortBy: SortByBudget})
	if sorted[0].ID != "gig-3" {
		t.Fatalf("expected the highest-budget gig first, got %s", sorted[0].ID)
	}

	// The shared fallback slice must keep its original order.
	plain := gw.GetGigs(Filters{})
	if plain[0].ID != "gig-1" {
		t.Fatalf("fallback dataset was reordered, got %s first", plain[0].ID)
	}
}

func TestCacheKeyIsCanonical(t *testing.T) {
	a := Filters{Platform: "Upwork", Skills: []string{"React", "Go"}, MinScore: 50}
	b := Filters{Platform: "upwork", Skills: []string{"react", "go"}, MinScore: 50}

	if a.CacheKey("gigs") != b.CacheKey("gigs") {
		t.Fatalf("equivalent filters produced different keys: %q vs %q", a.CacheKey("gigs"), b.CacheKey("gigs"))
	}

	c := Filters{Platform: "upwork", Skills: []string{"react", "go"}, MinScore: 60}
	if a.CacheKey("gigs") == c.CacheKey("gigs") {
		t.Fatal("different filters produced the same key")
	}
}
