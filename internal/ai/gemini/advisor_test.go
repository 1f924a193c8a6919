package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/gigflow/gigwatch/internal/gig"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testMatch() *gig.MatchResult {
	return &gig.MatchResult{
		Gig:   gig.Gig{ID: "gig-1", Title: "React Dashboard Development"},
		Score: 85,
	}
}

func TestAssessParsesResponse(t *testing.T) {
	gen := &stubGenerator{
		response: `{"fit": true, "score": 8.5, "reason": "strong skill overlap", "message": "Hi, I can help."}`,
	}
	advisor := NewAdvisor(gen, zap.NewNop(), 0, 0)

	got, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if !got.Fit || got.Score != 8.5 {
		t.Fatalf("unexpected assessment: %+v", got)
	}
	if got.Reason != "strong skill overlap" || got.Message != "Hi, I can help." {
		t.Fatalf("unexpected assessment text: %+v", got)
	}
	if got.Raw != gen.response {
		t.Fatal("raw response not preserved")
	}
}

func TestAssessStripsCodeFences(t *testing.T) {
	gen := &stubGenerator{
		response: "```json\n{\"fit\": true, \"score\": 7}\n```",
	}
	advisor := NewAdvisor(gen, zap.NewNop(), 0, 0)

	got, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !got.Fit || got.Score != 7 {
		t.Fatalf("unexpected assessment: %+v", got)
	}
}

func TestAssessScoreThresholdOverridesFit(t *testing.T) {
	gen := &stubGenerator{
		response: `{"fit": true, "score": 4}`,
	}
	advisor := NewAdvisor(gen, zap.NewNop(), 6, 0)

	got, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if got.Fit {
		t.Fatal("fit should be forced to false below the score threshold")
	}
}

func TestAssessCoercesStringFields(t *testing.T) {
	gen := &stubGenerator{
		response: `{"fit": "yes", "score": "7.5", "reason": "  ok  "}`,
	}
	advisor := NewAdvisor(gen, zap.NewNop(), 0, 0)

	got, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch())
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if !got.Fit || got.Score != 7.5 || got.Reason != "ok" {
		t.Fatalf("unexpected assessment: %+v", got)
	}
}

func TestAssessPropagatesGeneratorError(t *testing.T) {
	wantErr := errors.New("quota exceeded")
	advisor := NewAdvisor(&stubGenerator{err: wantErr}, zap.NewNop(), 0, 0)

	if _, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch()); !errors.Is(err, wantErr) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestAssessRejectsUnparsableResponse(t *testing.T) {
	advisor := NewAdvisor(&stubGenerator{response: "I think it is a great fit!"}, zap.NewNop(), 0, 0)

	if _, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, testMatch()); err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
}

func TestAssessRequiresProfileAndMatch(t *testing.T) {
	advisor := NewAdvisor(&stubGenerator{}, zap.NewNop(), 0, 0)

	if _, err := advisor.Assess(context.Background(), nil, testMatch()); err == nil {
		t.Fatal("expected an error for a nil profile")
	}
	if _, err := advisor.Assess(context.Background(), &gig.UserProfile{ID: "user-1"}, nil); err == nil {
		t.Fatal("expected an error for a nil match")
	}
}

func TestPromptEmbedsProfileAndGig(t *testing.T) {
	gen := &stubGenerator{response: `{"fit": true, "score": 9}`}
	advisor := NewAdvisor(gen, zap.NewNop(), 0, 0)

	profile := &gig.UserProfile{ID: "user-1", Skills: []string{"React"}}
	if _, err := advisor.Assess(context.Background(), profile, testMatch()); err != nil {
		t.Fatalf("Assess: %v", err)
	}

	if !strings.Contains(gen.prompt, "user-1") || !strings.Contains(gen.prompt, "React Dashboard Development") {
		t.Fatal("prompt does not embed profile and gig payloads")
	}
	if strings.Contains(gen.prompt, "{{PROFILE_JSON}}") || strings.Contains(gen.prompt, "{{GIG_JSON}}") {
		t.Fatal("prompt placeholders were not substituted")
	}
}
