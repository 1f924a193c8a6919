package gig

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Known platform identifiers as delivered by the job boards.
const (
	PlatformUpwork     = "upwork"
	PlatformFiverr     = "fiverr"
	PlatformToptal     = "toptal"
	PlatformFreelancer = "freelancer"
)

// Gig is a single posting ingested from an external job board. Once built by
// the catalog source it is never mutated.
type Gig struct {
	ID             string   `json:"id,omitempty"`
	ExternalID     string   `json:"externalId,omitempty"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Platform       string   `json:"platform,omitempty"`
	SkillsRequired []string `json:"skillsRequired,omitempty"`
	URL            string   `json:"url,omitempty"`
	PostedDate     string   `json:"postedDate,omitempty"`
	Location       string   `json:"location,omitempty"`
	Budget         string   `json:"budget,omitempty"`
	Duration       string   `json:"duration,omitempty"`
}

// MatchResult is a Gig with the derived compatibility score attached.
type MatchResult struct {
	Gig
	Score int `json:"match"`
}

type Gigs struct {
	Items []*Gig
}

func (g *Gigs) Len() int {
	return len(g.Items)
}

func (g *Gigs) FindByID(id string) *Gig {
	for _, item := range g.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// ReportByPlatform groups a short summary of every gig under its platform name.
func (g *Gigs) ReportByPlatform() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, item := range g.Items {
		report[item.Platform] = append(report[item.Platform], map[string]string{
			"title":    item.Title,
			"url":      item.URL,
			"location": item.Location,
			"budget":   item.Budget,
			"duration": item.Duration,
			"posted":   item.PostedDate,
		})
	}
	return report
}

func (g *Gigs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "gigs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// postedDateLayouts lists the formats job boards use for posting timestamps.
var postedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
}

// ParsePostedDate parses a posting date in any supported layout. The second
// return value is false when the value is empty or unrecognized.
func ParsePostedDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (g *Gig) String() string {
	return fmt.Sprintf("%s (%s, %s)", g.Title, g.Platform, g.Budget)
}
