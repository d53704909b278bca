package store

import (
	"fmt"
	"strings"
	"time"
)

// Podcast represents a subscribed feed persisted in SQLite.
type Podcast struct {
	ID        int64
	Name      string
	FeedURL   string
	Category  string
	CreatedAt time.Time
}

// Episode represents one feed item and its processing state.
type Episode struct {
	ID              int64
	PodcastID       int64
	GUID            string
	Title           string
	AudioURL        string
	PublishedAt     *time.Time
	DurationSeconds int64
	AudioPath       string
	Status          Status
	ErrorMessage    string
	ErrorCount      int64
	LastErrorAt     *time.Time
	LeaseToken      string
	LeaseStage      string
	LeaseAcquiredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Leased reports whether the episode currently carries a lease.
func (e *Episode) Leased() bool {
	return e.LeaseToken != ""
}

// Segment is one timed span of a transcript.
type Segment struct {
	ID           int64
	EpisodeID    int64
	Seq          int
	StartSeconds float64
	EndSeconds   float64
	Speaker      string
	Text         string
}

// Transcript is an ordered collection of segments for one episode.
type Transcript []Segment

// PlainText joins segment text into a single readable block.
func (t Transcript) PlainText() string {
	parts := make([]string, 0, len(t))
	for _, seg := range t {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if seg.Speaker != "" {
			text = seg.Speaker + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n")
}

// SRT renders the transcript in SubRip subtitle format.
func (t Transcript) SRT() string {
	var b strings.Builder
	for i, seg := range t {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			srtTimestamp(seg.StartSeconds),
			srtTimestamp(seg.EndSeconds),
			strings.TrimSpace(seg.Text),
		)
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// Summary holds the structured digest generated for one episode.
type Summary struct {
	EpisodeID int64
	KeyTopics []string
	Themes    []string
	Quotes    []string
	Startups  []string
	Summary   string
	Model     string
	CreatedAt time.Time
}

// SummaryRow joins a summary with its episode and podcast titles for export.
type SummaryRow struct {
	Summary
	EpisodeTitle string
	PodcastName  string
	PublishedAt  *time.Time
}

// DraftCycle is one audit record of the grade-and-revise loop.
type DraftCycle struct {
	ID        int64
	RequestID string
	Iteration int
	Draft     string
	Score     float64
	Feedback  string
	CreatedAt time.Time
}

// EpisodeError summarizes recorded failures for the errors command.
type EpisodeError struct {
	EpisodeID    int64
	EpisodeTitle string
	PodcastName  string
	Status       Status
	ErrorMessage string
	ErrorCount   int64
	LastErrorAt  *time.Time
}

// HealthSummary describes aggregated episode counts per key lifecycle states.
type HealthSummary struct {
	Total    int
	Pending  int
	InFlight int
	Failed   int
	Digested int
}
