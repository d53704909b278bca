// Package feeds discovers episodes from podcast RSS and Atom feeds.
package feeds

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"podmill/internal/services"
)

// FeedEpisode is one playable item discovered in a feed.
type FeedEpisode struct {
	GUID        string
	Title       string
	AudioURL    string
	PublishedAt *time.Time
	Duration    int64
}

// Source fetches and parses podcast feeds.
type Source struct {
	parser *gofeed.Parser
}

// NewSource creates a feed source with a default parser.
func NewSource() *Source {
	return &Source{parser: gofeed.NewParser()}
}

// ListEpisodes fetches a feed and returns its playable episodes, newest
// first as published by the feed. Items without an audio enclosure are
// skipped; items without a GUID fall back to the audio URL as identity.
func (s *Source) ListEpisodes(ctx context.Context, feedURL string) ([]FeedEpisode, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "fetch", "parse feed", feedURL, err)
	}
	if feed == nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "parse feed", "empty feed document", nil)
	}

	episodes := make([]FeedEpisode, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		audioURL := audioEnclosure(item)
		if audioURL == "" {
			continue
		}
		episode := FeedEpisode{
			GUID:     strings.TrimSpace(item.GUID),
			Title:    strings.TrimSpace(item.Title),
			AudioURL: audioURL,
			Duration: itunesDuration(item),
		}
		if episode.GUID == "" {
			episode.GUID = audioURL
		}
		if episode.Title == "" {
			episode.Title = "Untitled episode"
		}
		if item.PublishedParsed != nil {
			published := item.PublishedParsed.UTC()
			episode.PublishedAt = &published
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}

// audioEnclosure returns the first enclosure with an audio MIME type, or the
// first enclosure at all when types are missing.
func audioEnclosure(item *gofeed.Item) string {
	var fallback string
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || strings.TrimSpace(enclosure.URL) == "" {
			continue
		}
		url := strings.TrimSpace(enclosure.URL)
		if strings.HasPrefix(strings.ToLower(enclosure.Type), "audio/") {
			return url
		}
		if fallback == "" {
			fallback = url
		}
	}
	return fallback
}

// itunesDuration parses the itunes:duration extension, which feeds publish as
// either plain seconds or HH:MM:SS.
func itunesDuration(item *gofeed.Item) int64 {
	if item.ITunesExt == nil {
		return 0
	}
	raw := strings.TrimSpace(item.ITunesExt.Duration)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return seconds
	}
	parts := strings.Split(raw, ":")
	var total int64
	for _, part := range parts {
		value, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		total = total*60 + value
	}
	return total
}
