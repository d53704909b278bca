package export

import (
	"encoding/json"
	"fmt"
	"time"
)

type jsonDocument struct {
	Title    string        `json:"title"`
	From     time.Time     `json:"from"`
	To       time.Time     `json:"to"`
	Podcasts []jsonPodcast `json:"podcasts"`
}

type jsonPodcast struct {
	Name     string        `json:"name"`
	Episodes []jsonEpisode `json:"episodes"`
}

type jsonEpisode struct {
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	KeyTopics   []string   `json:"key_topics,omitempty"`
	Themes      []string   `json:"themes,omitempty"`
	Quotes      []string   `json:"quotes,omitempty"`
	Startups    []string   `json:"startups,omitempty"`
	Summary     string     `json:"summary"`
	Model       string     `json:"model,omitempty"`
}

func renderJSON(digest Digest) ([]byte, error) {
	doc := jsonDocument{
		Title:    digest.Title(),
		From:     digest.From.UTC(),
		To:       digest.To.UTC(),
		Podcasts: []jsonPodcast{},
	}
	for _, group := range groupByPodcast(digest.Rows) {
		podcast := jsonPodcast{Name: group.Name}
		for _, row := range group.Episodes {
			podcast.Episodes = append(podcast.Episodes, jsonEpisode{
				Title:       row.EpisodeTitle,
				PublishedAt: row.PublishedAt,
				KeyTopics:   row.KeyTopics,
				Themes:      row.Themes,
				Quotes:      row.Quotes,
				Startups:    row.Startups,
				Summary:     row.Summary.Summary,
				Model:       row.Model,
			})
		}
		doc.Podcasts = append(doc.Podcasts, podcast)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	return append(data, '\n'), nil
}
