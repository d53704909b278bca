package testsupport

import (
	"context"
	"testing"
	"time"

	"podmill/internal/config"
	"podmill/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewPodcast registers a podcast for tests using the provided store.
func NewPodcast(t testing.TB, st *store.Store, name, feedURL string) *store.Podcast {
	t.Helper()

	podcast, err := st.AddPodcast(context.Background(), name, feedURL, "")
	if err != nil {
		t.Fatalf("store.AddPodcast: %v", err)
	}
	return podcast
}

// NewEpisode registers an episode for tests and returns the stored row.
func NewEpisode(t testing.TB, st *store.Store, podcastID int64, guid, title string, publishedAt time.Time) *store.Episode {
	t.Helper()

	episode, _, err := st.UpsertEpisode(context.Background(), podcastID, store.EpisodeMeta{
		GUID:        guid,
		Title:       title,
		AudioURL:    "https://example.com/audio/" + guid + ".mp3",
		PublishedAt: &publishedAt,
	})
	if err != nil {
		t.Fatalf("store.UpsertEpisode: %v", err)
	}
	return episode
}

// AdvanceTo walks an episode through legal transitions until it reaches the
// target status.
func AdvanceTo(t testing.TB, st *store.Store, episodeID int64, target store.Status) {
	t.Helper()

	path := map[store.Status][]store.Status{
		store.StatusDownloaded:  {store.StatusDownloaded},
		store.StatusTranscribed: {store.StatusDownloaded, store.StatusTranscribed},
		store.StatusDigested:    {store.StatusDownloaded, store.StatusTranscribed, store.StatusDigested},
	}
	steps, ok := path[target]
	if !ok {
		t.Fatalf("no advancement path to %s", target)
	}
	episode, err := st.EpisodeByID(context.Background(), episodeID)
	if err != nil {
		t.Fatalf("store.EpisodeByID: %v", err)
	}
	for _, next := range steps {
		if episode.Status == next {
			continue
		}
		if store.CanTransition(episode.Status, next) {
			if err := st.SetStatus(context.Background(), episodeID, next); err != nil {
				t.Fatalf("store.SetStatus(%s): %v", next, err)
			}
			episode.Status = next
		}
	}
}
