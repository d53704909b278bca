package pipeline

import (
	"context"
	"testing"
	"time"

	"podmill/internal/services/llm"
	"podmill/internal/services/whisper"
	"podmill/internal/store"
	"podmill/internal/testsupport"
)

type stubFetcher struct {
	path string
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context, episodeID int64, audioURL string) (string, error) {
	return s.path, s.err
}

type stubTranscriber struct {
	segments []whisper.Segment
	err      error
}

func (s stubTranscriber) Transcribe(ctx context.Context, audioPath, workDir string) ([]whisper.Segment, error) {
	return s.segments, s.err
}

func (s stubTranscriber) Model() string { return "stub" }

type stubSummarizer struct {
	summary llm.Summary
	err     error
}

func (s stubSummarizer) Summarize(ctx context.Context, transcript string) (llm.Summary, error) {
	return s.summary, s.err
}

func (s stubSummarizer) Model() string { return "stub-model" }

func newHandlerFixture(t *testing.T) (*store.Store, *store.Episode) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	podcast := testsupport.NewPodcast(t, st, "Handler Show", "https://example.com/handlers.xml")
	episode := testsupport.NewEpisode(t, st, podcast.ID, "h-1", "Handled", time.Now().UTC())
	return st, episode
}

func TestDownloadHandlerRecordsAudioPath(t *testing.T) {
	st, episode := newHandlerFixture(t)
	ctx := context.Background()

	handler := NewDownloadHandler(st, stubFetcher{path: "/tmp/episode-1.wav"})
	if err := handler.Execute(ctx, episode); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	got, err := st.EpisodeByID(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AudioPath != "/tmp/episode-1.wav" {
		t.Fatalf("audio path = %q", got.AudioPath)
	}
}

func TestTranscribeHandlerStoresSegments(t *testing.T) {
	st, episode := newHandlerFixture(t)
	ctx := context.Background()

	if err := st.SetAudioPath(ctx, episode.ID, "/tmp/audio.wav"); err != nil {
		t.Fatal(err)
	}
	episode, err := st.EpisodeByID(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}

	handler := NewTranscribeHandler(st, stubTranscriber{segments: []whisper.Segment{
		{Start: 0, End: 2, Speaker: "Host", Text: "Welcome back."},
		{Start: 2, End: 5, Text: "Thanks for having me."},
	}}, t.TempDir())
	if err := handler.Execute(ctx, episode); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	transcript, err := st.TranscriptForEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 2 || transcript[0].Speaker != "Host" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
}

func TestTranscribeHandlerRequiresAudioPath(t *testing.T) {
	st, episode := newHandlerFixture(t)

	handler := NewTranscribeHandler(st, stubTranscriber{}, t.TempDir())
	if err := handler.Execute(context.Background(), episode); err == nil {
		t.Fatal("expected error for missing audio path")
	}
}

func TestDigestHandlerStoresSummary(t *testing.T) {
	st, episode := newHandlerFixture(t)
	ctx := context.Background()

	if err := st.ReplaceTranscript(ctx, episode.ID, []store.Segment{
		{EpisodeID: episode.ID, Text: "We talked about databases."},
	}); err != nil {
		t.Fatal(err)
	}

	handler := NewDigestHandler(st, stubSummarizer{summary: llm.Summary{
		KeyTopics: []string{"databases"},
		Summary:   "An episode about databases.",
	}})
	if err := handler.Execute(ctx, episode); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	summary, err := st.SummaryForEpisode(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Summary != "An episode about databases." || summary.Model != "stub-model" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestDigestHandlerRequiresTranscript(t *testing.T) {
	st, episode := newHandlerFixture(t)

	handler := NewDigestHandler(st, stubSummarizer{})
	if err := handler.Execute(context.Background(), episode); err == nil {
		t.Fatal("expected error for missing transcript")
	}
}
