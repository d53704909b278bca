package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"podmill/internal/store"
	"podmill/internal/testsupport"
)

func newRunner(t *testing.T) (*Runner, *store.Store, int64) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	podcast := testsupport.NewPodcast(t, st, "Runner Show", "https://example.com/runner.xml")
	return NewRunner(st, nil, 30*time.Minute), st, podcast.ID
}

func TestRunStageProcessesReadyEpisodes(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	older := testsupport.NewEpisode(t, st, podcastID, "ep-1", "Older", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testsupport.NewEpisode(t, st, podcastID, "ep-2", "Newer", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	var order []int64
	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		order = append(order, episode.ID)
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 2 || report.Failed != 0 || report.Skipped != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(order) != 2 || order[0] != older.ID || order[1] != newer.ID {
		t.Fatalf("expected oldest-first order, got %v", order)
	}

	for _, id := range []int64{older.ID, newer.ID} {
		episode, err := st.EpisodeByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if episode.Status != store.StatusDownloaded {
			t.Fatalf("episode %d status = %s, want downloaded", id, episode.Status)
		}
		if episode.Leased() {
			t.Fatalf("episode %d still leased after run", id)
		}
	}
}

func TestRunStageRerunSkipsCompletedWithoutHandler(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, st, podcastID, "ep-done", "Done", time.Now().UTC())
	testsupport.AdvanceTo(t, st, episode.ID, store.StatusDownloaded)

	var calls atomic.Int64
	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		calls.Add(1)
		return nil
	}), Options{EpisodeID: episode.ID, Force: true})
	if err != nil {
		t.Fatalf("forced rerun error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("forced rerun report: %+v", report)
	}
	if calls.Load() != 1 {
		t.Fatalf("forced rerun should invoke handler once, got %d", calls.Load())
	}

	// Without Force the downloaded episode is reported skipped and the
	// handler never runs.
	calls.Store(0)
	report, err = runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		calls.Add(1)
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("rerun error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("handler invoked for completed episode without force")
	}
	if report.Succeeded != 0 || report.Failed != 0 || report.Skipped != 1 {
		t.Fatalf("rerun report: %+v", report)
	}

	// Naming the completed episode directly is a skip too, not an error.
	report, err = runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		calls.Add(1)
		return nil
	}), Options{EpisodeID: episode.ID})
	if err != nil {
		t.Fatalf("single-episode rerun error: %v", err)
	}
	if calls.Load() != 0 || report.Skipped != 1 {
		t.Fatalf("single-episode rerun report: %+v (calls=%d)", report, calls.Load())
	}
}

func TestRunStageReportsCompletedAsSkipped(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	done := testsupport.NewEpisode(t, st, podcastID, "s-1", "Already Done", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	ready := testsupport.NewEpisode(t, st, podcastID, "s-2", "Ready", time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC))
	behind := testsupport.NewEpisode(t, st, podcastID, "s-3", "Behind", time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC))
	testsupport.AdvanceTo(t, st, done.ID, store.StatusDigested)
	testsupport.AdvanceTo(t, st, ready.ID, store.StatusTranscribed)

	var calls atomic.Int64
	report, err := runner.RunStage(ctx, StageDigest, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		if episode.ID != ready.ID {
			t.Errorf("handler ran for episode %d", episode.ID)
		}
		calls.Add(1)
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 1 || report.Failed != 0 || report.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if calls.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", calls.Load())
	}
	if len(report.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", report.Outcomes)
	}
	for _, outcome := range report.Outcomes {
		if outcome.EpisodeID == done.ID {
			if outcome.Kind != OutcomeSkipped || outcome.Reason != "already digested" {
				t.Fatalf("unexpected outcome for completed episode: %+v", outcome)
			}
		}
	}

	// Only the transcribed episode's status changes; the episode not yet at
	// this stage is never selected.
	for id, want := range map[int64]store.Status{
		done.ID:   store.StatusDigested,
		ready.ID:  store.StatusDigested,
		behind.ID: store.StatusDiscovered,
	} {
		episode, err := st.EpisodeByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if episode.Status != want {
			t.Fatalf("episode %d status = %s, want %s", id, episode.Status, want)
		}
	}
}

func TestRunStageFailureDoesNotAbortBatch(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	good1 := testsupport.NewEpisode(t, st, podcastID, "d-1", "First", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	bad := testsupport.NewEpisode(t, st, podcastID, "d-2", "Broken", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	good2 := testsupport.NewEpisode(t, st, podcastID, "d-3", "Third", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))
	for _, episode := range []*store.Episode{good1, bad, good2} {
		testsupport.AdvanceTo(t, st, episode.ID, store.StatusTranscribed)
	}

	report, err := runner.RunStage(ctx, StageDigest, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		if episode.ID == bad.ID {
			return errors.New("model refused")
		}
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	failed, err := st.EpisodeByID(ctx, bad.ID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != store.StatusDigestingFailed {
		t.Fatalf("failed episode status = %s", failed.Status)
	}
	if failed.ErrorMessage == "" || failed.ErrorCount != 1 {
		t.Fatalf("expected error bookkeeping, got %+v", failed)
	}
	if failed.Leased() {
		t.Fatal("failed episode still leased")
	}

	for _, id := range []int64{good1.ID, good2.ID} {
		episode, err := st.EpisodeByID(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if episode.Status != store.StatusDigested {
			t.Fatalf("episode %d status = %s, want digested", id, episode.Status)
		}
	}
}

func TestRunStageSkipsLeasedEpisode(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, st, podcastID, "leased", "In Flight", time.Now().UTC())
	if _, err := st.AcquireLease(ctx, episode.ID, "download"); err != nil {
		t.Fatal(err)
	}

	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		t.Fatal("handler must not run for a leased episode")
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Skipped != 1 || report.Succeeded != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunStageReclaimsStaleLeaseAndRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	podcast := testsupport.NewPodcast(t, st, "Crash Show", "https://example.com/crash.xml")
	runner := NewRunner(st, nil, time.Millisecond)
	ctx := context.Background()

	episode := testsupport.NewEpisode(t, st, podcast.ID, "crashed", "Crashed", time.Now().UTC())
	if _, err := st.AcquireLease(ctx, episode.ID, "download"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		return nil
	}), Options{})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 1 {
		t.Fatalf("expected stale lease reclaim and retry, got %+v", report)
	}

	got, err := st.EpisodeByID(ctx, episode.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusDownloaded || got.Leased() {
		t.Fatalf("unexpected episode state: %+v", got)
	}
}

func TestRunStageLimit(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	for i, guid := range []string{"l-1", "l-2", "l-3"} {
		testsupport.NewEpisode(t, st, podcastID, guid, guid, time.Date(2026, 4, i+1, 0, 0, 0, 0, time.UTC))
	}

	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		return nil
	}), Options{Limit: 2})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 2 {
		t.Fatalf("expected limit of 2, got %+v", report)
	}
}

func TestRunStageConcurrent(t *testing.T) {
	runner, st, podcastID := newRunner(t)
	ctx := context.Background()

	for i := range 6 {
		testsupport.NewEpisode(t, st, podcastID, string(rune('a'+i)), "Episode", time.Date(2026, 5, i+1, 0, 0, 0, 0, time.UTC))
	}

	var calls atomic.Int64
	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		calls.Add(1)
		return nil
	}), Options{Concurrency: 3})
	if err != nil {
		t.Fatalf("RunStage returned error: %v", err)
	}
	if report.Succeeded != 6 || calls.Load() != 6 {
		t.Fatalf("unexpected report: %+v (calls=%d)", report, calls.Load())
	}
}

func TestRunStageHonorsCancellation(t *testing.T) {
	runner, st, podcastID := newRunner(t)

	for i, guid := range []string{"c-1", "c-2", "c-3"} {
		testsupport.NewEpisode(t, st, podcastID, guid, guid, time.Date(2026, 6, i+1, 0, 0, 0, 0, time.UTC))
	}

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int64
	report, err := runner.RunStage(ctx, StageDownload, HandlerFunc(func(ctx context.Context, episode *store.Episode) error {
		calls.Add(1)
		cancel()
		return nil
	}), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected run to stop after cancellation, handler ran %d times", calls.Load())
	}
	if report.Succeeded != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// The finished episode keeps its transition; the rest stay eligible.
	remaining, err := st.EpisodesByStatus(context.Background(), store.StatusDiscovered)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 untouched episodes, got %d", len(remaining))
	}
}

func TestParseStage(t *testing.T) {
	for _, name := range []string{"download", "transcribe", "digest"} {
		stage, ok := ParseStage(name)
		if !ok || stage.String() != name {
			t.Fatalf("ParseStage(%q) = %v, %v", name, stage, ok)
		}
	}
	if _, ok := ParseStage("publish"); ok {
		t.Fatal("expected unknown stage to be rejected")
	}
}
