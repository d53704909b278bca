package pipeline

import (
	"context"

	"podmill/internal/services"
	"podmill/internal/services/llm"
	"podmill/internal/services/whisper"
	"podmill/internal/store"
)

// AudioFetcher downloads and normalizes episode audio.
type AudioFetcher interface {
	Fetch(ctx context.Context, episodeID int64, audioURL string) (string, error)
}

// Transcriber converts normalized audio into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string) ([]whisper.Segment, error)
	Model() string
}

// Summarizer produces a structured digest from transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (llm.Summary, error)
	Model() string
}

// DownloadHandler fetches episode audio and records the local path.
type DownloadHandler struct {
	store *store.Store
	audio AudioFetcher
}

// NewDownloadHandler builds the download stage handler.
func NewDownloadHandler(st *store.Store, audio AudioFetcher) *DownloadHandler {
	return &DownloadHandler{store: st, audio: audio}
}

func (h *DownloadHandler) Execute(ctx context.Context, episode *store.Episode) error {
	path, err := h.audio.Fetch(ctx, episode.ID, episode.AudioURL)
	if err != nil {
		return err
	}
	return h.store.SetAudioPath(ctx, episode.ID, path)
}

// TranscribeHandler runs speech-to-text over downloaded audio and stores the
// transcript.
type TranscribeHandler struct {
	store       *store.Store
	transcriber Transcriber
	workDir     string
}

// NewTranscribeHandler builds the transcribe stage handler. workDir receives
// the transcriber's intermediate output files.
func NewTranscribeHandler(st *store.Store, transcriber Transcriber, workDir string) *TranscribeHandler {
	return &TranscribeHandler{store: st, transcriber: transcriber, workDir: workDir}
}

func (h *TranscribeHandler) Execute(ctx context.Context, episode *store.Episode) error {
	if episode.AudioPath == "" {
		return services.Wrap(services.ErrValidation, "transcribe", "execute", "episode has no audio path", nil)
	}
	parsed, err := h.transcriber.Transcribe(ctx, episode.AudioPath, h.workDir)
	if err != nil {
		return err
	}
	segments := make([]store.Segment, 0, len(parsed))
	for _, seg := range parsed {
		segments = append(segments, store.Segment{
			EpisodeID:    episode.ID,
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Speaker:      seg.Speaker,
			Text:         seg.Text,
		})
	}
	return h.store.ReplaceTranscript(ctx, episode.ID, segments)
}

// DigestHandler summarizes a transcript into a structured digest.
type DigestHandler struct {
	store      *store.Store
	summarizer Summarizer
}

// NewDigestHandler builds the digest stage handler.
func NewDigestHandler(st *store.Store, summarizer Summarizer) *DigestHandler {
	return &DigestHandler{store: st, summarizer: summarizer}
}

func (h *DigestHandler) Execute(ctx context.Context, episode *store.Episode) error {
	transcript, err := h.store.TranscriptForEpisode(ctx, episode.ID)
	if err != nil {
		return err
	}
	if len(transcript) == 0 {
		return services.Wrap(services.ErrValidation, "digest", "execute", "episode has no transcript", nil)
	}

	summary, err := h.summarizer.Summarize(ctx, transcript.PlainText())
	if err != nil {
		return err
	}
	return h.store.ReplaceSummary(ctx, store.Summary{
		EpisodeID: episode.ID,
		KeyTopics: summary.KeyTopics,
		Themes:    summary.Themes,
		Quotes:    summary.Quotes,
		Startups:  summary.Startups,
		Summary:   summary.Summary,
		Model:     h.summarizer.Model(),
	})
}
