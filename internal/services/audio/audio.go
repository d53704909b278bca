// Package audio downloads episode audio and normalizes it for transcription.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"podmill/internal/services"
)

const stageName = "download"

// Config captures runtime settings for audio acquisition.
type Config struct {
	AudioDir        string
	Format          string
	SampleRate      int
	DownloadTimeout time.Duration
	FFmpegBinary    string
}

// Service downloads and normalizes episode audio.
type Service struct {
	cfg           Config
	httpClient    *http.Client
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates an audio service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Format == "" {
		cfg.Format = "wav"
	}
	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient overrides the download client (for testing).
func (s *Service) WithHTTPClient(client *http.Client) {
	if client != nil {
		s.httpClient = client
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Fetch downloads the episode audio and normalizes it to mono at the
// configured sample rate with loudness normalization. It returns the local
// path of the normalized file.
func (s *Service) Fetch(ctx context.Context, episodeID int64, audioURL string) (string, error) {
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return "", services.Wrap(services.ErrValidation, stageName, "fetch", "episode has no audio url", nil)
	}
	if err := os.MkdirAll(s.cfg.AudioDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "fetch", "create audio directory", err)
	}

	rawPath := filepath.Join(s.cfg.AudioDir, fmt.Sprintf("episode-%d.raw", episodeID))
	if err := s.download(ctx, audioURL, rawPath); err != nil {
		return "", err
	}
	defer os.Remove(rawPath)

	normalizedPath := filepath.Join(s.cfg.AudioDir, fmt.Sprintf("episode-%d.%s", episodeID, s.cfg.Format))
	if err := s.normalize(ctx, rawPath, normalizedPath); err != nil {
		return "", err
	}
	return normalizedPath, nil
}

func (s *Service) download(ctx context.Context, audioURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "download", audioURL, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "download", audioURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, stageName, "download", fmt.Sprintf("http %d from %s", resp.StatusCode, audioURL), nil)
	}

	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "download", "create temp file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrTransient, stageName, "download", "copy response body", err)
	}
	return nil
}

func (s *Service) normalize(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(s.cfg.SampleRate),
		"-af", "loudnorm",
	}
	switch s.cfg.Format {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "4")
	default:
		args = append(args, "-c:a", "pcm_s16le")
	}
	args = append(args, dest)

	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		_ = os.Remove(dest)
		return services.Wrap(services.ErrExternalTool, stageName, "normalize", "ffmpeg", err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
