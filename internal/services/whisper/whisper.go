// Package whisper shells out to a whisper CLI for speech-to-text.
package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"podmill/internal/services"
)

const stageName = "transcribe"

// Config captures runtime settings for transcription.
type Config struct {
	Binary   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Segment is one timed span of recognized speech.
type Segment struct {
	Start   float64
	End     float64
	Speaker string
	Text    string
}

// Service runs whisper transcriptions.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper"
	}
	if cfg.Model == "" {
		cfg.Model = "base"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// whisperOutput mirrors the JSON document the whisper CLI writes alongside
// the audio file.
type whisperOutput struct {
	Text     string `json:"text"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Speaker string  `json:"speaker"`
		Text    string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs whisper over the audio file, writing its JSON output into
// workDir, and returns the parsed segments in order.
func (s *Service) Transcribe(ctx context.Context, audioPath, workDir string) ([]Segment, error) {
	if strings.TrimSpace(audioPath) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "transcribe", "audio path required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, stageName, "transcribe", audioPath, err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "transcribe", "create work directory", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_format", "json",
		"--output_dir", workDir,
	}
	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}

	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, services.Wrap(services.ErrTimeout, stageName, "transcribe", s.cfg.Binary, err)
		}
		return nil, services.Wrap(services.ErrExternalTool, stageName, "transcribe", s.cfg.Binary, err)
	}

	return s.parseOutput(audioPath, workDir)
}

func (s *Service) parseOutput(audioPath, workDir string) ([]Segment, error) {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	outputPath := filepath.Join(workDir, base+".json")

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "parse output", outputPath, err)
	}

	var output whisperOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, stageName, "parse output", "decode json", err)
	}
	if len(output.Segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "parse output", "transcript has no segments", nil)
	}

	segments := make([]Segment, 0, len(output.Segments))
	for _, seg := range output.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:   seg.Start,
			End:     seg.End,
			Speaker: strings.TrimSpace(seg.Speaker),
			Text:    text,
		})
	}
	if len(segments) == 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "parse output", "transcript has no usable text", nil)
	}
	return segments, nil
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
