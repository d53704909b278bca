package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podmill/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndUsesEnvKey(t *testing.T) {
	t.Setenv("PODMILL_LLM_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "podmill")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.AudioDir != filepath.Join(wantData, "audio") {
		t.Fatalf("unexpected audio dir: %q", cfg.Paths.AudioDir)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Fetch.AudioFormat != "wav" {
		t.Fatalf("unexpected audio format: %q", cfg.Fetch.AudioFormat)
	}
	if cfg.Fetch.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate: %d", cfg.Fetch.SampleRate)
	}
	if cfg.Writer.TargetGrade != 91.0 {
		t.Fatalf("unexpected target grade: %v", cfg.Writer.TargetGrade)
	}
	if cfg.Writer.MaxIterations != 3 {
		t.Fatalf("unexpected max iterations: %d", cfg.Writer.MaxIterations)
	}
	if cfg.Pipeline.LeaseTimeout != config.Default().Pipeline.LeaseTimeout {
		t.Fatalf("unexpected lease timeout: %d", cfg.Pipeline.LeaseTimeout)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "podmill.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.AudioDir, cfg.Paths.LogDir, cfg.Paths.ExportDir, cfg.Paths.PostsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podmill.toml")

	type payload struct {
		Feeds []struct {
			Name string `toml:"name"`
			URL  string `toml:"url"`
		} `toml:"feeds"`
		Whisper struct {
			Model string `toml:"model"`
		} `toml:"whisper"`
		Writer struct {
			TargetGrade   float64 `toml:"target_grade"`
			MaxIterations int     `toml:"max_iterations"`
		} `toml:"writer"`
	}
	custom := payload{}
	custom.Feeds = append(custom.Feeds, struct {
		Name string `toml:"name"`
		URL  string `toml:"url"`
	}{Name: "Test Show", URL: "https://example.com/feed.xml"})
	custom.Whisper.Model = "large-v3"
	custom.Writer.TargetGrade = 85
	custom.Writer.MaxIterations = 5
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].URL != "https://example.com/feed.xml" {
		t.Fatalf("unexpected feeds: %+v", cfg.Feeds)
	}
	if cfg.Whisper.Model != "large-v3" {
		t.Fatalf("expected whisper model override, got %q", cfg.Whisper.Model)
	}
	if cfg.Writer.TargetGrade != 85 {
		t.Fatalf("expected target grade 85, got %v", cfg.Writer.TargetGrade)
	}
	if cfg.Writer.MaxIterations != 5 {
		t.Fatalf("expected max iterations 5, got %d", cfg.Writer.MaxIterations)
	}
	if cfg.Fetch.MaxEpisodesPerFeed != config.Default().Fetch.MaxEpisodesPerFeed {
		t.Fatalf("expected default fetch limit, got %d", cfg.Fetch.MaxEpisodesPerFeed)
	}
}

func TestEnvVarOverridesConfigFileForAPIKey(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "podmill.toml")

	contents := "[llm]\napi_key = \"file-key\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("PODMILL_LLM_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_llm_api_key_here") {
		t.Fatalf("sample config missing placeholder LLM key: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Whisper.Binary != "whisper" {
		t.Fatalf("unexpected whisper binary in sample: %q", cfg.Whisper.Binary)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing feed url",
			mutate: func(c *config.Config) { c.Feeds = []config.Feed{{Name: "x"}} },
			want:   "feeds[0].url",
		},
		{
			name: "duplicate feed url",
			mutate: func(c *config.Config) {
				c.Feeds = []config.Feed{
					{Name: "a", URL: "https://example.com/f"},
					{Name: "b", URL: "https://example.com/f"},
				}
			},
			want: "more than once",
		},
		{
			name:   "bad audio format",
			mutate: func(c *config.Config) { c.Fetch.AudioFormat = "flac" },
			want:   "audio_format",
		},
		{
			name:   "zero download timeout",
			mutate: func(c *config.Config) { c.Fetch.DownloadTimeout = 0 },
			want:   "download_timeout",
		},
		{
			name:   "target grade out of range",
			mutate: func(c *config.Config) { c.Writer.TargetGrade = 150 },
			want:   "target_grade",
		},
		{
			name:   "zero iterations",
			mutate: func(c *config.Config) { c.Writer.MaxIterations = 0 },
			want:   "max_iterations",
		},
		{
			name:   "zero concurrency",
			mutate: func(c *config.Config) { c.Pipeline.Concurrency = 0 },
			want:   "concurrency",
		},
		{
			name:   "bad logging format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}
