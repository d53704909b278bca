package testsupport

import (
	"path/filepath"
	"testing"

	"podmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.AudioDir = filepath.Join(base, "audio")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "exports")
	cfgVal.Paths.PostsDir = filepath.Join(base, "posts")
	cfgVal.LLM.APIKey = "test"

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithFeeds sets the subscribed feeds on the test config.
func WithFeeds(feeds ...config.Feed) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feeds = feeds
	}
}

// WithWriter overrides the refinement loop settings on the test config.
func WithWriter(targetGrade float64, maxIterations int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Writer.TargetGrade = targetGrade
		b.cfg.Writer.MaxIterations = maxIterations
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
