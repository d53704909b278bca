package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedAudioFormats = map[string]struct{}{
	"wav": {},
	"mp3": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateWriter(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeeds() error {
	seen := make(map[string]struct{}, len(c.Feeds))
	for i, feed := range c.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("feeds[%d].url must be set", i)
		}
		if feed.Name == "" {
			return fmt.Errorf("feeds[%d].name must be set", i)
		}
		if _, ok := seen[feed.URL]; ok {
			return fmt.Errorf("feeds[%d].url %q is listed more than once", i, feed.URL)
		}
		seen[feed.URL] = struct{}{}
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.max_episodes_per_feed": c.Fetch.MaxEpisodesPerFeed,
		"fetch.sample_rate":           c.Fetch.SampleRate,
		"fetch.download_timeout":      c.Fetch.DownloadTimeout,
	}); err != nil {
		return err
	}
	if _, ok := supportedAudioFormats[c.Fetch.AudioFormat]; !ok {
		return fmt.Errorf("fetch.audio_format: unsupported value %q (use wav or mp3)", c.Fetch.AudioFormat)
	}
	return nil
}

func (c *Config) validateWhisper() error {
	if strings.TrimSpace(c.Whisper.Binary) == "" {
		return errors.New("whisper.binary must be set")
	}
	if c.Whisper.Timeout <= 0 {
		return errors.New("whisper.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateWriter() error {
	if c.Writer.TargetGrade < 0 || c.Writer.TargetGrade > 100 {
		return errors.New("writer.target_grade must be between 0 and 100")
	}
	if c.Writer.MaxIterations <= 0 {
		return errors.New("writer.max_iterations must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Concurrency <= 0 {
		return errors.New("pipeline.concurrency must be positive")
	}
	if c.Pipeline.LeaseTimeout <= 0 {
		return errors.New("pipeline.lease_timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
