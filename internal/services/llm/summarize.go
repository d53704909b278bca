package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Summary is the structured digest extracted from one episode transcript.
type Summary struct {
	KeyTopics []string `json:"key_topics"`
	Themes    []string `json:"themes"`
	Quotes    []string `json:"quotes"`
	Startups  []string `json:"startups"`
	Summary   string   `json:"summary"`
	Raw       string   `json:"-"`
}

const summarizationPrompt = `You are an expert podcast analyst. Given a podcast transcript, extract a structured digest.

Respond with a JSON object with exactly these keys:
- "key_topics": array of the main topics discussed (3-8 short phrases)
- "themes": array of recurring themes or arguments (2-5 short phrases)
- "quotes": array of the most notable verbatim quotes (up to 5)
- "startups": array of companies, products, or projects mentioned (may be empty)
- "summary": a 2-3 paragraph prose summary of the episode

Base everything strictly on the transcript. Never invent content.`

// Transcripts longer than this are truncated before summarization to stay
// inside typical context windows.
const maxTranscriptChars = 48000

// Summarize produces a structured digest of the supplied transcript text.
func (c *Client) Summarize(ctx context.Context, transcript string) (Summary, error) {
	var empty Summary
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return empty, errors.New("llm summarize: transcript required")
	}
	if len(transcript) > maxTranscriptChars {
		transcript = transcript[:maxTranscriptChars]
	}

	content, err := c.CompleteJSON(ctx, summarizationPrompt, transcript)
	if err != nil {
		return empty, err
	}

	var parsed Summary
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return empty, fmt.Errorf("llm summarize: parse payload: %w", err)
	}
	parsed.Raw = content
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	if parsed.Summary == "" {
		return empty, errors.New("llm summarize: empty summary in payload")
	}
	parsed.KeyTopics = cleanList(parsed.KeyTopics)
	parsed.Themes = cleanList(parsed.Themes)
	parsed.Quotes = cleanList(parsed.Quotes)
	parsed.Startups = cleanList(parsed.Startups)
	return parsed, nil
}

func cleanList(values []string) []string {
	out := values[:0]
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}
