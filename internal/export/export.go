// Package export renders stored episode digests for distribution.
package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"podmill/internal/store"
)

// Format selects an output renderer.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ParseFormat converts a string into a known Format. "md" is accepted as an
// alias for markdown.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "markdown", "md":
		return FormatMarkdown, true
	case "json":
		return FormatJSON, true
	case "html":
		return FormatHTML, true
	default:
		return "", false
	}
}

// Digest is a date-bounded collection of episode summaries ready to render.
type Digest struct {
	From time.Time
	To   time.Time
	Rows []store.SummaryRow
}

// Title returns the digest heading for the covered range.
func (d Digest) Title() string {
	from := d.From.Format("January 2, 2006")
	// A single-day digest covers [from, from+24h).
	if d.To.Sub(d.From) <= 24*time.Hour {
		return "Podcast Digest for " + from
	}
	return fmt.Sprintf("Podcast Digest for %s to %s", from, d.To.Add(-time.Second).Format("January 2, 2006"))
}

// podcastGroup keeps one podcast's summaries together in input order.
type podcastGroup struct {
	Name     string
	Episodes []store.SummaryRow
}

// groupByPodcast partitions rows by podcast, preserving the store's ordering
// (podcast name, then episode title).
func groupByPodcast(rows []store.SummaryRow) []podcastGroup {
	var groups []podcastGroup
	for _, row := range rows {
		if len(groups) == 0 || groups[len(groups)-1].Name != row.PodcastName {
			groups = append(groups, podcastGroup{Name: row.PodcastName})
		}
		last := &groups[len(groups)-1]
		last.Episodes = append(last.Episodes, row)
	}
	return groups
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// heading title-cases a name for section headings without lowering
// already-capitalized acronyms.
func heading(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

// Render produces the digest in the requested format.
func Render(format Format, digest Digest) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(digest), nil
	case FormatJSON:
		return renderJSON(digest)
	case FormatHTML:
		return renderHTML(digest)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
