package export

import (
	"fmt"
	"strings"
)

func renderMarkdown(digest Digest) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", digest.Title())

	if len(digest.Rows) == 0 {
		b.WriteString("No digests for this period.\n")
		return []byte(b.String())
	}

	for _, group := range groupByPodcast(digest.Rows) {
		fmt.Fprintf(&b, "## %s\n\n", heading(group.Name))
		for _, row := range group.Episodes {
			fmt.Fprintf(&b, "### %s\n\n", row.EpisodeTitle)
			if row.PublishedAt != nil {
				fmt.Fprintf(&b, "*Published %s*\n\n", row.PublishedAt.Format("January 2, 2006"))
			}
			writeMarkdownList(&b, "Key topics", row.KeyTopics)
			writeMarkdownList(&b, "Themes", row.Themes)
			writeMarkdownQuotes(&b, row.Quotes)
			writeMarkdownList(&b, "Companies and projects", row.Startups)
			b.WriteString(strings.TrimSpace(row.Summary.Summary))
			b.WriteString("\n\n")
		}
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n")
}

func writeMarkdownList(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", label)
	for _, value := range values {
		fmt.Fprintf(b, "- %s\n", value)
	}
	b.WriteString("\n")
}

func writeMarkdownQuotes(b *strings.Builder, quotes []string) {
	if len(quotes) == 0 {
		return
	}
	b.WriteString("**Notable quotes**\n\n")
	for _, quote := range quotes {
		fmt.Fprintf(b, "> %s\n\n", quote)
	}
}
