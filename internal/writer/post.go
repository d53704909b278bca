package writer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"podmill/internal/store"
)

// Post is a finished blog post ready to be written to disk.
type Post struct {
	Title   string
	Slug    string
	Date    time.Time
	Body    string
	Score   float64
	Met     bool
	History []store.DraftCycle
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title: lowercase, alphanumeric runs
// joined by hyphens.
func Slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// Filename returns the post's on-disk name, date-prefixed for stable sorting.
func (p Post) Filename() string {
	return fmt.Sprintf("%s-%s.md", p.Date.Format("2006-01-02"), p.Slug)
}

// Markdown renders the post with YAML front matter followed by the body and a
// grading-history appendix in an HTML comment.
func (p Post) Markdown() string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", p.Title)
	fmt.Fprintf(&b, "date: %s\n", p.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "slug: %s\n", p.Slug)
	fmt.Fprintf(&b, "grade: %.1f\n", p.Score)
	fmt.Fprintf(&b, "grade_met: %t\n", p.Met)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	b.WriteString(strings.TrimSpace(p.Body))
	b.WriteString("\n")

	if len(p.History) > 0 {
		b.WriteString("\n<!--\ngrading history:\n")
		for _, cycle := range p.History {
			fmt.Fprintf(&b, "  iteration %d: %.1f", cycle.Iteration, cycle.Score)
			if feedback := strings.TrimSpace(cycle.Feedback); feedback != "" {
				fmt.Fprintf(&b, " - %s", firstLine(feedback))
			}
			b.WriteString("\n")
		}
		b.WriteString("-->\n")
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}

const socialSystemPrompt = `You are a social media editor promoting a blog post.

Write exactly two promotional posts for the article below:
- POST 1: a post for Twitter/X, at most 280 characters and at most 2 hashtags
- POST 2: a post for LinkedIn, 2-3 short paragraphs, professional tone

Label each section exactly "POST 1:" and "POST 2:" on its own line.`

// SocialPosts holds per-network promotional copy for a post.
type SocialPosts struct {
	Twitter  string
	LinkedIn string
}

// GenerateSocialPosts asks the model for Twitter and LinkedIn copy promoting
// the post.
func GenerateSocialPosts(ctx context.Context, model ContentModel, post Post) (SocialPosts, error) {
	user := fmt.Sprintf("Title: %s\n\nArticle:\n%s\n", post.Title, post.Body)
	content, err := model.Complete(ctx, socialSystemPrompt, user)
	if err != nil {
		return SocialPosts{}, err
	}
	sections := parsePostSections(content)
	if len(sections) < 2 {
		return SocialPosts{}, fmt.Errorf("expected 2 social posts, got %d", len(sections))
	}
	return SocialPosts{Twitter: sections[0], LinkedIn: sections[1]}, nil
}

var postHeader = regexp.MustCompile(`(?mi)^\**POST\s+(\d+)\**\s*:\**\s*`)

// parsePostSections splits model output on numbered "POST n:" headers and
// returns the section bodies in order.
func parsePostSections(content string) []string {
	matches := postHeader.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}
	sections := make([]string, 0, len(matches))
	for i, match := range matches {
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		section := strings.TrimSpace(content[match[1]:end])
		if section != "" {
			sections = append(sections, section)
		}
	}
	return sections
}
