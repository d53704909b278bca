package writer

import (
	"context"
	"fmt"
	"strings"

	"podmill/internal/services/llm"
)

// ContentModel is the LLM surface the blog writer needs.
type ContentModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const generateSystemPrompt = `You are a technology writer producing a blog post from podcast digests.

Write an engaging, well-structured markdown post. Use ## section headings, quote notable lines where they strengthen a point, and close with a short takeaway. Write in plain prose for a technical audience. Do not include front matter or a top-level title heading.`

const reviseSystemPrompt = `You are a technology writer revising a blog post draft based on editorial feedback.

Apply the feedback while keeping the structure and voice of the draft. Return the complete revised post in markdown without front matter or a top-level title heading.`

const gradeSystemPrompt = `You are a demanding editor grading a blog post draft.

Respond with a JSON object with exactly these keys:
- "score": a number from 0 to 100 for overall quality (structure, accuracy to the source material, prose)
- "feedback": specific, actionable editorial feedback as a single string

Grade strictly. A publishable post scores 90 or above.`

// BlogGenerator produces blog drafts through an LLM.
type BlogGenerator struct {
	model ContentModel
}

// NewBlogGenerator builds an LLM-backed generator.
func NewBlogGenerator(model ContentModel) *BlogGenerator {
	return &BlogGenerator{model: model}
}

func (g *BlogGenerator) Generate(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	if req.Style != "" {
		fmt.Fprintf(&b, "Style guidelines:\n%s\n\n", req.Style)
	}
	fmt.Fprintf(&b, "Source material:\n%s\n", req.Material)
	return g.model.Complete(ctx, generateSystemPrompt, b.String())
}

func (g *BlogGenerator) Revise(ctx context.Context, req Request, draft, feedback string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	fmt.Fprintf(&b, "Current draft:\n%s\n\n", draft)
	fmt.Fprintf(&b, "Editorial feedback:\n%s\n\n", feedback)
	fmt.Fprintf(&b, "Source material:\n%s\n", req.Material)
	return g.model.Complete(ctx, reviseSystemPrompt, b.String())
}

// BlogGrader scores drafts through an LLM in JSON mode.
type BlogGrader struct {
	model ContentModel
}

// NewBlogGrader builds an LLM-backed grader.
func NewBlogGrader(model ContentModel) *BlogGrader {
	return &BlogGrader{model: model}
}

func (g *BlogGrader) Grade(ctx context.Context, req Request, draft string) (Grade, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", req.Topic)
	fmt.Fprintf(&b, "Draft to grade:\n%s\n", draft)

	content, err := g.model.CompleteJSON(ctx, gradeSystemPrompt, b.String())
	if err != nil {
		return Grade{}, err
	}

	var parsed struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return Grade{}, fmt.Errorf("%w: %v", ErrGraderContract, err)
	}
	return Grade{Score: parsed.Score, Feedback: strings.TrimSpace(parsed.Feedback)}, nil
}
