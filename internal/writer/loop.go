// Package writer drives iterative content generation with grading feedback.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"podmill/internal/logging"
	"podmill/internal/services"
	"podmill/internal/store"
)

// ErrGraderContract marks a grader response that violates the scoring
// contract. It is a hard error, never interpreted as a low score.
var ErrGraderContract = errors.New("grader contract violated")

// Grade is one grader verdict over a draft.
type Grade struct {
	Score    float64
	Feedback string
}

// Generator produces and revises drafts.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Revise(ctx context.Context, req Request, draft, feedback string) (string, error)
}

// Grader scores a draft against the request's quality bar.
type Grader interface {
	Grade(ctx context.Context, req Request, draft string) (Grade, error)
}

// Request describes one piece of content to produce.
type Request struct {
	Topic         string
	Material      string
	Style         string
	TargetGrade   float64
	MaxIterations int
}

// Result is the outcome of a refinement run. Draft is the best-scoring draft
// seen, which on exhaustion is not necessarily the last one generated.
type Result struct {
	RequestID  string
	Draft      string
	Score      float64
	Feedback   string
	Iterations int
	Met        bool
}

// auditStore persists the per-iteration audit trail.
type auditStore interface {
	RecordDraftCycle(ctx context.Context, cycle store.DraftCycle) error
}

// Loop runs generate, grade, revise until the target grade is met or the
// iteration budget is spent.
type Loop struct {
	generator Generator
	grader    Grader
	audit     auditStore
	logger    *slog.Logger
}

// NewLoop builds a refinement loop. audit may not be nil; every iteration is
// recorded, including discarded drafts.
func NewLoop(generator Generator, grader Grader, audit auditStore, logger *slog.Logger) *Loop {
	return &Loop{
		generator: generator,
		grader:    grader,
		audit:     audit,
		logger:    logging.NewComponentLogger(logger, "writer"),
	}
}

// Run executes the refinement loop. A first draft that meets the target costs
// exactly one generate and one grade call.
func (l *Loop) Run(ctx context.Context, req Request) (Result, error) {
	var empty Result
	if err := validateRequest(req); err != nil {
		return empty, err
	}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	result := Result{RequestID: requestID, Score: math.Inf(-1)}

	draft, err := l.generator.Generate(ctx, req)
	if err != nil {
		return empty, fmt.Errorf("generate draft: %w", err)
	}

	for iteration := 1; iteration <= req.MaxIterations; iteration++ {
		grade, err := l.grader.Grade(ctx, req, draft)
		if err != nil {
			return empty, fmt.Errorf("grade draft: %w", err)
		}
		if err := checkGrade(grade); err != nil {
			return empty, err
		}

		if err := l.audit.RecordDraftCycle(ctx, store.DraftCycle{
			RequestID: requestID,
			Iteration: iteration,
			Draft:     draft,
			Score:     grade.Score,
			Feedback:  grade.Feedback,
		}); err != nil {
			return empty, fmt.Errorf("record draft cycle: %w", err)
		}

		result.Iterations = iteration
		if grade.Score > result.Score {
			result.Draft = draft
			result.Score = grade.Score
			result.Feedback = grade.Feedback
		}
		l.logger.Info("draft graded",
			logging.String("request_id", requestID),
			logging.Int("iteration", iteration),
			logging.Float64("score", grade.Score),
			logging.Float64("target", req.TargetGrade))

		if grade.Score >= req.TargetGrade {
			result.Met = true
			return result, nil
		}
		if iteration == req.MaxIterations {
			break
		}

		draft, err = l.generator.Revise(ctx, req, draft, grade.Feedback)
		if err != nil {
			return empty, fmt.Errorf("revise draft: %w", err)
		}
	}

	l.logger.Warn("iteration budget exhausted",
		logging.String("request_id", requestID),
		logging.Float64("best_score", result.Score),
		logging.Float64("target", req.TargetGrade))
	return result, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Material) == "" {
		return errors.New("writer: material required")
	}
	if req.MaxIterations < 1 {
		return errors.New("writer: max iterations must be at least 1")
	}
	if req.TargetGrade < 0 || req.TargetGrade > 100 {
		return fmt.Errorf("writer: target grade %v outside [0,100]", req.TargetGrade)
	}
	return nil
}

// checkGrade enforces the grader contract: a finite score in [0,100] and
// non-empty feedback.
func checkGrade(grade Grade) error {
	if math.IsNaN(grade.Score) || math.IsInf(grade.Score, 0) {
		return fmt.Errorf("%w: score is not a finite number", ErrGraderContract)
	}
	if grade.Score < 0 || grade.Score > 100 {
		return fmt.Errorf("%w: score %v outside [0,100]", ErrGraderContract, grade.Score)
	}
	if strings.TrimSpace(grade.Feedback) == "" {
		return fmt.Errorf("%w: empty feedback", ErrGraderContract)
	}
	return nil
}
