package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"podmill/internal/logging"
	"podmill/internal/services"
	"podmill/internal/store"
)

// Handler executes one stage attempt for one episode.
type Handler interface {
	Execute(ctx context.Context, episode *store.Episode) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, episode *store.Episode) error

func (f HandlerFunc) Execute(ctx context.Context, episode *store.Episode) error {
	return f(ctx, episode)
}

// Options narrows and shapes a stage run.
type Options struct {
	// EpisodeID restricts the run to a single episode when non-zero.
	EpisodeID int64
	// Limit caps how many episodes the run selects (0 means no cap).
	Limit int
	// Force reprocesses episodes already in the done status instead of
	// skipping them, rewriting their status through ForceStatus on success.
	Force bool
	// Concurrency bounds parallel handler invocations (min 1).
	Concurrency int
}

// OutcomeKind classifies a single episode's result within a run.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeSkipped   OutcomeKind = "skipped"
)

// Outcome records what happened to one episode during a stage run.
type Outcome struct {
	EpisodeID int64
	Title     string
	Kind      OutcomeKind
	Reason    string
}

// Report aggregates a stage run. Failures are recorded per episode and never
// abort the batch.
type Report struct {
	Stage     Stage
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

func (r *Report) add(outcome Outcome) {
	switch outcome.Kind {
	case OutcomeSucceeded:
		r.Succeeded++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	}
	r.Outcomes = append(r.Outcomes, outcome)
}

// Runner executes stage batches against the store with lease-based
// idempotency.
type Runner struct {
	store        *store.Store
	logger       *slog.Logger
	leaseTimeout time.Duration
}

// NewRunner creates a stage runner. leaseTimeout bounds how long a lease may
// live before a later run reclaims it.
func NewRunner(st *store.Store, logger *slog.Logger, leaseTimeout time.Duration) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if leaseTimeout <= 0 {
		leaseTimeout = 30 * time.Minute
	}
	return &Runner{
		store:        st,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
		leaseTimeout: leaseTimeout,
	}
}

// RunStage processes every eligible episode through the handler. The
// eligible set is snapshotted once at the start of the run, so no episode is
// selected twice even when transitions land mid-run.
func (r *Runner) RunStage(ctx context.Context, stage Stage, handler Handler, opts Options) (Report, error) {
	report := Report{Stage: stage}
	spec, ok := stageSpecs[stage]
	if !ok {
		return report, fmt.Errorf("unknown stage %q", stage)
	}
	if handler == nil {
		return report, errors.New("stage handler required")
	}

	reclaimed, err := r.store.ReclaimStaleLeases(ctx, time.Now().Add(-r.leaseTimeout))
	if err != nil {
		return report, err
	}
	if reclaimed > 0 {
		r.logger.Info("reclaimed stale leases",
			logging.String("stage", stage.String()),
			logging.Int64("count", reclaimed))
	}

	episodes, err := r.selectEpisodes(ctx, spec, opts)
	if err != nil {
		return report, err
	}
	if len(episodes) == 0 {
		return report, nil
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, concurrency)
	)
	for _, episode := range episodes {
		semaphore <- struct{}{}
		// Cancellation stops between episodes; in-flight attempts finish
		// and release their leases. The check sits after the semaphore
		// acquire so a sequential run observes a cancel raised by the
		// previous episode's handler.
		if ctx.Err() != nil {
			<-semaphore
			break
		}
		wg.Add(1)
		go func(episode *store.Episode) {
			defer wg.Done()
			defer func() { <-semaphore }()
			outcome := r.processEpisode(ctx, stage, spec, handler, episode, opts.Force)
			mu.Lock()
			report.add(outcome)
			mu.Unlock()
		}(episode)
	}
	wg.Wait()

	sort.Slice(report.Outcomes, func(i, j int) bool {
		return report.Outcomes[i].EpisodeID < report.Outcomes[j].EpisodeID
	})

	r.logger.Info("stage run complete",
		logging.String("stage", stage.String()),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped))
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// selectEpisodes snapshots the eligible set, ordered oldest publish date
// first. Episodes already in the done status are selected too so the report
// counts them as skipped; under Force they are reprocessed instead.
func (r *Runner) selectEpisodes(ctx context.Context, spec stageSpec, opts Options) ([]*store.Episode, error) {
	eligible := make(map[store.Status]struct{}, len(spec.ready)+1)
	for _, status := range spec.ready {
		eligible[status] = struct{}{}
	}
	eligible[spec.done] = struct{}{}

	if opts.EpisodeID > 0 {
		episode, err := r.store.EpisodeByID(ctx, opts.EpisodeID)
		if err != nil {
			return nil, err
		}
		if _, ok := eligible[episode.Status]; !ok {
			return nil, fmt.Errorf("episode %d has status %s, not eligible for this stage", episode.ID, episode.Status)
		}
		return []*store.Episode{episode}, nil
	}

	statuses := make([]store.Status, 0, len(eligible))
	for _, status := range store.AllStatuses() {
		if _, ok := eligible[status]; ok {
			statuses = append(statuses, status)
		}
	}
	episodes, err := r.store.EpisodesByStatus(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(episodes) > opts.Limit {
		episodes = episodes[:opts.Limit]
	}
	return episodes, nil
}

func (r *Runner) processEpisode(ctx context.Context, stage Stage, spec stageSpec, handler Handler, episode *store.Episode, force bool) Outcome {
	outcome := Outcome{EpisodeID: episode.ID, Title: episode.Title}

	// Re-running a stage over an already processed episode is a no-op
	// unless forced.
	if episode.Status == spec.done && !force {
		outcome.Kind = OutcomeSkipped
		outcome.Reason = "already " + string(spec.done)
		return outcome
	}

	token, err := r.store.AcquireLease(ctx, episode.ID, stage.String())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyInFlight) {
			outcome.Kind = OutcomeSkipped
			outcome.Reason = "already in flight"
			return outcome
		}
		outcome.Kind = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}
	defer func() {
		if err := r.store.ReleaseLease(context.WithoutCancel(ctx), episode.ID, token); err != nil {
			r.logger.Warn("release lease",
				logging.Int64("episode_id", episode.ID),
				logging.Error(err))
		}
	}()

	stageCtx := services.WithStage(services.WithEpisodeID(ctx, episode.ID), stage.String())
	// Transition application is a short critical section that must land even
	// when the run context is cancelled mid-batch; a finished attempt is
	// recorded, never torn.
	recordCtx := context.WithoutCancel(ctx)
	if err := handler.Execute(stageCtx, episode); err != nil {
		r.logger.Warn("stage attempt failed",
			logging.String("stage", stage.String()),
			logging.Int64("episode_id", episode.ID),
			logging.Error(err))
		if markErr := r.markFailed(recordCtx, episode.ID, spec.failed, err.Error(), force); markErr != nil {
			outcome.Kind = OutcomeFailed
			outcome.Reason = fmt.Sprintf("%v (record failure: %v)", err, markErr)
			return outcome
		}
		outcome.Kind = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}

	if err := r.markDone(recordCtx, episode.ID, spec.done, force); err != nil {
		outcome.Kind = OutcomeFailed
		outcome.Reason = err.Error()
		return outcome
	}
	r.logger.Info("stage attempt succeeded",
		logging.String("stage", stage.String()),
		logging.Int64("episode_id", episode.ID))
	outcome.Kind = OutcomeSucceeded
	return outcome
}

func (r *Runner) markDone(ctx context.Context, episodeID int64, done store.Status, force bool) error {
	err := r.store.SetStatus(ctx, episodeID, done)
	if err != nil && force && errors.Is(err, store.ErrInvalidTransition) {
		return r.store.ForceStatus(ctx, episodeID, done)
	}
	return err
}

func (r *Runner) markFailed(ctx context.Context, episodeID int64, failed store.Status, message string, force bool) error {
	err := r.store.MarkFailed(ctx, episodeID, failed, message)
	if err != nil && force && errors.Is(err, store.ErrInvalidTransition) {
		return r.store.ForceStatus(ctx, episodeID, failed)
	}
	return err
}
