package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EpisodeMeta carries feed-derived fields for episode registration.
type EpisodeMeta struct {
	GUID            string
	Title           string
	AudioURL        string
	PublishedAt     *time.Time
	DurationSeconds int64
}

// UpsertEpisode registers a feed item idempotently. Episodes are keyed by
// (podcast, guid); items without a GUID fall back to the audio URL. Repeated
// fetches refresh metadata but never duplicate rows or touch status. The
// returned bool reports whether a new row was created.
func (s *Store) UpsertEpisode(ctx context.Context, podcastID int64, meta EpisodeMeta) (*Episode, bool, error) {
	existing, err := s.findEpisodeByKey(ctx, podcastID, meta.GUID, meta.AudioURL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if existing != nil {
		if err := s.execWithoutResultRetry(
			ctx,
			`UPDATE episodes SET title = ?, audio_url = ?, published_at = ?, duration_seconds = ?, updated_at = ?
             WHERE id = ?`,
			meta.Title,
			nullableString(meta.AudioURL),
			nullableTime(meta.PublishedAt),
			meta.DurationSeconds,
			now,
			existing.ID,
		); err != nil {
			return nil, false, fmt.Errorf("refresh episode: %w", err)
		}
		episode, err := s.EpisodeByID(ctx, existing.ID)
		return episode, false, err
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO episodes (podcast_id, guid, title, audio_url, published_at, duration_seconds, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		podcastID,
		nullableString(meta.GUID),
		meta.Title,
		nullableString(meta.AudioURL),
		nullableTime(meta.PublishedAt),
		meta.DurationSeconds,
		StatusDiscovered,
		now,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	episode, err := s.EpisodeByID(ctx, id)
	return episode, true, err
}

func (s *Store) findEpisodeByKey(ctx context.Context, podcastID int64, guid, audioURL string) (*Episode, error) {
	var row *sql.Row
	switch {
	case guid != "":
		row = s.db.QueryRowContext(ctx,
			`SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? AND guid = ?`, podcastID, guid)
	case audioURL != "":
		row = s.db.QueryRowContext(ctx,
			`SELECT `+episodeColumns+` FROM episodes WHERE podcast_id = ? AND guid IS NULL AND audio_url = ?`, podcastID, audioURL)
	default:
		return nil, errors.New("episode needs a guid or audio url")
	}
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find episode: %w", err)
	}
	return episode, nil
}

// EpisodeByID fetches an episode by identifier.
func (s *Store) EpisodeByID(ctx context.Context, id int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// EpisodesByStatus returns episodes matching any of the provided statuses
// ordered oldest publish date first, with undated episodes last.
func (s *Store) EpisodesByStatus(ctx context.Context, statuses ...Status) ([]*Episode, error) {
	baseQuery := `SELECT ` + episodeColumns + ` FROM episodes`
	orderClause := ` ORDER BY published_at IS NULL, published_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("query episodes by status: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, episode)
	}
	return episodes, rows.Err()
}

// SetStatus applies a lifecycle transition. The update is a single statement
// guarded by the set of statuses with a legal edge into next, so an illegal
// transition is never written. Success transitions clear the recorded error
// message.
func (s *Store) SetStatus(ctx context.Context, id int64, next Status) error {
	if _, ok := statusSet[next]; !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	from := predecessors(next)
	if len(from) == 0 {
		return s.invalidTransition(ctx, id, next)
	}

	placeholders := makePlaceholders(len(from))
	args := make([]any, 0, len(from)+3)
	args = append(args, next, time.Now().UTC().Format(time.RFC3339Nano), id)
	for _, status := range from {
		args = append(args, status)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return s.invalidTransition(ctx, id, next)
	}
	return nil
}

// MarkFailed applies a failure transition and records the error message,
// timestamp, and failure count. next must be a failure status reachable from
// the episode's current status.
func (s *Store) MarkFailed(ctx context.Context, id int64, next Status, message string) error {
	if !IsFailure(next) {
		return fmt.Errorf("%w: %q is not a failure status", ErrInvalidTransition, next)
	}
	from := predecessors(next)
	placeholders := makePlaceholders(len(from))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := make([]any, 0, len(from)+5)
	args = append(args, next, nullableString(message), now, now, id)
	for _, status := range from {
		args = append(args, status)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET status = ?, error_message = ?, error_count = error_count + 1, last_error_at = ?, updated_at = ?
         WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return s.invalidTransition(ctx, id, next)
	}
	return nil
}

// ForceStatus writes a status without graph validation. Reserved for forced
// stage reruns and manual repair.
func (s *Store) ForceStatus(ctx context.Context, id int64, next Status) error {
	if _, ok := statusSet[next]; !ok {
		return fmt.Errorf("unknown status %q", next)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes SET status = ?, updated_at = ? WHERE id = ?`,
		next,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("force status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) invalidTransition(ctx context.Context, id int64, next Status) error {
	episode, err := s.EpisodeByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, episode.Status, next)
}

// SetAudioPath records the normalized local audio file for an episode.
func (s *Store) SetAudioPath(ctx context.Context, id int64, path string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes SET audio_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(path),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set audio path: %w", err)
	}
	return nil
}

// MarkProcessed forces an episode to digested outside the pipeline, used for
// manual repair when an episode was handled elsewhere or is not worth
// reprocessing. Failure counters are cleared; a non-empty reason is kept as
// an annotated error message so the audit trail survives.
func (s *Store) MarkProcessed(ctx context.Context, id int64, reason string) error {
	message := ""
	if reason != "" {
		message = "manually marked processed: " + reason
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET status = ?, error_message = ?, error_count = 0, last_error_at = NULL, updated_at = ?
         WHERE id = ?`,
		StatusDigested,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetErrors clears error bookkeeping on failed episodes. Failure statuses
// stay eligible for their own stage, so a cleared episode is picked up by the
// next stage rerun. When ids is empty every failed episode is reset. Returns
// the number of episodes touched.
func (s *Store) ResetErrors(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE episodes
        SET error_message = NULL, error_count = 0, last_error_at = NULL, updated_at = ?
        WHERE status IN (?, ?, ?)`
	args := []any{now, StatusDownloadingFailed, StatusTranscribingFailed, StatusDigestingFailed}

	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset errors: %w", err)
	}
	return res.RowsAffected()
}

// EpisodesWithErrors lists episodes carrying recorded failures, most recent first.
func (s *Store) EpisodesWithErrors(ctx context.Context) ([]EpisodeError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.title, p.name, e.status, e.error_message, e.error_count, e.last_error_at
         FROM episodes e
         JOIN podcasts p ON p.id = e.podcast_id
         WHERE e.error_count > 0 OR e.error_message IS NOT NULL
         ORDER BY e.last_error_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query episode errors: %w", err)
	}
	defer rows.Close()

	var out []EpisodeError
	for rows.Next() {
		var (
			rec        EpisodeError
			statusStr  string
			message    sql.NullString
			lastRaw    sql.NullString
			errorCount sql.NullInt64
		)
		if err := rows.Scan(&rec.EpisodeID, &rec.EpisodeTitle, &rec.PodcastName, &statusStr, &message, &errorCount, &lastRaw); err != nil {
			return nil, err
		}
		rec.Status = Status(statusStr)
		rec.ErrorMessage = message.String
		rec.ErrorCount = errorCount.Int64
		rec.LastErrorAt = timePtr(lastRaw)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats returns a count of episodes grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("episode stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates episode state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var inFlight int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM episodes WHERE lease_token IS NOT NULL`).Scan(&inFlight); err != nil {
		return HealthSummary{}, fmt.Errorf("count in-flight episodes: %w", err)
	}

	health := HealthSummary{InFlight: inFlight}
	for status, count := range stats {
		health.Total += count
		switch {
		case status == StatusDigested:
			health.Digested += count
		case IsFailure(status):
			health.Failed += count
		default:
			health.Pending += count
		}
	}
	return health, nil
}
