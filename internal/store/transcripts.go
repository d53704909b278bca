package store

import (
	"context"
	"fmt"
)

// ReplaceTranscript overwrites the transcript for an episode in one
// transaction. Re-transcription replaces segments in place rather than
// versioning them.
func (s *Store) ReplaceTranscript(ctx context.Context, episodeID int64, segments []Segment) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transcript tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transcript_segments WHERE episode_id = ?`, episodeID); err != nil {
			return fmt.Errorf("clear transcript: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO transcript_segments (episode_id, seq, start_seconds, end_seconds, speaker, text)
             VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare segment insert: %w", err)
		}
		defer stmt.Close()

		for i, seg := range segments {
			if _, err := stmt.ExecContext(ctx,
				episodeID, i, seg.StartSeconds, seg.EndSeconds, nullableString(seg.Speaker), seg.Text); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transcript: %w", err)
		}
		return nil
	})
}

// TranscriptForEpisode returns the episode's segments ordered by position.
func (s *Store) TranscriptForEpisode(ctx context.Context, episodeID int64) (Transcript, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, episode_id, seq, start_seconds, end_seconds, COALESCE(speaker, ''), text
         FROM transcript_segments WHERE episode_id = ? ORDER BY seq`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var transcript Transcript
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.ID, &seg.EpisodeID, &seg.Seq, &seg.StartSeconds, &seg.EndSeconds, &seg.Speaker, &seg.Text); err != nil {
			return nil, err
		}
		transcript = append(transcript, seg)
	}
	return transcript, rows.Err()
}
