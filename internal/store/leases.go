package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AcquireLease claims an episode for a stage attempt. The claim is a single
// conditional UPDATE: concurrent acquirers race on rows affected and exactly
// one wins. Returns the lease token on success and ErrAlreadyInFlight when a
// live lease exists.
func (s *Store) AcquireLease(ctx context.Context, episodeID int64, stage string) (string, error) {
	token := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET lease_token = ?, lease_stage = ?, lease_acquired_at = ?, updated_at = ?
         WHERE id = ? AND lease_token IS NULL`,
		token,
		stage,
		now,
		now,
		episodeID,
	)
	if err != nil {
		return "", fmt.Errorf("acquire lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.EpisodeByID(ctx, episodeID); err != nil {
			return "", err
		}
		return "", ErrAlreadyInFlight
	}
	return token, nil
}

// ReleaseLease clears a lease. The token must match so a reclaimed attempt
// cannot release a successor's lease.
func (s *Store) ReleaseLease(ctx context.Context, episodeID int64, token string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE episodes
         SET lease_token = NULL, lease_stage = NULL, lease_acquired_at = NULL, updated_at = ?
         WHERE id = ? AND lease_token = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		episodeID,
		token,
	); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// ReclaimStaleLeases clears leases acquired before the cutoff. A crash leaves
// the episode's prior status intact plus a stale lease; reclaiming makes the
// episode eligible again without losing its place in the lifecycle.
func (s *Store) ReclaimStaleLeases(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE episodes
         SET lease_token = NULL, lease_stage = NULL, lease_acquired_at = NULL, updated_at = ?
         WHERE lease_token IS NOT NULL AND lease_acquired_at < ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale leases: %w", err)
	}
	return res.RowsAffected()
}
