package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordDraftCycle persists one iteration of the grade-and-revise loop,
// including drafts that were ultimately discarded.
func (s *Store) RecordDraftCycle(ctx context.Context, cycle DraftCycle) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO draft_cycles (request_id, iteration, draft, score, feedback, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		cycle.RequestID,
		cycle.Iteration,
		cycle.Draft,
		cycle.Score,
		nullableString(cycle.Feedback),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record draft cycle: %w", err)
	}
	return nil
}

// DraftCyclesForRequest returns the audit trail for one write request in
// iteration order.
func (s *Store) DraftCyclesForRequest(ctx context.Context, requestID string) ([]DraftCycle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, iteration, draft, score, COALESCE(feedback, ''), created_at
         FROM draft_cycles WHERE request_id = ? ORDER BY iteration`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query draft cycles: %w", err)
	}
	defer rows.Close()

	var cycles []DraftCycle
	for rows.Next() {
		var (
			cycle      DraftCycle
			createdRaw sql.NullString
		)
		if err := rows.Scan(&cycle.ID, &cycle.RequestID, &cycle.Iteration, &cycle.Draft, &cycle.Score, &cycle.Feedback, &createdRaw); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			cycle.CreatedAt = created
		}
		cycles = append(cycles, cycle)
	}
	return cycles, rows.Err()
}
