package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ReplaceSummary overwrites any prior summary row for the episode.
func (s *Store) ReplaceSummary(ctx context.Context, summary Summary) error {
	keyTopics, err := marshalStrings(summary.KeyTopics)
	if err != nil {
		return err
	}
	themes, err := marshalStrings(summary.Themes)
	if err != nil {
		return err
	}
	quotes, err := marshalStrings(summary.Quotes)
	if err != nil {
		return err
	}
	startups, err := marshalStrings(summary.Startups)
	if err != nil {
		return err
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO summaries (episode_id, key_topics_json, themes_json, quotes_json, startups_json, summary, model, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(episode_id) DO UPDATE SET
             key_topics_json = excluded.key_topics_json,
             themes_json = excluded.themes_json,
             quotes_json = excluded.quotes_json,
             startups_json = excluded.startups_json,
             summary = excluded.summary,
             model = excluded.model,
             created_at = excluded.created_at`,
		summary.EpisodeID,
		keyTopics,
		themes,
		quotes,
		startups,
		summary.Summary,
		nullableString(summary.Model),
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("replace summary: %w", err)
	}
	return nil
}

// SummaryForEpisode returns the stored summary or ErrNotFound.
func (s *Store) SummaryForEpisode(ctx context.Context, episodeID int64) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT episode_id, key_topics_json, themes_json, quotes_json, startups_json, summary, model, created_at
         FROM summaries WHERE episode_id = ?`, episodeID)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// SummariesByDateRange returns summaries for episodes published in
// [from, to), joined with episode and podcast titles and ordered by podcast
// then episode title. The range bounds are interpreted in UTC.
func (s *Store) SummariesByDateRange(ctx context.Context, from, to time.Time) ([]SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.episode_id, s.key_topics_json, s.themes_json, s.quotes_json, s.startups_json, s.summary, s.model, s.created_at,
                e.title, p.name, e.published_at
         FROM summaries s
         JOIN episodes e ON e.id = s.episode_id
         JOIN podcasts p ON p.id = e.podcast_id
         WHERE e.published_at >= ? AND e.published_at < ?
         ORDER BY p.name, e.title`,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query summaries by date: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var (
			row          SummaryRow
			keyTopics    sql.NullString
			themes       sql.NullString
			quotes       sql.NullString
			startups     sql.NullString
			model        sql.NullString
			createdRaw   sql.NullString
			publishedRaw sql.NullString
		)
		if err := rows.Scan(
			&row.EpisodeID, &keyTopics, &themes, &quotes, &startups, &row.Summary.Summary, &model, &createdRaw,
			&row.EpisodeTitle, &row.PodcastName, &publishedRaw,
		); err != nil {
			return nil, err
		}
		row.KeyTopics = unmarshalStrings(keyTopics.String)
		row.Themes = unmarshalStrings(themes.String)
		row.Quotes = unmarshalStrings(quotes.String)
		row.Startups = unmarshalStrings(startups.String)
		row.Model = model.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			row.Summary.CreatedAt = created
		}
		row.PublishedAt = timePtr(publishedRaw)
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*Summary, error) {
	var (
		summary    Summary
		keyTopics  sql.NullString
		themes     sql.NullString
		quotes     sql.NullString
		startups   sql.NullString
		model      sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&summary.EpisodeID, &keyTopics, &themes, &quotes, &startups, &summary.Summary, &model, &createdRaw); err != nil {
		return nil, err
	}
	summary.KeyTopics = unmarshalStrings(keyTopics.String)
	summary.Themes = unmarshalStrings(themes.String)
	summary.Quotes = unmarshalStrings(quotes.String)
	summary.Startups = unmarshalStrings(startups.String)
	summary.Model = model.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		summary.CreatedAt = created
	}
	return &summary, nil
}

func marshalStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}
