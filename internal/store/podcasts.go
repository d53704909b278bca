package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddPodcast registers a feed, returning the existing row when the feed URL is
// already known. Name and category are refreshed on conflict.
func (s *Store) AddPodcast(ctx context.Context, name, feedURL, category string) (*Podcast, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO podcasts (name, feed_url, category, created_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(feed_url) DO UPDATE SET name = excluded.name, category = excluded.category`,
		name,
		feedURL,
		nullableString(category),
		now,
	); err != nil {
		return nil, fmt.Errorf("insert podcast: %w", err)
	}
	return s.PodcastByFeedURL(ctx, feedURL)
}

// PodcastByFeedURL fetches a podcast by its unique feed URL.
func (s *Store) PodcastByFeedURL(ctx context.Context, feedURL string) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, feed_url, category, created_at FROM podcasts WHERE feed_url = ?`, feedURL)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	return podcast, nil
}

// PodcastByID fetches a podcast by identifier.
func (s *Store) PodcastByID(ctx context.Context, id int64) (*Podcast, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, feed_url, category, created_at FROM podcasts WHERE id = ?`, id)
	podcast, err := scanPodcast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get podcast: %w", err)
	}
	return podcast, nil
}

// ListPodcasts returns all registered podcasts ordered by name.
func (s *Store) ListPodcasts(ctx context.Context) ([]*Podcast, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, feed_url, category, created_at FROM podcasts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list podcasts: %w", err)
	}
	defer rows.Close()

	var podcasts []*Podcast
	for rows.Next() {
		podcast, err := scanPodcast(rows)
		if err != nil {
			return nil, err
		}
		podcasts = append(podcasts, podcast)
	}
	return podcasts, rows.Err()
}

func scanPodcast(scanner interface{ Scan(dest ...any) error }) (*Podcast, error) {
	var (
		id         int64
		name       string
		feedURL    string
		category   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &feedURL, &category, &createdRaw); err != nil {
		return nil, err
	}
	podcast := &Podcast{ID: id, Name: name, FeedURL: feedURL, Category: category.String}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		podcast.CreatedAt = created
	}
	return podcast, nil
}
