package store

import (
	"database/sql"
	"errors"
	"time"
)

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func timePtr(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

const episodeColumns = "id, podcast_id, guid, title, audio_url, published_at, duration_seconds, audio_path, status, error_message, error_count, last_error_at, lease_token, lease_stage, lease_acquired_at, created_at, updated_at"

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		id              int64
		podcastID       int64
		guid            sql.NullString
		title           string
		audioURL        sql.NullString
		publishedRaw    sql.NullString
		durationSeconds sql.NullInt64
		audioPath       sql.NullString
		statusStr       string
		errorMessage    sql.NullString
		errorCount      sql.NullInt64
		lastErrorRaw    sql.NullString
		leaseToken      sql.NullString
		leaseStage      sql.NullString
		leaseAcquired   sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&podcastID,
		&guid,
		&title,
		&audioURL,
		&publishedRaw,
		&durationSeconds,
		&audioPath,
		&statusStr,
		&errorMessage,
		&errorCount,
		&lastErrorRaw,
		&leaseToken,
		&leaseStage,
		&leaseAcquired,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	episode := &Episode{
		ID:              id,
		PodcastID:       podcastID,
		GUID:            guid.String,
		Title:           title,
		AudioURL:        audioURL.String,
		PublishedAt:     timePtr(publishedRaw),
		DurationSeconds: durationSeconds.Int64,
		AudioPath:       audioPath.String,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ErrorCount:      errorCount.Int64,
		LastErrorAt:     timePtr(lastErrorRaw),
		LeaseToken:      leaseToken.String,
		LeaseStage:      leaseStage.String,
		LeaseAcquiredAt: timePtr(leaseAcquired),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		episode.UpdatedAt = updated
	}
	return episode, nil
}
