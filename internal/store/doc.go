// Package store persists podcasts, episodes, transcripts, summaries, and
// draft-cycle audit records in SQLite and exposes helpers for driving the
// episode lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, lease tracking, and status transitions. The status state machine
// lives in status.go; SetStatus is the only legal way to advance an episode,
// and every transition is a single guarded UPDATE so illegal edges are never
// written even under concurrent access.
//
// Schema changes bump the version in schema.go; users recreate the database
// to adopt the new schema.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add new statuses or fields, update schema.sql and bump
// schemaVersion.
package store
