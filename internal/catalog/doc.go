// Package catalog stores the persistent record of every processed file and
// every run. The records table keeps one row per source path, replaced on
// reprocessing; the runs table keeps one row per invocation with final
// counts. The catalog is what makes re-runs idempotent: committed paths are
// skipped and author spellings are fed back into inference prompts.
//
// The database lives alongside the logs. When the schema changes, bump
// schemaVersion in schema.go and update schema.sql; existing databases are
// rejected with ErrSchemaMismatch rather than migrated.
package catalog
