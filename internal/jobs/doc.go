// Package jobs defines the Job entity and its durable store.
//
// A job moves pending -> processing -> done|error and never back. The entity
// enforces that ordering in its Mark* methods and the store enforces it again
// on write: Save is a single upsert that refuses to change the status of a
// terminal row. The store runs on SQLite by default or PostgreSQL, with the
// schema applied by goose migrations embedded in the binary.
package jobs
