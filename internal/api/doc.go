// Package api holds the transport-independent job services and their wire
// types.
//
// # Key Types
//
// Gateway: validates a submission, records a pending job and launches it
// without waiting. With dedupe enabled an equivalent in-flight job is returned
// instead of a new one.
//
// QueryService: read-only lookups. Describe returns one job, LatestCompleted
// returns the newest done job for a source and language (never a partial or
// failed one), List and Stats feed the CLI.
//
// JobRecord: the JSON shape of a job shared by the daemon and client.
//
// # Design Notes
//
// Errors carry the services markers so the HTTP layer can map them with
// services.HTTPStatus. Timestamps use RFC3339 with milliseconds; result and
// error serialize as null unless the job is in the matching terminal state.
package api
