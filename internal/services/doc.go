// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and request
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so failures surface with a
//     consistent kind, HTTP status, and operator hint.
//   - The CommandRunner seam that keeps external tool invocation testable.
package services
