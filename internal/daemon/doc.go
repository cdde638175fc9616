// Package daemon coordinates the long-running revoiced process.
//
// It wires configuration, the job store, the workflow manager and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The API is a chi router serving the submission, lookup, listing
// and health endpoints, mounted both at the root and under /api.
//
// Keep orchestration logic in the workflow package: the daemon focuses on
// startup, shutdown and transport.
package daemon
