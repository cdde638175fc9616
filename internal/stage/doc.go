// Package stage defines the contract between the workflow manager and the
// individual pipeline stages, plus the per-run State they hand to each other.
package stage
