package stage

import (
	"context"

	"revoice/internal/jobs"
)

// Handler describes the contract the workflow manager needs from each stage.
// Execute reads its inputs from state and records its outputs there for the
// stages that follow.
type Handler interface {
	Name() string
	Execute(ctx context.Context, job *jobs.Job, state *State) error
	HealthCheck(context.Context) Health
}
