// Package poller watches a job until it reaches a terminal state.
package poller

import (
	"context"
	"errors"
	"time"

	"revoice/internal/api"
)

// DefaultInterval is the fixed delay between polls.
const DefaultInterval = 2 * time.Second

// FetchFunc loads the current record of a job.
type FetchFunc func(ctx context.Context, id string) (*api.JobRecord, error)

// Poller repeatedly fetches a job at a fixed interval.
type Poller struct {
	Interval time.Duration
	Fetch    FetchFunc
	// OnUpdate fires for the first record and whenever status or stage change.
	OnUpdate func(api.JobRecord)
}

// Wait polls id until it is done or error, a fetch fails or ctx ends. It
// returns the last record seen.
func (p *Poller) Wait(ctx context.Context, id string) (*api.JobRecord, error) {
	if p.Fetch == nil {
		return nil, errors.New("poller: fetch func required")
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var last *api.JobRecord
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		}

		record, err := p.Fetch(ctx, id)
		if err != nil {
			return last, err
		}
		if record == nil {
			return last, errors.New("poller: empty job record")
		}
		if p.OnUpdate != nil && (last == nil || last.Status != record.Status || last.Stage != record.Stage) {
			p.OnUpdate(*record)
		}
		last = record
		if record.Terminal() {
			return last, nil
		}
		timer.Reset(interval)
	}
}
