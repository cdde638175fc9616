package api

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"revoice/internal/dedupe"
	"revoice/internal/jobs"
	"revoice/internal/language"
	"revoice/internal/logging"
	"revoice/internal/notifications"
	"revoice/internal/services"
	"revoice/internal/services/youtube"
	"revoice/internal/workflow"
)

// JobWriter is the store access the gateway needs.
type JobWriter interface {
	Create(ctx context.Context, job *jobs.Job) (string, error)
	GetByID(ctx context.Context, id string) (*jobs.Job, error)
}

// Launcher starts orchestration of a persisted pending job.
type Launcher interface {
	Launch(job *jobs.Job) *workflow.Task
}

// Gateway accepts submissions.
type Gateway struct {
	store    JobWriter
	launcher Launcher
	guard    dedupe.Guard
	notifier notifications.Service
	logger   *slog.Logger
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithGuard enables in-flight de-duplication.
func WithGuard(guard dedupe.Guard) GatewayOption {
	return func(g *Gateway) {
		if guard != nil {
			g.guard = guard
		}
	}
}

// WithNotifier publishes a submitted event per accepted job.
func WithNotifier(notifier notifications.Service) GatewayOption {
	return func(g *Gateway) {
		if notifier != nil {
			g.notifier = notifier
		}
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway constructs a Gateway.
func NewGateway(store JobWriter, launcher Launcher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:    store,
		launcher: launcher,
		guard:    dedupe.Off{},
		notifier: notifications.Noop{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "gateway")
	return g
}

// Submit validates req, records a pending job and launches it without
// waiting for any stage.
func (g *Gateway) Submit(ctx context.Context, req SubmitRequest) (SubmitResponse, error) {
	source := strings.TrimSpace(req.SourceRef())
	if source == "" {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "", "submit", "source is required", nil)
	}
	rawLang := strings.TrimSpace(req.Language)
	if rawLang == "" {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "", "submit", "language is required", nil)
	}
	lang, err := language.Normalize(rawLang)
	if err != nil {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "", "submit", "invalid language "+rawLang, err)
	}
	videoID := youtube.ExtractVideoID(source)
	if videoID == "" {
		return SubmitResponse{}, services.Wrap(services.ErrValidation, "", "submit", "could not extract a video id from "+source, nil)
	}

	job := jobs.New(videoID, source, lang)
	job.ID = uuid.NewString()
	key := dedupe.Key(videoID, lang)

	if existing, ok := g.reserve(ctx, key, job.ID); ok {
		g.logger.Info("duplicate submission joined in-flight job",
			logging.String(logging.FieldJobID, existing),
			logging.String("source_id", videoID),
			logging.String("language", lang),
			logging.String(logging.FieldEventType, "submit_deduplicated"))
		return SubmitResponse{JobID: existing, Existing: true}, nil
	}

	if _, err := g.store.Create(ctx, job); err != nil {
		g.release(ctx, key, job.ID)
		return SubmitResponse{}, services.Wrap(services.ErrTransient, "", "submit", "record job", err)
	}
	g.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source_id", videoID),
		logging.String("language", lang),
		logging.String(logging.FieldEventType, "job_submitted"))

	g.launcher.Launch(job)
	if err := g.notifier.Publish(ctx, notifications.EventJobSubmitted, notifications.JobPayload(job)); err != nil {
		g.logger.Debug("submit notification failed", logging.Error(err))
	}
	return SubmitResponse{JobID: job.ID}, nil
}

// reserve claims key for jobID. It returns the id of an equivalent in-flight
// job when one holds the reservation. Guard errors fail open.
func (g *Gateway) reserve(ctx context.Context, key, jobID string) (string, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		holder, reserved, err := g.guard.Reserve(ctx, key, jobID)
		if err != nil {
			logging.WarnWithContext(g.logger, "dedupe reservation failed; accepting submission", "dedupe_reserve",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the dedupe backend"))
			return "", false
		}
		if reserved || holder == jobID {
			return "", false
		}
		current, err := g.store.GetByID(ctx, holder)
		if err != nil {
			logging.WarnWithContext(g.logger, "dedupe holder lookup failed; accepting submission", "dedupe_reserve",
				logging.Error(err),
				logging.String(logging.FieldJobID, holder))
			return "", false
		}
		// A holder without a row is a concurrent submission whose Create has
		// not landed yet. Only a terminal holder frees the key.
		if current == nil || !current.Status.IsTerminal() {
			return holder, true
		}
		g.release(ctx, key, holder)
	}
	return "", false
}

func (g *Gateway) release(ctx context.Context, key, jobID string) {
	if err := g.guard.Release(ctx, key, jobID); err != nil {
		g.logger.Debug("dedupe release failed", logging.Error(err))
	}
}
