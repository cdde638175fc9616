package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/logging"
)

// Service publishes job events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	Close() error
}

// NewService builds a Service from the notification config. Transports
// without settings are skipped; with none left a no-op is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	n := cfg.Notifications
	var transports Multi
	if topic := strings.TrimSpace(n.NtfyTopic); topic != "" {
		timeout := time.Duration(n.RequestTimeout) * time.Second
		transports = append(transports, NewNtfy(topic, timeout))
	}
	if url := strings.TrimSpace(n.AMQPURL); url != "" {
		transports = append(transports, NewAMQP(url, n.AMQPExchange, logger))
	}
	if len(transports) == 0 {
		return Noop{}
	}
	return &filtered{
		next: transports,
		allow: map[Event]bool{
			EventJobSubmitted: n.Submitted,
			EventJobCompleted: n.Completed,
			EventJobFailed:    n.Errors,
			EventTest:         true,
		},
	}
}

// Multi fans an event out to every transport and joins their errors.
type Multi []Service

func (m Multi) Publish(ctx context.Context, event Event, payload Payload) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Publish(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, svc := range m {
		errs = append(errs, svc.Close())
	}
	return errors.Join(errs...)
}

type filtered struct {
	next  Service
	allow map[Event]bool
}

func (f *filtered) Publish(ctx context.Context, event Event, payload Payload) error {
	if !f.allow[event] {
		return nil
	}
	return f.next.Publish(ctx, event, payload)
}

func (f *filtered) Close() error { return f.next.Close() }

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event, Payload) error { return nil }
func (Noop) Close() error                                  { return nil }
