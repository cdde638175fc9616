package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"revoice/internal/logging"
)

// RoutingPrefix prefixes every AMQP routing key.
const RoutingPrefix = "revoice."

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Envelope is the JSON body published for each event.
type Envelope struct {
	Event     Event     `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// AMQP publishes events to a RabbitMQ topic exchange. The connection is
// dialed on first use and re-dialed after the broker drops it.
type AMQP struct {
	url      string
	exchange string
	logger   *slog.Logger
	dial     func(url string) (Channel, func() error, error)

	mu       sync.Mutex
	ch       Channel
	closeFn  func() error
	declared bool
}

// NewAMQP returns a lazy RabbitMQ transport.
func NewAMQP(url, exchange string, logger *slog.Logger) *AMQP {
	if exchange == "" {
		exchange = "revoice.events"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AMQP{url: url, exchange: exchange, logger: logger, dial: dialAMQP}
}

// NewAMQPWithChannel publishes on an existing channel.
func NewAMQPWithChannel(ch Channel, exchange string) *AMQP {
	a := NewAMQP("", exchange, nil)
	a.ch = ch
	a.closeFn = ch.Close
	return a
}

func dialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return ch, closeFn, nil
}

func (a *AMQP) Publish(ctx context.Context, event Event, payload Payload) error {
	body, err := json.Marshal(Envelope{Event: event, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode amqp event: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ch, err := a.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, a.exchange, RoutingPrefix+string(event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(event),
		Body:         body,
	})
	if err != nil {
		a.reset()
		return fmt.Errorf("publish amqp event %s: %w", event, err)
	}
	return nil
}

// channel returns a ready channel with the exchange declared. Callers hold mu.
func (a *AMQP) channel() (Channel, error) {
	if a.ch == nil {
		ch, closeFn, err := a.dial(a.url)
		if err != nil {
			return nil, err
		}
		a.ch, a.closeFn = ch, closeFn
	}
	if !a.declared {
		if err := a.ch.ExchangeDeclare(a.exchange, "topic", true, false, false, false, nil); err != nil {
			a.reset()
			return nil, fmt.Errorf("declare exchange %s: %w", a.exchange, err)
		}
		a.declared = true
	}
	return a.ch, nil
}

func (a *AMQP) reset() {
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil {
			a.logger.Debug("amqp close failed", logging.Error(err))
		}
	}
	a.ch, a.closeFn, a.declared = nil, nil, false
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closeFn == nil {
		return nil
	}
	err := a.closeFn()
	a.ch, a.closeFn, a.declared = nil, nil, false
	return err
}
