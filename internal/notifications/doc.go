// Package notifications delivers job lifecycle events via pluggable
// publishers.
//
// Two transports exist: ntfy (plain HTTP POST to a topic URL) and RabbitMQ,
// which receives JSON events on a topic exchange with routing key
// "revoice.<event>". NewService fans out to every configured transport and
// degrades to a no-op when none is configured. Per-event toggles from the
// config drop events before they reach any transport.
package notifications
