package dedupe

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"revoice/internal/config"
)

// Guard reserves in-flight submission keys.
type Guard interface {
	// Reserve claims key for jobID. When another job holds key, its id is
	// returned with reserved=false.
	Reserve(ctx context.Context, key, jobID string) (holder string, reserved bool, err error)
	// Release frees key if jobID still holds it.
	Release(ctx context.Context, key, jobID string) error
	Close() error
}

// Key builds the reservation key for a source and language.
func Key(sourceID, language string) string {
	return sourceID + "|" + strings.ToLower(language)
}

// New builds the guard selected by cfg.Dedupe.Mode.
func New(cfg *config.Config) (Guard, error) {
	ttl := time.Duration(cfg.Dedupe.TTLSeconds) * time.Second
	switch cfg.Dedupe.Mode {
	case config.DedupeOff, "":
		return Off{}, nil
	case config.DedupeMemory:
		return NewMemory(ttl), nil
	case config.DedupeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Dedupe.RedisAddr,
			Password: cfg.Dedupe.RedisPassword,
			DB:       cfg.Dedupe.RedisDB,
		})
		return NewRedis(client, ttl), nil
	default:
		return nil, fmt.Errorf("unknown dedupe mode %q", cfg.Dedupe.Mode)
	}
}

// Off never deduplicates.
type Off struct{}

func (Off) Reserve(_ context.Context, _, jobID string) (string, bool, error) { return jobID, true, nil }
func (Off) Release(context.Context, string, string) error                  { return nil }
func (Off) Close() error                                                   { return nil }

type reservation struct {
	jobID   string
	expires time.Time
}

// Memory is a process-local guard.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]reservation
}

// NewMemory returns an in-process guard. ttl <= 0 means reservations never
// expire on their own.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]reservation)}
}

func (m *Memory) Reserve(_ context.Context, key, jobID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if cur, ok := m.entries[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return cur.jobID, cur.jobID == jobID, nil
	}
	r := reservation{jobID: jobID}
	if m.ttl > 0 {
		r.expires = now.Add(m.ttl)
	}
	m.entries[key] = r
	return jobID, true, nil
}

func (m *Memory) Release(_ context.Context, key, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[key]; ok && cur.jobID == jobID {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
