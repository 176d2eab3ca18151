package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storebridge/server/internal/module/gateway"
)

// IntentStore keeps order intents keyed by external reference for the
// lifetime of a checkout session. It backs up the intent the preference
// embeds in the payment metadata: if the processor drops the metadata, the
// reconciler recovers the order from here.
type IntentStore interface {
	Put(ctx context.Context, externalReference string, intent *gateway.OrderIntent) error
	// Get returns nil, nil when no intent is stored for the reference.
	Get(ctx context.Context, externalReference string) (*gateway.OrderIntent, error)
}

// RedisIntentStore stores intents in Redis with a TTL. Entries outlive the
// process, which matters because the notification usually arrives minutes
// after the checkout redirect.
type RedisIntentStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisIntentStore creates a Redis intent store. ttl <= 0 defaults to
// seven days, comfortably past the processor's retry window.
func NewRedisIntentStore(client redis.UniversalClient, ttl time.Duration) *RedisIntentStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisIntentStore{client: client, prefix: "checkout:intent:", ttl: ttl}
}

func (s *RedisIntentStore) Put(ctx context.Context, externalReference string, intent *gateway.OrderIntent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+externalReference, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store intent: %w", err)
	}
	return nil
}

func (s *RedisIntentStore) Get(ctx context.Context, externalReference string) (*gateway.OrderIntent, error) {
	data, err := s.client.Get(ctx, s.prefix+externalReference).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load intent: %w", err)
	}
	var intent gateway.OrderIntent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &intent, nil
}

// MemoryIntentStore is the single-instance fallback used when Redis is not
// configured. Entries expire lazily on read.
type MemoryIntentStore struct {
	mu      sync.Mutex
	entries map[string]memoryIntentEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryIntentEntry struct {
	intent    *gateway.OrderIntent
	expiresAt time.Time
}

// NewMemoryIntentStore creates an in-memory intent store.
func NewMemoryIntentStore(ttl time.Duration) *MemoryIntentStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &MemoryIntentStore{
		entries: make(map[string]memoryIntentEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryIntentStore) Put(_ context.Context, externalReference string, intent *gateway.OrderIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[externalReference] = memoryIntentEntry{
		intent:    intent,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryIntentStore) Get(_ context.Context, externalReference string) (*gateway.OrderIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[externalReference]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, externalReference)
		return nil, nil
	}
	return entry.intent, nil
}
