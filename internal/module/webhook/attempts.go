package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore tracks which payment ids already produced an order so a
// replayed notification never creates a second one. Begin reserves the id
// atomically; exactly one of N concurrent callers wins the reservation.
// A failed forward releases the reservation so a later duplicate can retry.
type AttemptStore interface {
	// Begin reserves paymentID. Returns true when this caller holds the
	// reservation, false when the id was already reserved or forwarded.
	Begin(ctx context.Context, paymentID string) (bool, error)
	// Forwarded reports whether an order was created for paymentID.
	Forwarded(ctx context.Context, paymentID string) (bool, error)
	// Commit marks paymentID as forwarded.
	Commit(ctx context.Context, paymentID string) error
	// Release drops the reservation after a failed forward.
	Release(ctx context.Context, paymentID string) error
}

type attemptState int

const (
	attemptInFlight attemptState = iota
	attemptForwarded
)

// MemoryAttemptStore is the in-process implementation. Markers live only
// for the process lifetime; a restart between duplicate deliveries loses
// them. That gap is covered by the Redis implementation.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string]attemptState
}

// NewMemoryAttemptStore creates an in-memory attempt store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string]attemptState)}
}

func (s *MemoryAttemptStore) Begin(_ context.Context, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[paymentID]; ok {
		return false, nil
	}
	s.attempts[paymentID] = attemptInFlight
	return true, nil
}

func (s *MemoryAttemptStore) Forwarded(_ context.Context, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[paymentID] == attemptForwarded, nil
}

func (s *MemoryAttemptStore) Commit(_ context.Context, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[paymentID] = attemptForwarded
	return nil
}

func (s *MemoryAttemptStore) Release(_ context.Context, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts[paymentID] == attemptInFlight {
		delete(s.attempts, paymentID)
	}
	return nil
}

// RedisAttemptStore keeps markers in Redis so they survive restarts and are
// shared across instances. Reservation uses SETNX; in-flight reservations
// carry a TTL so a crashed instance cannot wedge a payment id forever.
type RedisAttemptStore struct {
	client      redis.UniversalClient
	prefix      string
	inflightTTL time.Duration
	markerTTL   time.Duration
}

// NewRedisAttemptStore creates a Redis-backed attempt store.
func NewRedisAttemptStore(client redis.UniversalClient) *RedisAttemptStore {
	return &RedisAttemptStore{
		client:      client,
		prefix:      "reconcile:attempt:",
		inflightTTL: 2 * time.Minute,
		markerTTL:   30 * 24 * time.Hour,
	}
}

func (s *RedisAttemptStore) key(paymentID string) string {
	return s.prefix + paymentID
}

func (s *RedisAttemptStore) Begin(ctx context.Context, paymentID string) (bool, error) {
	return s.client.SetNX(ctx, s.key(paymentID), "inflight", s.inflightTTL).Result()
}

func (s *RedisAttemptStore) Forwarded(ctx context.Context, paymentID string) (bool, error) {
	val, err := s.client.Get(ctx, s.key(paymentID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "forwarded", nil
}

func (s *RedisAttemptStore) Commit(ctx context.Context, paymentID string) error {
	return s.client.Set(ctx, s.key(paymentID), "forwarded", s.markerTTL).Err()
}

func (s *RedisAttemptStore) Release(ctx context.Context, paymentID string) error {
	return s.client.Del(ctx, s.key(paymentID)).Err()
}
