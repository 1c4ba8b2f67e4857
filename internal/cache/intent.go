package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PaymentIntent binds a gateway reference to an in-flight pending order.
// Its presence is what authorizes the reconciliation path to act; expiry is
// the abandonment signal the sweep acts on.
type PaymentIntent struct {
	Reference  string    `json:"reference"`
	OrderID    uint      `json:"order_id"`
	Amount     string    `json:"amount"`
	BuyerEmail string    `json:"buyer_email"`
	CreatedAt  time.Time `json:"created_at"`
}

// IntentStore stores payment intents with a TTL. Implementations must treat
// an expired entry the same as a missing one.
type IntentStore interface {
	Put(ctx context.Context, intent PaymentIntent, ttl time.Duration) error
	Get(ctx context.Context, reference string) (*PaymentIntent, bool, error)
	Delete(ctx context.Context, reference string) error
}

// RedisIntentStore keeps intents in redis under a namespaced key.
type RedisIntentStore struct {
	client *redis.Client
	prefix string
}

// NewRedisIntentStore creates a redis-backed intent store.
func NewRedisIntentStore(client *redis.Client, prefix string) *RedisIntentStore {
	return &RedisIntentStore{client: client, prefix: prefix}
}

func (s *RedisIntentStore) key(reference string) string {
	return fmt.Sprintf("%s:intent:%s", s.prefix, strings.TrimSpace(reference))
}

// Put stores an intent with the given TTL.
func (s *RedisIntentStore) Put(ctx context.Context, intent PaymentIntent, ttl time.Duration) error {
	if strings.TrimSpace(intent.Reference) == "" {
		return fmt.Errorf("intent reference is empty")
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(intent.Reference), payload, ttl).Err()
}

// Get fetches an intent; ok is false when missing or expired.
func (s *RedisIntentStore) Get(ctx context.Context, reference string) (*PaymentIntent, bool, error) {
	val, err := s.client.Get(ctx, s.key(reference)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var intent PaymentIntent
	if err := json.Unmarshal([]byte(val), &intent); err != nil {
		return nil, false, err
	}
	return &intent, true, nil
}

// Delete removes an intent.
func (s *RedisIntentStore) Delete(ctx context.Context, reference string) error {
	return s.client.Del(ctx, s.key(reference)).Err()
}

type memoryIntentEntry struct {
	intent    PaymentIntent
	expiresAt time.Time
}

// MemoryIntentStore is the in-process implementation used by tests and by
// redis-less deployments.
type MemoryIntentStore struct {
	mu      sync.Mutex
	entries map[string]memoryIntentEntry
	now     func() time.Time
}

// NewMemoryIntentStore creates an in-memory intent store.
func NewMemoryIntentStore() *MemoryIntentStore {
	return &MemoryIntentStore{
		entries: make(map[string]memoryIntentEntry),
		now:     time.Now,
	}
}

// SetClock overrides the time source, for expiry tests.
func (s *MemoryIntentStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.now = now
	}
}

// Put stores an intent with the given TTL.
func (s *MemoryIntentStore) Put(_ context.Context, intent PaymentIntent, ttl time.Duration) error {
	if strings.TrimSpace(intent.Reference) == "" {
		return fmt.Errorf("intent reference is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[intent.Reference] = memoryIntentEntry{
		intent:    intent,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Get fetches an intent; ok is false when missing or expired.
func (s *MemoryIntentStore) Get(_ context.Context, reference string) (*PaymentIntent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[reference]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, reference)
		return nil, false, nil
	}
	intent := entry.intent
	return &intent, true, nil
}

// Delete removes an intent.
func (s *MemoryIntentStore) Delete(_ context.Context, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, reference)
	return nil
}
