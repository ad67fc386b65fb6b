package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spicycabbage/spotdiff/internal/config"
	"github.com/spicycabbage/spotdiff/internal/game"
)

// Grant is a purchase waiting to be claimed.
type Grant struct {
	Powerups  game.Powerups `json:"powerups"`
	Timestamp int64         `json:"timestamp"` // Unix milliseconds.
	SessionID string        `json:"sessionId"`
}

// PendingStore keeps the grants of each customer email until claimed.
type PendingStore interface {
	Add(ctx context.Context, email string, g Grant) error
	List(ctx context.Context, email string) ([]Grant, error)

	// Take returns the grants of email and removes them.
	Take(ctx context.Context, email string) ([]Grant, error)
}

// MemoryStore is a PendingStore kept in memory: grants are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string][]Grant
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pending: make(map[string][]Grant)}
}

func (s *MemoryStore) Add(_ context.Context, email string, g Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[email] = append(s.pending[email], g)
	return nil
}

func (s *MemoryStore) List(_ context.Context, email string) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Grant(nil), s.pending[email]...), nil
}

func (s *MemoryStore) Take(_ context.Context, email string) ([]Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grants := s.pending[email]
	delete(s.pending, email)
	return grants, nil
}

// RedisStore is a PendingStore keeping one list per email in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server of cfg. It does not check the connection, see Ping.
func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, ttl: cfg.TTL}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func pendingKey(email string) string {
	return "pending:" + email
}

func (s *RedisStore) Add(ctx context.Context, email string, g Grant) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	key := pendingKey(email)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store pending grant for %s: %w", email, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, email string) ([]Grant, error) {
	values, err := s.client.LRange(ctx, pendingKey(email), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list pending grants for %s: %w", email, err)
	}
	return decodeGrants(values)
}

func (s *RedisStore) Take(ctx context.Context, email string) ([]Grant, error) {
	key := pendingKey(email)
	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take pending grants for %s: %w", email, err)
	}
	return decodeGrants(lrange.Val())
}

func decodeGrants(values []string) ([]Grant, error) {
	grants := make([]Grant, 0, len(values))
	for _, v := range values {
		var g Grant
		if err := json.Unmarshal([]byte(v), &g); err != nil {
			return nil, fmt.Errorf("failed to decode pending grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, nil
}
