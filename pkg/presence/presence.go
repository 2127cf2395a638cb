package presence

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store tracks which users hold at least one live socket connection.
type Store interface {
	Connect(ctx context.Context, userID uint, connID string) error
	Disconnect(ctx context.Context, userID uint, connID string) error
	// Touch keeps a live connection's presence from expiring.
	Touch(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
}

// keyTTL bounds how long a crashed instance can leave a user marked online.
// Live connections refresh it well within this window.
const keyTTL = 5 * time.Minute

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func presenceKey(userID uint) string {
	return "presence:user:" + strconv.FormatUint(uint64(userID), 10)
}

func (s *RedisStore) Connect(ctx context.Context, userID uint, connID string) error {
	key := presenceKey(userID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, connID)
	pipe.Expire(ctx, key, keyTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Disconnect(ctx context.Context, userID uint, connID string) error {
	return s.client.SRem(ctx, presenceKey(userID), connID).Err()
}

// Touch only extends the expiry; a key already removed by Disconnect stays gone.
func (s *RedisStore) Touch(ctx context.Context, userID uint) error {
	return s.client.Expire(ctx, presenceKey(userID), keyTTL).Err()
}

func (s *RedisStore) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := s.client.SCard(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type MemoryStore struct {
	mu    sync.RWMutex
	conns map[uint]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conns: make(map[uint]map[string]struct{})}
}

func (s *MemoryStore) Connect(_ context.Context, userID uint, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		s.conns[userID] = set
	}
	set[connID] = struct{}{}
	return nil
}

func (s *MemoryStore) Disconnect(_ context.Context, userID uint, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.conns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(s.conns, userID)
		}
	}
	return nil
}

func (s *MemoryStore) Touch(context.Context, uint) error {
	return nil
}

func (s *MemoryStore) IsOnline(_ context.Context, userID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[userID]) > 0, nil
}
