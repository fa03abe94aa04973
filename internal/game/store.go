package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"gochangi/internal/store"
)

// SessionStore keeps in-progress sessions. Lock serialises actions on one
// player's session; the returned func releases it.
type SessionStore interface {
	Get(ctx context.Context, playerID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, playerID string) error
	Lock(ctx context.Context, playerID string) (func(), error)
}

// MemoryStore keeps sessions in process memory. Sessions do not expire.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

var _ SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]*keyLock),
	}
}

// Sessions are stored encoded so callers never share a pointer.
func (m *MemoryStore) Get(_ context.Context, playerID string) (*Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[playerID]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNoSession
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.PlayerID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, playerID string) error {
	m.mu.Lock()
	delete(m.sessions, playerID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Lock(ctx context.Context, playerID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[playerID]
	if !ok {
		l = &keyLock{}
		m.locks[playerID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, playerID)
		}
		m.mu.Unlock()
	}, nil
}

const (
	lockTTL   = 5 * time.Second
	lockRetry = 20 * time.Millisecond
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore shares sessions between server instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(playerID string) string {
	return "session:player:" + playerID
}

func lockKey(playerID string) string {
	return "session:lock:" + playerID
}

// Get also pushes the expiry back, so only sessions left idle for a full TTL
// are dropped.
func (r *RedisStore) Get(ctx context.Context, playerID string) (*Session, error) {
	data, err := r.client.GetEx(ctx, sessionKey(playerID), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(s.PlayerID), data, r.ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, playerID string) error {
	return r.client.Del(ctx, sessionKey(playerID)).Err()
}

// Lock spins on SET NX until it wins or ctx ends. The lock expires on its own
// if the holder dies.
func (r *RedisStore) Lock(ctx context.Context, playerID string) (func(), error) {
	key := lockKey(playerID)
	token := store.NewID()
	for {
		ok, err := r.client.SetNX(ctx, key, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
	return func() {
		// the request context may already be cancelled
		_ = unlockScript.Run(context.Background(), r.client, []string{key}, token).Err()
	}, nil
}
