// backend/pkg/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"gochangi/internal/models"
)

var ErrMiss = errors.New("cache miss")

// Cache holds read-mostly documents in front of the store. Every getter
// returns ErrMiss when the key is absent.
type Cache interface {
	GetCollection(ctx context.Context, code string) (*models.Collection, error)
	SetCollection(ctx context.Context, code string, c *models.Collection) error
	DeleteCollection(ctx context.Context, code string) error
	GetLeaderboard(ctx context.Context, collectionID string) ([]models.LeaderboardEntry, error)
	SetLeaderboard(ctx context.Context, collectionID string, entries []models.LeaderboardEntry) error
	InvalidateLeaderboard(ctx context.Context, collectionID string) error
}

const allCollections = "all"

type RedisCache struct {
	client         *redis.Client
	collectionTTL  time.Duration
	leaderboardTTL time.Duration
}

var _ Cache = (*RedisCache)(nil)

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCache(client *redis.Client, collectionTTL, leaderboardTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:         client,
		collectionTTL:  collectionTTL,
		leaderboardTTL: leaderboardTTL,
	}
}

func collectionKey(code string) string {
	return "collection:" + code
}

func leaderboardKey(collectionID string) string {
	if collectionID == "" {
		collectionID = allCollections
	}
	return "leaderboard:" + collectionID
}

func (c *RedisCache) SetCollection(ctx context.Context, code string, collection *models.Collection) error {
	data, err := json.Marshal(collection)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, collectionKey(code), data, c.collectionTTL).Err()
}

func (c *RedisCache) GetCollection(ctx context.Context, code string) (*models.Collection, error) {
	var collection models.Collection
	if err := c.getJSON(ctx, collectionKey(code), &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

func (c *RedisCache) DeleteCollection(ctx context.Context, code string) error {
	return c.client.Del(ctx, collectionKey(code)).Err()
}

func (c *RedisCache) SetLeaderboard(ctx context.Context, collectionID string, entries []models.LeaderboardEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, leaderboardKey(collectionID), data, c.leaderboardTTL).Err()
}

func (c *RedisCache) GetLeaderboard(ctx context.Context, collectionID string) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := c.getJSON(ctx, leaderboardKey(collectionID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// InvalidateLeaderboard drops the collection's board together with the
// cross-collection board, which always includes it.
func (c *RedisCache) InvalidateLeaderboard(ctx context.Context, collectionID string) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, leaderboardKey(allCollections))
	if collectionID != "" {
		pipe.Del(ctx, leaderboardKey(collectionID))
	} else {
		// A global clear touches every collection.
		keys, err := c.client.Keys(ctx, "leaderboard:*").Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Noop is used when no Redis address is configured.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) GetCollection(context.Context, string) (*models.Collection, error) { return nil, ErrMiss }
func (Noop) SetCollection(context.Context, string, *models.Collection) error   { return nil }
func (Noop) DeleteCollection(context.Context, string) error                    { return nil }
func (Noop) GetLeaderboard(context.Context, string) ([]models.LeaderboardEntry, error) {
	return nil, ErrMiss
}
func (Noop) SetLeaderboard(context.Context, string, []models.LeaderboardEntry) error { return nil }
func (Noop) InvalidateLeaderboard(context.Context, string) error                     { return nil }
