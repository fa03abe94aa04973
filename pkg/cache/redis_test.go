package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/models"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute, 30*time.Second), mr
}

func TestCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	_, err := c.GetCollection(ctx, "JEWEL")
	assert.ErrorIs(t, err, ErrMiss)

	in := &models.Collection{ID: "c1", Name: "Jewel", Code: "JEWEL", Online: true, QuestionOrder: []string{"q2", "q1"}}
	require.NoError(t, c.SetCollection(ctx, "JEWEL", in))
	assert.Equal(t, time.Minute, mr.TTL("collection:JEWEL"))

	out, err := c.GetCollection(ctx, "JEWEL")
	require.NoError(t, err)
	assert.Equal(t, "Jewel", out.Name)
	assert.Equal(t, []string{"q2", "q1"}, out.QuestionOrder)

	require.NoError(t, c.DeleteCollection(ctx, "JEWEL"))
	_, err = c.GetCollection(ctx, "JEWEL")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestLeaderboardInvalidation(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	entries := []models.LeaderboardEntry{{Rank: 1, PlayerID: "p1", Username: "ann", Score: 30}}
	require.NoError(t, c.SetLeaderboard(ctx, "c1", entries))
	require.NoError(t, c.SetLeaderboard(ctx, "c2", entries))
	require.NoError(t, c.SetLeaderboard(ctx, "", entries))

	got, err := c.GetLeaderboard(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	require.NoError(t, c.InvalidateLeaderboard(ctx, "c1"))
	assert.False(t, mr.Exists("leaderboard:c1"))
	assert.False(t, mr.Exists("leaderboard:all"))
	assert.True(t, mr.Exists("leaderboard:c2"))

	require.NoError(t, c.InvalidateLeaderboard(ctx, ""))
	assert.False(t, mr.Exists("leaderboard:c2"))
}
