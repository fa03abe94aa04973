package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/config"
	"gochangi/internal/game"
	"gochangi/internal/store/memstore"
	"gochangi/pkg/cache"
	"gochangi/pkg/logger"
	"gochangi/pkg/storage"
)

func newTestApp(t *testing.T) (*App, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Uploads.Dir = t.TempDir()

	images, err := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
	require.NoError(t, err)
	infra := &Infra{
		Store:    memstore.New(),
		Cache:    cache.Noop{},
		Sessions: game.NewMemoryStore(),
		Images:   images,
	}
	app := NewApp(cfg, infra, logger.Discard())
	created, err := app.Auth.Bootstrap(context.Background(), "Boss", "correct-horse")
	require.NoError(t, err)
	require.True(t, created)

	ts := httptest.NewServer(app.Handler)
	t.Cleanup(ts.Close)
	return app, ts
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(data) > 0 && data[0] == '{' {
		require.NoError(c.t, json.Unmarshal(data, &out))
	}
	return resp.StatusCode, out
}

func TestHealthAndAuthBoundary(t *testing.T) {
	_, ts := newTestApp(t)
	c := &client{t: t, base: ts.URL}

	status, body := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, _ = c.do(http.MethodGet, "/api/collections", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodPost, "/api/admins/login", map[string]string{"username": "boss", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = c.do(http.MethodPost, "/api/admins/login", map[string]string{"username": "BOSS", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, status)
	c.token, _ = body["token"].(string)
	require.NotEmpty(t, c.token)

	status, body = c.do(http.MethodGet, "/api/admins/me", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "boss", body["username"])

	status, _ = c.do(http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestGameFlowOverHTTP(t *testing.T) {
	app, ts := newTestApp(t)
	admin := &client{t: t, base: ts.URL}
	_, body := admin.do(http.MethodPost, "/api/admins/login", map[string]string{"username": "boss", "password": "correct-horse"})
	admin.token, _ = body["token"].(string)

	status, body := admin.do(http.MethodPost, "/api/collections", map[string]interface{}{
		"name": "Old Town", "code": "TOWN1", "online": true, "public": true,
	})
	require.Equal(t, http.StatusCreated, status)
	collectionID := body["id"].(string)

	status, _ = admin.do(http.MethodPost, "/api/questions", map[string]interface{}{
		"collectionId": collectionID, "prompt": "Colour of the town hall door?", "type": "open",
		"answers": []string{"red"}, "hint": "Like a fire engine", "funFact": "Painted in 1902",
	})
	require.Equal(t, http.StatusCreated, status)

	player := &client{t: t, base: ts.URL}
	status, body = player.do(http.MethodGet, "/api/collections/code/town1", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = player.do(http.MethodPost, "/api/players", map[string]string{"username": "Ana", "collectionId": collectionID})
	require.Equal(t, http.StatusCreated, status)
	playerID := body["id"].(string)

	status, _ = player.do(http.MethodPost, "/api/players/"+playerID+"/session", nil)
	require.Equal(t, http.StatusOK, status)

	status, body = player.do(http.MethodPost, "/api/players/"+playerID+"/session/answer", map[string]string{"answer": " RED "})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "correct", body["outcome"])
	assert.Equal(t, "Painted in 1902", body["funFact"])
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "finished", session["status"])

	// public read, admin-only delete on the same path
	status, body = player.do(http.MethodGet, "/api/players/"+playerID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 10, body["score"])
	status, _ = player.do(http.MethodDelete, "/api/players/"+playerID, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	board, err := app.Players.Leaderboard(context.Background(), collectionID, 0)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "Ana", board[0].Username)

	status, _ = admin.do(http.MethodDelete, "/api/players/"+playerID, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestPlayerPatchNeedsAdmin(t *testing.T) {
	app, ts := newTestApp(t)
	admin := &client{t: t, base: ts.URL}
	_, body := admin.do(http.MethodPost, "/api/admins/login", map[string]string{"username": "boss", "password": "correct-horse"})
	admin.token, _ = body["token"].(string)

	status, body := admin.do(http.MethodPost, "/api/collections", map[string]interface{}{"name": "Harbour", "code": "SEA", "online": true})
	require.Equal(t, http.StatusCreated, status)
	collectionID := body["id"].(string)
	status, _ = admin.do(http.MethodPost, "/api/questions", map[string]interface{}{
		"collectionId": collectionID, "prompt": "Name of the lighthouse?", "type": "open", "answers": []string{"beacon"},
	})
	require.Equal(t, http.StatusCreated, status)

	anon := &client{t: t, base: ts.URL}
	status, body = anon.do(http.MethodPost, "/api/players", map[string]string{"username": "Mallory", "collectionId": collectionID})
	require.Equal(t, http.StatusCreated, status)
	playerID := body["id"].(string)
	status, _ = anon.do(http.MethodPost, "/api/players/"+playerID+"/session", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = anon.do(http.MethodPatch, "/api/players/"+playerID, map[string]interface{}{
		"score": 99999, "finishedAt": "2024-05-01T12:00:00Z",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	board, err := app.Players.Leaderboard(context.Background(), collectionID, 0)
	require.NoError(t, err)
	assert.Empty(t, board)

	status, body = anon.do(http.MethodGet, "/api/players/"+playerID+"/session", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "playing", body["status"])

	status, body = admin.do(http.MethodPatch, "/api/players/"+playerID, map[string]interface{}{"score": 3})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["score"])
}

func TestCORSPreflight(t *testing.T) {
	_, ts := newTestApp(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/players", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
