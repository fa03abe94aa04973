package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/auth"
	"gochangi/internal/models"
	"gochangi/pkg/logger"
)

func newRouter(f *fixture) *mux.Router {
	h := NewHandler(f.svc, logger.Discard())
	r := mux.NewRouter()
	r.HandleFunc("/players", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/players", h.List).Methods(http.MethodGet)
	r.HandleFunc("/players", h.Clear).Methods(http.MethodDelete)
	r.HandleFunc("/players/export.pdf", h.ExportPDF).Methods(http.MethodGet)
	r.HandleFunc("/players/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/players/{id}", h.Patch).Methods(http.MethodPatch)
	r.HandleFunc("/players/{id}/redeem", h.Redeem).Methods(http.MethodPatch)
	r.HandleFunc("/leaderboard", h.Leaderboard).Methods(http.MethodGet)
	return r
}

func TestPlayerHandlers(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "HTTP", true)
	router := newRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/players",
		strings.NewReader(`{"username":"zoe","collectionId":"`+c.ID+`"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p models.Player
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/players/"+p.ID,
		strings.NewReader(`{"score":25,"elapsedSeconds":80,"finishedAt":"2024-05-01T12:05:00Z"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?collectionId="+c.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var board []models.LeaderboardEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&board))
	require.Len(t, board, 1)
	assert.Equal(t, "zoe", board[0].Username)
	assert.Equal(t, 25, board[0].Score)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/players/"+p.ID+"/redeem", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/players/"+p.ID+"/redeem", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/players/export.pdf?collectionId="+c.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	req := httptest.NewRequest(http.MethodDelete, "/players?collectionId="+c.ID, nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Username: "boss", Role: models.RoleMain}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var entry models.AutoClearLog
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&entry))
	assert.Equal(t, "boss", entry.Actor)
	assert.Equal(t, models.TriggerManual, entry.Trigger)
	assert.Equal(t, int64(1), entry.DeletedCount)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/players/"+p.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRejectsBadUsername(t *testing.T) {
	f := newFixture(t)
	c := f.collection(t, "MOD", true)
	_, err := f.moderation.Add(context.Background(), "meanie")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(f).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/players",
		strings.NewReader(`{"username":"M3AN1E","collectionId":"`+c.ID+`"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":true`)
}
