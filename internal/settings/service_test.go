package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store/memstore"
	"gochangi/pkg/logger"
	"gochangi/pkg/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{1}, 16)...)

func newTestService(t *testing.T) *Service {
	t.Helper()
	images, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	return NewService(memstore.New(), images, 1<<20, logger.Discard())
}

func TestGlobalDefaults(t *testing.T) {
	svc := newTestService(t)

	gs, err := svc.Global(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.GameModeOrdered, gs.GameMode)
	assert.Equal(t, 60, gs.QuestionTimeSeconds)
	assert.Equal(t, 10, gs.PointsPerCorrect)
	assert.Equal(t, 3, gs.HintPenalty)
	assert.Equal(t, 5, gs.SkipPenalty)
	assert.Equal(t, 0, gs.MaxAttempts)
}

func TestUpdateGlobal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := models.DefaultGlobalSettings()
	in.GameMode = " RANDOM "
	in.QuestionTimeSeconds = 0
	in.MaxAttempts = 3
	saved, err := svc.UpdateGlobal(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, models.GameModeRandom, saved.GameMode)

	got, err := svc.Global(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MaxAttempts)
	assert.Equal(t, 0, got.QuestionTimeSeconds)

	bad := models.DefaultGlobalSettings()
	bad.PointsPerCorrect = 0
	_, err = svc.UpdateGlobal(ctx, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	bad = models.DefaultGlobalSettings()
	bad.SkipPenalty = -1
	_, err = svc.UpdateGlobal(ctx, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	bad = models.DefaultGlobalSettings()
	bad.GameMode = "shuffled"
	_, err = svc.UpdateGlobal(ctx, bad)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateLanding(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	def, err := svc.Landing(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GoChangi", def.Title)

	_, err = svc.UpdateLanding(ctx, LandingInput{Title: "x", PrimaryColor: "purple"}, LandingImages{})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	l, err := svc.UpdateLanding(ctx, LandingInput{Title: " Hunt ", PrimaryColor: "#abc"},
		LandingImages{Logo: bytes.NewReader(pngBytes)})
	require.NoError(t, err)
	assert.Equal(t, "Hunt", l.Title)
	assert.NotEmpty(t, l.LogoImage)
	assert.Empty(t, l.BackgroundImage)

	// a text-only update keeps the logo
	l, err = svc.UpdateLanding(ctx, LandingInput{Title: "Hunt 2", PrimaryColor: "#AABBCC"}, LandingImages{})
	require.NoError(t, err)
	assert.NotEmpty(t, l.LogoImage)

	l, err = svc.UpdateLanding(ctx, LandingInput{Title: "Hunt 2", RemoveLogoImage: true}, LandingImages{})
	require.NoError(t, err)
	assert.Empty(t, l.LogoImage)
	assert.Equal(t, models.DefaultLanding().PrimaryColor, l.PrimaryColor)
}

func TestUpdateLandingMultipart(t *testing.T) {
	svc := newTestService(t)
	h := NewHandler(svc, 1<<20, logger.Discard())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "Treasure"))
	require.NoError(t, mw.WriteField("primaryColor", "#123456"))
	part, err := mw.CreateFormFile("backgroundImage", "bg.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/landing", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.UpdateLanding(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var l models.LandingCustomisation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&l))
	assert.Equal(t, "Treasure", l.Title)
	assert.True(t, strings.HasPrefix(l.BackgroundImage, "/uploads/landing/"))
}

func TestUpdateGlobalHandlerRejectsUnknownFields(t *testing.T) {
	h := NewHandler(newTestService(t), 1<<20, logger.Discard())

	rec := httptest.NewRecorder()
	h.UpdateGlobal(rec, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"bogus":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
