package question

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/apperr"
	"gochangi/internal/collection"
	"gochangi/internal/models"
	"gochangi/internal/store/memstore"
	"gochangi/pkg/cache"
	"gochangi/pkg/logger"
	"gochangi/pkg/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type fixedSettings struct {
	mode string
}

func (f fixedSettings) Global(context.Context) (*models.GlobalSettings, error) {
	gs := models.DefaultGlobalSettings()
	gs.GameMode = f.mode
	return &gs, nil
}

type fixture struct {
	svc         *Service
	collections *collection.Service
	repo        *memstore.Store
	uploadDir   string
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	repo := memstore.New()
	collections := collection.NewService(repo, cache.Noop{}, images, logger.Discard())
	svc := NewService(repo, collections, fixedSettings{mode: mode}, images, 1<<20, logger.Discard())
	return &fixture{svc: svc, collections: collections, repo: repo, uploadDir: dir}
}

func (f *fixture) collection(t *testing.T, code string) *models.Collection {
	t.Helper()
	c, err := f.collections.Create(context.Background(), collection.Input{Name: code, Code: code, Online: true})
	require.NoError(t, err)
	return c
}

func openInput(collectionID, prompt string, answers ...string) Input {
	return Input{CollectionID: collectionID, Prompt: prompt, Type: models.QuestionTypeOpen, Answers: answers}
}

func TestCreateAssignsNumberAndAppendsOrder(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "NUM")

	q1, err := f.svc.Create(ctx, openInput(c.ID, "First?", "one"), nil)
	require.NoError(t, err)
	seven := 7
	in := openInput(c.ID, "Explicit?", "x")
	in.Number = &seven
	q7, err := f.svc.Create(ctx, in, nil)
	require.NoError(t, err)
	q8, err := f.svc.Create(ctx, openInput(c.ID, "Next?", "y"), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, q1.Number)
	assert.Equal(t, 7, q7.Number)
	assert.Equal(t, 8, q8.Number)

	stored, err := f.collections.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{q1.ID, q7.ID, q8.ID}, stored.QuestionOrder)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "VAL")

	cases := map[string]Input{
		"no collection": openInput("", "Q?", "a"),
		"no prompt":     openInput(c.ID, "  ", "a"),
		"no answer":     openInput(c.ID, "Q?", " "),
		"bad type":      {CollectionID: c.ID, Prompt: "Q?", Type: "essay", Answers: []string{"a"}},
		"one option":    {CollectionID: c.ID, Prompt: "Q?", Type: models.QuestionTypeMCQ, Options: []string{"a"}, Answers: []string{"a"}},
		"answer not in options": {
			CollectionID: c.ID, Prompt: "Q?", Type: models.QuestionTypeMCQ,
			Options: []string{"red", "blue"}, Answers: []string{"green"},
		},
		"duplicate option": {
			CollectionID: c.ID, Prompt: "Q?", Type: models.QuestionTypeMCQ,
			Options: []string{"red", "Red "}, Answers: []string{"red"},
		},
	}
	for name, in := range cases {
		_, err := f.svc.Create(ctx, in, nil)
		assert.ErrorIs(t, err, apperr.ErrInvalid, name)
	}

	_, err := f.svc.Create(ctx, openInput("missing", "Q?", "a"), nil)
	assert.ErrorIs(t, err, collection.ErrCollectionNotFound)

	mcq, err := f.svc.Create(ctx, Input{
		CollectionID: c.ID, Prompt: "Colour?", Type: "MCQ",
		Options: []string{"Red", "Blue"}, Answers: []string{"blue"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionTypeMCQ, mcq.Type)
}

func TestImageLifecycle(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "IMG")

	q, err := f.svc.Create(ctx, openInput(c.ID, "Where?", "here"), &Image{Body: bytes.NewReader(pngBytes)})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(q.ImagePath, "/uploads/questions/"))
	first := filepath.Join(f.uploadDir, strings.TrimPrefix(q.ImagePath, "/uploads/"))
	assert.FileExists(t, first)

	q, err = f.svc.Update(ctx, q.ID, openInput("", "Where?", "here"), &Image{Body: bytes.NewReader(pngBytes)})
	require.NoError(t, err)
	assert.NoFileExists(t, first, "replaced image is removed")

	in := openInput("", "Where?", "here")
	in.RemoveImage = true
	q, err = f.svc.Update(ctx, q.ID, in, nil)
	require.NoError(t, err)
	assert.Empty(t, q.ImagePath)

	_, err = f.svc.Create(ctx, openInput(c.ID, "Text?", "a"), &Image{Body: strings.NewReader("not an image")})
	assert.ErrorIs(t, err, storage.ErrUnsupportedType)

	entries, err := os.ReadDir(filepath.Join(f.uploadDir, "questions"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateRejectsMove(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	a := f.collection(t, "A")
	b := f.collection(t, "B")

	q, err := f.svc.Create(ctx, openInput(a.ID, "Q?", "x"), nil)
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, q.ID, openInput(b.ID, "Q?", "x"), nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDeleteRemovesFromOrder(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "DEL")

	q1, err := f.svc.Create(ctx, openInput(c.ID, "1?", "a"), nil)
	require.NoError(t, err)
	q2, err := f.svc.Create(ctx, openInput(c.ID, "2?", "b"), nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, q1.ID))

	stored, err := f.collections.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{q2.ID}, stored.QuestionOrder)
	_, err = f.svc.Get(ctx, q1.ID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestCheck(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "CHK")

	q, err := f.svc.Create(ctx, openInput(c.ID, "Capital of France?", "Paris", "paris city"), nil)
	require.NoError(t, err)

	for _, answer := range []string{"paris", "  PARIS ", "Paris   City"} {
		ok, err := f.svc.Check(ctx, q.ID, answer)
		require.NoError(t, err)
		assert.True(t, ok, answer)
	}
	ok, err := f.svc.Check(ctx, q.ID, "Lyon")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.svc.Check(ctx, q.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestForPlayerOrdering(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "PLAY")

	var ids []string
	for _, p := range []string{"a?", "b?", "c?"} {
		q, err := f.svc.Create(ctx, openInput(c.ID, p, "x"), nil)
		require.NoError(t, err)
		ids = append(ids, q.ID)
	}
	_, err := f.collections.SetOrder(ctx, c.ID, []string{ids[2], ids[0], ids[1]})
	require.NoError(t, err)

	got, err := f.svc.ForPlayer(ctx, "play")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, []string{got[0].ID, got[1].ID, got[2].ID})

	// random mode via the global setting: a reversing shuffle stands in for rand
	f.svc.settings = fixedSettings{mode: models.GameModeRandom}
	f.svc.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	got, err = f.svc.ForPlayer(ctx, "play")
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{got[0].ID, got[1].ID, got[2].ID})

	_, err = f.collections.Update(ctx, c.ID, collection.Input{Name: "PLAY", Code: "PLAY", Online: false})
	require.NoError(t, err)
	_, err = f.svc.ForPlayer(ctx, "play")
	assert.ErrorIs(t, err, collection.ErrCollectionOffline)
}

func TestMatchAnswer(t *testing.T) {
	assert.True(t, MatchAnswer(" The  Eiffel\tTower ", []string{"the eiffel tower"}))
	assert.False(t, MatchAnswer("eiffel", []string{"the eiffel tower"}))
	assert.False(t, MatchAnswer("   ", []string{""}))
	assert.Equal(t, "a b", NormaliseAnswer("  A \n B "))
}

func TestUpdateKeepsTimestamps(t *testing.T) {
	f := newFixture(t, models.GameModeOrdered)
	ctx := context.Background()
	c := f.collection(t, "TS")

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return created }
	q, err := f.svc.Create(ctx, openInput(c.ID, "Q?", "a"), nil)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return created.Add(time.Hour) }
	q, err = f.svc.Update(ctx, q.ID, openInput("", "Q2?", "b"), nil)
	require.NoError(t, err)
	assert.Equal(t, created, q.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), q.UpdatedAt)
	assert.Equal(t, "Q2?", q.Prompt)
}
