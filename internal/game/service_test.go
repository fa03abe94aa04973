package game

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochangi/internal/apperr"
	"gochangi/internal/collection"
	"gochangi/internal/models"
	"gochangi/internal/question"
	"gochangi/internal/store"
	"gochangi/internal/store/memstore"
	"gochangi/pkg/cache"
	"gochangi/pkg/logger"
	"gochangi/pkg/storage"
)

type stubSettings struct {
	gs models.GlobalSettings
}

func (s *stubSettings) Global(context.Context) (*models.GlobalSettings, error) {
	gs := s.gs
	return &gs, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	finished []string
}

func (n *recordingNotifier) PlayerFinished(_ context.Context, p *models.Player) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished = append(n.finished, p.ID)
}

type fixture struct {
	svc         *Service
	repo        *memstore.Store
	collections *collection.Service
	questions   *question.Service
	settings    *stubSettings
	notifier    *recordingNotifier
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	images, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	f := &fixture{
		repo:     memstore.New(),
		settings: &stubSettings{gs: models.DefaultGlobalSettings()},
		notifier: &recordingNotifier{},
		clock:    t0,
	}
	f.collections = collection.NewService(f.repo, cache.Noop{}, images, logger.Discard())
	f.questions = question.NewService(f.repo, f.collections, f.settings, images, 1<<20, logger.Discard())
	f.svc = NewService(NewMemoryStore(), f.repo, f.collections, f.questions, f.settings, f.notifier, logger.Discard())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) tick(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// hunt creates an online collection with three questions; only the first has
// a hint.
func (f *fixture) hunt(t *testing.T, online bool) (*models.Collection, []*models.Question) {
	t.Helper()
	ctx := context.Background()
	c, err := f.collections.Create(ctx, collection.Input{Name: "Hunt", Code: "HUNT", Online: online})
	require.NoError(t, err)

	inputs := []question.Input{
		{CollectionID: c.ID, Prompt: "First?", Answers: []string{"a1"}, Hint: "starts with a", FunFact: "fact one"},
		{CollectionID: c.ID, Prompt: "Second?", Answers: []string{"a2"}, FunFact: "fact two"},
		{CollectionID: c.ID, Prompt: "Third?", Answers: []string{"a3"}},
	}
	var qs []*models.Question
	for _, in := range inputs {
		q, err := f.questions.Create(ctx, in, nil)
		require.NoError(t, err)
		qs = append(qs, q)
	}
	return c, qs
}

func (f *fixture) player(t *testing.T, collectionID string) *models.Player {
	t.Helper()
	p := &models.Player{ID: store.NewID(), Username: "ann", CollectionID: collectionID, CreatedAt: f.clock}
	require.NoError(t, f.repo.CreatePlayer(context.Background(), p))
	return p
}

func TestPlayThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	v, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, v.Status)
	assert.Equal(t, 3, v.Total)
	require.NotNil(t, v.Question)
	assert.Equal(t, qs[0].ID, v.Question.ID)
	require.NotNil(t, v.RemainingSeconds)
	assert.Equal(t, 60, *v.RemainingSeconds)

	f.tick(5 * time.Second)
	res, err := f.svc.Hint(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeHint, res.Outcome)
	assert.Equal(t, "starts with a", res.Hint)
	assert.Equal(t, "starts with a", res.Session.Hint)
	assert.Equal(t, 1, res.Session.HintsUsed)

	f.tick(5 * time.Second)
	res, err = f.svc.Answer(ctx, p.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, OutcomeWrong, res.Outcome)
	assert.False(t, res.Correct)
	assert.Empty(t, res.FunFact)

	f.tick(5 * time.Second)
	res, err = f.svc.Answer(ctx, p.ID, "  A1 ")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, "fact one", res.FunFact)
	assert.Equal(t, 7, res.Session.Score)
	assert.Equal(t, qs[1].ID, res.Session.Question.ID)
	assert.Empty(t, res.Session.Hint)

	f.tick(5 * time.Second)
	_, err = f.svc.Hint(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNoHint)

	res, err = f.svc.Skip(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, "fact two", res.FunFact)
	assert.Equal(t, 2, res.Session.Score)

	f.tick(10 * time.Second)
	res, err = f.svc.Answer(ctx, p.ID, "a3")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, res.Session.Status)
	assert.Nil(t, res.Session.Question)
	assert.Nil(t, res.Session.RemainingSeconds)

	saved, err := f.repo.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.FinishedAt)
	assert.Equal(t, 12, saved.Score)
	assert.Equal(t, 30, saved.ElapsedSeconds)
	assert.Equal(t, 1, saved.HintsUsed)
	assert.Equal(t, 1, saved.Skips)
	assert.Equal(t, 1, saved.WrongAnswers)
	assert.Equal(t, []string{p.ID}, f.notifier.finished)

	_, err = f.svc.Answer(ctx, p.ID, "a3")
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.Equal(t, http.StatusConflict, apperr.Status(err))

	_, err = f.svc.Start(ctx, p.ID)
	assert.ErrorIs(t, err, ErrAlreadyFinished)

	v, err = f.svc.Current(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, v.Status)
	assert.Len(t, f.notifier.finished, 1)
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Answer(ctx, p.ID, "a1")
	require.NoError(t, err)

	v, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, qs[1].ID, v.Question.ID)
	assert.Equal(t, 10, v.Score)
}

func TestTimeoutOnNextAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)

	f.tick(61 * time.Second)
	res, err := f.svc.Answer(ctx, p.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.False(t, res.Correct)
	assert.Equal(t, qs[1].ID, res.Session.Question.ID)
	assert.Equal(t, 1, res.Session.Skips)
	require.NotNil(t, res.Session.RemainingSeconds)
	assert.Equal(t, 59, *res.Session.RemainingSeconds)

	// the remaining clocks run out while nobody is looking
	f.tick(5 * time.Minute)
	v, err := f.svc.Current(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, v.Status)
	assert.Equal(t, 3, v.Skips)
	assert.Equal(t, 180, v.ElapsedSeconds)

	saved, err := f.repo.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, saved.Finished())
	assert.Zero(t, saved.Score)
}

func TestMaxAttemptsThroughService(t *testing.T) {
	f := newFixture(t)
	f.settings.gs.MaxAttempts = 2
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Answer(ctx, p.ID, "x")
	require.NoError(t, err)
	res, err := f.svc.Answer(ctx, p.ID, "y")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAttemptsExhausted, res.Outcome)
	assert.Equal(t, qs[1].ID, res.Session.Question.ID)
	assert.Equal(t, 2, res.Session.WrongAnswers)
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "nobody")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Equal(t, http.StatusNotFound, apperr.Status(err))

	offline, _ := f.hunt(t, false)
	_, err = f.svc.Start(ctx, f.player(t, offline.ID).ID)
	assert.ErrorIs(t, err, collection.ErrCollectionOffline)

	empty, err := f.collections.Create(ctx, collection.Input{Name: "Empty", Code: "EMPTY", Online: true})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, f.player(t, empty.ID).ID)
	assert.ErrorIs(t, err, ErrEmptyCollection)

	_, err = f.svc.Answer(ctx, f.player(t, empty.ID).ID, "a")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestDeletedQuestionIsPassedOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, f.questions.Delete(ctx, qs[1].ID))

	res, err := f.svc.Answer(ctx, p.ID, "a1")
	require.NoError(t, err)
	assert.Equal(t, qs[2].ID, res.Session.Question.ID)
	assert.Zero(t, res.Session.Skips)
}

func TestDeletedExpiredQuestionCostsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, f.questions.Delete(ctx, qs[0].ID))

	// the deleted question's clock ran out at 60s; the next one started then
	f.tick(90 * time.Second)
	v, err := f.svc.Current(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qs[1].ID, v.Question.ID)
	assert.Zero(t, v.Skips)
	require.NotNil(t, v.RemainingSeconds)
	assert.Equal(t, 30, *v.RemainingSeconds)
}

func TestDeletedThenExpiredThroughAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, qs := f.hunt(t, true)
	p := f.player(t, c.ID)

	_, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, f.questions.Delete(ctx, qs[0].ID))

	f.tick(130 * time.Second)
	res, err := f.svc.Answer(ctx, p.ID, "a2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeTimeout, res.Outcome, "the second question expired at 120s")
	assert.Equal(t, "fact two", res.FunFact)
	assert.Equal(t, 1, res.Session.Skips)
	assert.Equal(t, qs[2].ID, res.Session.Question.ID)
	require.NotNil(t, res.Session.RemainingSeconds)
	assert.Equal(t, 50, *res.Session.RemainingSeconds)
}

func TestRandomOrderIsFixedAtStart(t *testing.T) {
	f := newFixture(t)
	f.settings.gs.GameMode = models.GameModeRandom
	ctx := context.Background()
	c, _ := f.hunt(t, true)
	p := f.player(t, c.ID)

	v, err := f.svc.Start(ctx, p.ID)
	require.NoError(t, err)
	first := v.Question.ID
	for i := 0; i < 5; i++ {
		v, err = f.svc.Current(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, first, v.Question.ID)
	}
}
