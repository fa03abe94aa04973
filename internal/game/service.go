// backend/internal/game/service.go
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gochangi/internal/apperr"
	"gochangi/internal/collection"
	"gochangi/internal/models"
	"gochangi/internal/question"
	"gochangi/internal/store"
)

var (
	ErrPlayerNotFound  = apperr.New(apperr.ErrNotFound, "player not found")
	ErrNotStarted      = apperr.New(apperr.ErrConflict, "the quiz has not been started")
	ErrAlreadyFinished = apperr.New(apperr.ErrConflict, "this player has already finished")
	ErrEmptyCollection = apperr.New(apperr.ErrConflict, "this collection has no questions yet")
	ErrNoHint          = apperr.New(apperr.ErrInvalid, "this question has no hint")
)

type PlayerRepository interface {
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player) error
}

type Collections interface {
	Get(ctx context.Context, id string) (*models.Collection, error)
}

type Questions interface {
	Get(ctx context.Context, id string) (*models.Question, error)
	Ordered(ctx context.Context, c *models.Collection) ([]models.Question, error)
}

type SettingsReader interface {
	Global(ctx context.Context) (*models.GlobalSettings, error)
}

// Notifier is told when a player's quiz ends so leaderboards can refresh.
type Notifier interface {
	PlayerFinished(ctx context.Context, p *models.Player)
}

// View is the player's current position in the quiz.
type View struct {
	PlayerID         string              `json:"playerId"`
	CollectionID     string              `json:"collectionId"`
	Status           Status              `json:"status"`
	Index            int                 `json:"index"`
	Total            int                 `json:"total"`
	Question         *models.QuestionDTO `json:"question,omitempty"`
	Hint             string              `json:"hint,omitempty"`
	RemainingSeconds *int                `json:"remainingSeconds,omitempty"`
	Score            int                 `json:"score"`
	HintsUsed        int                 `json:"hintsUsed"`
	Skips            int                 `json:"skips"`
	WrongAnswers     int                 `json:"wrongAnswers"`
	Attempts         int                 `json:"attempts"`
	StartedAt        time.Time           `json:"startedAt"`
	FinishedAt       *time.Time          `json:"finishedAt,omitempty"`
	ElapsedSeconds   int                 `json:"elapsedSeconds"`
}

// Result reports what an action did. FunFact belongs to the question the
// player just left.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Correct bool    `json:"correct"`
	FunFact string  `json:"funFact,omitempty"`
	Hint    string  `json:"hint,omitempty"`
	Session View    `json:"session"`
}

type Service struct {
	sessions    SessionStore
	players     PlayerRepository
	collections Collections
	questions   Questions
	settings    SettingsReader
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(sessions SessionStore, players PlayerRepository, collections Collections, questions Questions, settings SettingsReader, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		sessions:    sessions,
		players:     players,
		collections: collections,
		questions:   questions,
		settings:    settings,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) player(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.players.GetPlayer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *Service) rules(ctx context.Context) (Rules, error) {
	gs, err := s.settings.Global(ctx)
	if err != nil {
		return Rules{}, err
	}
	return RulesFrom(gs), nil
}

// catchUp walks the session forward to now and loads the question it lands
// on. Deleted questions are dropped without penalty and expired ones time
// out, in the order they come up. It returns the last question that timed
// out, if any, and nil for the current question once the session is finished.
func (s *Service) catchUp(ctx context.Context, sess *Session, rules Rules, now time.Time) (timedOut, current *models.Question, err error) {
	for !sess.Finished() {
		q, err := s.questions.Get(ctx, sess.CurrentQuestionID())
		if errors.Is(err, question.ErrQuestionNotFound) {
			s.logger.Warn("question vanished mid-game", "player", sess.PlayerID, "question", sess.CurrentQuestionID())
			sess.DropCurrent(rules, now)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		if sess.TimeOut(rules, now) {
			timedOut = q
			continue
		}
		return timedOut, q, nil
	}
	return timedOut, nil, nil
}

func (s *Service) view(sess *Session, q *models.Question, rules Rules, now time.Time) View {
	v := View{
		PlayerID:       sess.PlayerID,
		CollectionID:   sess.CollectionID,
		Status:         sess.Status,
		Index:          sess.Index,
		Total:          len(sess.Order),
		Score:          sess.Score,
		HintsUsed:      sess.HintsUsed,
		Skips:          sess.Skips,
		WrongAnswers:   sess.WrongAnswers,
		Attempts:       sess.Attempts,
		StartedAt:      sess.StartedAt,
		FinishedAt:     sess.FinishedAt,
		ElapsedSeconds: sess.ElapsedSeconds(now),
	}
	if q != nil {
		dto := q.ToDTO()
		v.Question = &dto
		if sess.HintShown {
			v.Hint = q.Hint
		}
	}
	if left, ok := sess.Remaining(rules, now); ok {
		secs := int(math.Ceil(left.Seconds()))
		v.RemainingSeconds = &secs
	}
	return v
}

// persist saves the session and, the first time it is seen finished, copies
// the final tallies onto the player.
func (s *Service) persist(ctx context.Context, p *models.Player, sess *Session, wasFinished bool, now time.Time) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if wasFinished || !sess.Finished() {
		return nil
	}

	p.Score = sess.Score
	p.ElapsedSeconds = sess.ElapsedSeconds(now)
	p.HintsUsed = sess.HintsUsed
	p.Skips = sess.Skips
	p.WrongAnswers = sess.WrongAnswers
	finished := sess.FinishedAt.UTC()
	p.FinishedAt = &finished
	if err := s.players.UpdatePlayer(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("player removed before finishing", "player", p.ID)
			return nil
		}
		return fmt.Errorf("record result: %w", err)
	}
	s.logger.Info("player finished", "player", p.ID, "collection", p.CollectionID, "score", p.Score, "elapsed", p.ElapsedSeconds)
	if s.notifier != nil {
		s.notifier.PlayerFinished(ctx, p)
	}
	return nil
}

// Start begins the player's quiz. Calling it again returns the running
// session unchanged.
func (s *Service) Start(ctx context.Context, playerID string) (*View, error) {
	unlock, err := s.sessions.Lock(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, playerID)
	switch {
	case err == nil:
		if sess.Finished() {
			return nil, ErrAlreadyFinished
		}
		return s.settle(ctx, p, sess)
	case !errors.Is(err, ErrNoSession):
		return nil, err
	}
	if p.Finished() {
		return nil, ErrAlreadyFinished
	}

	c, err := s.collections.Get(ctx, p.CollectionID)
	if err != nil {
		return nil, err
	}
	if !c.Online {
		return nil, collection.ErrCollectionOffline
	}
	questions, err := s.questions.Ordered(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrEmptyCollection
	}
	order := make([]string, len(questions))
	for i, q := range questions {
		order[i] = q.ID
	}

	now := s.now().UTC()
	sess = NewSession(p.ID, c.ID, order, now)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	p.StartedAt = now
	if err := s.players.UpdatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	s.logger.Info("quiz started", "player", p.ID, "collection", c.ID, "questions", len(order))

	rules, err := s.rules(ctx)
	if err != nil {
		return nil, err
	}
	v := s.view(sess, &questions[0], rules, now)
	return &v, nil
}

// Current returns the session, applying any timeouts that ran out since the
// last action.
func (s *Service) Current(ctx context.Context, playerID string) (*View, error) {
	unlock, err := s.sessions.Lock(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, playerID)
	if errors.Is(err, ErrNoSession) {
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, p, sess)
}

func (s *Service) settle(ctx context.Context, p *models.Player, sess *Session) (*View, error) {
	rules, err := s.rules(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	wasFinished := sess.Finished()
	_, q, err := s.catchUp(ctx, sess, rules, now)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, p, sess, wasFinished, now); err != nil {
		return nil, err
	}
	v := s.view(sess, q, rules, now)
	return &v, nil
}

type action func(sess *Session, q *models.Question, rules Rules, now time.Time) (Result, error)

func (s *Service) act(ctx context.Context, playerID string, fn action) (*Result, error) {
	unlock, err := s.sessions.Lock(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := s.player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, playerID)
	if errors.Is(err, ErrNoSession) {
		if p.Finished() {
			return nil, ErrSessionFinished
		}
		return nil, ErrNotStarted
	}
	if err != nil {
		return nil, err
	}
	if sess.Finished() {
		return nil, ErrSessionFinished
	}
	rules, err := s.rules(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	timedOut, q, err := s.catchUp(ctx, sess, rules, now)
	if err != nil {
		return nil, err
	}

	var res Result
	switch {
	case timedOut != nil:
		// the clock ran out before this action arrived
		res = Result{Outcome: OutcomeTimeout, FunFact: timedOut.FunFact}
	case q == nil:
		// every remaining question was deleted
		if err := s.persist(ctx, p, sess, false, now); err != nil {
			return nil, err
		}
		return nil, ErrSessionFinished
	default:
		res, err = fn(sess, q, rules, now)
		if err != nil {
			return nil, err
		}
		if res.Outcome != OutcomeHint && res.Outcome != OutcomeWrong {
			res.FunFact = q.FunFact
		}
		if _, q, err = s.catchUp(ctx, sess, rules, now); err != nil {
			return nil, err
		}
	}

	if err := s.persist(ctx, p, sess, false, now); err != nil {
		return nil, err
	}
	res.Session = s.view(sess, q, rules, now)
	return &res, nil
}

func (s *Service) Answer(ctx context.Context, playerID, answer string) (*Result, error) {
	return s.act(ctx, playerID, func(sess *Session, q *models.Question, rules Rules, now time.Time) (Result, error) {
		correct := question.MatchAnswer(answer, q.Answers)
		outcome, err := sess.Answer(rules, correct, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: outcome, Correct: outcome == OutcomeCorrect}, nil
	})
}

// Hint reveals the current question's hint. Repeat requests return the same
// hint without further cost.
func (s *Service) Hint(ctx context.Context, playerID string) (*Result, error) {
	return s.act(ctx, playerID, func(sess *Session, q *models.Question, rules Rules, now time.Time) (Result, error) {
		if q.Hint == "" {
			return Result{}, ErrNoHint
		}
		outcome, err := sess.Hint(rules, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: outcome, Hint: q.Hint}, nil
	})
}

func (s *Service) Skip(ctx context.Context, playerID string) (*Result, error) {
	return s.act(ctx, playerID, func(sess *Session, q *models.Question, rules Rules, now time.Time) (Result, error) {
		outcome, err := sess.Skip(rules, now)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: outcome}, nil
	})
}

// Forget drops a player's session, used when the player is deleted.
func (s *Service) Forget(ctx context.Context, playerID string) error {
	return s.sessions.Delete(ctx, playerID)
}
