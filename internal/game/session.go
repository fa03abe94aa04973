// Package game runs the timed quiz for a single player. The state machine in
// this file is pure: it only mutates the Session it is given, using the
// caller's clock.
package game

import (
	"errors"
	"time"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
)

type Status string

const (
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Outcome string

const (
	OutcomeCorrect           Outcome = "correct"
	OutcomeWrong             Outcome = "wrong"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeAttemptsExhausted Outcome = "attempts_exhausted"
	OutcomeHint              Outcome = "hint"
)

var (
	ErrSessionFinished = apperr.New(apperr.ErrConflict, "this quiz is already finished")
	ErrNoSession       = errors.New("no session")
)

// Rules are the scoring parameters a session is played under.
type Rules struct {
	QuestionTime     time.Duration
	PointsPerCorrect int
	HintPenalty      int
	SkipPenalty      int
	WrongPenalty     int
	MaxAttempts      int
}

func RulesFrom(gs *models.GlobalSettings) Rules {
	return Rules{
		QuestionTime:     time.Duration(gs.QuestionTimeSeconds) * time.Second,
		PointsPerCorrect: gs.PointsPerCorrect,
		HintPenalty:      gs.HintPenalty,
		SkipPenalty:      gs.SkipPenalty,
		WrongPenalty:     gs.WrongPenalty,
		MaxAttempts:      gs.MaxAttempts,
	}
}

// Session is the persisted quiz state of one player.
type Session struct {
	PlayerID          string     `json:"playerId"`
	CollectionID      string     `json:"collectionId"`
	Order             []string   `json:"order"`
	Index             int        `json:"index"`
	Score             int        `json:"score"`
	HintsUsed         int        `json:"hintsUsed"`
	Skips             int        `json:"skips"`
	WrongAnswers      int        `json:"wrongAnswers"`
	Attempts          int        `json:"attempts"`
	HintShown         bool       `json:"hintShown"`
	QuestionStartedAt time.Time  `json:"questionStartedAt"`
	StartedAt         time.Time  `json:"startedAt"`
	FinishedAt        *time.Time `json:"finishedAt,omitempty"`
	Status            Status     `json:"status"`
}

func NewSession(playerID, collectionID string, order []string, now time.Time) *Session {
	s := &Session{
		PlayerID:          playerID,
		CollectionID:      collectionID,
		Order:             append([]string{}, order...),
		QuestionStartedAt: now,
		StartedAt:         now,
		Status:            StatusPlaying,
	}
	if len(order) == 0 {
		s.finish(now)
	}
	return s
}

func (s *Session) Finished() bool {
	return s.Status == StatusFinished
}

// CurrentQuestionID is empty once the session is finished.
func (s *Session) CurrentQuestionID() string {
	if s.Finished() || s.Index >= len(s.Order) {
		return ""
	}
	return s.Order[s.Index]
}

func (s *Session) deadline(r Rules) time.Time {
	return s.QuestionStartedAt.Add(r.QuestionTime)
}

// Remaining is the time left on the current question; ok is false when
// questions are untimed or the session is over.
func (s *Session) Remaining(r Rules, now time.Time) (time.Duration, bool) {
	if r.QuestionTime <= 0 || s.Finished() {
		return 0, false
	}
	left := s.deadline(r).Sub(now)
	if left < 0 {
		left = 0
	}
	return left, true
}

// ElapsedSeconds is the whole-second play time, up to now or to the finish.
func (s *Session) ElapsedSeconds(now time.Time) int {
	end := now
	if s.FinishedAt != nil {
		end = *s.FinishedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return int(end.Sub(s.StartedAt).Round(time.Second) / time.Second)
}

func (s *Session) deduct(points int) {
	s.Score -= points
	if s.Score < 0 {
		s.Score = 0
	}
}

// advance moves to the next question; startAt is when its clock starts.
func (s *Session) advance(startAt time.Time) {
	s.Index++
	s.Attempts = 0
	s.HintShown = false
	s.QuestionStartedAt = startAt
	if s.Index >= len(s.Order) {
		s.finish(startAt)
	}
}

func (s *Session) finish(at time.Time) {
	s.Status = StatusFinished
	t := at
	s.FinishedAt = &t
}

func (s *Session) skip(r Rules, startNextAt time.Time) {
	s.Skips++
	s.deduct(r.SkipPenalty)
	s.advance(startNextAt)
}

// TimeOut skips the current question if its clock ran out before now. The
// next question's clock starts at the missed deadline.
func (s *Session) TimeOut(r Rules, now time.Time) bool {
	if r.QuestionTime <= 0 || s.Finished() || now.Before(s.deadline(r)) {
		return false
	}
	s.skip(r, s.deadline(r))
	return true
}

// ApplyTimeouts skips every question whose clock ran out before now and
// returns how many timed out.
func (s *Session) ApplyTimeouts(r Rules, now time.Time) int {
	n := 0
	for s.TimeOut(r, now) {
		n++
	}
	return n
}

// Answer applies a submitted answer. correct is decided by the caller.
func (s *Session) Answer(r Rules, correct bool, now time.Time) (Outcome, error) {
	if s.Finished() {
		return "", ErrSessionFinished
	}
	if s.ApplyTimeouts(r, now) > 0 {
		return OutcomeTimeout, nil
	}

	if correct {
		gain := r.PointsPerCorrect
		if s.HintShown {
			gain -= r.HintPenalty
		}
		if gain > 0 {
			s.Score += gain
		}
		s.advance(now)
		return OutcomeCorrect, nil
	}

	s.WrongAnswers++
	s.Attempts++
	s.deduct(r.WrongPenalty)
	if r.MaxAttempts > 0 && s.Attempts >= r.MaxAttempts {
		s.skip(r, now)
		return OutcomeAttemptsExhausted, nil
	}
	return OutcomeWrong, nil
}

// Hint marks the current question's hint as revealed. Only the first reveal
// per question counts.
func (s *Session) Hint(r Rules, now time.Time) (Outcome, error) {
	if s.Finished() {
		return "", ErrSessionFinished
	}
	if s.ApplyTimeouts(r, now) > 0 {
		return OutcomeTimeout, nil
	}
	if !s.HintShown {
		s.HintShown = true
		s.HintsUsed++
	}
	return OutcomeHint, nil
}

func (s *Session) Skip(r Rules, now time.Time) (Outcome, error) {
	if s.Finished() {
		return "", ErrSessionFinished
	}
	if s.ApplyTimeouts(r, now) > 0 {
		return OutcomeTimeout, nil
	}
	s.skip(r, now)
	return OutcomeSkipped, nil
}

// DropCurrent moves past a question that no longer exists, without penalty.
// The next clock starts now, or at the dropped question's deadline if that
// already passed.
func (s *Session) DropCurrent(r Rules, now time.Time) {
	if s.Finished() {
		return
	}
	startAt := now
	if r.QuestionTime > 0 && s.deadline(r).Before(now) {
		startAt = s.deadline(r)
	}
	s.advance(startAt)
}
