// Package moderation keeps the list of words players may not use in their
// usernames.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store"
)

var (
	ErrWordNotFound = apperr.New(apperr.ErrNotFound, "word not found")
	ErrWordExists   = apperr.New(apperr.ErrConflict, "word is already listed")
)

const rejectedReason = "this username is not allowed, please choose another"

var leet = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
}

// Normalise lower-cases s, maps leetspeak digits to letters and drops
// everything that is not a letter.
func Normalise(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if mapped, ok := leet[r]; ok {
			r = mapped
		}
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Verdict is the outcome of a username check. Reason is empty when allowed.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Matches reports whether the normalised username contains any normalised
// word.
func Matches(username string, words []string) bool {
	name := Normalise(username)
	if name == "" {
		return false
	}
	for _, w := range words {
		if nw := Normalise(w); nw != "" && strings.Contains(name, nw) {
			return true
		}
	}
	return false
}

type Service struct {
	repo   store.BadUsernameRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo store.BadUsernameRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context) ([]models.BadUsername, error) {
	words, err := s.repo.ListBadUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bad usernames: %w", err)
	}
	return words, nil
}

func (s *Service) Add(ctx context.Context, word string) (*models.BadUsername, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, apperr.Invalid("word is required")
	}
	if strings.IndexFunc(word, unicode.IsLetter) < 0 {
		return nil, apperr.Invalid("word must contain at least one letter")
	}
	b := &models.BadUsername{
		ID:        store.NewID(),
		Word:      word,
		CreatedAt: s.now().UTC(),
	}
	err := s.repo.CreateBadUsername(ctx, b)
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrWordExists
	}
	if err != nil {
		return nil, fmt.Errorf("add bad username: %w", err)
	}
	s.logger.Info("bad username added", "id", b.ID)
	return b, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	err := s.repo.DeleteBadUsername(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrWordNotFound
	}
	if err != nil {
		return fmt.Errorf("remove bad username: %w", err)
	}
	return nil
}

func (s *Service) Check(ctx context.Context, username string) (Verdict, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Verdict{}, err
	}
	words := make([]string, len(list))
	for i, b := range list {
		words[i] = b.Word
	}
	if Matches(username, words) {
		return Verdict{Allowed: false, Reason: rejectedReason}, nil
	}
	return Verdict{Allowed: true}, nil
}
