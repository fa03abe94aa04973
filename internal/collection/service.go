// backend/internal/collection/service.go
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store"
	"gochangi/pkg/cache"
	"gochangi/pkg/storage"
)

var (
	ErrCollectionNotFound = apperr.New(apperr.ErrNotFound, "collection not found")
	ErrCollectionOffline  = apperr.New(apperr.ErrForbidden, "this collection is not online")
	ErrCodeTaken          = apperr.New(apperr.ErrConflict, "access code already in use")
)

type Repository interface {
	store.CollectionRepository
	ListQuestions(ctx context.Context, collectionID string) ([]models.Question, error)
	DeleteQuestionsByCollection(ctx context.Context, collectionID string) (int64, error)
}

// Input is the editable part of a collection.
type Input struct {
	Name           string `json:"name"`
	Code           string `json:"code"`
	Online         bool   `json:"online"`
	Public         bool   `json:"public"`
	GameMode       string `json:"gameMode"`
	WelcomeMessage string `json:"welcomeMessage"`
}

// Summary is the admin list view.
type Summary struct {
	models.Collection
	QuestionCount int `json:"questionCount"`
}

type Service struct {
	repo   Repository
	cache  cache.Cache
	images storage.ImageStore
	logger *slog.Logger
	sf     singleflight.Group
	now    func() time.Time
}

func NewService(repo Repository, c cache.Cache, images storage.ImageStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		images: images,
		logger: logger,
		now:    time.Now,
	}
}

// NormaliseCode makes access codes case- and whitespace-insensitive.
func NormaliseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (in *Input) normalise() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = NormaliseCode(in.Code)
	in.GameMode = strings.ToLower(strings.TrimSpace(in.GameMode))
	in.WelcomeMessage = strings.TrimSpace(in.WelcomeMessage)
}

func (s *Service) validate(ctx context.Context, in Input, selfID string) error {
	if in.Name == "" {
		return apperr.Invalid("name is required")
	}
	if in.Code == "" && !in.Public {
		return apperr.Invalid("an access code is required for non-public collections")
	}
	if in.GameMode != "" && !models.ValidGameMode(in.GameMode) {
		return apperr.Invalid("game mode must be %q or %q", models.GameModeOrdered, models.GameModeRandom)
	}
	if in.Code == "" || in.Public {
		return nil
	}

	existing, err := s.repo.FindCollectionsByCode(ctx, in.Code)
	if err != nil {
		return fmt.Errorf("check code: %w", err)
	}
	for _, c := range existing {
		if c.ID != selfID && !c.Public {
			return ErrCodeTaken
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in Input) (*models.Collection, error) {
	in.normalise()
	if err := s.validate(ctx, in, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &models.Collection{
		ID:             store.NewID(),
		Name:           in.Name,
		Code:           in.Code,
		Online:         in.Online,
		Public:         in.Public,
		GameMode:       in.GameMode,
		QuestionOrder:  []string{},
		WelcomeMessage: in.WelcomeMessage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	// A cached public collection may be sharing the code.
	s.invalidate(ctx, c.Code)
	s.logger.Info("collection created", "id", c.ID, "code", c.Code)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Collection, error) {
	c, err := s.repo.GetCollection(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return c, nil
}

// GetOnline returns the collection only if players may join it.
func (s *Service) GetOnline(ctx context.Context, id string) (*models.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Online {
		return nil, ErrCollectionOffline
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	collections, err := s.repo.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := make([]Summary, 0, len(collections))
	for _, c := range collections {
		questions, err := s.repo.ListQuestions(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
		out = append(out, Summary{Collection: c, QuestionCount: len(questions)})
	}
	return out, nil
}

func (s *Service) QuestionCount(ctx context.Context, id string) (int, error) {
	questions, err := s.repo.ListQuestions(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return len(questions), nil
}

// ListPublic returns the online public collections without their codes.
func (s *Service) ListPublic(ctx context.Context) ([]models.CollectionDTO, error) {
	collections, err := s.repo.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	out := []models.CollectionDTO{}
	for _, c := range collections {
		if !c.Public || !c.Online {
			continue
		}
		questions, err := s.repo.ListQuestions(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
		out = append(out, c.ToDTO(len(questions)))
	}
	return out, nil
}

// GetByCode resolves an access code for a player. Offline collections are
// reported as ErrCollectionOffline.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.Collection, error) {
	code = NormaliseCode(code)
	if code == "" {
		return nil, ErrCollectionNotFound
	}

	c, err := s.cache.GetCollection(ctx, code)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("collection cache read failed", "code", code, "err", err)
		}
		result, err, _ := s.sf.Do(code, func() (interface{}, error) {
			return s.loadByCode(ctx, code)
		})
		if err != nil {
			return nil, err
		}
		loaded := *result.(*models.Collection)
		c = &loaded
	}

	if !c.Online {
		return nil, ErrCollectionOffline
	}
	return c, nil
}

func (s *Service) loadByCode(ctx context.Context, code string) (*models.Collection, error) {
	matches, err := s.repo.FindCollectionsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find collection: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrCollectionNotFound
	}

	// A private collection owns its code; public ones may share theirs.
	chosen := matches[0]
	for _, m := range matches {
		if !m.Public {
			chosen = m
			break
		}
	}
	if err := s.cache.SetCollection(ctx, code, &chosen); err != nil {
		s.logger.Warn("collection cache write failed", "code", code, "err", err)
	}
	return &chosen, nil
}

func (s *Service) invalidate(ctx context.Context, codes ...string) {
	for _, code := range codes {
		if code == "" {
			continue
		}
		if err := s.cache.DeleteCollection(ctx, code); err != nil {
			s.logger.Warn("collection cache invalidate failed", "code", code, "err", err)
		}
	}
}

func (s *Service) Update(ctx context.Context, id string, in Input) (*models.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.normalise()
	if err := s.validate(ctx, in, id); err != nil {
		return nil, err
	}

	oldCode := c.Code
	c.Name = in.Name
	c.Code = in.Code
	c.Online = in.Online
	c.Public = in.Public
	c.GameMode = in.GameMode
	c.WelcomeMessage = in.WelcomeMessage
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("update collection: %w", err)
	}
	s.invalidate(ctx, oldCode, c.Code)
	return c, nil
}

// SetOrder replaces the question order. order must contain every question of
// the collection exactly once.
func (s *Service) SetOrder(ctx context.Context, id string, order []string) (*models.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if err := checkPermutation(questions, order); err != nil {
		return nil, err
	}

	c.QuestionOrder = append([]string{}, order...)
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	s.invalidate(ctx, c.Code)
	return c, nil
}

func checkPermutation(questions []models.Question, order []string) error {
	if len(order) != len(questions) {
		return apperr.Invalid("order must list all %d questions exactly once", len(questions))
	}
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !known[id] {
			return apperr.Invalid("question %s is not part of this collection", id)
		}
		if seen[id] {
			return apperr.Invalid("question %s is listed twice", id)
		}
		seen[id] = true
	}
	return nil
}

// Delete removes the collection together with its questions and their images.
func (s *Service) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	questions, err := s.repo.ListQuestions(ctx, id)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	for _, q := range questions {
		if q.ImagePath == "" {
			continue
		}
		if err := s.images.Delete(ctx, q.ImagePath); err != nil {
			s.logger.Warn("delete question image", "question", q.ID, "err", err)
		}
	}
	deleted, err := s.repo.DeleteQuestionsByCollection(ctx, id)
	if err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	if err := s.repo.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.invalidate(ctx, c.Code)
	s.logger.Info("collection deleted", "id", id, "questions", deleted)
	return nil
}

// Touch drops any cached copy of the collection after a change made by
// another service (question order edits).
func (s *Service) Touch(ctx context.Context, c *models.Collection) {
	s.invalidate(ctx, c.Code)
}

// ArrangeQuestions puts questions in the collection's configured order.
// Questions missing from the order follow by number.
func ArrangeQuestions(questions []models.Question, order []string) []models.Question {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	out := make([]models.Question, 0, len(questions))
	used := make(map[string]bool, len(questions))
	for _, id := range order {
		q, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		out = append(out, q)
		used[id] = true
	}
	for _, q := range questions {
		if !used[q.ID] {
			out = append(out, q)
		}
	}
	return out
}
