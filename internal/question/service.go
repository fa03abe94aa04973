// backend/internal/question/service.go
package question

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"gochangi/internal/apperr"
	"gochangi/internal/collection"
	"gochangi/internal/models"
	"gochangi/internal/store"
	"gochangi/pkg/storage"
)

const imagePrefix = "questions"

var ErrQuestionNotFound = apperr.New(apperr.ErrNotFound, "question not found")

type Repository interface {
	store.QuestionRepository
	GetCollection(ctx context.Context, id string) (*models.Collection, error)
	UpdateCollection(ctx context.Context, c *models.Collection) error
}

// SettingsReader supplies the global game mode.
type SettingsReader interface {
	Global(ctx context.Context) (*models.GlobalSettings, error)
}

// Input is a question as submitted by the admin console. Number is optional
// on create.
type Input struct {
	CollectionID string   `json:"collectionId"`
	Number       *int     `json:"number"`
	Prompt       string   `json:"prompt"`
	Type         string   `json:"type"`
	Options      []string `json:"options"`
	Answers      []string `json:"answers"`
	Hint         string   `json:"hint"`
	FunFact      string   `json:"funFact"`
	RemoveImage  bool     `json:"removeImage"`
}

// Image is an uploaded file; nil when none was sent.
type Image struct {
	Body io.Reader
}

type Service struct {
	repo        Repository
	collections *collection.Service
	settings    SettingsReader
	images      storage.ImageStore
	maxBytes    int64
	logger      *slog.Logger
	now         func() time.Time
	shuffle     func(n int, swap func(i, j int))
}

func NewService(repo Repository, collections *collection.Service, settings SettingsReader, images storage.ImageStore, maxBytes int64, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		collections: collections,
		settings:    settings,
		images:      images,
		maxBytes:    maxBytes,
		logger:      logger,
		now:         time.Now,
		shuffle:     rand.Shuffle,
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (in *Input) normalise() {
	in.CollectionID = strings.TrimSpace(in.CollectionID)
	in.Prompt = strings.TrimSpace(in.Prompt)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == "" {
		in.Type = models.QuestionTypeOpen
	}
	in.Options = cleanList(in.Options)
	in.Answers = cleanList(in.Answers)
	in.Hint = strings.TrimSpace(in.Hint)
	in.FunFact = strings.TrimSpace(in.FunFact)
	if in.Type == models.QuestionTypeOpen {
		in.Options = nil
	}
}

func validate(in Input) error {
	if in.Prompt == "" {
		return apperr.Invalid("prompt is required")
	}
	if in.Type != models.QuestionTypeOpen && in.Type != models.QuestionTypeMCQ {
		return apperr.Invalid("type must be %q or %q", models.QuestionTypeOpen, models.QuestionTypeMCQ)
	}
	if len(in.Answers) == 0 {
		return apperr.Invalid("at least one answer is required")
	}
	if in.Number != nil && *in.Number < 1 {
		return apperr.Invalid("number must be positive")
	}
	if in.Type != models.QuestionTypeMCQ {
		return nil
	}

	if len(in.Options) < 2 {
		return apperr.Invalid("multiple choice questions need at least two options")
	}
	options := make(map[string]bool, len(in.Options))
	for _, o := range in.Options {
		key := NormaliseAnswer(o)
		if options[key] {
			return apperr.Invalid("option %q is listed twice", o)
		}
		options[key] = true
	}
	for _, a := range in.Answers {
		if !options[NormaliseAnswer(a)] {
			return apperr.Invalid("answer %q is not one of the options", a)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.repo.GetQuestion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// List returns a collection's questions sorted by number.
func (s *Service) List(ctx context.Context, collectionID string) ([]models.Question, error) {
	if _, err := s.collections.Get(ctx, collectionID); err != nil {
		return nil, err
	}
	questions, err := s.repo.ListQuestions(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (s *Service) saveImage(ctx context.Context, image *Image) (string, error) {
	if image == nil || image.Body == nil {
		return "", nil
	}
	return storage.SaveImage(ctx, s.images, imagePrefix, image.Body, s.maxBytes)
}

func (s *Service) dropImage(ctx context.Context, location string) {
	if location == "" {
		return
	}
	if err := s.images.Delete(ctx, location); err != nil {
		s.logger.Warn("delete question image", "location", location, "err", err)
	}
}

func (s *Service) Create(ctx context.Context, in Input, image *Image) (*models.Question, error) {
	in.normalise()
	if in.CollectionID == "" {
		return nil, apperr.Invalid("collectionId is required")
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	c, err := s.collections.Get(ctx, in.CollectionID)
	if err != nil {
		return nil, err
	}

	number := 0
	if in.Number != nil {
		number = *in.Number
	} else {
		existing, err := s.repo.ListQuestions(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
		for _, q := range existing {
			if q.Number > number {
				number = q.Number
			}
		}
		number++
	}

	imagePath, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	q := &models.Question{
		ID:           store.NewID(),
		Number:       number,
		CollectionID: c.ID,
		Prompt:       in.Prompt,
		Type:         in.Type,
		Options:      in.Options,
		Answers:      in.Answers,
		Hint:         in.Hint,
		FunFact:      in.FunFact,
		ImagePath:    imagePath,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		s.dropImage(ctx, imagePath)
		return nil, fmt.Errorf("create question: %w", err)
	}

	c.QuestionOrder = append(c.QuestionOrder, q.ID)
	c.UpdatedAt = now
	if err := s.repo.UpdateCollection(ctx, c); err != nil {
		return nil, fmt.Errorf("append to order: %w", err)
	}
	s.collections.Touch(ctx, c)
	return q, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input, image *Image) (*models.Question, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.normalise()
	if in.CollectionID != "" && in.CollectionID != q.CollectionID {
		return nil, apperr.Invalid("questions cannot move between collections")
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	newImage, err := s.saveImage(ctx, image)
	if err != nil {
		return nil, err
	}
	oldImage := q.ImagePath
	switch {
	case newImage != "":
		q.ImagePath = newImage
	case in.RemoveImage:
		q.ImagePath = ""
	}

	if in.Number != nil {
		q.Number = *in.Number
	}
	q.Prompt = in.Prompt
	q.Type = in.Type
	q.Options = in.Options
	q.Answers = in.Answers
	q.Hint = in.Hint
	q.FunFact = in.FunFact
	q.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		s.dropImage(ctx, newImage)
		return nil, fmt.Errorf("update question: %w", err)
	}
	if oldImage != q.ImagePath {
		s.dropImage(ctx, oldImage)
	}
	return q, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	q, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.dropImage(ctx, q.ImagePath)

	c, err := s.repo.GetCollection(ctx, q.CollectionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	order := make([]string, 0, len(c.QuestionOrder))
	for _, qid := range c.QuestionOrder {
		if qid != id {
			order = append(order, qid)
		}
	}
	c.QuestionOrder = order
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateCollection(ctx, c); err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	s.collections.Touch(ctx, c)
	return nil
}

// Check reports whether answer is accepted for the question.
func (s *Service) Check(ctx context.Context, id, answer string) (bool, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return MatchAnswer(answer, q.Answers), nil
}

// EffectiveGameMode is the collection override, or the global mode.
func (s *Service) EffectiveGameMode(ctx context.Context, c *models.Collection) (string, error) {
	if c.GameMode != "" {
		return c.GameMode, nil
	}
	gs, err := s.settings.Global(ctx)
	if err != nil {
		return "", err
	}
	return gs.GameMode, nil
}

// Ordered returns the collection's questions in play order. Random mode
// shuffles on every call.
func (s *Service) Ordered(ctx context.Context, c *models.Collection) ([]models.Question, error) {
	questions, err := s.repo.ListQuestions(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	mode, err := s.EffectiveGameMode(ctx, c)
	if err != nil {
		return nil, err
	}
	if mode == models.GameModeRandom {
		s.shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
		return questions, nil
	}
	return collection.ArrangeQuestions(questions, c.QuestionOrder), nil
}

// ForPlayer lists the questions of an online collection, found by access
// code, without their answers.
func (s *Service) ForPlayer(ctx context.Context, code string) ([]models.QuestionDTO, error) {
	c, err := s.collections.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	questions, err := s.Ordered(ctx, c)
	if err != nil {
		return nil, err
	}
	out := make([]models.QuestionDTO, len(questions))
	for i, q := range questions {
		out[i] = q.ToDTO()
	}
	return out, nil
}
