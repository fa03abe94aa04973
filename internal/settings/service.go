// backend/internal/settings/service.go
package settings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store"
	"gochangi/pkg/storage"
)

const landingPrefix = "landing"

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Repository interface {
	GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, s *models.GlobalSettings) error
	GetLanding(ctx context.Context) (*models.LandingCustomisation, error)
	SaveLanding(ctx context.Context, l *models.LandingCustomisation) error
}

type LandingInput struct {
	Title                 string `json:"title"`
	Subtitle              string `json:"subtitle"`
	Body                  string `json:"body"`
	ButtonText            string `json:"buttonText"`
	PrimaryColor          string `json:"primaryColor"`
	RemoveBackgroundImage bool   `json:"removeBackgroundImage"`
	RemoveLogoImage       bool   `json:"removeLogoImage"`
}

// LandingImages holds optional uploads; nil readers are ignored.
type LandingImages struct {
	Background io.Reader
	Logo       io.Reader
}

type Service struct {
	repo     Repository
	images   storage.ImageStore
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, images storage.ImageStore, maxBytes int64, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		images:   images,
		maxBytes: maxBytes,
		logger:   logger,
		now:      time.Now,
	}
}

// Global returns the saved settings, or the defaults before the first save.
func (s *Service) Global(ctx context.Context) (*models.GlobalSettings, error) {
	gs, err := s.repo.GetGlobalSettings(ctx)
	if errors.Is(err, store.ErrNotFound) {
		def := models.DefaultGlobalSettings()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return gs, nil
}

func ValidateGlobal(gs models.GlobalSettings) error {
	if !models.ValidGameMode(gs.GameMode) {
		return apperr.Invalid("game mode must be %q or %q", models.GameModeOrdered, models.GameModeRandom)
	}
	if gs.PointsPerCorrect <= 0 {
		return apperr.Invalid("pointsPerCorrect must be greater than zero")
	}
	fields := map[string]int{
		"questionTimeSeconds": gs.QuestionTimeSeconds,
		"hintPenalty":         gs.HintPenalty,
		"skipPenalty":         gs.SkipPenalty,
		"wrongPenalty":        gs.WrongPenalty,
		"maxAttempts":         gs.MaxAttempts,
		"leaderboardSize":     gs.LeaderboardSize,
	}
	for name, v := range fields {
		if v < 0 {
			return apperr.Invalid("%s cannot be negative", name)
		}
	}
	return nil
}

func (s *Service) UpdateGlobal(ctx context.Context, in models.GlobalSettings) (*models.GlobalSettings, error) {
	in.GameMode = strings.ToLower(strings.TrimSpace(in.GameMode))
	if err := ValidateGlobal(in); err != nil {
		return nil, err
	}
	in.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveGlobalSettings(ctx, &in); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("global settings updated", "mode", in.GameMode, "time", in.QuestionTimeSeconds)
	return &in, nil
}

func (s *Service) Landing(ctx context.Context) (*models.LandingCustomisation, error) {
	l, err := s.repo.GetLanding(ctx)
	if errors.Is(err, store.ErrNotFound) {
		def := models.DefaultLanding()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get landing: %w", err)
	}
	return l, nil
}

func (s *Service) UpdateLanding(ctx context.Context, in LandingInput, uploads LandingImages) (*models.LandingCustomisation, error) {
	in.PrimaryColor = strings.TrimSpace(in.PrimaryColor)
	if in.PrimaryColor == "" {
		in.PrimaryColor = models.DefaultLanding().PrimaryColor
	}
	if !colorPattern.MatchString(in.PrimaryColor) {
		return nil, apperr.Invalid("primaryColor must look like #rgb or #rrggbb")
	}

	current, err := s.Landing(ctx)
	if err != nil {
		return nil, err
	}

	var saved []string
	upload := func(r io.Reader) (string, error) {
		if r == nil {
			return "", nil
		}
		loc, err := storage.SaveImage(ctx, s.images, landingPrefix, r, s.maxBytes)
		if err == nil {
			saved = append(saved, loc)
		}
		return loc, err
	}
	rollback := func() {
		for _, loc := range saved {
			s.dropImage(ctx, loc)
		}
	}

	background, err := upload(uploads.Background)
	if err != nil {
		return nil, err
	}
	logo, err := upload(uploads.Logo)
	if err != nil {
		rollback()
		return nil, err
	}

	next := *current
	next.Title = strings.TrimSpace(in.Title)
	next.Subtitle = strings.TrimSpace(in.Subtitle)
	next.Body = strings.TrimSpace(in.Body)
	next.ButtonText = strings.TrimSpace(in.ButtonText)
	next.PrimaryColor = in.PrimaryColor
	next.BackgroundImage = pickImage(current.BackgroundImage, background, in.RemoveBackgroundImage)
	next.LogoImage = pickImage(current.LogoImage, logo, in.RemoveLogoImage)
	next.UpdatedAt = s.now().UTC()

	if err := s.repo.SaveLanding(ctx, &next); err != nil {
		rollback()
		return nil, fmt.Errorf("save landing: %w", err)
	}
	if current.BackgroundImage != next.BackgroundImage {
		s.dropImage(ctx, current.BackgroundImage)
	}
	if current.LogoImage != next.LogoImage {
		s.dropImage(ctx, current.LogoImage)
	}
	return &next, nil
}

func pickImage(current, uploaded string, remove bool) string {
	switch {
	case uploaded != "":
		return uploaded
	case remove:
		return ""
	}
	return current
}

func (s *Service) dropImage(ctx context.Context, location string) {
	if location == "" {
		return
	}
	if err := s.images.Delete(ctx, location); err != nil {
		s.logger.Warn("delete landing image", "location", location, "err", err)
	}
}
