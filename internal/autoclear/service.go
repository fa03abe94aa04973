// Package autoclear wipes the leaderboard on a schedule and keeps a log of
// every clear, scheduled or manual.
package autoclear

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/store"
)

const defaultIntervalHours = 24

type Repository interface {
	GetAutoClearConfig(ctx context.Context) (*models.AutoClearConfig, error)
	SaveAutoClearConfig(ctx context.Context, c *models.AutoClearConfig) error
	ListAutoClearLogs(ctx context.Context, limit int) ([]models.AutoClearLog, error)
}

// Clearer deletes players and writes the log entry for the run.
type Clearer interface {
	Clear(ctx context.Context, collectionID, trigger, actor string) (*models.AutoClearLog, error)
}

type Collections interface {
	Get(ctx context.Context, id string) (*models.Collection, error)
}

type ConfigInput struct {
	Enabled       bool   `json:"enabled"`
	IntervalHours int    `json:"intervalHours"`
	CollectionID  string `json:"collectionId"`
}

type Service struct {
	repo        Repository
	clearer     Clearer
	collections Collections
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, clearer Clearer, collections Collections, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		clearer:     clearer,
		collections: collections,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Config(ctx context.Context) (*models.AutoClearConfig, error) {
	cfg, err := s.repo.GetAutoClearConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return &models.AutoClearConfig{ID: models.AutoClearID, IntervalHours: defaultIntervalHours}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get auto-clear config: %w", err)
	}
	return cfg, nil
}

func interval(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// Update saves the schedule. Enabling or changing it restarts the countdown
// from now.
func (s *Service) Update(ctx context.Context, in ConfigInput) (*models.AutoClearConfig, error) {
	in.CollectionID = strings.TrimSpace(in.CollectionID)
	if in.IntervalHours < 0 {
		return nil, apperr.Invalid("intervalHours cannot be negative")
	}
	if in.Enabled && in.IntervalHours < 1 {
		return nil, apperr.Invalid("intervalHours must be at least 1 when auto-clear is enabled")
	}
	if in.CollectionID != "" {
		if _, err := s.collections.Get(ctx, in.CollectionID); err != nil {
			return nil, err
		}
	}

	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	cfg.Enabled = in.Enabled
	cfg.IntervalHours = in.IntervalHours
	cfg.CollectionID = in.CollectionID
	cfg.NextRunAt = nil
	if cfg.Enabled {
		next := now.Add(interval(cfg.IntervalHours))
		cfg.NextRunAt = &next
	}
	cfg.UpdatedAt = now
	if err := s.repo.SaveAutoClearConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save auto-clear config: %w", err)
	}
	s.logger.Info("auto-clear configured", "enabled", cfg.Enabled, "hours", cfg.IntervalHours, "collection", cfg.CollectionID)
	return cfg, nil
}

// RunNow clears immediately within the configured scope. The schedule is left
// as it was.
func (s *Service) RunNow(ctx context.Context, actor string) (*models.AutoClearLog, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.clearer.Clear(ctx, cfg.CollectionID, models.TriggerManual, actor)
	if err != nil {
		return nil, err
	}
	ran := entry.RanAt
	cfg.LastRunAt = &ran
	if err := s.repo.SaveAutoClearConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save auto-clear config: %w", err)
	}
	return entry, nil
}

// RunDue performs the scheduled clear if it is due. It returns nil when
// nothing was due.
func (s *Service) RunDue(ctx context.Context) (*models.AutoClearLog, error) {
	cfg, err := s.Config(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !cfg.Due(now) {
		return nil, nil
	}

	entry, err := s.clearer.Clear(ctx, cfg.CollectionID, models.TriggerScheduled, "")
	if err != nil {
		return nil, err
	}
	next := now.Add(interval(cfg.IntervalHours))
	cfg.LastRunAt = &now
	cfg.NextRunAt = &next
	if err := s.repo.SaveAutoClearConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save auto-clear config: %w", err)
	}
	return entry, nil
}

func (s *Service) Logs(ctx context.Context, limit int) ([]models.AutoClearLog, error) {
	logs, err := s.repo.ListAutoClearLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list auto-clear logs: %w", err)
	}
	return logs, nil
}

// Run checks the schedule every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	s.logger.Info("auto-clear scheduler started", "tick", tick)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-clear scheduler stopped")
			return nil
		case <-ticker.C:
			entry, err := s.RunDue(ctx)
			if err != nil {
				s.logger.Error("scheduled clear failed", "err", err)
				continue
			}
			if entry != nil {
				s.logger.Info("scheduled clear ran", "deleted", entry.DeletedCount, "collection", entry.CollectionID)
			}
		}
	}
}
