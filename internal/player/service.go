// backend/internal/player/service.go
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gochangi/internal/apperr"
	"gochangi/internal/models"
	"gochangi/internal/moderation"
	"gochangi/internal/store"
	"gochangi/pkg/cache"
	"gochangi/pkg/websocket"
)

const (
	minUsername = 2
	maxUsername = 20

	MessageLeaderboard = "leaderboard"
)

var (
	ErrPlayerNotFound  = apperr.New(apperr.ErrNotFound, "player not found")
	ErrAlreadyRedeemed = apperr.New(apperr.ErrConflict, "reward already redeemed")
	ErrNotFinished     = apperr.New(apperr.ErrConflict, "player has not finished the quiz")
)

type Repository interface {
	store.PlayerRepository
	CreateAutoClearLog(ctx context.Context, entry *models.AutoClearLog) error
}

type Collections interface {
	Get(ctx context.Context, id string) (*models.Collection, error)
	GetOnline(ctx context.Context, id string) (*models.Collection, error)
}

type UsernameChecker interface {
	Check(ctx context.Context, username string) (moderation.Verdict, error)
}

type SettingsReader interface {
	Global(ctx context.Context) (*models.GlobalSettings, error)
}

// Broadcaster pushes messages to websocket rooms.
type Broadcaster interface {
	Rooms() []string
	Broadcast(room, msgType string, data interface{})
}

// Sessions drops quiz sessions of deleted players.
type Sessions interface {
	Delete(ctx context.Context, playerID string) error
}

type CreateInput struct {
	Username     string `json:"username"`
	CollectionID string `json:"collectionId"`
}

type Service struct {
	repo        Repository
	collections Collections
	usernames   UsernameChecker
	settings    SettingsReader
	cache       cache.Cache
	hub         Broadcaster
	sessions    Sessions
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo Repository, collections Collections, usernames UsernameChecker, settings SettingsReader, c cache.Cache, hub Broadcaster, sessions Sessions, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		collections: collections,
		usernames:   usernames,
		settings:    settings,
		cache:       c,
		hub:         hub,
		sessions:    sessions,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Player, error) {
	username := strings.TrimSpace(in.Username)
	if n := utf8.RuneCountInString(username); n < minUsername || n > maxUsername {
		return nil, apperr.Invalid("username must be between %d and %d characters", minUsername, maxUsername)
	}
	if strings.TrimSpace(in.CollectionID) == "" {
		return nil, apperr.Invalid("collectionId is required")
	}
	verdict, err := s.usernames.Check(ctx, username)
	if err != nil {
		return nil, err
	}
	if !verdict.Allowed {
		return nil, apperr.New(apperr.ErrUnprocessable, verdict.Reason)
	}
	c, err := s.collections.GetOnline(ctx, strings.TrimSpace(in.CollectionID))
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &models.Player{
		ID:           store.NewID(),
		Username:     username,
		CollectionID: c.ID,
		StartedAt:    now,
		CreatedAt:    now,
	}
	if err := s.repo.CreatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	s.logger.Info("player joined", "player", p.ID, "collection", c.ID)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.repo.GetPlayer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, collectionID string) ([]models.Player, error) {
	players, err := s.repo.ListPlayers(ctx, store.PlayerFilter{CollectionID: collectionID})
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

func (s *Service) Patch(ctx context.Context, id string, patch models.PlayerPatch) (*models.Player, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasFinished := p.Finished()
	patch.Apply(p)
	if p.Score < 0 {
		p.Score = 0
	}
	if err := s.repo.UpdatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("update player: %w", err)
	}
	if wasFinished || p.Finished() {
		s.PlayerFinished(ctx, p)
	}
	return p, nil
}

func validatePatch(p models.PlayerPatch) error {
	fields := map[string]*int{
		"elapsedSeconds": p.ElapsedSeconds,
		"hintsUsed":      p.HintsUsed,
		"skips":          p.Skips,
		"wrongAnswers":   p.WrongAnswers,
	}
	for name, v := range fields {
		if v != nil && *v < 0 {
			return apperr.Invalid("%s cannot be negative", name)
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeletePlayer(ctx, id); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if s.sessions != nil {
		if err := s.sessions.Delete(ctx, id); err != nil {
			s.logger.Warn("drop session", "player", id, "err", err)
		}
	}
	if p.Finished() {
		s.refresh(ctx, p.CollectionID)
	}
	return nil
}

func (s *Service) Redeem(ctx context.Context, id string) (*models.Player, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Finished() {
		return nil, ErrNotFinished
	}
	if p.Redeemed {
		return nil, ErrAlreadyRedeemed
	}
	now := s.now().UTC()
	p.Redeemed = true
	p.RedeemedAt = &now
	if err := s.repo.UpdatePlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("redeem: %w", err)
	}
	s.logger.Info("reward redeemed", "player", p.ID)
	s.refresh(ctx, p.CollectionID)
	return p, nil
}

// Clear deletes players, every one or a single collection's, and records the
// run in the auto-clear log.
func (s *Service) Clear(ctx context.Context, collectionID, trigger, actor string) (*models.AutoClearLog, error) {
	n, err := s.repo.DeletePlayers(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("clear players: %w", err)
	}
	entry := &models.AutoClearLog{
		ID:           store.NewID(),
		RanAt:        s.now().UTC(),
		Trigger:      trigger,
		CollectionID: collectionID,
		DeletedCount: n,
		Actor:        actor,
	}
	if err := s.repo.CreateAutoClearLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("write clear log: %w", err)
	}
	s.logger.Info("leaderboard cleared", "collection", collectionID, "trigger", trigger, "deleted", n)

	if collectionID != "" {
		s.refresh(ctx, collectionID)
		return entry, nil
	}
	if err := s.cache.InvalidateLeaderboard(ctx, ""); err != nil {
		s.logger.Warn("invalidate leaderboards", "err", err)
	}
	if s.hub != nil {
		for _, room := range s.hub.Rooms() {
			s.hub.Broadcast(room, MessageLeaderboard, []models.LeaderboardEntry{})
		}
	}
	return entry, nil
}

// PlayerFinished refreshes the leaderboards the player appears on.
func (s *Service) PlayerFinished(ctx context.Context, p *models.Player) {
	s.refresh(ctx, p.CollectionID)
}

func (s *Service) refresh(ctx context.Context, collectionID string) {
	if err := s.cache.InvalidateLeaderboard(ctx, collectionID); err != nil {
		s.logger.Warn("invalidate leaderboard", "collection", collectionID, "err", err)
	}
	if s.hub == nil {
		return
	}
	for _, room := range []string{collectionID, websocket.AllRoom} {
		entries, err := s.Leaderboard(ctx, room, 0)
		if err != nil {
			s.logger.Warn("build leaderboard", "collection", room, "err", err)
			continue
		}
		s.hub.Broadcast(room, MessageLeaderboard, entries)
	}
}

// Rank orders finished players by score, then time taken, then who finished
// first, and numbers them from 1.
func Rank(players []models.Player) []models.LeaderboardEntry {
	finished := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.Finished() {
			finished = append(finished, p)
		}
	}
	sort.SliceStable(finished, func(i, j int) bool {
		a, b := finished[i], finished[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ElapsedSeconds != b.ElapsedSeconds {
			return a.ElapsedSeconds < b.ElapsedSeconds
		}
		return a.FinishedAt.Before(*b.FinishedAt)
	})

	entries := make([]models.LeaderboardEntry, len(finished))
	for i, p := range finished {
		entries[i] = models.LeaderboardEntry{
			Rank:           i + 1,
			PlayerID:       p.ID,
			Username:       p.Username,
			CollectionID:   p.CollectionID,
			Score:          p.Score,
			ElapsedSeconds: p.ElapsedSeconds,
			FinishedAt:     *p.FinishedAt,
			Redeemed:       p.Redeemed,
		}
	}
	return entries
}

// Leaderboard returns the ranked board for a collection, or across every
// collection when collectionID is empty. limit <= 0 uses the configured
// leaderboard size, where 0 means no limit.
func (s *Service) Leaderboard(ctx context.Context, collectionID string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		gs, err := s.settings.Global(ctx)
		if err != nil {
			return nil, err
		}
		limit = gs.LeaderboardSize
	}

	entries, err := s.cache.GetLeaderboard(ctx, collectionID)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("leaderboard cache", "collection", collectionID, "err", err)
		}
		players, err := s.repo.ListPlayers(ctx, store.PlayerFilter{CollectionID: collectionID, FinishedOnly: true})
		if err != nil {
			return nil, fmt.Errorf("list players: %w", err)
		}
		entries = Rank(players)
		if err := s.cache.SetLeaderboard(ctx, collectionID, entries); err != nil {
			s.logger.Warn("cache leaderboard", "collection", collectionID, "err", err)
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ExportPDF writes the leaderboard as a PDF document.
func (s *Service) ExportPDF(ctx context.Context, w io.Writer, collectionID string, limit int) error {
	entries, err := s.Leaderboard(ctx, collectionID, limit)
	if err != nil {
		return err
	}
	title := "Leaderboard"
	if collectionID != "" {
		c, err := s.collections.Get(ctx, collectionID)
		if err != nil {
			return err
		}
		title += ": " + c.Name
	}
	if err := WritePDF(w, title, entries, s.now()); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

// Snapshot feeds a newly connected websocket client its room's leaderboard.
func (s *Service) Snapshot(ctx context.Context, room string) (string, interface{}, error) {
	entries, err := s.Leaderboard(ctx, room, 0)
	if err != nil {
		return "", nil, err
	}
	return MessageLeaderboard, entries, nil
}
