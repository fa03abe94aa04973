// Package memstore keeps every document in process memory. It backs the test
// suites and the `memory` store driver; nothing survives a restart.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"gochangi/internal/models"
	"gochangi/internal/store"
)

type Store struct {
	mu          sync.RWMutex
	admins      map[string]models.Admin
	players     map[string]models.Player
	collections map[string]models.Collection
	questions   map[string]models.Question
	settings    *models.GlobalSettings
	landing     *models.LandingCustomisation
	autoClear   *models.AutoClearConfig
	clearLogs   []models.AutoClearLog
	badNames    map[string]models.BadUsername
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		admins:      make(map[string]models.Admin),
		players:     make(map[string]models.Player),
		collections: make(map[string]models.Collection),
		questions:   make(map[string]models.Question),
		badNames:    make(map[string]models.BadUsername),
	}
}

func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Close(context.Context) error   { return nil }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneCollection(c models.Collection) models.Collection {
	c.QuestionOrder = cloneStrings(c.QuestionOrder)
	return c
}

func cloneQuestion(q models.Question) models.Question {
	q.Options = cloneStrings(q.Options)
	q.Answers = cloneStrings(q.Answers)
	return q
}

// Admins

func (s *Store) CreateAdmin(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[admin.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range s.admins {
		if existing.Username == admin.Username {
			return store.ErrDuplicate
		}
	}
	s.admins[admin.ID] = *admin
	return nil
}

func (s *Store) GetAdmin(_ context.Context, id string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &admin, nil
}

func (s *Store) GetAdminByUsername(_ context.Context, username string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins {
		if admin.Username == username {
			a := admin
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListAdmins(context.Context) ([]models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admins := make([]models.Admin, 0, len(s.admins))
	for _, admin := range s.admins {
		admins = append(admins, admin)
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Username < admins[j].Username })
	return admins, nil
}

func (s *Store) UpdateAdmin(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[admin.ID]; !ok {
		return store.ErrNotFound
	}
	for id, existing := range s.admins {
		if id != admin.ID && existing.Username == admin.Username {
			return store.ErrDuplicate
		}
	}
	s.admins[admin.ID] = *admin
	return nil
}

func (s *Store) DeleteAdmin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.admins, id)
	return nil
}

func (s *Store) CountAdmins(_ context.Context, role string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, admin := range s.admins {
		if role == "" || admin.Role == role {
			count++
		}
	}
	return count, nil
}

// Collections

func (s *Store) CreateCollection(_ context.Context, c *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[c.ID]; ok {
		return store.ErrDuplicate
	}
	s.collections[c.ID] = cloneCollection(*c)
	return nil
}

func (s *Store) GetCollection(_ context.Context, id string) (*models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneCollection(c)
	return &c, nil
}

func (s *Store) FindCollectionsByCode(_ context.Context, code string) ([]models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Collection
	for _, c := range s.collections {
		if c.Code == code {
			out = append(out, cloneCollection(c))
		}
	}
	sortCollections(out)
	return out, nil
}

func (s *Store) ListCollections(context.Context) ([]models.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Collection, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, cloneCollection(c))
	}
	sortCollections(out)
	return out, nil
}

func sortCollections(cs []models.Collection) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].ID < cs[j].ID
	})
}

func (s *Store) UpdateCollection(_ context.Context, c *models.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.collections[c.ID] = cloneCollection(*c)
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.collections, id)
	return nil
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return store.ErrDuplicate
	}
	s.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	q = cloneQuestion(q)
	return &q, nil
}

func (s *Store) ListQuestions(_ context.Context, collectionID string) ([]models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Question{}
	for _, q := range s.questions {
		if q.CollectionID == collectionID {
			out = append(out, cloneQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return store.ErrNotFound
	}
	s.questions[q.ID] = cloneQuestion(*q)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) DeleteQuestionsByCollection(_ context.Context, collectionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, q := range s.questions {
		if q.CollectionID == collectionID {
			delete(s.questions, id)
			n++
		}
	}
	return n, nil
}

// Players

func (s *Store) CreatePlayer(_ context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return store.ErrDuplicate
	}
	s.players[p.ID] = *p
	return nil
}

func (s *Store) GetPlayer(_ context.Context, id string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPlayers(_ context.Context, filter store.PlayerFilter) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Player{}
	for _, p := range s.players {
		if filter.CollectionID != "" && p.CollectionID != filter.CollectionID {
			continue
		}
		if filter.FinishedOnly && p.FinishedAt == nil {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdatePlayer(_ context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.players[p.ID] = *p
	return nil
}

func (s *Store) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.players, id)
	return nil
}

func (s *Store) DeletePlayers(_ context.Context, collectionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.players {
		if collectionID == "" || p.CollectionID == collectionID {
			delete(s.players, id)
			n++
		}
	}
	return n, nil
}

// Singletons

func (s *Store) GetGlobalSettings(context.Context) (*models.GlobalSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, store.ErrNotFound
	}
	gs := *s.settings
	return &gs, nil
}

func (s *Store) SaveGlobalSettings(_ context.Context, gs *models.GlobalSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs.ID = models.GlobalSettingsID
	saved := *gs
	s.settings = &saved
	return nil
}

func (s *Store) GetLanding(context.Context) (*models.LandingCustomisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.landing == nil {
		return nil, store.ErrNotFound
	}
	l := *s.landing
	return &l, nil
}

func (s *Store) SaveLanding(_ context.Context, l *models.LandingCustomisation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = models.LandingID
	saved := *l
	s.landing = &saved
	return nil
}

func (s *Store) GetAutoClearConfig(context.Context) (*models.AutoClearConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.autoClear == nil {
		return nil, store.ErrNotFound
	}
	c := *s.autoClear
	return &c, nil
}

func (s *Store) SaveAutoClearConfig(_ context.Context, c *models.AutoClearConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = models.AutoClearID
	saved := *c
	s.autoClear = &saved
	return nil
}

// Auto-clear logs

func (s *Store) CreateAutoClearLog(_ context.Context, entry *models.AutoClearLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLogs = append(s.clearLogs, *entry)
	return nil
}

func (s *Store) ListAutoClearLogs(_ context.Context, limit int) ([]models.AutoClearLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.AutoClearLog{}, s.clearLogs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].RanAt.After(out[j].RanAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Bad usernames

func (s *Store) CreateBadUsername(_ context.Context, b *models.BadUsername) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.badNames {
		if strings.EqualFold(existing.Word, b.Word) {
			return store.ErrDuplicate
		}
	}
	s.badNames[b.ID] = *b
	return nil
}

func (s *Store) ListBadUsernames(context.Context) ([]models.BadUsername, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BadUsername, 0, len(s.badNames))
	for _, b := range s.badNames {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out, nil
}

func (s *Store) DeleteBadUsername(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.badNames[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.badNames, id)
	return nil
}
