// backend/internal/store/gormstore/store.go
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gochangi/internal/models"
	"gochangi/internal/store"
)

// Store keeps every document type in its own table; list-valued fields are
// serialised as JSON columns.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&models.Admin{},
		&models.Player{},
		&models.Collection{},
		&models.Question{},
		&models.GlobalSettings{},
		&models.LandingCustomisation{},
		&models.AutoClearConfig{},
		&models.AutoClearLog{},
		&models.BadUsername{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

// updateAll writes every column of doc and reports ErrNotFound when no row matched.
func (s *Store) updateAll(ctx context.Context, doc interface{}) error {
	res := s.db.WithContext(ctx).Model(doc).Select("*").Updates(doc)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) deleteByID(ctx context.Context, doc interface{}, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(doc)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, doc interface{}) error {
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(doc).Error)
}

// Admins

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	return translate(s.db.WithContext(ctx).Create(admin).Error)
}

func (s *Store) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	if err := s.db.WithContext(ctx).Order("username asc").Find(&admins).Error; err != nil {
		return nil, translate(err)
	}
	return admins, nil
}

func (s *Store) UpdateAdmin(ctx context.Context, admin *models.Admin) error {
	return s.updateAll(ctx, admin)
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Admin{}, id)
}

func (s *Store) CountAdmins(ctx context.Context, role string) (int64, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Admin{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

// Collections

func (s *Store) CreateCollection(ctx context.Context, c *models.Collection) error {
	return translate(s.db.WithContext(ctx).Create(c).Error)
}

func (s *Store) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var c models.Collection
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindCollectionsByCode(ctx context.Context, code string) ([]models.Collection, error) {
	var collections []models.Collection
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("created_at asc").
		Find(&collections).Error
	if err != nil {
		s.logger.Error("find collections by code", "code", code, "err", err)
		return nil, translate(err)
	}
	return collections, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var collections []models.Collection
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&collections).Error; err != nil {
		return nil, translate(err)
	}
	return collections, nil
}

func (s *Store) UpdateCollection(ctx context.Context, c *models.Collection) error {
	return s.updateAll(ctx, c)
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Collection{}, id)
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return translate(s.db.WithContext(ctx).Create(q).Error)
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (s *Store) ListQuestions(ctx context.Context, collectionID string) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("number asc").
		Find(&questions).Error
	if err != nil {
		s.logger.Error("list questions", "collection", collectionID, "err", err)
		return nil, translate(err)
	}
	return questions, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, q *models.Question) error {
	return s.updateAll(ctx, q)
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Question{}, id)
}

func (s *Store) DeleteQuestionsByCollection(ctx context.Context, collectionID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("collection_id = ?", collectionID).Delete(&models.Question{})
	return res.RowsAffected, translate(res.Error)
}

// Players

func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListPlayers(ctx context.Context, filter store.PlayerFilter) ([]models.Player, error) {
	var players []models.Player
	q := s.db.WithContext(ctx).Model(&models.Player{})
	if filter.CollectionID != "" {
		q = q.Where("collection_id = ?", filter.CollectionID)
	}
	if filter.FinishedOnly {
		q = q.Where("finished_at IS NOT NULL")
	}
	if err := q.Order("created_at desc").Find(&players).Error; err != nil {
		return nil, translate(err)
	}
	return players, nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p *models.Player) error {
	return s.updateAll(ctx, p)
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.Player{}, id)
}

func (s *Store) DeletePlayers(ctx context.Context, collectionID string) (int64, error) {
	q := s.db.WithContext(ctx)
	if collectionID != "" {
		q = q.Where("collection_id = ?", collectionID)
	} else {
		// gorm refuses unconditioned deletes without this.
		q = q.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	res := q.Delete(&models.Player{})
	return res.RowsAffected, translate(res.Error)
}

// Singletons

func (s *Store) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	var gs models.GlobalSettings
	if err := s.db.WithContext(ctx).Where("id = ?", models.GlobalSettingsID).First(&gs).Error; err != nil {
		return nil, translate(err)
	}
	return &gs, nil
}

func (s *Store) SaveGlobalSettings(ctx context.Context, gs *models.GlobalSettings) error {
	gs.ID = models.GlobalSettingsID
	return s.upsert(ctx, gs)
}

func (s *Store) GetLanding(ctx context.Context) (*models.LandingCustomisation, error) {
	var l models.LandingCustomisation
	if err := s.db.WithContext(ctx).Where("id = ?", models.LandingID).First(&l).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (s *Store) SaveLanding(ctx context.Context, l *models.LandingCustomisation) error {
	l.ID = models.LandingID
	return s.upsert(ctx, l)
}

func (s *Store) GetAutoClearConfig(ctx context.Context) (*models.AutoClearConfig, error) {
	var c models.AutoClearConfig
	if err := s.db.WithContext(ctx).Where("id = ?", models.AutoClearID).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) SaveAutoClearConfig(ctx context.Context, c *models.AutoClearConfig) error {
	c.ID = models.AutoClearID
	return s.upsert(ctx, c)
}

// Auto-clear logs

func (s *Store) CreateAutoClearLog(ctx context.Context, entry *models.AutoClearLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *Store) ListAutoClearLogs(ctx context.Context, limit int) ([]models.AutoClearLog, error) {
	var logs []models.AutoClearLog
	q := s.db.WithContext(ctx).Order("ran_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, translate(err)
	}
	return logs, nil
}

// Bad usernames

func (s *Store) CreateBadUsername(ctx context.Context, b *models.BadUsername) error {
	return translate(s.db.WithContext(ctx).Create(b).Error)
}

func (s *Store) ListBadUsernames(ctx context.Context) ([]models.BadUsername, error) {
	var words []models.BadUsername
	if err := s.db.WithContext(ctx).Order("word asc").Find(&words).Error; err != nil {
		return nil, translate(err)
	}
	return words, nil
}

func (s *Store) DeleteBadUsername(ctx context.Context, id string) error {
	return s.deleteByID(ctx, &models.BadUsername{}, id)
}
