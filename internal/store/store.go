// Package store declares the persistence contracts shared by every driver.
// Drivers live in the gormstore, mongostore and memstore subpackages and must
// translate their own "missing" and "unique violation" errors into ErrNotFound
// and ErrDuplicate.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"gochangi/internal/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// NewID returns a fresh document id. All drivers share the same id space so a
// deployment can move between them with a plain export/import.
func NewID() string {
	return uuid.NewString()
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	UpdateAdmin(ctx context.Context, admin *models.Admin) error
	DeleteAdmin(ctx context.Context, id string) error
	// CountAdmins counts admins with the given role, or all admins when role is empty.
	CountAdmins(ctx context.Context, role string) (int64, error)
}

type CollectionRepository interface {
	CreateCollection(ctx context.Context, c *models.Collection) error
	GetCollection(ctx context.Context, id string) (*models.Collection, error)
	FindCollectionsByCode(ctx context.Context, code string) ([]models.Collection, error)
	ListCollections(ctx context.Context) ([]models.Collection, error)
	UpdateCollection(ctx context.Context, c *models.Collection) error
	DeleteCollection(ctx context.Context, id string) error
}

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	// ListQuestions returns the collection's questions sorted by number.
	ListQuestions(ctx context.Context, collectionID string) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	DeleteQuestionsByCollection(ctx context.Context, collectionID string) (int64, error)
}

type PlayerFilter struct {
	CollectionID string
	FinishedOnly bool
}

type PlayerRepository interface {
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	// ListPlayers returns matching players, newest first.
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player) error
	DeletePlayer(ctx context.Context, id string) error
	// DeletePlayers removes every player, or only a collection's players when
	// collectionID is set.
	DeletePlayers(ctx context.Context, collectionID string) (int64, error)
}

// SettingsRepository stores the singleton documents. Getters return
// ErrNotFound until the first save.
type SettingsRepository interface {
	GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, s *models.GlobalSettings) error
	GetLanding(ctx context.Context) (*models.LandingCustomisation, error)
	SaveLanding(ctx context.Context, l *models.LandingCustomisation) error
	GetAutoClearConfig(ctx context.Context) (*models.AutoClearConfig, error)
	SaveAutoClearConfig(ctx context.Context, c *models.AutoClearConfig) error
}

type AutoClearLogRepository interface {
	CreateAutoClearLog(ctx context.Context, entry *models.AutoClearLog) error
	// ListAutoClearLogs returns the newest entries first; limit <= 0 means all.
	ListAutoClearLogs(ctx context.Context, limit int) ([]models.AutoClearLog, error)
}

type BadUsernameRepository interface {
	CreateBadUsername(ctx context.Context, b *models.BadUsername) error
	ListBadUsernames(ctx context.Context) ([]models.BadUsername, error)
	DeleteBadUsername(ctx context.Context, id string) error
}

// Store is implemented by every driver.
type Store interface {
	AdminRepository
	CollectionRepository
	QuestionRepository
	PlayerRepository
	SettingsRepository
	AutoClearLogRepository
	BadUsernameRepository

	// Migrate prepares tables or indexes. It is safe to call on every start.
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error
}
