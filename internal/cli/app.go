package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"

	"gochangi/internal/auth"
	"gochangi/internal/autoclear"
	"gochangi/internal/collection"
	"gochangi/internal/config"
	"gochangi/internal/game"
	"gochangi/internal/moderation"
	"gochangi/internal/player"
	"gochangi/internal/question"
	"gochangi/internal/server"
	"gochangi/internal/settings"
	"gochangi/internal/store"
	"gochangi/internal/store/gormstore"
	"gochangi/internal/store/memstore"
	"gochangi/internal/store/mongostore"
	"gochangi/pkg/cache"
	"gochangi/pkg/database"
	"gochangi/pkg/storage"
	"gochangi/pkg/websocket"
)

// App holds the assembled services of one process.
type App struct {
	Store     store.Store
	Hub       *websocket.Hub
	Auth      *auth.Service
	Players   *player.Service
	AutoClear *autoclear.Service
	Handler   http.Handler

	redis *redis.Client
}

// Close releases the store and redis connections.
func (a *App) Close(ctx context.Context) error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return a.Store.Close(ctx)
}

// Infra is what the services are built on.
type Infra struct {
	Store    store.Store
	Cache    cache.Cache
	Sessions game.SessionStore
	Images   storage.ImageStore
	Redis    *redis.Client
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgresDB(&database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return gormstore.New(db, logger), nil
	case config.DriverMongo:
		db, err := database.NewMongoDB(ctx, cfg.Database.MongoURI, cfg.Database.MongoDB)
		if err != nil {
			return nil, err
		}
		return mongostore.New(db, logger), nil
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), nil
	}
}

func openImages(cfg config.Config) (storage.ImageStore, error) {
	if cfg.Uploads.S3Bucket != "" {
		return storage.NewS3Store(cfg.Uploads.AWSRegion, cfg.Uploads.S3Bucket, "")
	}
	return storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
}

// OpenInfra connects everything cfg points at and runs the store migrations.
func OpenInfra(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Infra, error) {
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	images, err := openImages(cfg)
	if err != nil {
		_ = st.Close(ctx)
		return nil, fmt.Errorf("open image storage: %w", err)
	}

	infra := &Infra{Store: st, Images: images, Cache: cache.Noop{}, Sessions: game.NewMemoryStore()}
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = st.Close(ctx)
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		infra.Redis = client
		infra.Cache = cache.NewRedisCache(client,
			config.TTLDuration(cfg.Redis.CollectionTTL, defaultCollectionTTL),
			config.TTLDuration(cfg.Redis.LeaderboardTTL, defaultLeaderboardTTL))
		infra.Sessions = game.NewRedisStore(client, config.TTLDuration(cfg.Redis.SessionTTL, defaultSessionTTL))
	} else {
		logger.Info("redis not configured, caching disabled and sessions kept in memory")
	}
	return infra, nil
}

// NewApp wires services, handlers and routes on top of infra.
func NewApp(cfg config.Config, infra *Infra, logger *slog.Logger) *App {
	hub := websocket.NewHub(logger, cfg.Server.CORSOrigins)
	maxBytes := cfg.Uploads.MaxBytes

	settingsSvc := settings.NewService(infra.Store, infra.Images, maxBytes, logger)
	authSvc := auth.NewService(infra.Store, cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, defaultTokenTTL), logger)
	collections := collection.NewService(infra.Store, infra.Cache, infra.Images, logger)
	questions := question.NewService(infra.Store, collections, settingsSvc, infra.Images, maxBytes, logger)
	usernames := moderation.NewService(infra.Store, logger)
	players := player.NewService(infra.Store, collections, usernames, settingsSvc, infra.Cache, hub, infra.Sessions, logger)
	games := game.NewService(infra.Sessions, infra.Store, collections, questions, settingsSvc, players, logger)
	clears := autoclear.NewService(infra.Store, players, collections, logger)
	hub.SetSnapshot(players.Snapshot)

	deps := server.Deps{
		Handlers: server.Handlers{
			Auth:        auth.NewHandler(authSvc, logger),
			Collections: collection.NewHandler(collections, cfg.Server.PublicURL, logger),
			Questions:   question.NewHandler(questions, maxBytes, logger),
			Game:        game.NewHandler(games, logger),
			Players:     player.NewHandler(players, logger),
			Moderation:  moderation.NewHandler(usernames, logger),
			Settings:    settings.NewHandler(settingsSvc, maxBytes, logger),
			AutoClear:   autoclear.NewHandler(clears, logger),
		},
		Auth:    authSvc,
		Limiter: auth.NewLoginLimiter(cfg.Auth.LoginRate, cfg.Auth.LoginBurst),
		Hub:     hub,
		Logger:  logger,
	}
	if _, local := infra.Images.(*storage.LocalStore); local {
		deps.UploadDir = cfg.Uploads.Dir
		deps.UploadURL = cfg.Uploads.URLPrefix
	}

	return &App{
		Store:     infra.Store,
		Hub:       hub,
		Auth:      authSvc,
		Players:   players,
		AutoClear: clears,
		Handler:   server.CORS(cfg.Server.CORSOrigins, server.NewRouter(deps)),
		redis:     infra.Redis,
	}
}
