package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochangi/internal/models"
	"gochangi/internal/store"
)

// Collection names in the Mongo database.
const (
	colAdmins      = "admins"
	colPlayers     = "players"
	colCollections = "collections"
	colQuestions   = "questions"
	colSettings    = "settings"
	colClearLogs   = "auto_clear_logs"
	colBadNames    = "bad_usernames"
)

type Store struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Migrate(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{colAdmins, mongo.IndexModel{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{colBadNames, mongo.IndexModel{Keys: bson.D{{Key: "word", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{colCollections, mongo.IndexModel{Keys: bson.D{{Key: "code", Value: 1}}}},
		{colQuestions, mongo.IndexModel{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "number", Value: 1}}}},
		{colPlayers, mongo.IndexModel{Keys: bson.D{{Key: "collection_id", Value: 1}, {Key: "created_at", Value: -1}}}},
		{colClearLogs, mongo.IndexModel{Keys: bson.D{{Key: "ran_at", Value: -1}}}},
	}
	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func getOne[T any](ctx context.Context, col *mongo.Collection, filter bson.M) (*T, error) {
	var doc T
	if err := col.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func getAll[T any](ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func insertOne(ctx context.Context, col *mongo.Collection, doc interface{}) error {
	_, err := col.InsertOne(ctx, doc)
	return translate(err)
}

func replaceOne(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	res, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func upsertOne(ctx context.Context, col *mongo.Collection, id string, doc interface{}) error {
	_, err := col.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return translate(err)
}

func deleteOne(ctx context.Context, col *mongo.Collection, id string) error {
	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Admins

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	return insertOne(ctx, s.db.Collection(colAdmins), admin)
}

func (s *Store) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	return getOne[models.Admin](ctx, s.db.Collection(colAdmins), bson.M{"_id": id})
}

func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return getOne[models.Admin](ctx, s.db.Collection(colAdmins), bson.M{"username": username})
}

func (s *Store) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	return getAll[models.Admin](ctx, s.db.Collection(colAdmins), bson.M{}, opts)
}

func (s *Store) UpdateAdmin(ctx context.Context, admin *models.Admin) error {
	return replaceOne(ctx, s.db.Collection(colAdmins), admin.ID, admin)
}

func (s *Store) DeleteAdmin(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db.Collection(colAdmins), id)
}

func (s *Store) CountAdmins(ctx context.Context, role string) (int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return s.db.Collection(colAdmins).CountDocuments(ctx, filter)
}

// Collections

func (s *Store) CreateCollection(ctx context.Context, c *models.Collection) error {
	return insertOne(ctx, s.db.Collection(colCollections), c)
}

func (s *Store) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	return getOne[models.Collection](ctx, s.db.Collection(colCollections), bson.M{"_id": id})
}

func (s *Store) FindCollectionsByCode(ctx context.Context, code string) ([]models.Collection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	collections, err := getAll[models.Collection](ctx, s.db.Collection(colCollections), bson.M{"code": code}, opts)
	if err != nil {
		s.logger.Error("find collections by code", "code", code, "err", err)
	}
	return collections, err
}

func (s *Store) ListCollections(ctx context.Context) ([]models.Collection, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return getAll[models.Collection](ctx, s.db.Collection(colCollections), bson.M{}, opts)
}

func (s *Store) UpdateCollection(ctx context.Context, c *models.Collection) error {
	return replaceOne(ctx, s.db.Collection(colCollections), c.ID, c)
}

func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db.Collection(colCollections), id)
}

// Questions

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return insertOne(ctx, s.db.Collection(colQuestions), q)
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return getOne[models.Question](ctx, s.db.Collection(colQuestions), bson.M{"_id": id})
}

func (s *Store) ListQuestions(ctx context.Context, collectionID string) ([]models.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	return getAll[models.Question](ctx, s.db.Collection(colQuestions), bson.M{"collection_id": collectionID}, opts)
}

func (s *Store) UpdateQuestion(ctx context.Context, q *models.Question) error {
	return replaceOne(ctx, s.db.Collection(colQuestions), q.ID, q)
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db.Collection(colQuestions), id)
}

func (s *Store) DeleteQuestionsByCollection(ctx context.Context, collectionID string) (int64, error) {
	res, err := s.db.Collection(colQuestions).DeleteMany(ctx, bson.M{"collection_id": collectionID})
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

// Players

func (s *Store) CreatePlayer(ctx context.Context, p *models.Player) error {
	return insertOne(ctx, s.db.Collection(colPlayers), p)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	return getOne[models.Player](ctx, s.db.Collection(colPlayers), bson.M{"_id": id})
}

func (s *Store) ListPlayers(ctx context.Context, filter store.PlayerFilter) ([]models.Player, error) {
	query := bson.M{}
	if filter.CollectionID != "" {
		query["collection_id"] = filter.CollectionID
	}
	if filter.FinishedOnly {
		query["finished_at"] = bson.M{"$ne": nil}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return getAll[models.Player](ctx, s.db.Collection(colPlayers), query, opts)
}

func (s *Store) UpdatePlayer(ctx context.Context, p *models.Player) error {
	return replaceOne(ctx, s.db.Collection(colPlayers), p.ID, p)
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db.Collection(colPlayers), id)
}

func (s *Store) DeletePlayers(ctx context.Context, collectionID string) (int64, error) {
	filter := bson.M{}
	if collectionID != "" {
		filter["collection_id"] = collectionID
	}
	res, err := s.db.Collection(colPlayers).DeleteMany(ctx, filter)
	if err != nil {
		return 0, translate(err)
	}
	return res.DeletedCount, nil
}

// Singletons share the settings collection, keyed by their fixed ids.

func (s *Store) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	return getOne[models.GlobalSettings](ctx, s.db.Collection(colSettings), bson.M{"_id": models.GlobalSettingsID})
}

func (s *Store) SaveGlobalSettings(ctx context.Context, gs *models.GlobalSettings) error {
	gs.ID = models.GlobalSettingsID
	return upsertOne(ctx, s.db.Collection(colSettings), gs.ID, gs)
}

func (s *Store) GetLanding(ctx context.Context) (*models.LandingCustomisation, error) {
	return getOne[models.LandingCustomisation](ctx, s.db.Collection(colSettings), bson.M{"_id": models.LandingID})
}

func (s *Store) SaveLanding(ctx context.Context, l *models.LandingCustomisation) error {
	l.ID = models.LandingID
	return upsertOne(ctx, s.db.Collection(colSettings), l.ID, l)
}

func (s *Store) GetAutoClearConfig(ctx context.Context) (*models.AutoClearConfig, error) {
	return getOne[models.AutoClearConfig](ctx, s.db.Collection(colSettings), bson.M{"_id": models.AutoClearID})
}

func (s *Store) SaveAutoClearConfig(ctx context.Context, c *models.AutoClearConfig) error {
	c.ID = models.AutoClearID
	return upsertOne(ctx, s.db.Collection(colSettings), c.ID, c)
}

// Auto-clear logs

func (s *Store) CreateAutoClearLog(ctx context.Context, entry *models.AutoClearLog) error {
	return insertOne(ctx, s.db.Collection(colClearLogs), entry)
}

func (s *Store) ListAutoClearLogs(ctx context.Context, limit int) ([]models.AutoClearLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ran_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return getAll[models.AutoClearLog](ctx, s.db.Collection(colClearLogs), bson.M{}, opts)
}

// Bad usernames

func (s *Store) CreateBadUsername(ctx context.Context, b *models.BadUsername) error {
	return insertOne(ctx, s.db.Collection(colBadNames), b)
}

func (s *Store) ListBadUsernames(ctx context.Context) ([]models.BadUsername, error) {
	opts := options.Find().SetSort(bson.D{{Key: "word", Value: 1}})
	return getAll[models.BadUsername](ctx, s.db.Collection(colBadNames), bson.M{}, opts)
}

func (s *Store) DeleteBadUsername(ctx context.Context, id string) error {
	return deleteOne(ctx, s.db.Collection(colBadNames), id)
}
