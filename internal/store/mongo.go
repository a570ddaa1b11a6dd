package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/quizhub/internal/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoDatabase = "quizhub"
	gamesCollection      = "games"
	connectTimeout       = 10 * time.Second
)

type Mongo struct {
	client *mongo.Client
	games  *mongo.Collection
}

// OpenMongo connects and pings the primary before returning.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Info().Str("module", "store").Str("database", database).Msg("connected to MongoDB")
	return &Mongo{client: client, games: client.Database(database).Collection(gamesCollection)}, nil
}

func (m *Mongo) NewGame(ctx context.Context, id domain.GameID, force bool) error {
	if force {
		_, err := m.games.ReplaceOne(ctx, bson.M{"_id": id}, domain.GameRecord{ID: id}, options.Replace().SetUpsert(true))
		return err
	}
	_, err := m.games.InsertOne(ctx, domain.GameRecord{ID: id})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrGameExists
	}
	return err
}

func (m *Mongo) StoreGame(ctx context.Context, rec domain.GameRecord) error {
	_, err := m.games.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, options.Replace().SetUpsert(true))
	return err
}

func (m *Mongo) RemoveGame(ctx context.Context, id domain.GameID) error {
	res, err := m.games.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

func (m *Mongo) RetrieveGame(ctx context.Context, id domain.GameID) (domain.GameRecord, error) {
	var rec domain.GameRecord
	err := m.games.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.GameRecord{}, domain.ErrGameNotFound
	}
	return rec, err
}

func (m *Mongo) ListGames(ctx context.Context) ([]domain.GameRecord, error) {
	cur, err := m.games.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	recs := []domain.GameRecord{}
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
