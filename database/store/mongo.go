package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore implements RecordStore on a MongoDB database. Documents are keyed
// by _id; the id is surfaced to callers under IDField.
type MongoStore struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoStore wraps the named database of an already connected client.
func NewMongoStore(client *mongo.Client, dbName string, logger *zap.Logger) *MongoStore {
	return &MongoStore{db: client.Database(dbName), logger: logger}
}

func (s *MongoStore) coll(kind Kind) *mongo.Collection {
	return s.db.Collection(string(kind))
}

// Ping checks connectivity of the underlying client.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// EnsureIndexes creates the indexes backing the reservation filters.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "barberId", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
	}
	if _, err := s.coll(KindReservations).Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}
	accountIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.coll(KindAccounts).Indexes().CreateOne(ctx, accountIdx); err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	var raw bson.M
	err := s.coll(kind).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", kind, id, err)
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Query(ctx context.Context, kind Kind, field string, value any) ([]Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.coll(kind).Find(ctx, filterFor(field, value), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	docs := make([]Document, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, fromBSON(raw))
	}
	return docs, nil
}

// changeEvent is the subset of a change stream event needed to decide whether
// a change touches a subscription.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

// Subscribe opens a change stream on the collection and re-reads the filtered
// result set whenever an event touches it. Change streams require a replica
// set or sharded cluster.
func (s *MongoStore) Subscribe(ctx context.Context, kind Kind, field string, value any, onSnapshot SnapshotFunc) (Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.coll(kind).Watch(subCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", kind, err)
	}

	initial, err := s.Query(subCtx, kind, field, value)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	go func() {
		defer stream.Close(context.Background())

		current := idSet(initial)
		onSnapshot(initial)

		for stream.Next(subCtx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				s.logger.Warn("store: undecodable change event", zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			key := fmt.Sprint(ev.DocumentKey.ID)
			_, known := current[key]
			if !known && (ev.FullDocument == nil || !matches(fromBSON(ev.FullDocument), field, value)) {
				continue
			}
			docs, err := s.Query(subCtx, kind, field, value)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				s.logger.Error("store: failed to refresh subscription", zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			current = idSet(docs)
			onSnapshot(docs)
		}
		if err := stream.Err(); err != nil && subCtx.Err() == nil {
			s.logger.Error("store: change stream ended", zap.String("kind", string(kind)), zap.Error(err))
		}
	}()

	return Unsubscribe(cancel), nil
}

func (s *MongoStore) Set(ctx context.Context, kind Kind, id string, fields Document) error {
	doc := toBSON(withoutID(fields))
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll(kind).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, kind Kind, id string, fields Document) error {
	update := bson.M{"$set": toBSON(withoutID(fields))}
	result, err := s.coll(kind).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", kind, id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, kind Kind, id string) error {
	result, err := s.coll(kind).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", kind, id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func filterFor(field string, value any) bson.M {
	if field == "" {
		return bson.M{}
	}
	return bson.M{field: value}
}

func idSet(docs []Document) map[string]struct{} {
	set := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		set[d.ID()] = struct{}{}
	}
	return set
}

func toBSON(doc Document) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// fromBSON converts a raw document to a Document, moving _id to IDField and
// unwrapping driver-specific value types.
func fromBSON(raw bson.M) Document {
	doc := make(Document, len(raw))
	for k, v := range raw {
		if k == "_id" {
			doc[IDField] = fmt.Sprint(v)
			continue
		}
		doc[k] = normalizeBSON(v)
	}
	return doc
}

func normalizeBSON(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeBSON(item)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeBSON(item)
		}
		return out
	default:
		return v
	}
}
