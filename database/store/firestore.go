package store

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements RecordStore on Cloud Firestore. Query snapshot
// listeners provide the subscription contract natively.
type FirestoreStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client, logger *zap.Logger) *FirestoreStore {
	return &FirestoreStore{client: client, logger: logger}
}

func (s *FirestoreStore) query(kind Kind, field string, value any) firestore.Query {
	coll := s.client.Collection(string(kind))
	if field == "" {
		return coll.Query
	}
	return coll.Where(field, "==", value)
}

func (s *FirestoreStore) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	snap, err := s.client.Collection(string(kind)).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", kind, id, err)
	}
	return fromFirestore(snap), nil
}

func (s *FirestoreStore) Query(ctx context.Context, kind Kind, field string, value any) ([]Document, error) {
	snaps, err := s.query(kind, field, value).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, fromFirestore(snap))
	}
	return docs, nil
}

func (s *FirestoreStore) Subscribe(ctx context.Context, kind Kind, field string, value any, onSnapshot SnapshotFunc) (Unsubscribe, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	it := s.query(kind, field, value).Snapshots(subCtx)

	go func() {
		for {
			qs, err := it.Next()
			if err != nil {
				if subCtx.Err() == nil && status.Code(err) != codes.Canceled {
					s.logger.Error("store: snapshot listener ended", zap.String("kind", string(kind)), zap.Error(err))
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				s.logger.Error("store: failed to read snapshot", zap.String("kind", string(kind)), zap.Error(err))
				continue
			}
			docs := make([]Document, 0, len(snaps))
			for _, snap := range snaps {
				docs = append(docs, fromFirestore(snap))
			}
			onSnapshot(docs)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			it.Stop()
		})
	}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, kind Kind, id string, fields Document) error {
	if _, err := s.client.Collection(string(kind)).Doc(id).Set(ctx, map[string]any(withoutID(fields))); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *FirestoreStore) Update(ctx context.Context, kind Kind, id string, fields Document) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range withoutID(fields) {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := s.client.Collection(string(kind)).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, kind Kind, id string) error {
	_, err := s.client.Collection(string(kind)).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// fromFirestore flattens a snapshot into a Document. Document references
// (the provider service list) are reduced to the referenced id.
func fromFirestore(snap *firestore.DocumentSnapshot) Document {
	doc := make(Document)
	for k, v := range snap.Data() {
		doc[k] = normalizeFirestore(v)
	}
	doc[IDField] = snap.Ref.ID
	return doc
}

func normalizeFirestore(v any) any {
	switch val := v.(type) {
	case *firestore.DocumentRef:
		return val.ID
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeFirestore(item)
		}
		return out
	default:
		return v
	}
}
