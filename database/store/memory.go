package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
)

// MemoryStore is a process-local RecordStore. It backs the "memory" store
// backend for local development and is the store used throughout the tests.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[Kind]map[string]Document
	subs   map[int]*memorySub
	nextID int
}

type memorySub struct {
	kind  Kind
	field string
	value any
	queue *snapshotQueue
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[Kind]map[string]Document),
		subs: make(map[int]*memorySub),
	}
}

func (s *MemoryStore) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.data[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Query(ctx context.Context, kind Kind, field string, value any) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(kind, field, value), nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, kind Kind, field string, value any, onSnapshot SnapshotFunc) (Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &memorySub{kind: kind, field: field, value: value, queue: newSnapshotQueue(onSnapshot)}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	sub.queue.push(s.selectLocked(kind, field, value))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.queue.close()
		})
	}, nil
}

func (s *MemoryStore) Set(ctx context.Context, kind Kind, id string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.data[kind][id]
	doc := withoutID(fields)
	doc[IDField] = id
	if s.data[kind] == nil {
		s.data[kind] = make(map[string]Document)
	}
	s.data[kind][id] = doc
	s.notifyLocked(kind, old, doc)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, kind Kind, id string, fields Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[kind][id]
	if !ok {
		return ErrNotFound
	}
	doc := old.Clone()
	for k, v := range withoutID(fields) {
		doc[k] = v
	}
	s.data[kind][id] = doc
	s.notifyLocked(kind, old, doc)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.data[kind][id]
	if !ok {
		return ErrNotFound
	}
	delete(s.data[kind], id)
	s.notifyLocked(kind, old, nil)
	return nil
}

// selectLocked returns the matching documents ordered by id.
func (s *MemoryStore) selectLocked(kind Kind, field string, value any) []Document {
	docs := make([]Document, 0)
	for _, doc := range s.data[kind] {
		if matches(doc, field, value) {
			docs = append(docs, doc.Clone())
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID() < docs[j].ID() })
	return docs
}

// notifyLocked pushes a fresh snapshot to every subscription whose filter
// matched the document before or after the change.
func (s *MemoryStore) notifyLocked(kind Kind, before, after Document) {
	for _, sub := range s.subs {
		if sub.kind != kind {
			continue
		}
		if (before != nil && matches(before, sub.field, sub.value)) ||
			(after != nil && matches(after, sub.field, sub.value)) {
			sub.queue.push(s.selectLocked(kind, sub.field, sub.value))
		}
	}
}

func matches(doc Document, field string, value any) bool {
	if field == "" {
		return true
	}
	v, ok := doc[field]
	if !ok {
		return false
	}
	return reflect.DeepEqual(v, value)
}
