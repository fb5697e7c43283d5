// Package store is the generic document access layer shared by every
// repository. Backends hold loosely-typed documents; repositories turn them
// into fixed-shape records.
package store

import (
	"context"
	"errors"
)

// Kind names a record collection.
type Kind string

const (
	KindProviders    Kind = "Barbers"
	KindCustomers    Kind = "Users"
	KindReservations Kind = "reservations"
	KindServices     Kind = "services"
	KindAccounts     Kind = "accounts"
)

// IDField is the key under which every returned document carries its id.
const IDField = "id"

// Document is a single record as stored. Documents returned by a RecordStore
// always carry their key under IDField.
type Document map[string]any

// ID returns the document key, or "" when absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// SnapshotFunc receives the complete current result set of a subscription.
type SnapshotFunc func(docs []Document)

// Unsubscribe stops a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// ErrNotFound is returned when the addressed document does not exist.
var ErrNotFound = errors.New("document not found")

// RecordStore is the document store contract consumed by the repositories.
//
// Query and Subscribe filter on equality of a single field; an empty field
// selects every document of the kind. Subscribe delivers the initial result
// set and then a full snapshot after every change affecting the filter, in
// the order the backend observes them.
type RecordStore interface {
	Get(ctx context.Context, kind Kind, id string) (Document, error)
	Query(ctx context.Context, kind Kind, field string, value any) ([]Document, error)
	Subscribe(ctx context.Context, kind Kind, field string, value any, onSnapshot SnapshotFunc) (Unsubscribe, error)
	Set(ctx context.Context, kind Kind, id string, fields Document) error
	Update(ctx context.Context, kind Kind, id string, fields Document) error
	Delete(ctx context.Context, kind Kind, id string) error
}

// withoutID returns a copy of fields with the id key removed.
func withoutID(fields Document) Document {
	out := fields.Clone()
	delete(out, IDField)
	return out
}
