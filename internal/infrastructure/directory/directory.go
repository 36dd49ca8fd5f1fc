package directory

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by Get, Patch and Delete when the id is unknown.
var ErrDocumentNotFound = errors.New("document not found")

// Fields is the body of a document. Values are JSON scalars (string, number,
// bool, nil).
type Fields map[string]any

// Document is one entry of a collection.
type Document struct {
	ID     string
	Fields Fields
}

// Filter matches documents whose field equals Value.
type Filter struct {
	Field string
	Value any
}

// Query selects documents of one collection. Results are ordered by OrderBy
// (numeric, descending when Desc) and then by id in the same direction, so
// equal sort keys keep a stable order. Limit <= 0 means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Where returns a copy of q with one more equality filter.
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// SnapshotFunc receives the full matching result set.
type SnapshotFunc func(docs []Document)

// Subscription detaches a live query. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Directory is the document store every domain repository writes through.
type Directory interface {
	// Insert stores a new document and returns the id assigned to it.
	Insert(ctx context.Context, collection string, fields Fields) (string, error)

	// Set creates or fully overwrites the document with the given id.
	Set(ctx context.Context, collection, id string, fields Fields) error

	// Patch merges fields into an existing document.
	Patch(ctx context.Context, collection, id string, fields Fields) error

	Delete(ctx context.Context, collection, id string) error

	Get(ctx context.Context, collection, id string) (*Document, error)

	// Query runs q once.
	Query(ctx context.Context, q Query) ([]Document, error)

	// Watch runs q and calls fn with the result, then again every time the
	// result set changes, until the subscription is cancelled or ctx is done.
	// An error is returned only when the initial query cannot be established.
	Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error)
}
