package directory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

var _ Directory = (*MemoryDirectory)(nil)

// MemoryDirectory keeps every collection in process memory. Used for local
// development (STORAGE_DRIVER=memory) and tests.
type MemoryDirectory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
	watchers    map[string]map[*watcher]struct{}
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		collections: make(map[string]map[string]Fields),
		watchers:    make(map[string]map[*watcher]struct{}),
	}
}

func (d *MemoryDirectory) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := ulid.Make().String()

	d.mu.Lock()
	d.collection(collection)[id] = cloneFields(fields)
	d.mu.Unlock()

	d.broadcast(collection)
	return id, nil
}

func (d *MemoryDirectory) Set(ctx context.Context, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.collection(collection)[id] = cloneFields(fields)
	d.mu.Unlock()

	d.broadcast(collection)
	return nil
}

func (d *MemoryDirectory) Patch(ctx context.Context, collection, id string, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	doc, ok := d.collection(collection)[id]
	if !ok {
		d.mu.Unlock()
		return ErrDocumentNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	d.mu.Unlock()

	d.broadcast(collection)
	return nil
}

func (d *MemoryDirectory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	docs := d.collection(collection)
	if _, ok := docs[id]; !ok {
		d.mu.Unlock()
		return ErrDocumentNotFound
	}
	delete(docs, id)
	d.mu.Unlock()

	d.broadcast(collection)
	return nil
}

func (d *MemoryDirectory) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	fields, ok := d.collections[collection][id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (d *MemoryDirectory) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return evaluate(q, d.collections[q.Collection]), nil
}

func (d *MemoryDirectory) Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var w *watcher
	w = newWatcher(q, fn, func() {
		d.mu.Lock()
		delete(d.watchers[q.Collection], w)
		d.mu.Unlock()
	})

	// Register and take the initial snapshot under one lock so no write can
	// fall between them.
	d.mu.Lock()
	if d.watchers[q.Collection] == nil {
		d.watchers[q.Collection] = make(map[*watcher]struct{})
	}
	d.watchers[q.Collection][w] = struct{}{}
	w.offer(evaluate(q, d.collections[q.Collection]))
	d.mu.Unlock()

	go w.run(ctx)
	return w, nil
}

// collection must be called with d.mu held for writing.
func (d *MemoryDirectory) collection(name string) map[string]Fields {
	docs, ok := d.collections[name]
	if !ok {
		docs = make(map[string]Fields)
		d.collections[name] = docs
	}
	return docs
}

func (d *MemoryDirectory) broadcast(collection string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for w := range d.watchers[collection] {
		if w.cancelled() {
			continue
		}
		w.offer(evaluate(w.query, d.collections[collection]))
	}
}
