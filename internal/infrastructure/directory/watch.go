package directory

import (
	"context"
	"reflect"
	"sync"
)

// watcher delivers snapshots of one live query from its own goroutine.
// Only the newest undelivered snapshot is kept: a full result set supersedes
// any older one that has not reached the callback yet.
type watcher struct {
	query Query
	fn    SnapshotFunc

	mu         sync.Mutex
	pending    []Document
	hasPending bool
	last       []Document
	offered    bool

	notify   chan struct{}
	done     chan struct{}
	once     sync.Once
	onCancel func()
}

func newWatcher(q Query, fn SnapshotFunc, onCancel func()) *watcher {
	return &watcher{
		query:    q,
		fn:       fn,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// offer queues docs for delivery unless they equal the previously offered set.
func (w *watcher) offer(docs []Document) {
	w.mu.Lock()
	if w.offered && reflect.DeepEqual(w.last, docs) {
		w.mu.Unlock()
		return
	}
	w.offered = true
	w.last = docs
	w.pending = docs
	w.hasPending = true
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func (w *watcher) run(ctx context.Context) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			w.Cancel()
			return
		case <-w.notify:
		}

		w.mu.Lock()
		docs, ok := w.pending, w.hasPending
		w.pending, w.hasPending = nil, false
		w.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case <-w.done:
			return
		default:
		}
		w.fn(cloneDocuments(docs))
	}
}

func (w *watcher) Cancel() {
	w.once.Do(func() {
		close(w.done)
		if w.onCancel != nil {
			w.onCancel()
		}
	})
}

func (w *watcher) cancelled() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func cloneDocuments(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{ID: d.ID, Fields: cloneFields(d.Fields)}
	}
	return out
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
