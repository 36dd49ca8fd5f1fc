package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "collection only",
			query:    Query{Collection: "posts"},
			wantSQL:  `SELECT id, fields FROM documents WHERE collection = $1 ORDER BY id COLLATE "C" ASC`,
			wantArgs: []any{"posts"},
		},
		{
			name:  "feed",
			query: Query{Collection: "posts", OrderBy: "createdAt", Desc: true, Limit: 25},
			wantSQL: `SELECT id, fields FROM documents WHERE collection = $1` +
				` ORDER BY (fields->>$2)::numeric DESC, id COLLATE "C" DESC LIMIT $3`,
			wantArgs: []any{"posts", "createdAt", 25},
		},
		{
			name:  "author scope",
			query: Query{Collection: "posts", OrderBy: "createdAt", Desc: true}.Where("authorId", "u1"),
			wantSQL: `SELECT id, fields FROM documents WHERE collection = $1 AND fields->>$2 = $3` +
				` ORDER BY (fields->>$4)::numeric DESC, id COLLATE "C" DESC`,
			wantArgs: []any{"posts", "authorId", "u1", "createdAt"},
		},
		{
			name:  "null filter",
			query: Query{Collection: "posts"}.Where("imageData", nil),
			wantSQL: `SELECT id, fields FROM documents WHERE collection = $1 AND fields->>$2 IS NULL` +
				` ORDER BY id COLLATE "C" ASC`,
			wantArgs: []any{"posts", "imageData"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildQuery(tt.query)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestDecodeFields_KeepsNumbers(t *testing.T) {
	fields, err := decodeFields([]byte(`{"createdAt": 1700000000123, "body": "hi"}`))
	require.NoError(t, err)

	n, ok := fields["createdAt"].(json.Number)
	require.True(t, ok, "numbers decode as json.Number, got %T", fields["createdAt"])
	assert.Equal(t, "1700000000123", n.String())

	f, ok := numeric(fields["createdAt"])
	require.True(t, ok)
	assert.Equal(t, float64(1700000000123), f)
}

type queryResult struct {
	docs []Document
	err  error
}

func TestFollowChanges_RefreshFailureIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan []Document, 4)
	w := newWatcher(Query{Collection: "posts"}, func(docs []Document) { snapshots <- docs }, nil)
	go w.run(ctx)

	results := make(chan queryResult, 3)
	query := func(ctx context.Context, q Query) ([]Document, error) {
		assert.Equal(t, "posts", q.Collection)
		r := <-results
		return r.docs, r.err
	}

	changes := make(chan *redis.Message)
	done := make(chan struct{})
	go func() {
		followChanges(ctx, changes, w, query)
		close(done)
	}()

	first := []Document{{ID: "a", Fields: Fields{"body": "one"}}}
	second := []Document{{ID: "b", Fields: Fields{"body": "two"}}, first[0]}

	results <- queryResult{docs: first}
	changes <- &redis.Message{Channel: changeChannel("posts")}
	assert.Equal(t, first, nextRefreshSnapshot(t, snapshots))

	// A failing refresh delivers nothing and does not stop the loop.
	results <- queryResult{err: errors.New("connection reset")}
	changes <- &redis.Message{Channel: changeChannel("posts")}
	results <- queryResult{docs: second}
	changes <- &redis.Message{Channel: changeChannel("posts")}
	assert.Equal(t, second, nextRefreshSnapshot(t, snapshots))

	close(changes)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("followChanges did not return after the channel closed")
	}
	assert.Empty(t, snapshots)
}

func TestFollowChanges_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := newWatcher(Query{Collection: "posts"}, func([]Document) {}, nil)

	done := make(chan struct{})
	go func() {
		followChanges(ctx, make(chan *redis.Message), w, func(context.Context, Query) ([]Document, error) {
			t.Error("query must not run without a change notification")
			return nil, nil
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("followChanges did not return after cancel")
	}
}

func nextRefreshSnapshot(t *testing.T, ch <-chan []Document) []Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}
