package directory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"nwitter-backend/pkg/database"
)

var _ Directory = (*PostgresDirectory)(nil)

// PostgresDirectory stores documents as jsonb rows and fans out change
// notifications through Redis pub/sub. A watcher re-runs its query whenever a
// notification for its collection arrives.
type PostgresDirectory struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func NewPostgresDirectory(pool *pgxpool.Pool, rdb *redis.Client) *PostgresDirectory {
	return &PostgresDirectory{pool: pool, rdb: rdb}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT  NOT NULL,
		id         TEXT  NOT NULL,
		fields     JSONB NOT NULL DEFAULT '{}'::jsonb,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_created_at
		ON documents (collection, ((fields->>'createdAt')::numeric) DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_author
		ON documents (collection, (fields->>'authorId'))`,
}

// EnsureSchema creates the documents table and its indexes.
func (d *PostgresDirectory) EnsureSchema(ctx context.Context) error {
	return database.WithTransaction(ctx, d.pool, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

// ========================================
// WRITES
// ========================================

func (d *PostgresDirectory) Insert(ctx context.Context, collection string, fields Fields) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := ulid.Make().String()
	query := `INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3::jsonb)`
	if _, err := d.pool.Exec(ctx, query, collection, id, raw); err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	d.notify(ctx, collection, id)
	return id, nil
}

func (d *PostgresDirectory) Set(ctx context.Context, collection, id string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields
	`
	if _, err := d.pool.Exec(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	d.notify(ctx, collection, id)
	return nil
}

func (d *PostgresDirectory) Patch(ctx context.Context, collection, id string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	query := `UPDATE documents SET fields = fields || $3::jsonb WHERE collection = $1 AND id = $2`
	tag, err := d.pool.Exec(ctx, query, collection, id, raw)
	if err != nil {
		return fmt.Errorf("patch document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	d.notify(ctx, collection, id)
	return nil
}

func (d *PostgresDirectory) Delete(ctx context.Context, collection, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}

	d.notify(ctx, collection, id)
	return nil
}

// notify publishes a change marker. The write is already committed, so a
// publish failure only delays watchers until the next change.
func (d *PostgresDirectory) notify(ctx context.Context, collection, id string) {
	if err := d.rdb.Publish(ctx, changeChannel(collection), id).Err(); err != nil {
		log.Warn().
			Err(err).
			Str("collection", collection).
			Str("id", id).
			Msg("Failed to publish directory change")
	}
}

func changeChannel(collection string) string {
	return "directory:" + collection
}

// ========================================
// READS
// ========================================

func (d *PostgresDirectory) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, err
	}
	return &Document{ID: id, Fields: fields}, nil
}

func (d *PostgresDirectory) Query(ctx context.Context, q Query) ([]Document, error) {
	sql, args := buildQuery(q)

	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// buildQuery renders q as parameterised SQL. Field names travel as
// parameters of the ->> operator, never as SQL text.
func buildQuery(q Query) (string, []any) {
	var sb strings.Builder
	args := []any{q.Collection}

	sb.WriteString("SELECT id, fields FROM documents WHERE collection = $1")

	for _, f := range q.Filters {
		args = append(args, f.Field)
		if f.Value == nil {
			fmt.Fprintf(&sb, " AND fields->>$%d IS NULL", len(args))
			continue
		}
		args = append(args, fmt.Sprint(f.Value))
		fmt.Fprintf(&sb, " AND fields->>$%d = $%d", len(args)-1, len(args))
	}

	direction := "ASC"
	if q.Desc {
		direction = "DESC"
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		fmt.Fprintf(&sb, " ORDER BY (fields->>$%d)::numeric %s, id COLLATE \"C\" %s", len(args), direction, direction)
	} else {
		fmt.Fprintf(&sb, " ORDER BY id COLLATE \"C\" %s", direction)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

func decodeFields(raw []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return Fields(m), nil
}

// ========================================
// LIVE QUERIES
// ========================================

func (d *PostgresDirectory) Watch(ctx context.Context, q Query, fn SnapshotFunc) (Subscription, error) {
	// Subscribe before the first read so no change between the two is lost.
	pubsub := d.rdb.Subscribe(ctx, changeChannel(q.Collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", q.Collection, err)
	}

	docs, err := d.Query(ctx, q)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := newWatcher(q, fn, func() {
		cancel()
		_ = pubsub.Close()
	})
	w.offer(docs)

	go w.run(watchCtx)
	go followChanges(watchCtx, pubsub.Channel(), w, d.Query)

	return w, nil
}

type queryFunc func(ctx context.Context, q Query) ([]Document, error)

// followChanges re-runs the watcher's query for every change notification
// until ctx is done or the channel closes. A failed refresh is logged and
// the next notification tries again.
func followChanges(ctx context.Context, changes <-chan *redis.Message, w *watcher, query queryFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			docs, err := query(ctx, w.query)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn().
						Err(err).
						Str("collection", w.query.Collection).
						Msg("Live query refresh failed")
				}
				continue
			}
			w.offer(docs)
		}
	}
}
