package retrieve

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRetriever is a SQLite-backed Retriever.
//
// It stores vectors as JSON-encoded float32 slices in a single table and
// scores every row in Go on retrieval. Designed for single-process
// deployments and local development where a separate vector database
// would be overkill; for larger corpora, score the candidate set inside
// the embedding application's own vector index instead.
type SQLiteRetriever struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteRetriever opens (and migrates) a SQLite-backed retriever at path.
// Use ":memory:" for an ephemeral database, as the teacher's SQLite store
// does for tests.
func NewSQLiteRetriever(path string) (*SQLiteRetriever, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("retrieve: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("retrieve: %s: %w", pragma, err)
		}
	}

	r := &SQLiteRetriever{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRetriever) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS retrieve_vectors (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			values_json TEXT NOT NULL,
			metadata_json TEXT NOT NULL
		)
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *SQLiteRetriever) Store(ctx context.Context, vectors []Vector) (StoreResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return StoreResult{}, fmt.Errorf("retrieve: begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO retrieve_vectors (id, content, values_json, metadata_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content=excluded.content,
			values_json=excluded.values_json, metadata_json=excluded.metadata_json
	`
	for _, v := range vectors {
		valuesJSON, err := json.Marshal(v.Values)
		if err != nil {
			return StoreResult{}, fmt.Errorf("retrieve: marshal values: %w", err)
		}
		metaJSON, err := json.Marshal(v.Metadata)
		if err != nil {
			return StoreResult{}, fmt.Errorf("retrieve: marshal metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsert, v.ID, v.Content, string(valuesJSON), string(metaJSON)); err != nil {
			return StoreResult{}, fmt.Errorf("retrieve: upsert %s: %w", v.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return StoreResult{}, fmt.Errorf("retrieve: commit: %w", err)
	}
	return StoreResult{Stored: len(vectors)}, nil
}

func (r *SQLiteRetriever) Retrieve(ctx context.Context, q Query) ([]Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id, content, values_json, metadata_json FROM retrieve_vectors`)
	if err != nil {
		return nil, fmt.Errorf("retrieve: query: %w", err)
	}
	defer rows.Close()

	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}

	var matches []Match
	for rows.Next() {
		var id, content, valuesJSON, metaJSON string
		if err := rows.Scan(&id, &content, &valuesJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("retrieve: scan: %w", err)
		}
		var values []float32
		if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
			return nil, fmt.Errorf("retrieve: unmarshal values for %s: %w", id, err)
		}
		var meta map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, fmt.Errorf("retrieve: unmarshal metadata for %s: %w", id, err)
		}
		if !matchesFilter(meta, q.Filter) {
			continue
		}
		score := cosineSimilarity(q.Values, values)
		if score < q.MinScore {
			continue
		}
		matches = append(matches, Match{ID: id, Content: content, Score: score, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (r *SQLiteRetriever) Delete(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM retrieve_vectors WHERE id = ?`, id); err != nil {
			return fmt.Errorf("retrieve: delete %s: %w", id, err)
		}
	}
	return nil
}

// Close releases the underlying database connection.
func (r *SQLiteRetriever) Close() error {
	return r.db.Close()
}
