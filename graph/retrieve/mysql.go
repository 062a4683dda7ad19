package retrieve

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLRetriever is a MySQL/MariaDB-backed Retriever for production
// deployments that need vectors to survive process restarts and to be
// shared across worker processes. Scoring still happens in Go after
// fetching candidate rows; callers with large corpora should pre-filter
// via q.Filter to keep the candidate set small.
type MySQLRetriever struct {
	db *sql.DB
}

// NewMySQLRetriever opens (and migrates) a MySQL-backed retriever using
// dsn in the go-sql-driver/mysql format, e.g.
// "user:pass@tcp(127.0.0.1:3306)/ragflow?parseTime=true".
func NewMySQLRetriever(dsn string) (*MySQLRetriever, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("retrieve: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("retrieve: ping mysql: %w", err)
	}

	r := &MySQLRetriever{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *MySQLRetriever) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS retrieve_vectors (
			id VARCHAR(255) PRIMARY KEY,
			content LONGTEXT NOT NULL,
			values_json LONGTEXT NOT NULL,
			metadata_json LONGTEXT NOT NULL
		) ENGINE=InnoDB
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *MySQLRetriever) Store(ctx context.Context, vectors []Vector) (StoreResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return StoreResult{}, fmt.Errorf("retrieve: begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO retrieve_vectors (id, content, values_json, metadata_json)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE content=VALUES(content),
			values_json=VALUES(values_json), metadata_json=VALUES(metadata_json)
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

func (r *MySQLRetriever) Retrieve(ctx context.Context, q Query) ([]Match, error) {
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

func (r *MySQLRetriever) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM retrieve_vectors WHERE id = ?`, id); err != nil {
			return fmt.Errorf("retrieve: delete %s: %w", id, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *MySQLRetriever) Close() error {
	return r.db.Close()
}
