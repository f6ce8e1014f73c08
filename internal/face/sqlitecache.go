package face

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS face_embeddings (
    key        TEXT PRIMARY KEY,
    embedding  BLOB NOT NULL,
    faces      INTEGER NOT NULL,
    bbox       TEXT,
    det_score  REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

type sqliteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) a file-backed embedding cache, so cached
// embeddings survive restarts.
func NewSQLiteCache(path string) (Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// SQLite single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &sqliteCache{db: db}, nil
}

func (c *sqliteCache) Get(key string) (*Entry, error) {
	var blob []byte
	var faces int
	var bbox sql.NullString
	var score float64
	err := c.db.QueryRow(
		`SELECT embedding, faces, bbox, det_score FROM face_embeddings WHERE key = ?`, key,
	).Scan(&blob, &faces, &bbox, &score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	vec := VectorFromBytes(blob)
	if vec == nil {
		return nil, fmt.Errorf("corrupt embedding blob for key %s", key)
	}
	meta := Meta{FaceCount: faces, Score: score}
	if bbox.Valid && bbox.String != "" {
		if err := json.Unmarshal([]byte(bbox.String), &meta.Box); err != nil {
			return nil, fmt.Errorf("corrupt bbox for key %s: %w", key, err)
		}
	}
	return &Entry{Embedding: vec, Meta: meta}, nil
}

func (c *sqliteCache) Set(key string, e Entry) error {
	var bbox any
	if len(e.Meta.Box) > 0 {
		encoded, err := json.Marshal(e.Meta.Box)
		if err != nil {
			return err
		}
		bbox = string(encoded)
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO face_embeddings (key, embedding, faces, bbox, det_score) VALUES (?, ?, ?, ?, ?)`,
		key, e.Embedding.Bytes(), e.Meta.FaceCount, bbox, e.Meta.Score,
	)
	return err
}

func (c *sqliteCache) Stats() (Stats, error) {
	var count int
	var size int64
	err := c.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(embedding)), 0) FROM face_embeddings`,
	).Scan(&count, &size)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Enabled: true, EntryCount: count, TotalSizeBytes: size}, nil
}

func (c *sqliteCache) Clear() (int, error) {
	res, err := c.db.Exec(`DELETE FROM face_embeddings`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (c *sqliteCache) Close() error {
	return c.db.Close()
}
