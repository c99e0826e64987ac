// Package store provides the document storage collaborator: flat
// collections of JSON documents addressed by (collection, key), with
// insertion-ordered scans. Backed by SQLite so every write is atomic
// per record.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrNoDocument   = errors.New("document not found")
	ErrDuplicateKey = errors.New("document already exists")
)

// Documents is the storage contract consumed by the registry and the
// token vault. Implementations must keep single-record operations atomic.
type Documents interface {
	FindOne(ctx context.Context, collection, key string, out interface{}) error
	InsertOne(ctx context.Context, collection, key string, doc interface{}) error
	DeleteOne(ctx context.Context, collection, key string) error
	FindAll(ctx context.Context, collection string) ([]Document, error)
}

// Document is one stored record as returned by FindAll, in insertion order.
type Document struct {
	Key       string
	Data      []byte
	CreatedAt time.Time
}

type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (collection, key)
);
`

// Open opens (creating if needed) the document store at path. The special
// path ":memory:" yields a transient in-memory store.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	// SQLite handles one writer at a time; a single pooled connection also
	// keeps an in-memory database from fragmenting across connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply storage schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) FindOne(ctx context.Context, collection, key string, out interface{}) error {
	var raw []byte
	row := d.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND key = ?`,
		collection, key)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoDocument
		}
		return fmt.Errorf("find %s/%s: %w", collection, key, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return nil
}

func (d *DB) InsertOne(ctx context.Context, collection, key string, doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, doc, created_at) VALUES (?, ?, ?, ?)`,
		collection, key, string(raw), time.Now().UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert %s/%s: %w", collection, key, err)
	}
	return nil
}

func (d *DB) DeleteOne(ctx context.Context, collection, key string) error {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		collection, key)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	if n == 0 {
		return ErrNoDocument
	}
	return nil
}

func (d *DB) FindAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT key, doc, created_at FROM documents WHERE collection = ? ORDER BY rowid`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc       Document
			createdMS int64
		)
		if err := rows.Scan(&doc.Key, &doc.Data, &createdMS); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc.CreatedAt = time.UnixMilli(createdMS)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	return docs, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite reports constraint failures through the error
	// string; SQLITE_CONSTRAINT_PRIMARYKEY has no exported sentinel.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
