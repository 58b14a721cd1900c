// Package persist is the document persistence boundary: a SQLite store
// for the serialized layer documents, a versioned wire codec with
// field-local recovery of malformed input, and the mutable mirror buffer
// the engine writes through on every synchronized event.
package persist

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on documents.updated_at
const currentSchemaVersion = 1

// ErrNotFound is returned when a document ID has no persisted row.
var ErrNotFound = errors.New("document not found")

// Adapter provides durable storage for layer documents.
// Uses SQLite with WAL mode for concurrent read access.
type Adapter struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Adapter{db: db}, nil
}

// Close closes the database connection.
func (a *Adapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveDocument upserts one document payload. The write is idempotent per
// (doc_id, revision): replaying the same save is harmless.
func (a *Adapter) SaveDocument(ctx context.Context, docID string, payload []byte, revision int64) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, revision, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			revision = excluded.revision,
			payload = excluded.payload,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`, docID, revision, string(payload))
	if err != nil {
		return fmt.Errorf("save document %s: %w", docID, err)
	}
	return nil
}

// LoadDocument reads one document payload and its revision.
// Returns ErrNotFound when the document has never been saved.
func (a *Adapter) LoadDocument(ctx context.Context, docID string) (payload []byte, revision int64, err error) {
	var body string
	err = a.db.QueryRowContext(ctx, `
		SELECT payload, revision FROM documents WHERE doc_id = ?
	`, docID).Scan(&body, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("load document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load document %s: %w", docID, err)
	}
	return []byte(body), revision, nil
}

// DeleteDocument removes one document. Deleting an absent document is a
// no-op.
func (a *Adapter) DeleteDocument(ctx context.Context, docID string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	return nil
}

// DocumentInfo summarizes one persisted document row.
type DocumentInfo struct {
	DocID     string `json:"doc_id"`
	Revision  int64  `json:"revision"`
	UpdatedAt string `json:"updated_at"`
}

// ListDocuments returns all persisted documents, most recently updated
// first.
func (a *Adapter) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT doc_id, revision, updated_at FROM documents ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		if err := rows.Scan(&info.DocID, &info.Revision, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return out, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the updated_at index for databases created before v1.
// CREATE INDEX IF NOT EXISTS is a no-op when the index already exists.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_updated_at
		ON documents(updated_at)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
