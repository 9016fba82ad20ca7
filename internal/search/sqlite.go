package search

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/starford/slipbox/internal/apperr"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_documents_title ON documents(title);
`

// SQLite is an Index stored in a SQLite database. Rebuild runs in a single
// transaction so readers see either the old or the new content.
type SQLite struct {
	mu   sync.Mutex
	conn *sql.DB
}

var _ Index = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
// Existing rows are dropped: the index is always rebuilt from disk.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("search: open db: %w: %w", apperr.ErrIndex, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: ping: %w: %w", apperr.ErrIndex, err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply core schema: %w: %w", apperr.ErrIndex, err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("search: apply fts schema: %w: %w", apperr.ErrIndex, err)
	}
	s := &SQLite{conn: conn}
	if err := s.Clear(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *SQLite) inTx(op string, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("search: %s: begin tx: %w: %w", op, apperr.ErrIndex, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: %s: commit: %w: %w", op, apperr.ErrIndex, err)
	}
	return nil
}

func clearTx(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM documents`); err != nil {
		return fmt.Errorf("search: clear: %w: %w", apperr.ErrIndex, err)
	}
	return ftsClear(tx)
}

func insertTx(tx *sql.Tx, doc Document) error {
	_, err := tx.Exec(`INSERT INTO documents (id, title, body) VALUES (?, ?, ?)`, doc.ID, doc.Title, doc.Body)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("search: index %s: %w: already indexed", doc.ID, apperr.ErrIndex)
		}
		return fmt.Errorf("search: index %s: %w: %w", doc.ID, apperr.ErrIndex, err)
	}
	return ftsInsert(tx, doc)
}

func deleteTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("search: delete %s: %w: %w", id, apperr.ErrIndex, err)
	}
	return ftsDelete(tx, id)
}

// Clear removes all rows.
func (s *SQLite) Clear() error {
	return s.inTx("clear", clearTx)
}

// Index inserts one document.
func (s *SQLite) Index(doc Document) error {
	return s.inTx("index", func(tx *sql.Tx) error { return insertTx(tx, doc) })
}

// Rebuild clears and refills the table in one transaction.
func (s *SQLite) Rebuild(docs []Document) error {
	return s.inTx("rebuild", func(tx *sql.Tx) error {
		if err := clearTx(tx); err != nil {
			return err
		}
		for _, doc := range docs {
			if err := insertTx(tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Replace deletes then inserts doc.
func (s *SQLite) Replace(doc Document) error {
	return s.inTx("replace", func(tx *sql.Tx) error {
		if err := deleteTx(tx, doc.ID); err != nil {
			return err
		}
		return insertTx(tx, doc)
	})
}

// Delete removes one document.
func (s *SQLite) Delete(id string) error {
	return s.inTx("delete", func(tx *sql.Tx) error { return deleteTx(tx, id) })
}

// QueryTitle matches keyword against titles.
func (s *SQLite) QueryTitle(keyword string, limit int) (map[string]struct{}, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return map[string]struct{}{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := queryTitle(s.conn, keyword, effectiveLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("search: scan: %w: %w", apperr.ErrIndex, err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryErr(keyword, err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
