//go:build !sqlite_fts5

package search

import (
	"database/sql"
	"fmt"

	"github.com/starford/slipbox/internal/apperr"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; title search uses LIKE on the documents table.
	return nil
}

func ftsInsert(_ *sql.Tx, _ Document) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

func ftsClear(_ *sql.Tx) error { return nil }

// queryTitle performs a case-insensitive substring match on titles.
func queryTitle(conn *sql.DB, keyword string, limit int) (*sql.Rows, error) {
	rows, err := conn.Query(`
		SELECT id
		FROM documents
		WHERE title LIKE ? ESCAPE '\'
		ORDER BY title, id
		LIMIT ?
	`, "%"+escapeLike(keyword)+"%", limit)
	if err != nil {
		return nil, classifyQueryErr(keyword, err)
	}
	return rows, nil
}

func classifyQueryErr(keyword string, err error) error {
	return fmt.Errorf("search: query %q: %w: %w", keyword, apperr.ErrIndex, err)
}
