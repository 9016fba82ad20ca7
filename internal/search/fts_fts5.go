//go:build sqlite_fts5

package search

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/slipbox/internal/apperr"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			id UNINDEXED,
			title,
			body UNINDEXED,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(tx *sql.Tx, doc Document) error {
	_, err := tx.Exec(`INSERT INTO documents_fts (id, title, body) VALUES (?, ?, ?)`, doc.ID, doc.Title, doc.Body)
	if err != nil {
		return fmt.Errorf("search: index fts %s: %w: %w", doc.ID, apperr.ErrIndex, err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) error {
	if _, err := tx.Exec(`DELETE FROM documents_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("search: delete fts %s: %w: %w", id, apperr.ErrIndex, err)
	}
	return nil
}

func ftsClear(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM documents_fts`); err != nil {
		return fmt.Errorf("search: clear fts: %w: %w", apperr.ErrIndex, err)
	}
	return nil
}

// queryTitle runs keyword as an FTS5 match expression. Only the title column
// is indexed, so matches are title matches.
func queryTitle(conn *sql.DB, keyword string, limit int) (*sql.Rows, error) {
	rows, err := conn.Query(`
		SELECT id
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank, id
		LIMIT ?
	`, keyword, limit)
	if err != nil {
		return nil, classifyQueryErr(keyword, err)
	}
	return rows, nil
}

func classifyQueryErr(keyword string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "syntax error") || strings.Contains(msg, "no such column") || strings.Contains(msg, "unterminated") {
		return fmt.Errorf("search: parse %q: %w: %w", keyword, apperr.ErrQuerySyntax, err)
	}
	return fmt.Errorf("search: query %q: %w: %w", keyword, apperr.ErrIndex, err)
}
