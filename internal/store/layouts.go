package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetLayoutMarkdown returns cached converted markdown for a guideline's
// content hash. A miss reports ok=false.
func (s *Store) GetLayoutMarkdown(ctx context.Context, id, sha string) (string, bool, error) {
	var md string
	err := s.db.QueryRowContext(ctx,
		`SELECT markdown FROM guideline_layouts WHERE guideline_id = ? AND sha256 = ?`, id, sha).Scan(&md)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get layout: %w", err)
	}
	md = strings.TrimSpace(md)
	return md, md != "", nil
}

// SaveLayoutMarkdown caches converted markdown. Blank markdown is ignored.
func (s *Store) SaveLayoutMarkdown(ctx context.Context, id, sha, markdown string) error {
	if strings.TrimSpace(markdown) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guideline_layouts (guideline_id, sha256, markdown, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guideline_id, sha256) DO UPDATE SET
			markdown = excluded.markdown,
			created_at = excluded.created_at
	`, id, sha, markdown, s.timestamp())
	if err != nil {
		return fmt.Errorf("save layout: %w", err)
	}
	return nil
}
