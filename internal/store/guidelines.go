package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Guideline is one uploaded guideline document and its metadata.
type Guideline struct {
	ID               string `json:"guideline_id"`
	Filename         string `json:"filename"`
	SHA256           string `json:"sha256"`
	Bytes            int64  `json:"bytes"`
	UploadedAt       string `json:"uploaded_at"`
	Name             string `json:"guideline_name"`
	PubYear          string `json:"pub_year"`
	Specialty        string `json:"specialty"`
	MetaExtractedAt  string `json:"meta_extracted_at"`
	DisplayUpdatedAt string `json:"recommendations_display_updated_at"`
	HasDisplay       bool   `json:"has_recommendations"`
}

// Title is the guideline's extracted name, or its filename.
func (g Guideline) Title() string {
	if g.Name != "" {
		return g.Name
	}
	return g.Filename
}

const guidelineColumns = `guideline_id, filename, sha256, bytes, uploaded_at,
	COALESCE(guideline_name, ''), COALESCE(pub_year, ''), COALESCE(specialty, ''),
	COALESCE(meta_extracted_at, ''), COALESCE(recommendations_display_updated_at, ''),
	COALESCE(recommendations_display_md, '') != ''`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuideline(r rowScanner) (Guideline, error) {
	var g Guideline
	err := r.Scan(&g.ID, &g.Filename, &g.SHA256, &g.Bytes, &g.UploadedAt,
		&g.Name, &g.PubYear, &g.Specialty, &g.MetaExtractedAt, &g.DisplayUpdatedAt, &g.HasDisplay)
	return g, err
}

// ContentHash is the hex SHA-256 used to deduplicate uploads.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SaveGuideline records an upload. Identical bytes map to the existing row,
// reported with created=false.
func (s *Store) SaveGuideline(ctx context.Context, filename string, data []byte) (Guideline, bool, error) {
	if len(data) == 0 {
		return Guideline{}, false, errors.New("empty document")
	}
	fn := strings.TrimSpace(filename)
	if fn == "" {
		fn = "guideline.pdf"
	}
	sha := ContentHash(data)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO guidelines (guideline_id, filename, sha256, bytes, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO NOTHING
	`, id, fn, sha, len(data), s.timestamp())
	if err != nil {
		return Guideline{}, false, fmt.Errorf("insert guideline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Guideline{}, false, fmt.Errorf("insert guideline: %w", err)
	}

	g, err := scanGuideline(s.db.QueryRowContext(ctx,
		`SELECT `+guidelineColumns+` FROM guidelines WHERE sha256 = ?`, sha))
	if err != nil {
		return Guideline{}, false, fmt.Errorf("load guideline: %w", err)
	}
	return g, n == 1, nil
}

func (s *Store) GetGuideline(ctx context.Context, id string) (Guideline, error) {
	g, err := scanGuideline(s.db.QueryRowContext(ctx,
		`SELECT `+guidelineColumns+` FROM guidelines WHERE guideline_id = ?`, strings.TrimSpace(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return Guideline{}, ErrNotFound
	}
	if err != nil {
		return Guideline{}, fmt.Errorf("get guideline: %w", err)
	}
	return g, nil
}

// ListGuidelines returns the newest uploads first.
func (s *Store) ListGuidelines(ctx context.Context, limit int) ([]Guideline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+guidelineColumns+` FROM guidelines ORDER BY uploaded_at DESC, rowid DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list guidelines: %w", err)
	}
	return collect(rows)
}

var searchToken = regexp.MustCompile(`[A-Za-z0-9]+`)

var searchColumns = []string{
	"COALESCE(guideline_name, '')",
	"COALESCE(filename, '')",
	"COALESCE(pub_year, '')",
	"COALESCE(specialty, '')",
	"COALESCE(recommendations_display_md, '')",
}

// SearchGuidelines matches every alphanumeric token of q, case-insensitively,
// against name, filename, year, specialty or recommendations text.
func (s *Store) SearchGuidelines(ctx context.Context, q string, limit int) ([]Guideline, error) {
	tokens := searchToken.FindAllString(q, -1)
	if len(tokens) == 0 {
		return nil, nil
	}

	var where []string
	var args []any
	for _, tok := range tokens {
		ors := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = col + " LIKE ?"
			args = append(args, "%"+tok+"%")
		}
		where = append(where, "("+strings.Join(ors, " OR ")+")")
	}
	args = append(args, clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+guidelineColumns+`
		FROM guidelines
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY
			CASE WHEN pub_year GLOB '[0-9][0-9][0-9][0-9]' THEN pub_year END DESC,
			COALESCE(NULLIF(guideline_name, ''), filename) COLLATE NOCASE ASC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("search guidelines: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Guideline, error) {
	defer rows.Close()
	var out []Guideline
	for rows.Next() {
		g, err := scanGuideline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guideline: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

// DeleteGuideline removes a guideline and its cached layouts.
func (s *Store) DeleteGuideline(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM guidelines WHERE guideline_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete guideline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM guideline_layouts WHERE guideline_id = ?`, id); err != nil {
		return fmt.Errorf("delete layouts: %w", err)
	}
	return tx.Commit()
}

// UpdateMetadata overwrites name, year and specialty and stamps the
// extraction time. Blank values are stored as NULL.
func (s *Store) UpdateMetadata(ctx context.Context, id, name, year, specialty string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE guidelines
		SET guideline_name = ?, pub_year = ?, specialty = ?, meta_extracted_at = ?
		WHERE guideline_id = ?
	`, nullable(name), nullable(year), nullable(specialty), s.timestamp(), id)
	return affected(res, err, "update metadata")
}

// GetRecommendationsDisplay returns the rendered recommendations markdown,
// or "" when none has been saved.
func (s *Store) GetRecommendationsDisplay(ctx context.Context, id string) (string, error) {
	var md sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT recommendations_display_md FROM guidelines WHERE guideline_id = ?`, id).Scan(&md)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get display: %w", err)
	}
	return strings.TrimSpace(md.String), nil
}

// UpdateRecommendationsDisplay replaces the rendered recommendations
// markdown in full.
func (s *Store) UpdateRecommendationsDisplay(ctx context.Context, id, markdown string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE guidelines
		SET recommendations_display_md = ?, recommendations_display_updated_at = ?
		WHERE guideline_id = ?
	`, strings.TrimSpace(markdown), s.timestamp(), id)
	return affected(res, err, "update display")
}

func nullable(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func affected(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
