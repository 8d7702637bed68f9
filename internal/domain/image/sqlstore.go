package image

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SQLStore is a Postgres-backed metadata store. Keyword search is pushed
// down to the database; result semantics are identical to MemStore.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore creates a Postgres metadata store
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// EnsureSchema creates the images table if it doesn't exist yet
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS images (
			id UUID PRIMARY KEY,
			storage_key TEXT NOT NULL,
			file_name TEXT NOT NULL,
			original_name TEXT NOT NULL,
			keywords TEXT[] NOT NULL DEFAULT '{}',
			upload_date TIMESTAMPTZ NOT NULL,
			file_size BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			width INT NOT NULL DEFAULT 0,
			height INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_images_upload_date ON images (upload_date DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure images schema: %w", err)
	}
	return nil
}

// imageRow mirrors the images table
type imageRow struct {
	ID           string         `db:"id"`
	StorageKey   string         `db:"storage_key"`
	FileName     string         `db:"file_name"`
	OriginalName string         `db:"original_name"`
	Keywords     pq.StringArray `db:"keywords"`
	UploadDate   time.Time      `db:"upload_date"`
	FileSize     int64          `db:"file_size"`
	ContentType  string         `db:"content_type"`
	Width        int            `db:"width"`
	Height       int            `db:"height"`
}

func (r *imageRow) toRecord() *ImageRecord {
	return &ImageRecord{
		ID:           r.ID,
		StorageKey:   r.StorageKey,
		FileName:     r.FileName,
		OriginalName: r.OriginalName,
		Keywords:     []string(r.Keywords),
		UploadDate:   r.UploadDate,
		FileSize:     r.FileSize,
		ContentType:  r.ContentType,
		Width:        r.Width,
		Height:       r.Height,
	}
}

func (s *SQLStore) Put(ctx context.Context, record *ImageRecord) error {
	query := `
		INSERT INTO images (id, storage_key, file_name, original_name, keywords, upload_date, file_size, content_type, width, height)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.StorageKey,
		record.FileName,
		record.OriginalName,
		pq.Array(record.Keywords),
		record.UploadDate,
		record.FileSize,
		record.ContentType,
		record.Width,
		record.Height,
	)
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (*ImageRecord, error) {
	var row imageRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM images WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return row.toRecord(), nil
}

// listOrder keeps result order deterministic: timestamp ties are broken by
// id, so pages never shuffle between requests.
const listOrder = ` ORDER BY upload_date DESC, id`

func (s *SQLStore) List(ctx context.Context) ([]*ImageRecord, error) {
	var rows []imageRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM images`+listOrder); err != nil {
		return nil, err
	}
	return rowsToRecords(rows), nil
}

// Search builds an OR-chain over all tokens: each token matches if it is a
// substring of original_name or of any keyword, case-insensitive. ILIKE
// patterns are escaped so user input can't smuggle wildcards.
func (s *SQLStore) Search(ctx context.Context, tokens []string) ([]*ImageRecord, error) {
	if len(tokens) == 0 {
		return s.List(ctx)
	}

	query, args := searchQuery(tokens)

	var rows []imageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rowsToRecords(rows), nil
}

func searchQuery(tokens []string) (string, []interface{}) {
	conditions := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens))
	for i, token := range tokens {
		pattern := "%" + escapeLike(token) + "%"
		args = append(args, pattern)
		conditions = append(conditions, fmt.Sprintf(
			`(original_name ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(keywords) AS kw WHERE kw ILIKE $%d))`,
			i+1, i+1,
		))
	}

	return `SELECT * FROM images WHERE ` + strings.Join(conditions, " OR ") + listOrder, args
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrImageNotFound
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM images`)
	return count, err
}

func rowsToRecords(rows []imageRow) []*ImageRecord {
	records := make([]*ImageRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toRecord()
	}
	return records
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
