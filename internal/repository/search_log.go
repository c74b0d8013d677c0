package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const searchLogColumns = `id, session_id, filename, mime_type, sha256, size_bytes, archive_key, status, result_paths, error_message, duration_ms, created_at`

// SearchLogRepository stores one row per finished visual search.
type SearchLogRepository struct {
	db dbtx
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{db: pool}
}

func NewSearchLogRepositoryWithTx(tx pgx.Tx) *SearchLogRepository {
	return &SearchLogRepository{db: tx}
}

func (r *SearchLogRepository) Create(ctx context.Context, rec *domain.SearchRecord) error {
	paths := rec.ResultPaths
	if paths == nil {
		paths = []string{}
	}
	pathsJSON, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("encode result paths: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO search_logs (id, session_id, filename, mime_type, sha256, size_bytes, archive_key, status, result_paths, result_count, error_message, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID,
		rec.SessionID,
		rec.Filename,
		rec.MimeType,
		rec.SHA256,
		rec.SizeBytes,
		nullableString(rec.ArchiveKey),
		string(rec.Status),
		pathsJSON,
		len(paths),
		nullableString(rec.Error),
		rec.DurationMs,
		rec.CreatedAt,
	)
	return err
}

func (r *SearchLogRepository) GetByID(ctx context.Context, id string) (*domain.SearchRecord, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+searchLogColumns+` FROM search_logs WHERE id = $1`,
		id,
	)
	rec, err := scanSearchRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListWithCursor returns records newest first using keyset pagination on
// (created_at, id).
func (r *SearchLogRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.SearchRecord], error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+searchLogColumns+`
			 FROM search_logs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+searchLogColumns+`
			 FROM search_logs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*domain.SearchRecord, 0, limit+1)
	for rows.Next() {
		rec, err := scanSearchRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.TrimPage(items, limit, func(rec *domain.SearchRecord) (string, time.Time) {
		return rec.ID, rec.CreatedAt
	}), nil
}

func scanSearchRecord(row pgx.Row) (*domain.SearchRecord, error) {
	var rec domain.SearchRecord
	var archiveKey, errMsg *string
	var status string
	var pathsJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Filename,
		&rec.MimeType,
		&rec.SHA256,
		&rec.SizeBytes,
		&archiveKey,
		&status,
		&pathsJSON,
		&errMsg,
		&rec.DurationMs,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ArchiveKey = derefString(archiveKey)
	rec.Error = derefString(errMsg)
	rec.Status = domain.SearchStatus(status)
	rec.ResultPaths = []string{}
	if len(pathsJSON) > 0 {
		if err := json.Unmarshal(pathsJSON, &rec.ResultPaths); err != nil {
			return nil, fmt.Errorf("decode result paths: %w", err)
		}
	}
	return &rec, nil
}
