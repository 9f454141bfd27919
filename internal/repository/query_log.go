package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/archivesearch/internal/pagination"
	"github.com/cloo-solutions/archivesearch/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QueryLogPage is one page of stored searches, newest first
type QueryLogPage = pagination.Page[service.QueryLogEntry]

// QueryLogRepository stores submitted searches in Postgres.
type QueryLogRepository struct {
	db dbtx
}

func NewQueryLogRepository(pool *pgxpool.Pool) *QueryLogRepository {
	return &QueryLogRepository{db: pool}
}

// LogQuery inserts one entry. A missing ID or timestamp is filled in.
func (r *QueryLogRepository) LogQuery(ctx context.Context, entry service.QueryLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO query_logs (id, raw_url, query, request_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.RawURL, nullableString(entry.Query), nullableString(entry.RequestID), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}
	return nil
}

// ListRecent pages through stored searches, newest first
func (r *QueryLogRepository) ListRecent(ctx context.Context, cursor *pagination.Cursor, limit int) (*QueryLogPage, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, raw_url, query, request_id, created_at
			 FROM query_logs
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, raw_url, query, request_id, created_at
			 FROM query_logs
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanQueryLogRows(rows)
	if err != nil {
		return nil, err
	}

	return pagination.NewPage(items, limit, func(e service.QueryLogEntry) pagination.Cursor {
		return pagination.Cursor{LastID: e.ID, Timestamp: e.CreatedAt}
	}), nil
}

// Count returns the number of stored searches
func (r *QueryLogRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM query_logs`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanQueryLogRows(rows pgx.Rows) ([]service.QueryLogEntry, error) {
	var items []service.QueryLogEntry
	for rows.Next() {
		var e service.QueryLogEntry
		var query, requestID *string
		if err := rows.Scan(&e.ID, &e.RawURL, &query, &requestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if query != nil {
			e.Query = *query
		}
		if requestID != nil {
			e.RequestID = *requestID
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
