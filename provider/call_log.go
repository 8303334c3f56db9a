package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CallLogEntry is one persisted gateway attempt. Bodies are expected to be masked.
type CallLogEntry struct {
	ID           int64
	RequestID    string
	Environment  string
	Dialect      string
	Method       string
	Endpoint     string
	Attempt      int
	StatusCode   int
	Request      string
	Response     string
	ErrorKind    string
	ErrorCode    string
	ErrorMessage string
	ProcessingMs int64
	CreatedAt    time.Time
}

// SQLCallLog stores gateway attempts in the token cache database
type SQLCallLog struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQLCallLog creates the call log and its table if needed
func NewSQLCallLog(ctx context.Context, db *sql.DB, driver string) (*SQLCallLog, error) {
	if db == nil {
		return nil, errors.New("call log database is nil")
	}

	var idColumn string
	switch driver {
	case DriverSQLite:
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
	case DriverPostgres:
		idColumn = "id BIGSERIAL PRIMARY KEY"
	default:
		return nil, fmt.Errorf("unsupported call log driver %q", driver)
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS gateway_calls (
		%s,
		request_id TEXT NOT NULL,
		environment TEXT NOT NULL,
		dialect TEXT NOT NULL,
		method TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		attempt INTEGER NOT NULL,
		status_code INTEGER NOT NULL,
		request TEXT,
		response TEXT,
		error_kind TEXT,
		error_code TEXT,
		error_message TEXT,
		processing_ms BIGINT NOT NULL,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gateway_calls_request_id ON gateway_calls(request_id);
	CREATE INDEX IF NOT EXISTS idx_gateway_calls_created_at ON gateway_calls(created_at);
	`, idColumn)

	l := &SQLCallLog{db: db, driver: driver, now: time.Now}
	err := retryBusy(ctx, func() error {
		_, err := db.ExecContext(ctx, schema)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize call log schema: %w", err)
	}
	return l, nil
}

// WithClock replaces the time source used for created_at
func (l *SQLCallLog) WithClock(now func() time.Time) *SQLCallLog {
	l.now = now
	return l
}

// Insert stores entry and returns its id
func (l *SQLCallLog) Insert(ctx context.Context, entry CallLogEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now()
	}

	query := `
		INSERT INTO gateway_calls (request_id, environment, dialect, method, endpoint, attempt, status_code,
			request, response, error_kind, error_code, error_message, processing_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	var id int64
	err := retryBusy(ctx, func() error {
		return l.db.QueryRowContext(ctx, rebind(l.driver, query),
			entry.RequestID, entry.Environment, entry.Dialect, entry.Method, entry.Endpoint,
			entry.Attempt, entry.StatusCode, entry.Request, entry.Response,
			entry.ErrorKind, entry.ErrorCode, entry.ErrorMessage,
			entry.ProcessingMs, entry.CreatedAt.UnixMilli(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert gateway call: %w", err)
	}
	return id, nil
}

// ByRequestID returns every attempt logged under requestID, oldest first
func (l *SQLCallLog) ByRequestID(ctx context.Context, requestID string) ([]CallLogEntry, error) {
	return l.query(ctx, "WHERE request_id = ? ORDER BY id ASC", requestID)
}

// Recent returns the newest entries, at most limit of them
func (l *SQLCallLog) Recent(ctx context.Context, limit int) ([]CallLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return l.query(ctx, "ORDER BY id DESC LIMIT ?", limit)
}

// Prune deletes entries older than maxAge and returns how many were removed
func (l *SQLCallLog) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := l.now().Add(-maxAge).UnixMilli()

	var removed int64
	err := retryBusy(ctx, func() error {
		res, err := l.db.ExecContext(ctx, rebind(l.driver, "DELETE FROM gateway_calls WHERE created_at < ?"), cutoff)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (l *SQLCallLog) query(ctx context.Context, clause string, args ...any) ([]CallLogEntry, error) {
	query := `
		SELECT id, request_id, environment, dialect, method, endpoint, attempt, status_code,
			COALESCE(request, ''), COALESCE(response, ''), COALESCE(error_kind, ''), COALESCE(error_code, ''),
			COALESCE(error_message, ''), processing_ms, created_at
		FROM gateway_calls ` + clause

	rows, err := l.db.QueryContext(ctx, rebind(l.driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gateway calls: %w", err)
	}
	defer rows.Close()

	var entries []CallLogEntry
	for rows.Next() {
		var (
			e         CallLogEntry
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Environment, &e.Dialect, &e.Method, &e.Endpoint,
			&e.Attempt, &e.StatusCode, &e.Request, &e.Response, &e.ErrorKind, &e.ErrorCode,
			&e.ErrorMessage, &e.ProcessingMs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan gateway call: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
