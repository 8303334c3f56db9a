package provider

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mstgnz/gmopay/infra/logger"
)

// Supported SQL drivers for SQLTokenCache
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteBusyRetries = 4

// SQLTokenCache is a TokenCache shared between processes through a SQL table
type SQLTokenCache struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NewSQLTokenCache creates the cache and its table if needed
func NewSQLTokenCache(ctx context.Context, db *sql.DB, driver string) (*SQLTokenCache, error) {
	if db == nil {
		return nil, errors.New("token cache database is nil")
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported token cache driver %q", driver)
	}

	c := &SQLTokenCache{db: db, driver: driver, now: time.Now}
	if err := c.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize token cache schema: %w", err)
	}
	return c, nil
}

// WithClock replaces the time source used for expiry checks
func (c *SQLTokenCache) WithClock(now func() time.Time) *SQLTokenCache {
	c.now = now
	return c
}

func (c *SQLTokenCache) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS gateway_tokens (
		cache_key TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		expires_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_gateway_tokens_expires_at ON gateway_tokens(expires_at);
	`
	return c.retryOperation(ctx, func() error {
		_, err := c.db.ExecContext(ctx, schema)
		return err
	})
}

// Get retrieves a token, treating stale rows as absent
func (c *SQLTokenCache) Get(ctx context.Context, key string) (AccessToken, bool, error) {
	var (
		value     string
		expiresAt int64
	)

	err := c.retryOperation(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			c.rebind("SELECT token, expires_at FROM gateway_tokens WHERE cache_key = ?"), key,
		).Scan(&value, &expiresAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return AccessToken{}, false, nil
	}
	if err != nil {
		return AccessToken{}, false, fmt.Errorf("failed to read token: %w", err)
	}

	token := AccessToken{Value: value, ExpiresAt: time.UnixMilli(expiresAt)}
	if token.Expired(c.now()) {
		return AccessToken{}, false, nil
	}
	return token, true, nil
}

// Set upserts a token in a single statement
func (c *SQLTokenCache) Set(ctx context.Context, key string, value string, ttl time.Duration) (AccessToken, error) {
	if ttl <= 0 {
		return AccessToken{}, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := c.now()
	token := AccessToken{Value: value, ExpiresAt: now.Add(ttl)}

	query := c.rebind(`
	INSERT INTO gateway_tokens (cache_key, token, expires_at, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (cache_key) DO UPDATE SET
		token = excluded.token,
		expires_at = excluded.expires_at,
		updated_at = excluded.updated_at
	`)

	err := c.retryOperation(ctx, func() error {
		_, err := c.db.ExecContext(ctx, query, key, value, token.ExpiresAt.UnixMilli(), now.UnixMilli())
		return err
	})
	if err != nil {
		return AccessToken{}, fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// Invalidate deletes the row for key
func (c *SQLTokenCache) Invalidate(ctx context.Context, key string) error {
	err := c.retryOperation(ctx, func() error {
		_, err := c.db.ExecContext(ctx, c.rebind("DELETE FROM gateway_tokens WHERE cache_key = ?"), key)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// Cleanup deletes stale rows and returns how many were removed
func (c *SQLTokenCache) Cleanup(ctx context.Context) (int64, error) {
	var removed int64
	err := c.retryOperation(ctx, func() error {
		res, err := c.db.ExecContext(ctx,
			c.rebind("DELETE FROM gateway_tokens WHERE expires_at <= ?"), c.now().UnixMilli())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

// Driver returns the SQL driver name backing the cache
func (c *SQLTokenCache) Driver() string {
	return c.driver
}

// rebind converts ? placeholders to $n for postgres
func (c *SQLTokenCache) rebind(query string) string {
	return rebind(c.driver, query)
}

// retryOperation retries SQLITE_BUSY failures
func (c *SQLTokenCache) retryOperation(ctx context.Context, operation func() error) error {
	return retryBusy(ctx, operation)
}

// rebind converts ? placeholders to $n for postgres
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// retryBusy retries SQLITE_BUSY failures with exponential backoff: 10ms, 20ms, 40ms, 80ms
func retryBusy(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= sqliteBusyRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !isBusyError(err) {
			return err
		}

		lastErr = err
		if attempt == sqliteBusyRetries {
			break
		}

		backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
		logger.Debug(fmt.Sprintf("Database busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, sqliteBusyRetries+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", sqliteBusyRetries+1, lastErr)
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
