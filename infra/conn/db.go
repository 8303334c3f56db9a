package conn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mstgnz/gmopay/infra/logger"
)

// Drivers accepted by Open
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	connectAttempts = 5
	pingTimeout     = 5 * time.Second
)

// retryDelay is the wait between connection attempts
var retryDelay = 2 * time.Second

// Open connects to driver/dsn, retrying the ping a few times before giving up
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}

	logCtx := logger.LogContext{Fields: map[string]any{"driver": driver}}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
		}
		configurePool(db, driver)

		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			logger.Info("Database connected", logCtx)
			return db, nil
		}

		lastErr = err
		_ = db.Close()
		logger.Warn(fmt.Sprintf("Attempt %d: failed to ping database: %v", attempt, err), logCtx)

		if attempt == connectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", driver, connectAttempts, lastErr)
}

func configurePool(db *sql.DB, driver string) {
	if driver == DriverSQLite {
		// one writer at a time; WAL lets readers proceed
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)
}

// SQLiteDSN returns a DSN for path with WAL journaling and a busy timeout
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}

// Close closes db and logs the outcome
func Close(db *sql.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database connection", err)
		return
	}
	logger.Info("Database connection closed")
}
