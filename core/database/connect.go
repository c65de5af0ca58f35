package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
)

const memoryPath = ":memory:"

// DSN builds the driver specific connection string.
func DSN(cfg Config) string {
	if cfg.DriverName() == DriverSQLite {
		if cfg.Path == "" || cfg.Path == memoryPath {
			return memoryPath
		}
		return cfg.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver := cfg.DriverName()
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("db connect: unsupported driver %q", driver)
	}
	if driver == DriverSQLite && cfg.Path != "" && cfg.Path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("db connect: create database directory: %w", err)
		}
	}

	if driver == DriverPostgres {
		if err := WaitForPostgres(DSN(cfg), 30*time.Second); err != nil {
			logger.DB.Error("db not ready",
				slog.String("event", "db.wait"),
				slog.String("driver", driver),
				slog.String("host", cfg.Host),
				slog.String("err", err.Error()),
			)
			return nil, fmt.Errorf("database not ready: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	sqlxDB, err := sqlx.ConnectContext(ctx, driver, DSN(cfg))
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", driver),
			slog.String("host", cfg.Host),
			slog.String("port", cfg.Port),
			slog.String("db", dbLabel(cfg)),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	pool := poolSize(cfg)
	sqlxDB.SetMaxOpenConns(pool)
	sqlxDB.SetMaxIdleConns(pool)
	logger.DB.Debug("db pool configured",
		slog.String("event", "db.pool"),
		slog.Int("pool_open", pool),
	)

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driver),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", dbLabel(cfg)),
		slog.Int("pool_open", pool),
		slog.Duration("duration", logger.RoundMS(took)),
	)

	return sqlxDB, nil
}

// poolSize keeps an in-memory sqlite database on one connection, since every
// new connection would see an empty database.
func poolSize(cfg Config) int {
	if cfg.DriverName() == DriverSQLite && DSN(cfg) == memoryPath {
		return 1
	}
	if cfg.MaxConnections <= 0 {
		return 10
	}
	return cfg.MaxConnections
}

func dbLabel(cfg Config) string {
	if cfg.DriverName() == DriverSQLite {
		if cfg.Path == "" {
			return memoryPath
		}
		return cfg.Path
	}
	return cfg.Name
}

// WaitForPostgres tries to connect to the DB until it is ready or timeout is reached.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open(DriverPostgres, dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout reached waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
