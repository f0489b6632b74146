package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"aurorachat/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the journal database described by cfg.Driver.
func Open(cfg config.JournalConfig) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// :memory: databases are per connection.
		db.SetMaxOpenConns(1)
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				cfg.Username,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.DBName,
				cfg.Params,
			)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the relay_events table is present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS relay_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				request_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				model TEXT NOT NULL,
				outcome TEXT NOT NULL,
				upstream_status INTEGER NOT NULL DEFAULT 0,
				latency_ms INTEGER NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_relay_events_created_at ON relay_events(created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_relay_events_outcome ON relay_events(outcome)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS relay_events (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				request_id VARCHAR(64) NOT NULL,
				provider VARCHAR(50) NOT NULL,
				model VARCHAR(255) NOT NULL,
				outcome VARCHAR(50) NOT NULL,
				upstream_status INT NOT NULL DEFAULT 0,
				latency_ms BIGINT NOT NULL,
				created_at DATETIME(3) NOT NULL,
				PRIMARY KEY (id),
				INDEX idx_relay_events_created_at (created_at),
				INDEX idx_relay_events_outcome (outcome)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
