// Package sqlstore implements the storage gateway over database/sql for
// SQLite and MySQL. Timestamps are stored as unix microseconds so both
// engines share one set of queries.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect carries the per-engine pieces of the store.
type Dialect struct {
	Name   string
	Driver string
	Schema []string
}

var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			name          TEXT NOT NULL,
			topic_named   INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL,
			updated_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_user_id ON threads (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			thread_id  TEXT NOT NULL REFERENCES threads (id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			message    TEXT NOT NULL,
			position   INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (thread_id, position)
		)`,
	},
}

var MySQL = Dialect{
	Name:   "mysql",
	Driver: "mysql",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id            VARCHAR(64) PRIMARY KEY,
			user_id       VARCHAR(255) NOT NULL,
			name          VARCHAR(255) NOT NULL,
			topic_named   BOOLEAN NOT NULL DEFAULT FALSE,
			message_count INT NOT NULL DEFAULT 0,
			created_at    BIGINT NOT NULL,
			updated_at    BIGINT NOT NULL,
			INDEX idx_threads_user_id (user_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         VARCHAR(64) PRIMARY KEY,
			thread_id  VARCHAR(64) NOT NULL,
			role       VARCHAR(16) NOT NULL,
			message    MEDIUMTEXT NOT NULL,
			position   INT NOT NULL,
			created_at BIGINT NOT NULL,
			UNIQUE KEY uq_messages_thread_position (thread_id, position),
			CONSTRAINT fk_messages_thread FOREIGN KEY (thread_id) REFERENCES threads (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

// Store implements domain.Store on a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects using the dialect's driver and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if d.Name == SQLite.Name {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		// single writer; transactions serialize on the one connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.Name, err)
	}
	return New(db, d), nil
}

// New wraps an already open database.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d, now: time.Now}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply %s schema: %w", s.dialect.Name, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
