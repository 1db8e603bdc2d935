package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Database wraps the optional Postgres archive connection.
type Database struct {
	Conn *sql.DB
}

func NewDatabase(ctx context.Context, dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

// Migrations creates the archive tables.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS chat_events (
        id UUID PRIMARY KEY,
        sender TEXT NOT NULL,
        body TEXT NOT NULL,
        ai_enabled BOOLEAN NOT NULL,
        created_at TIMESTAMP NOT NULL
    )`,

	// Archives created with the old bounded column accept any username.
	`ALTER TABLE chat_events ALTER COLUMN sender TYPE TEXT`,

	`CREATE INDEX IF NOT EXISTS chat_events_created_at_idx ON chat_events (created_at)`,

	`CREATE TABLE IF NOT EXISTS consent_toggles (
        id SERIAL PRIMARY KEY,
        ai_enabled BOOLEAN NOT NULL,
        toggled_at TIMESTAMP NOT NULL
    )`,
}

func (d *Database) AutoMigrate(ctx context.Context) error {
	for _, query := range Migrations {
		if _, err := d.Conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (d *Database) Close() error {
	return d.Conn.Close()
}
