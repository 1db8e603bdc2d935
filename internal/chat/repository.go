package chat

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository archives chat events and consent toggles to Postgres.
// It is write-only; the in-memory log stays authoritative.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveEvent(ctx context.Context, ev ChatEvent) error {
	query := `
		INSERT INTO chat_events (id, sender, body, ai_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, ev.ID, ev.Sender, ev.Body, ev.AIEnabled, ev.CreatedAt); err != nil {
		return fmt.Errorf("save event %s: %w", ev.ID, err)
	}
	return nil
}

func (r *Repository) SaveConsentToggle(ctx context.Context, t ConsentToggle) error {
	query := "INSERT INTO consent_toggles (ai_enabled, toggled_at) VALUES ($1, $2)"
	if _, err := r.db.ExecContext(ctx, query, t.Enabled, t.At); err != nil {
		return fmt.Errorf("save consent toggle: %w", err)
	}
	return nil
}
