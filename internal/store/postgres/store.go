// Package postgres stores the tracked incident list in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the store schema at url up to date.
func Migrate(url string) error {
	return postgres.Migrate(url, migrations, "migrations")
}

// Store implements the tracked incident store on a connection pool.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Load returns the tracked incidents in the order they were saved.
func (s *Store) Load(ctx context.Context) ([]domain.TrackedIncident, error) {
	query := `
		SELECT incident_id, last_update, message_id, resolved
		FROM tracked_incidents
		ORDER BY position
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tracked incidents: %w", err)
	}
	defer rows.Close()

	incidents := []domain.TrackedIncident{}
	for rows.Next() {
		var ti domain.TrackedIncident
		if err := rows.Scan(&ti.IncidentID, &ti.LastUpdate, &ti.MessageID, &ti.Resolved); err != nil {
			return nil, fmt.Errorf("scan tracked incident: %w", err)
		}
		ti.LastUpdate = ti.LastUpdate.UTC()
		incidents = append(incidents, ti)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked incidents: %w", err)
	}
	return incidents, nil
}

// Save replaces the stored list in a single transaction.
func (s *Store) Save(ctx context.Context, incidents []domain.TrackedIncident) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM tracked_incidents`); err != nil {
		return fmt.Errorf("clear tracked incidents: %w", err)
	}

	rows := make([][]any, 0, len(incidents))
	for i, ti := range incidents {
		rows = append(rows, []any{i, ti.IncidentID, ti.LastUpdate, ti.MessageID, ti.Resolved})
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"tracked_incidents"},
		[]string{"position", "incident_id", "last_update", "message_id", "resolved"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("insert tracked incidents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}
