package blacklist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// PostgresStore persists denylist rules in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed blacklist store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO blacklist_entries (id, application_id, type, value, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, uuid.UUID(e.AppID), string(e.Type), e.Value, e.Reason, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blacklist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, entryID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM blacklist_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("delete blacklist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("blacklist entry not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*Entry, error) {
	query := `
		SELECT id, application_id, type, value, reason, created_at
		FROM blacklist_entries WHERE application_id = $1 ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list blacklist entries: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	entries := make([]*Entry, 0)
	for rows.Next() {
		var (
			e         Entry
			app       uuid.UUID
			entryType string
		)
		if err := rows.Scan(&e.ID, &app, &entryType, &e.Value, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		e.AppID = id.AppID(app)
		e.Type = EntryType(entryType)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Matches(ctx context.Context, appID id.AppID, entryType EntryType, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blacklist_entries
			WHERE application_id = $1 AND type = $2 AND value = $3
		)
	`
	var matched bool
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(appID), string(entryType), value).Scan(&matched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("blacklist match: %w", err)
	}
	return matched, nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.AppID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist_entries WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete blacklist entries by application: %w", err)
	}
	return nil
}
