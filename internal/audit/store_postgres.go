package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
)

// PostgresStore implements Store using PostgreSQL. Client metadata and the
// free-form metadata map are stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	client, err := json.Marshal(e.Client)
	if err != nil {
		return fmt.Errorf("encode client metadata: %w", err)
	}
	var metadata []byte
	if e.Metadata != nil {
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
	}

	query := `
		INSERT INTO activity_logs (
			id, application_id, user_id, username, event,
			client, metadata, success, error_message, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var userID *uuid.UUID
	if e.UserID != nil {
		uid := uuid.UUID(*e.UserID)
		userID = &uid
	}
	_, err = s.db.ExecContext(ctx, query,
		e.ID, uuid.UUID(e.AppID), userID, e.Username, string(e.Event),
		client, metadata, e.Success, e.Error, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, application_id, user_id, username, event,
		       client, metadata, success, error_message, timestamp
		FROM activity_logs
		WHERE application_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID), limit)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e                Entry
			app              uuid.UUID
			userID           *uuid.UUID
			event            string
			client, metadata []byte
		)
		err := rows.Scan(&e.ID, &app, &userID, &e.Username, &event,
			&client, &metadata, &e.Success, &e.Error, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		e.AppID = id.AppID(app)
		e.Event = id.Event(event)
		if userID != nil {
			uid := id.UserID(*userID)
			e.UserID = &uid
		}
		if err := json.Unmarshal(client, &e.Client); err != nil {
			return nil, fmt.Errorf("decode client metadata: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
