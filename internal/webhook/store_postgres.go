package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// PostgresStore persists webhooks in PostgreSQL. The subscribed event set
// is stored as JSONB.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed webhook store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const hookColumns = `id, tenant_id, application_id, url, secret, events, active, created_at`

func (s *PostgresStore) Create(ctx context.Context, h *Hook) error {
	events, err := json.Marshal(h.Events)
	if err != nil {
		return fmt.Errorf("encode webhook events: %w", err)
	}
	query := `
		INSERT INTO webhooks (` + hookColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(h.ID), uuid.UUID(h.TenantID), uuid.UUID(h.AppID),
		h.URL, h.Secret, events, h.Active, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, hookID id.WebhookID) (*Hook, error) {
	query := `SELECT ` + hookColumns + ` FROM webhooks WHERE id = $1`
	return scanHook(s.db.QueryRowContext(ctx, query, uuid.UUID(hookID)))
}

func (s *PostgresStore) Update(ctx context.Context, h *Hook) error {
	events, err := json.Marshal(h.Events)
	if err != nil {
		return fmt.Errorf("encode webhook events: %w", err)
	}
	query := `
		UPDATE webhooks
		SET url = $2, secret = $3, events = $4, active = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(h.ID), h.URL, h.Secret, events, h.Active,
	)
	if err != nil {
		return fmt.Errorf("update webhook: %w", err)
	}
	return requireHookRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, hookID id.WebhookID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1`, uuid.UUID(hookID))
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return requireHookRow(res)
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*Hook, error) {
	query := `SELECT ` + hookColumns + ` FROM webhooks WHERE application_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(appID))
}

func (s *PostgresStore) ListActiveForEvent(ctx context.Context, appID id.AppID, event id.Event) ([]*Hook, error) {
	query := `
		SELECT ` + hookColumns + ` FROM webhooks
		WHERE application_id = $1 AND active AND events @> $2
		ORDER BY created_at
	`
	eventJSON, err := json.Marshal([]id.Event{event})
	if err != nil {
		return nil, fmt.Errorf("encode event filter: %w", err)
	}
	return s.list(ctx, query, uuid.UUID(appID), eventJSON)
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.AppID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhooks WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete webhooks by application: %w", err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Hook, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	hooks := make([]*Hook, 0)
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

func scanHook(row interface{ Scan(dest ...any) error }) (*Hook, error) {
	var (
		h                      Hook
		hookID, tenantID, appID uuid.UUID
		events                 []byte
	)
	err := row.Scan(&hookID, &tenantID, &appID, &h.URL, &h.Secret, &events, &h.Active, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("webhook not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	h.ID = id.WebhookID(hookID)
	h.TenantID = id.TenantID(tenantID)
	h.AppID = id.AppID(appID)
	if err := json.Unmarshal(events, &h.Events); err != nil {
		return nil, fmt.Errorf("decode webhook events: %w", err)
	}
	return &h, nil
}

func requireHookRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("webhook not found: %w", sentinel.ErrNotFound)
	}
	return nil
}
