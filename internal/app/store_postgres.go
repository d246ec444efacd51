package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// PostgresStore persists applications in PostgreSQL. Settings and message
// templates are stored as JSONB so schema changes stay additive.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed application store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const appColumns = `id, tenant_id, name, api_key, active, settings, messages, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, a *Application) error {
	settings, messages, err := marshalAppJSON(a)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO applications (` + appColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.TenantID), a.Name, a.APIKey, a.Active,
		settings, messages, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("application already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, appID id.AppID) (*Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(appID)))
}

func (s *PostgresStore) ByAPIKey(ctx context.Context, apiKey string) (*Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE api_key = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, apiKey))
}

func (s *PostgresStore) Update(ctx context.Context, a *Application) error {
	settings, messages, err := marshalAppJSON(a)
	if err != nil {
		return err
	}
	// api_key deliberately absent from the SET list: immutable after creation.
	query := `
		UPDATE applications
		SET name = $2, active = $3, settings = $4, messages = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID), a.Name, a.Active, settings, messages, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	return requireRow(res, "application")
}

func (s *PostgresStore) UpdateAPIKey(ctx context.Context, appID id.AppID, apiKey string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET api_key = $2, updated_at = now() WHERE id = $1`,
		uuid.UUID(appID), apiKey,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("api key already in use: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("rotate api key: %w", err)
	}
	return requireRow(res, "application")
}

func (s *PostgresStore) Delete(ctx context.Context, appID id.AppID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return requireRow(res, "application")
}

func (s *PostgresStore) ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*Application, error) {
	query := `SELECT ` + appColumns + ` FROM applications WHERE tenant_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(tenantID))
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	apps := make([]*Application, 0)
	for rows.Next() {
		a, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanOne(row rowScanner) (*Application, error) {
	var (
		a                  Application
		appID, tenantID    uuid.UUID
		settings, messages []byte
	)
	err := row.Scan(&appID, &tenantID, &a.Name, &a.APIKey, &a.Active, &settings, &messages, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan application: %w", err)
	}
	a.ID = id.AppID(appID)
	a.TenantID = id.TenantID(tenantID)
	if err := json.Unmarshal(settings, &a.Settings); err != nil {
		return nil, fmt.Errorf("decode application settings: %w", err)
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &a.Messages); err != nil {
			return nil, fmt.Errorf("decode application messages: %w", err)
		}
	}
	return &a, nil
}

func marshalAppJSON(a *Application) (settings, messages []byte, err error) {
	settings, err = json.Marshal(a.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("encode application settings: %w", err)
	}
	messages, err = json.Marshal(a.Messages)
	if err != nil {
		return nil, nil, fmt.Errorf("encode application messages: %w", err)
	}
	return settings, messages, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s not found: %w", what, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
