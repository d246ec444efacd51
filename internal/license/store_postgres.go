package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// PostgresStore persists license keys in PostgreSQL. Seat accounting relies
// on conditional UPDATEs so the database serializes concurrent consumers.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed license store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const licenseColumns = `id, application_id, key, max_users, current_users, active, expires_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, k *Key) error {
	query := `
		INSERT INTO license_keys (` + licenseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(k.ID), uuid.UUID(k.AppID), k.Key, k.MaxUsers, k.CurrentUsers,
		k.Active, k.ExpiresAt, k.CreatedAt,
	)
	if err != nil {
		if isLicenseUniqueViolation(err) {
			return fmt.Errorf("license key already exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert license key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, licenseID id.LicenseID) (*Key, error) {
	query := `SELECT ` + licenseColumns + ` FROM license_keys WHERE id = $1`
	return scanLicense(s.db.QueryRowContext(ctx, query, uuid.UUID(licenseID)))
}

func (s *PostgresStore) ByKey(ctx context.Context, key string) (*Key, error) {
	query := `SELECT ` + licenseColumns + ` FROM license_keys WHERE key = $1`
	return scanLicense(s.db.QueryRowContext(ctx, query, key))
}

func (s *PostgresStore) Update(ctx context.Context, k *Key) error {
	// current_users deliberately absent: the counter only moves through
	// ConsumeSeat/ReleaseSeat.
	query := `
		UPDATE license_keys
		SET key = $2, max_users = $3, active = $4, expires_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(k.ID), k.Key, k.MaxUsers, k.Active, k.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update license key: %w", err)
	}
	return requireLicenseRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, licenseID id.LicenseID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM license_keys WHERE id = $1`, uuid.UUID(licenseID))
	if err != nil {
		return fmt.Errorf("delete license key: %w", err)
	}
	return requireLicenseRow(res)
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*Key, error) {
	query := `SELECT ` + licenseColumns + ` FROM license_keys WHERE application_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list license keys: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	keys := make([]*Key, 0)
	for rows.Next() {
		k, err := scanLicense(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// ConsumeSeat performs a compare-and-increment in a single statement so two
// concurrent registrations can never both take the last seat.
func (s *PostgresStore) ConsumeSeat(ctx context.Context, licenseID id.LicenseID) (bool, error) {
	query := `
		UPDATE license_keys
		SET current_users = current_users + 1
		WHERE id = $1 AND current_users < max_users
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(licenseID))
	if err != nil {
		return false, fmt.Errorf("consume seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume seat rows: %w", err)
	}
	return n == 1, nil
}

// ReleaseSeat decrements the counter, floored at zero by the WHERE clause.
func (s *PostgresStore) ReleaseSeat(ctx context.Context, licenseID id.LicenseID) (bool, error) {
	query := `
		UPDATE license_keys
		SET current_users = current_users - 1
		WHERE id = $1 AND current_users > 0
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(licenseID))
	if err != nil {
		return false, fmt.Errorf("release seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release seat rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.AppID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM license_keys WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete license keys by application: %w", err)
	}
	return nil
}

type licenseScanner interface {
	Scan(dest ...any) error
}

func scanLicense(row licenseScanner) (*Key, error) {
	var (
		k              Key
		licenseID, app uuid.UUID
	)
	err := row.Scan(&licenseID, &app, &k.Key, &k.MaxUsers, &k.CurrentUsers, &k.Active, &k.ExpiresAt, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan license key: %w", err)
	}
	k.ID = id.LicenseID(licenseID)
	k.AppID = id.AppID(app)
	return &k, nil
}

func requireLicenseRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("license key not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func isLicenseUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
