package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "keygate/pkg/domain"
	"keygate/pkg/sentinel"
)

// PostgresStore persists users in PostgreSQL. The (application_id,
// lower(username)) unique index enforces per-application username
// uniqueness; hwid binding uses a conditional UPDATE ... RETURNING so the
// database decides the bind race.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed user store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, application_id, username, email, password_hash, hwid, active, paused, expires_at, license_id, last_login, login_attempts, created_at`

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO app_users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), uuid.UUID(u.AppID), u.Username, u.Email, u.PasswordHash,
		u.Hwid, u.Active, u.Paused, u.ExpiresAt, licenseIDValue(u.LicenseID),
		u.LastLogin, u.LoginAttempts, u.CreatedAt,
	)
	if err != nil {
		if isUserUniqueViolation(err) {
			return fmt.Errorf("username already taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, userID id.UserID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(userID)))
}

func (s *PostgresStore) ByUsername(ctx context.Context, appID id.AppID, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE application_id = $1 AND lower(username) = lower($2)`
	return scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(appID), username))
}

func (s *PostgresStore) ByEmail(ctx context.Context, appID id.AppID, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE application_id = $1 AND lower(email) = lower($2)`
	return scanUser(s.db.QueryRowContext(ctx, query, uuid.UUID(appID), email))
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	query := `
		UPDATE app_users
		SET username = $2, email = $3, password_hash = $4, hwid = $5, active = $6,
		    paused = $7, expires_at = $8, license_id = $9
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(u.ID), u.Username, u.Email, u.PasswordHash, u.Hwid,
		u.Active, u.Paused, u.ExpiresAt, licenseIDValue(u.LicenseID),
	)
	if err != nil {
		if isUserUniqueViolation(err) {
			return fmt.Errorf("username already taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireUserRow(res)
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireUserRow(res)
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE application_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	users := make([]*User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) CountByApplication(ctx context.Context, appID id.AppID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM app_users WHERE application_id = $1`, uuid.UUID(appID),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// BindHwidIfUnset binds the hwid iff unset and returns whichever value ends
// up bound. A single statement, so concurrent first logins serialize on the
// row lock.
func (s *PostgresStore) BindHwidIfUnset(ctx context.Context, userID id.UserID, hwid string) (string, error) {
	query := `
		UPDATE app_users
		SET hwid = CASE WHEN hwid = '' THEN $2 ELSE hwid END
		WHERE id = $1
		RETURNING hwid
	`
	var bound string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID), hwid).Scan(&bound)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("bind hwid: %w", err)
	}
	return bound, nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE app_users SET login_attempts = login_attempts + 1 WHERE id = $1`, uuid.UUID(userID),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return requireUserRow(res)
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE app_users SET last_login = $2 WHERE id = $1`, uuid.UUID(userID), at,
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return requireUserRow(res)
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.AppID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_users WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return fmt.Errorf("delete users by application: %w", err)
	}
	return nil
}

type userScanner interface {
	Scan(dest ...any) error
}

func scanUser(row userScanner) (*User, error) {
	var (
		u            User
		userID, app  uuid.UUID
		licenseID    *uuid.UUID
		email, hwid  sql.NullString
	)
	err := row.Scan(&userID, &app, &u.Username, &email, &u.PasswordHash, &hwid,
		&u.Active, &u.Paused, &u.ExpiresAt, &licenseID, &u.LastLogin, &u.LoginAttempts, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(userID)
	u.AppID = id.AppID(app)
	u.Email = email.String
	u.Hwid = hwid.String
	if licenseID != nil {
		lid := id.LicenseID(*licenseID)
		u.LicenseID = &lid
	}
	return &u, nil
}

func licenseIDValue(licenseID *id.LicenseID) any {
	if licenseID == nil {
		return nil
	}
	return uuid.UUID(*licenseID)
}

func requireUserRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func isUserUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
