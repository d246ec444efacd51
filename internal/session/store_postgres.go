package session

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

// PostgresStore persists sessions in PostgreSQL. The unique index on token
// makes Create the check-and-insert boundary.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed session store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `id, application_id, user_id, token, ip, user_agent, device, location, created_at, last_activity, expires_at`

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO active_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(sess.ID), uuid.UUID(sess.AppID), uuid.UUID(sess.UserID), sess.Token,
		sess.IP, sess.UserAgent, sess.Device, sess.Location,
		sess.CreatedAt, sess.LastActivity, sess.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("session token collision: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByToken(ctx context.Context, token string) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM active_sessions WHERE token = $1`
	return scanSession(s.db.QueryRowContext(ctx, query, token))
}

func (s *PostgresStore) ListByApplication(ctx context.Context, appID id.AppID) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM active_sessions WHERE application_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(appID))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	sessions := make([]*Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) Touch(ctx context.Context, token string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE active_sessions SET last_activity = $2
		 WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)`, token, at,
	)
	if err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("touch session rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Close(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE token = $1`, token)
	if err != nil {
		return false, fmt.Errorf("close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close session rows: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) DeleteByUser(ctx context.Context, userID id.UserID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions by user rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) DeleteByApplication(ctx context.Context, appID id.AppID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM active_sessions WHERE application_id = $1`, uuid.UUID(appID))
	if err != nil {
		return 0, fmt.Errorf("delete sessions by application: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete sessions by application rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) ExpiredTokens(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT token FROM active_sessions WHERE expires_at IS NOT NULL AND expires_at < $1 LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	tokens := make([]string, 0)
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan expired session: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func scanSession(row interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess                  Session
		sessID, appID, userID uuid.UUID
	)
	err := row.Scan(&sessID, &appID, &userID, &sess.Token, &sess.IP, &sess.UserAgent,
		&sess.Device, &sess.Location, &sess.CreatedAt, &sess.LastActivity, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sess.ID = id.SessionID(sessID)
	sess.AppID = id.AppID(appID)
	sess.UserID = id.UserID(userID)
	return &sess, nil
}
