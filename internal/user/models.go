// Package user holds the end-user identity scoped to one application.
// Tenant isolation: no user is visible outside its application.
package user

import (
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// User is an application-scoped end-user identity. Paused blocks login
// without losing data; Active=false is a harder disable.
type User struct {
	ID            id.UserID     `json:"id"`
	AppID         id.AppID      `json:"application_id"`
	Username      string        `json:"username"`
	Email         string        `json:"email,omitempty"`
	PasswordHash  string        `json:"-"`
	Hwid          string        `json:"hwid,omitempty"`
	Active        bool          `json:"active"`
	Paused        bool          `json:"paused"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	LicenseID     *id.LicenseID `json:"license_id,omitempty"`
	LastLogin     *time.Time    `json:"last_login,omitempty"`
	LoginAttempts int           `json:"login_attempts"`
	CreatedAt     time.Time     `json:"created_at"`
}

// New validates invariants and constructs a user.
func New(userID id.UserID, appID id.AppID, username, email, passwordHash string, now time.Time) (*User, error) {
	if username == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username cannot be empty")
	}
	if len(username) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "username must be 64 characters or less")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password hash cannot be empty")
	}
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application ID is required")
	}
	return &User{
		ID:           userID,
		AppID:        appID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

// Expired reports whether the account's expiry timestamp has passed.
func (u *User) Expired(now time.Time) bool {
	return u.ExpiresAt != nil && now.After(*u.ExpiresAt)
}
