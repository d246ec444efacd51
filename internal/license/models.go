// Package license manages seat-granting license keys: validation against a
// tenant application and atomic seat accounting.
package license

import (
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Key is a seat-granting token scoped to one application.
// CurrentUsers only ever changes through the store's atomic
// ConsumeSeat/ReleaseSeat operations.
type Key struct {
	ID           id.LicenseID `json:"id"`
	AppID        id.AppID     `json:"application_id"`
	Key          string       `json:"key"`
	MaxUsers     int          `json:"max_users"`
	CurrentUsers int          `json:"current_users"`
	Active       bool         `json:"active"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// NewKey validates invariants and constructs a license key with no consumed seats.
func NewKey(licenseID id.LicenseID, appID id.AppID, key string, maxUsers int, expiresAt *time.Time, now time.Time) (*Key, error) {
	if key == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "license key cannot be empty")
	}
	if maxUsers < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "license must grant at least one seat")
	}
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application ID is required")
	}
	return &Key{
		ID:        licenseID,
		AppID:     appID,
		Key:       key,
		MaxUsers:  maxUsers,
		Active:    true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// Expired reports whether the key's expiry timestamp has passed.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// SeatsRemaining reports the number of unconsumed seats.
func (k *Key) SeatsRemaining() int {
	if k.CurrentUsers >= k.MaxUsers {
		return 0
	}
	return k.MaxUsers - k.CurrentUsers
}
