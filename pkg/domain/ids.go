// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "keygate/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a UserID where an AppID is expected.
type (
	TenantID  uuid.UUID
	AppID     uuid.UUID
	UserID    uuid.UUID
	LicenseID uuid.UUID
	SessionID uuid.UUID
	WebhookID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseAppID(s string) (AppID, error) {
	id, err := parseUUID(s, "application ID")
	return AppID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseLicenseID(s string) (LicenseID, error) {
	id, err := parseUUID(s, "license ID")
	return LicenseID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseUUID(s, "session ID")
	return SessionID(id), err
}

func ParseWebhookID(s string) (WebhookID, error) {
	id, err := parseUUID(s, "webhook ID")
	return WebhookID(id), err
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	return id, nil
}

// New functions generate fresh identifiers.

func NewTenantID() TenantID   { return TenantID(uuid.New()) }
func NewAppID() AppID         { return AppID(uuid.New()) }
func NewUserID() UserID       { return UserID(uuid.New()) }
func NewLicenseID() LicenseID { return LicenseID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }
func NewWebhookID() WebhookID { return WebhookID(uuid.New()) }

// String methods - for logging and debugging.

func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id AppID) String() string     { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id LicenseID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id WebhookID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id AppID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id LicenseID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id WebhookID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
