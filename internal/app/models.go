// Package app holds the tenant-owned application configuration unit: the
// API key used for tenant resolution, policy settings, and the message
// templates shown to end users for each outcome category.
package app

import (
	"time"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Settings is the per-application policy configuration consulted by the
// access policy engine and the registration flow.
type Settings struct {
	RequireHwid    bool   `json:"require_hwid"`
	RequireVersion bool   `json:"require_version"`
	AllowedVersion string `json:"allowed_version"`
	RequireLicense bool   `json:"require_license"`
	MaxUsers       int    `json:"max_users"` // 0 = unlimited
	EnableWebhooks bool   `json:"enable_webhooks"`
}

// Messages holds tenant-configured display text per outcome category.
// Empty fields fall back to the built-in defaults. These strings are
// display-only; structured reasons drive programmatic behavior.
type Messages struct {
	LoginSuccess       string `json:"login_success"`
	RegisterSuccess    string `json:"register_success"`
	InvalidCredentials string `json:"invalid_credentials"`
	Blacklisted        string `json:"blacklisted"`
	AccountDisabled    string `json:"account_disabled"`
	AccountPaused      string `json:"account_paused"`
	AccountExpired     string `json:"account_expired"`
	VersionMismatch    string `json:"version_mismatch"`
	HwidMismatch       string `json:"hwid_mismatch"`
	LicenseInvalid     string `json:"license_invalid"`
	SeatsExhausted     string `json:"seats_exhausted"`
	MaxUsersReached    string `json:"max_users_reached"`
	AppDisabled        string `json:"application_disabled"`
}

// Application is the tenant-owned configuration unit. The API key is globally
// unique and immutable after creation.
type Application struct {
	ID        id.AppID    `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	APIKey    string      `json:"-"` // secret, used for tenant resolution
	Active    bool        `json:"active"`
	Settings  Settings    `json:"settings"`
	Messages  Messages    `json:"messages"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// New validates invariants and constructs an Application.
func New(appID id.AppID, tenantID id.TenantID, name, apiKey string, settings Settings, now time.Time) (*Application, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "application name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "application name must be 128 characters or less")
	}
	if apiKey == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "API key cannot be empty")
	}
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant ID is required")
	}
	return &Application{
		ID:        appID,
		TenantID:  tenantID,
		Name:      name,
		APIKey:    apiKey,
		Active:    true,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MessageFor resolves the tenant-configured display text for an outcome,
// falling back to the built-in default when unset.
func (a *Application) MessageFor(reason id.Reason) string {
	custom, fallback := a.messagePair(reason)
	if custom != "" {
		return custom
	}
	return fallback
}

// SuccessMessage resolves the display text for a successful event.
func (a *Application) SuccessMessage(event id.Event) string {
	switch event {
	case id.EventUserRegister:
		if a.Messages.RegisterSuccess != "" {
			return a.Messages.RegisterSuccess
		}
		return "Registered successfully."
	default:
		if a.Messages.LoginSuccess != "" {
			return a.Messages.LoginSuccess
		}
		return "Logged in successfully."
	}
}

func (a *Application) messagePair(reason id.Reason) (custom, fallback string) {
	switch reason {
	case id.ReasonBlacklisted:
		return a.Messages.Blacklisted, "Access denied."
	case id.ReasonAccountDisabled:
		return a.Messages.AccountDisabled, "This account is disabled."
	case id.ReasonAccountPaused:
		return a.Messages.AccountPaused, "This account is paused."
	case id.ReasonAccountExpired:
		return a.Messages.AccountExpired, "This account has expired."
	case id.ReasonVersionMismatch:
		return a.Messages.VersionMismatch, "Please update to the latest version."
	case id.ReasonHwidMismatch:
		return a.Messages.HwidMismatch, "This account is bound to another device."
	case id.ReasonLicenseNotFound, id.ReasonLicenseWrongApp, id.ReasonLicenseInactive, id.ReasonLicenseExpired:
		return a.Messages.LicenseInvalid, "Invalid license key."
	case id.ReasonSeatsExhausted:
		return a.Messages.SeatsExhausted, "This license key has no seats remaining."
	case id.ReasonUsernameTaken:
		return "", "Username is already taken."
	case id.ReasonMaxUsersReached:
		return a.Messages.MaxUsersReached, "This application is not accepting new users."
	case id.ReasonAppDisabled:
		return a.Messages.AppDisabled, "This application is disabled."
	default:
		return a.Messages.InvalidCredentials, "Invalid username or password."
	}
}
