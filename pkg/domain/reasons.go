package domain

// Reason is the structured denial reason for a login or registration attempt.
// It drives programmatic behavior and logs; user-facing text comes from the
// application's message templates and must never be derived from this value.
type Reason string

const (
	ReasonNone Reason = ""

	// Policy denials.
	ReasonBlacklisted     Reason = "blacklisted"
	ReasonAccountDisabled Reason = "account_disabled"
	ReasonAccountPaused   Reason = "account_paused"
	ReasonAccountExpired  Reason = "account_expired"
	ReasonVersionMismatch Reason = "version_mismatch"
	ReasonHwidMismatch    Reason = "hwid_mismatch"

	// License denials.
	ReasonLicenseNotFound Reason = "license_not_found"
	ReasonLicenseWrongApp Reason = "license_wrong_application"
	ReasonLicenseInactive Reason = "license_inactive"
	ReasonLicenseExpired  Reason = "license_expired"
	ReasonSeatsExhausted  Reason = "seats_exhausted"

	// Credential and registration failures. Unknown username and bad password
	// both map to ReasonInvalidCredentials so callers cannot enumerate users.
	ReasonInvalidCredentials Reason = "invalid_credentials"
	ReasonUsernameTaken      Reason = "username_taken"
	ReasonMaxUsersReached    Reason = "max_users_reached"
	ReasonAppDisabled        Reason = "application_disabled"
)

// Event names an authentication-relevant occurrence for audit logs and
// webhook subscriptions.
type Event string

const (
	EventUserLogin      Event = "user_login"
	EventUserRegister   Event = "user_register"
	EventLoginFailed    Event = "login_failed"
	EventRegisterFailed Event = "register_failed"
	EventSessionClosed  Event = "session_closed"
	EventUserDeleted    Event = "user_deleted"
	EventUserPaused     Event = "user_paused"
	EventUserUnpaused   Event = "user_unpaused"
	EventHwidReset      Event = "hwid_reset"
)
