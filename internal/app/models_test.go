package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

func TestNewValidation(t *testing.T) {
	now := time.Now()
	tenantID := id.NewTenantID()

	tests := []struct {
		name     string
		appName  string
		apiKey   string
		tenantID id.TenantID
		wantErr  bool
	}{
		{name: "valid", appName: "launcher", apiKey: "app_abc", tenantID: tenantID},
		{name: "empty name", appName: "", apiKey: "app_abc", tenantID: tenantID, wantErr: true},
		{name: "empty api key", appName: "launcher", apiKey: "", tenantID: tenantID, wantErr: true},
		{name: "nil tenant", appName: "launcher", apiKey: "app_abc", tenantID: id.TenantID{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(id.NewAppID(), tt.tenantID, tt.appName, tt.apiKey, Settings{}, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.True(t, a.Active, "new applications start active")
		})
	}
}

func TestMessageForFallsBackToDefaults(t *testing.T) {
	a := &Application{}

	assert.Equal(t, "Access denied.", a.MessageFor(id.ReasonBlacklisted))
	assert.Equal(t, "This account is bound to another device.", a.MessageFor(id.ReasonHwidMismatch))
	assert.Equal(t, "Invalid username or password.", a.MessageFor(id.ReasonInvalidCredentials))
}

func TestMessageForPrefersTenantText(t *testing.T) {
	a := &Application{
		Messages: Messages{
			Blacklisted:     "begone",
			VersionMismatch: "grab the new build from our site",
		},
	}

	assert.Equal(t, "begone", a.MessageFor(id.ReasonBlacklisted))
	assert.Equal(t, "grab the new build from our site", a.MessageFor(id.ReasonVersionMismatch))
	// Unconfigured categories still fall back.
	assert.Equal(t, "This account is paused.", a.MessageFor(id.ReasonAccountPaused))
}

func TestMessageForLicenseReasonsShareTemplate(t *testing.T) {
	a := &Application{Messages: Messages{LicenseInvalid: "bad key"}}

	for _, reason := range []id.Reason{
		id.ReasonLicenseNotFound,
		id.ReasonLicenseWrongApp,
		id.ReasonLicenseInactive,
		id.ReasonLicenseExpired,
	} {
		assert.Equal(t, "bad key", a.MessageFor(reason), string(reason))
	}
}

func TestSuccessMessage(t *testing.T) {
	a := &Application{}
	assert.Equal(t, "Logged in successfully.", a.SuccessMessage(id.EventUserLogin))
	assert.Equal(t, "Registered successfully.", a.SuccessMessage(id.EventUserRegister))

	a.Messages.LoginSuccess = "welcome back"
	assert.Equal(t, "welcome back", a.SuccessMessage(id.EventUserLogin))
}
