package webhook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "keygate/pkg/domain"
)

func TestRegistrySelectsByHost(t *testing.T) {
	r := NewRegistry()
	p := testPayload(id.NewAppID(), id.EventUserLogin)

	discordBody, err := r.For("https://discord.com/api/webhooks/123/token")(p)
	require.NoError(t, err)
	slackBody, err := r.For("https://hooks.slack.com/services/T/B/x")(p)
	require.NoError(t, err)
	genericBody, err := r.For("https://example.com/hook")(p)
	require.NoError(t, err)

	var discord map[string]any
	require.NoError(t, json.Unmarshal(discordBody, &discord))
	assert.Contains(t, discord, "embeds")

	var slack map[string]any
	require.NoError(t, json.Unmarshal(slackBody, &slack))
	assert.Contains(t, slack, "text")

	var generic map[string]any
	require.NoError(t, json.Unmarshal(genericBody, &generic))
	assert.Equal(t, string(id.EventUserLogin), generic["event"])
}

func TestRegistryFallsBackOnUnparsableURL(t *testing.T) {
	r := NewRegistry()
	p := testPayload(id.NewAppID(), id.EventUserLogin)

	body, err := r.For("::not a url::")(p)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(body, &generic))
	assert.Equal(t, string(id.EventUserLogin), generic["event"])
}

func TestFormatSlackIncludesFailureDetail(t *testing.T) {
	p := testPayload(id.NewAppID(), id.EventLoginFailed)
	p.Success = false
	p.ErrorMessage = "hwid_mismatch"

	body, err := FormatSlack(p)
	require.NoError(t, err)

	var slack map[string]string
	require.NoError(t, json.Unmarshal(body, &slack))
	assert.Contains(t, slack["text"], "failed")
	assert.Contains(t, slack["text"], "hwid_mismatch")
}

func TestGenericFormatIsTheSignedWireFormat(t *testing.T) {
	p := testPayload(id.NewAppID(), id.EventUserRegister)

	body, err := FormatGeneric(p)
	require.NoError(t, err)

	var decoded Payload
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, p.Event, decoded.Event)
	assert.Equal(t, p.ApplicationID, decoded.ApplicationID)
	assert.True(t, decoded.Success)
}
