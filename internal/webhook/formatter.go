package webhook

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Formatter reshapes the generic payload into a receiver-specific body.
// Formatters are pure: same payload in, same bytes out.
type Formatter func(p Payload) ([]byte, error)

// Registry selects a formatter by destination host substring, defaulting to
// the generic JSON body for unrecognized hosts. Keeping the match on the
// host avoids any dependency on a particular receiver's SDK.
type Registry struct {
	entries []registryEntry
}

type registryEntry struct {
	hostSubstring string
	format        Formatter
}

// NewRegistry returns a registry with the built-in provider formats.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("discord.com", FormatDiscord)
	r.Register("hooks.slack.com", FormatSlack)
	return r
}

// Register adds a formatter for destinations whose host contains the given
// substring. Later registrations take precedence over earlier ones.
func (r *Registry) Register(hostSubstring string, f Formatter) {
	r.entries = append([]registryEntry{{hostSubstring: hostSubstring, format: f}}, r.entries...)
}

// For returns the formatter for a destination URL.
func (r *Registry) For(rawURL string) Formatter {
	u, err := url.Parse(rawURL)
	if err == nil {
		host := u.Hostname()
		for _, e := range r.entries {
			if strings.Contains(host, e.hostSubstring) {
				return e.format
			}
		}
	}
	return FormatGeneric
}

// FormatGeneric encodes the payload as-is. This is the wire format the
// signature covers for unrecognized hosts.
func FormatGeneric(p Payload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return body, nil
}

// FormatDiscord shapes the payload as a Discord execute-webhook body with a
// single embed.
func FormatDiscord(p Payload) ([]byte, error) {
	color := 0x2ecc71 // green
	if !p.Success {
		color = 0xe74c3c // red
	}

	fields := []map[string]any{
		{"name": "Application", "value": p.ApplicationID, "inline": true},
		{"name": "Success", "value": fmt.Sprintf("%t", p.Success), "inline": true},
	}
	if username, ok := p.UserData["username"].(string); ok && username != "" {
		fields = append(fields, map[string]any{"name": "User", "value": username, "inline": true})
	}
	if p.ErrorMessage != "" {
		fields = append(fields, map[string]any{"name": "Error", "value": p.ErrorMessage})
	}

	body := map[string]any{
		"embeds": []map[string]any{{
			"title":     string(p.Event),
			"color":     color,
			"fields":    fields,
			"timestamp": p.Timestamp,
		}},
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode discord payload: %w", err)
	}
	return encoded, nil
}

// FormatSlack shapes the payload as a Slack incoming-webhook text message.
func FormatSlack(p Payload) ([]byte, error) {
	status := "succeeded"
	if !p.Success {
		status = "failed"
	}
	text := fmt.Sprintf("*%s* %s for application `%s`", p.Event, status, p.ApplicationID)
	if username, ok := p.UserData["username"].(string); ok && username != "" {
		text += fmt.Sprintf(" (user `%s`)", username)
	}
	if p.ErrorMessage != "" {
		text += "\n> " + p.ErrorMessage
	}

	encoded, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode slack payload: %w", err)
	}
	return encoded, nil
}
