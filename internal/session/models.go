// Package session tracks authenticated sessions: opaque tokens, heartbeat
// bookkeeping, and the expiry sweep.
package session

import (
	"strings"
	"time"

	"github.com/mssola/useragent"

	id "keygate/pkg/domain"
)

// Session is one authenticated login. The token is opaque and unpredictable;
// LastActivity moves only through explicit heartbeats.
type Session struct {
	ID           id.SessionID `json:"id"`
	AppID        id.AppID     `json:"application_id"`
	UserID       id.UserID    `json:"user_id"`
	Token        string       `json:"token"`
	IP           string       `json:"ip,omitempty"`
	UserAgent    string       `json:"user_agent,omitempty"`
	Device       string       `json:"device,omitempty"`
	Location     string       `json:"location,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastActivity time.Time    `json:"last_activity"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty"`
}

// Expired reports whether the session's expiry timestamp has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// DeviceName extracts a human-readable device display name from a User-Agent
// string, in the form "Browser on OS" (e.g. "Chrome on Linux").
func DeviceName(userAgentString string) string {
	if userAgentString == "" {
		return "Unknown Device"
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	browser = strings.TrimSpace(browser)
	os = strings.TrimSpace(os)
	if browser == "" && os == "" {
		return "Unknown Device"
	}
	if browser == "" {
		return os
	}
	if os == "" {
		return browser
	}
	return browser + " on " + os
}
