package audit

import (
	"time"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
)

// Entry is one append-only record of an authentication-relevant event.
// The username is snapshotted so deleting a user never breaks history; the
// user ID may therefore dangle and readers must tolerate that.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	AppID     id.AppID       `json:"application_id"`
	UserID    *id.UserID     `json:"user_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	Event     id.Event       `json:"event"`
	Client    id.ClientInfo  `json:"client"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error_message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
