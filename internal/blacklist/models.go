// Package blacklist holds per-application denylist rules consulted by the
// access policy engine before any other check.
package blacklist

import (
	"time"

	"github.com/google/uuid"

	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// EntryType classifies what a denylist rule matches against.
type EntryType string

const (
	TypeIP       EntryType = "ip"
	TypeUsername EntryType = "username"
	TypeEmail    EntryType = "email"
	TypeHwid     EntryType = "hwid"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case TypeIP, TypeUsername, TypeEmail, TypeHwid:
		return true
	}
	return false
}

// Entry is a single denylist rule. The application ID is mandatory: there is
// no cross-tenant global blacklist.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	AppID     id.AppID  `json:"application_id"`
	Type      EntryType `json:"type"`
	Value     string    `json:"value"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry validates invariants and constructs a denylist rule.
func NewEntry(appID id.AppID, entryType EntryType, value, reason string, now time.Time) (*Entry, error) {
	if appID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "application ID is required")
	}
	if !entryType.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown blacklist entry type")
	}
	if value == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "blacklist value cannot be empty")
	}
	return &Entry{
		ID:        uuid.New(),
		AppID:     appID,
		Type:      entryType,
		Value:     value,
		Reason:    reason,
		CreatedAt: now,
	}, nil
}
