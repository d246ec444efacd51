package service

import (
	"context"
)

// Heartbeat refreshes a live session. False means the token is unknown,
// expired, or was terminated by the tenant; clients treat that as a signal
// to re-authenticate.
func (s *Service) Heartbeat(ctx context.Context, token string) (bool, error) {
	return s.sessions.Heartbeat(ctx, token)
}

// Logout closes a session on the user's own request. False means the token
// was already gone, which callers treat as success. The open-session gauge
// is owned by the tracker, which sees this close like any other.
func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	return s.sessions.Close(ctx, token)
}
