// Package policy implements the access decision pipeline for login and
// registration attempts. The evaluation order is fixed and short-circuiting
// so every denial carries exactly one deterministic reason.
package policy

import (
	"context"
	"crypto/subtle"
	"time"

	"keygate/internal/app"
	"keygate/internal/blacklist"
	"keygate/internal/user"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Result is the outcome of a policy evaluation. A zero Reason means Allow.
type Result struct {
	Allowed bool
	Reason  id.Reason
	// HwidBound is set when this evaluation performed first-use binding.
	HwidBound string
}

func allow() Result { return Result{Allowed: true} }

func deny(reason id.Reason) Result { return Result{Reason: reason} }

// BlacklistMatcher is the read-only view of the denylist the engine needs.
type BlacklistMatcher interface {
	Matches(ctx context.Context, appID id.AppID, entryType blacklist.EntryType, value string) (bool, error)
}

// HwidBinder performs atomic first-use hardware binding. It is the only
// mutation the engine triggers, and the store serializes the bind race.
type HwidBinder interface {
	BindHwidIfUnset(ctx context.Context, userID id.UserID, hwid string) (string, error)
}

// Engine evaluates blacklist, account state, expiry, version, and hardware
// binding for one attempt.
type Engine struct {
	denylist BlacklistMatcher
	binder   HwidBinder
	now      func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source, used by expiry tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine constructs a policy Engine.
func NewEngine(denylist BlacklistMatcher, binder HwidBinder, opts ...EngineOption) *Engine {
	e := &Engine{denylist: denylist, binder: binder, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the full pipeline for a login attempt by a known user.
// The first failing check wins. An error means an infrastructure failure,
// never a denial.
func (e *Engine) Evaluate(ctx context.Context, a *app.Application, u *user.User, client id.ClientInfo) (Result, error) {
	blacklisted, err := e.CheckBlacklist(ctx, a.ID, u.Username, u.Email, client)
	if err != nil {
		return Result{}, err
	}
	if blacklisted {
		return deny(id.ReasonBlacklisted), nil
	}

	if !u.Active {
		return deny(id.ReasonAccountDisabled), nil
	}
	if u.Paused {
		return deny(id.ReasonAccountPaused), nil
	}
	if u.Expired(e.now()) {
		return deny(id.ReasonAccountExpired), nil
	}

	if a.Settings.RequireVersion && client.Version != a.Settings.AllowedVersion {
		return deny(id.ReasonVersionMismatch), nil
	}

	if a.Settings.RequireHwid {
		return e.checkHwid(ctx, u, client)
	}
	return allow(), nil
}

// CheckBlacklist tests every identifying value the attempt carries against
// the application's denylist. Used directly by registration, where no user
// record exists yet.
func (e *Engine) CheckBlacklist(ctx context.Context, appID id.AppID, username, email string, client id.ClientInfo) (bool, error) {
	checks := []struct {
		entryType blacklist.EntryType
		value     string
	}{
		{blacklist.TypeIP, client.IP},
		{blacklist.TypeUsername, username},
		{blacklist.TypeEmail, email},
		{blacklist.TypeHwid, client.Hwid},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		matched, err := e.denylist.Matches(ctx, appID, c.entryType, c.value)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "blacklist check failed")
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// checkHwid enforces hardware binding. An unset hwid is bound to the
// caller's device on first use; the store decides concurrent bind races, so
// a loser here observes the winner's value and is denied.
func (e *Engine) checkHwid(ctx context.Context, u *user.User, client id.ClientInfo) (Result, error) {
	if client.Hwid == "" {
		return deny(id.ReasonHwidMismatch), nil
	}

	if u.Hwid == "" {
		bound, err := e.binder.BindHwidIfUnset(ctx, u.ID, client.Hwid)
		if err != nil {
			return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "hwid binding failed")
		}
		if !hwidEqual(bound, client.Hwid) {
			return deny(id.ReasonHwidMismatch), nil
		}
		res := allow()
		res.HwidBound = bound
		return res, nil
	}

	if !hwidEqual(u.Hwid, client.Hwid) {
		return deny(id.ReasonHwidMismatch), nil
	}
	return allow(), nil
}

func hwidEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
