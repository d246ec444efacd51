package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"keygate/internal/admin"
	"keygate/internal/app"
	"keygate/internal/blacklist"
	httpjson "keygate/internal/transport/http/json"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return false
	}
	return true
}

func pathAppID(w http.ResponseWriter, r *http.Request) (id.AppID, bool) {
	appID, err := id.ParseAppID(chi.URLParam(r, "appID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid application id"))
		return id.AppID{}, false
	}
	return appID, true
}

func pathUserID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid user id"))
		return id.UserID{}, false
	}
	return userID, true
}

func pathLicenseID(w http.ResponseWriter, r *http.Request) (id.LicenseID, bool) {
	licenseID, err := id.ParseLicenseID(chi.URLParam(r, "licenseID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid license id"))
		return id.LicenseID{}, false
	}
	return licenseID, true
}

// Applications

type createApplicationRequest struct {
	TenantID string       `json:"tenant_id"`
	Name     string       `json:"name"`
	Settings app.Settings `json:"settings"`
	Messages app.Messages `json:"messages"`
}

func (h *Handler) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant id"))
		return
	}

	a, err := h.admin.CreateApplication(r.Context(), admin.CreateApplicationInput{
		TenantID: tenantID,
		Name:     req.Name,
		Settings: req.Settings,
		Messages: req.Messages,
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	// The one response that carries the plaintext API key.
	httpjson.WriteJSON(w, http.StatusCreated, map[string]any{
		"application": a,
		"api_key":     a.APIKey,
	})
}

func (h *Handler) handleListApplications(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(r.URL.Query().Get("tenant_id"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant id"))
		return
	}
	apps, err := h.admin.ListApplications(r.Context(), tenantID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

func (h *Handler) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	a, err := h.admin.Application(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	var req admin.UpdateApplicationInput
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := h.admin.UpdateApplication(r.Context(), appID, req)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleRotateAPIKey(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	apiKey, err := h.admin.RotateAPIKey(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]string{"api_key": apiKey})
}

func (h *Handler) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteApplication(r.Context(), appID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Licenses

type createLicenseRequest struct {
	MaxUsers  int        `json:"max_users"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) handleCreateLicense(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	var req createLicenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	k, err := h.admin.CreateLicense(r.Context(), admin.CreateLicenseInput{
		AppID:     appID,
		MaxUsers:  req.MaxUsers,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, k)
}

func (h *Handler) handleListLicenses(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	keys, err := h.admin.ListLicenses(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"licenses": keys})
}

func (h *Handler) handleGetLicense(w http.ResponseWriter, r *http.Request) {
	licenseID, ok := pathLicenseID(w, r)
	if !ok {
		return
	}
	k, err := h.admin.License(r.Context(), licenseID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, k)
}

type updateLicenseRequest struct {
	MaxUsers  *int       `json:"max_users,omitempty"`
	Active    *bool      `json:"active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// ClearExpiry makes the key non-expiring; mutually exclusive with
	// expires_at.
	ClearExpiry bool `json:"clear_expiry,omitempty"`
}

func (h *Handler) handleUpdateLicense(w http.ResponseWriter, r *http.Request) {
	licenseID, ok := pathLicenseID(w, r)
	if !ok {
		return
	}
	var req updateLicenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := admin.UpdateLicenseInput{
		MaxUsers: req.MaxUsers,
		Active:   req.Active,
	}
	switch {
	case req.ClearExpiry:
		in.SetExpiry = true
	case req.ExpiresAt != nil:
		in.SetExpiry = true
		in.ExpiresAt = req.ExpiresAt
	}
	k, err := h.admin.UpdateLicense(r.Context(), licenseID, in)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, k)
}

func (h *Handler) handleDeleteLicense(w http.ResponseWriter, r *http.Request) {
	licenseID, ok := pathLicenseID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteLicense(r.Context(), licenseID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	users, err := h.admin.ListUsers(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	u, err := h.admin.User(r.Context(), userID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, u)
}

type updateUserRequest struct {
	Active      *bool      `json:"active,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active != nil {
		if err := h.admin.SetUserActive(r.Context(), userID, *req.Active); err != nil {
			httpjson.WriteError(w, err)
			return
		}
	}
	if req.ClearExpiry {
		if err := h.admin.SetUserExpiry(r.Context(), userID, nil); err != nil {
			httpjson.WriteError(w, err)
			return
		}
	} else if req.ExpiresAt != nil {
		if err := h.admin.SetUserExpiry(r.Context(), userID, req.ExpiresAt); err != nil {
			httpjson.WriteError(w, err)
			return
		}
	}
	u, err := h.admin.User(r.Context(), userID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) handlePauseUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.admin.PauseUser)
}

func (h *Handler) handleUnpauseUser(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.admin.UnpauseUser)
}

func (h *Handler) handleResetHwid(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.admin.ResetUserHwid)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(r.Context(), userID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID id.UserID) error) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if err := action(r.Context(), userID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blacklist

type createBlacklistRequest struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleCreateBlacklistEntry(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	var req createBlacklistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := h.admin.CreateBlacklistEntry(r.Context(), appID, blacklist.EntryType(req.Type), req.Value, req.Reason)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleListBlacklist(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	entries, err := h.admin.ListBlacklist(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) handleDeleteBlacklistEntry(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid entry id"))
		return
	}
	if err := h.admin.DeleteBlacklistEntry(r.Context(), entryID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Webhooks

type createWebhookRequest struct {
	TenantID string   `json:"tenant_id"`
	URL      string   `json:"url"`
	Secret   string   `json:"secret,omitempty"`
	Events   []string `json:"events"`
}

func (h *Handler) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	var req createWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid tenant id"))
		return
	}
	hook, err := h.admin.CreateWebhook(r.Context(), admin.CreateWebhookInput{
		TenantID: tenantID,
		AppID:    appID,
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   toEvents(req.Events),
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusCreated, hook)
}

func (h *Handler) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	hooks, err := h.admin.ListWebhooks(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"webhooks": hooks})
}

type updateWebhookRequest struct {
	URL    *string  `json:"url,omitempty"`
	Secret *string  `json:"secret,omitempty"`
	Events []string `json:"events,omitempty"`
	Active *bool    `json:"active,omitempty"`
}

func (h *Handler) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	hookID, err := id.ParseWebhookID(chi.URLParam(r, "webhookID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid webhook id"))
		return
	}
	var req updateWebhookRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := admin.UpdateWebhookInput{
		URL:    req.URL,
		Secret: req.Secret,
		Active: req.Active,
	}
	if req.Events != nil {
		in.Events = toEvents(req.Events)
	}
	hook, err := h.admin.UpdateWebhook(r.Context(), hookID, in)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, hook)
}

func (h *Handler) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	hookID, err := id.ParseWebhookID(chi.URLParam(r, "webhookID"))
	if err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid webhook id"))
		return
	}
	if err := h.admin.DeleteWebhook(r.Context(), hookID); err != nil {
		httpjson.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toEvents(names []string) []id.Event {
	events := make([]id.Event, 0, len(names))
	for _, n := range names {
		events = append(events, id.Event(n))
	}
	return events
}

// Sessions and activity

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	sessions, err := h.admin.ListSessions(r.Context(), appID)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (h *Handler) handleTerminateSession(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	token := chi.URLParam(r, "token")
	closed, err := h.admin.TerminateSession(r.Context(), appID, token)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}

const defaultActivityLimit = 100

func (h *Handler) handleActivityLog(w http.ResponseWriter, r *http.Request) {
	appID, ok := pathAppID(w, r)
	if !ok {
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpjson.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid limit"))
			return
		}
		limit = parsed
	}
	entries, err := h.admin.ActivityLog(r.Context(), appID, limit)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
