package httptransport

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"keygate/internal/auth/service"
	"keygate/internal/platform/middleware"
	httpjson "keygate/internal/transport/http/json"
	id "keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// apiKeyHeader carries the application credential on every client-facing
// endpoint.
const (
	apiKeyHeader = "X-API-Key"
	timeFormat   = time.RFC3339
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Hwid     string `json:"hwid,omitempty"`
	Version  string `json:"version,omitempty"`
	Location string `json:"location,omitempty"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Reason       string `json:"reason,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
}

func (h *Handler) clientInfo(r *http.Request, hwid, version, location string) id.ClientInfo {
	return id.ClientInfo{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Hwid:      hwid,
		Version:   version,
		Location:  location,
	}
}

// handleLogin authenticates an end user. Denials are well-formed outcomes,
// not HTTP errors: the response carries success=false with the tenant's
// display message and the structured reason.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeValidation, "username and password are required"))
		return
	}

	outcome, err := h.auth.Login(r.Context(), service.LoginRequest{
		APIKey:   r.Header.Get(apiKeyHeader),
		Username: req.Username,
		Password: req.Password,
		Client:   h.clientInfo(r, req.Hwid, req.Version, req.Location),
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}

	resp := loginResponse{
		Success: outcome.Allowed,
		Message: outcome.Message,
	}
	if outcome.Allowed {
		resp.SessionToken = outcome.Session.Token
		resp.UserID = outcome.User.ID.String()
		if outcome.Session.ExpiresAt != nil {
			resp.ExpiresAt = outcome.Session.ExpiresAt.UTC().Format(timeFormat)
		}
	} else {
		resp.Reason = string(outcome.Reason)
	}
	httpjson.WriteJSON(w, http.StatusOK, resp)
}

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Password   string `json:"password"`
	LicenseKey string `json:"license_key,omitempty"`
	Hwid       string `json:"hwid,omitempty"`
	Version    string `json:"version,omitempty"`
	Location   string `json:"location,omitempty"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeValidation, "username and password are required"))
		return
	}

	outcome, err := h.auth.Register(r.Context(), service.RegisterRequest{
		APIKey:     r.Header.Get(apiKeyHeader),
		Username:   req.Username,
		Email:      strings.TrimSpace(req.Email),
		Password:   req.Password,
		LicenseKey: strings.TrimSpace(req.LicenseKey),
		Client:     h.clientInfo(r, req.Hwid, req.Version, req.Location),
	})
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}

	resp := registerResponse{
		Success: outcome.Created,
		Message: outcome.Message,
	}
	if outcome.Created {
		resp.UserID = outcome.User.ID.String()
		httpjson.WriteJSON(w, http.StatusCreated, resp)
		return
	}
	resp.Reason = string(outcome.Reason)
	httpjson.WriteJSON(w, http.StatusOK, resp)
}

type sessionRequest struct {
	Token string `json:"token"`
}

// handleHeartbeat refreshes a session's last-activity timestamp. An unknown
// or expired token yields alive=false rather than an error so clients can
// cheaply detect forced termination.
func (h *Handler) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	token, ok := h.sessionToken(w, r)
	if !ok {
		return
	}
	alive, err := h.auth.Heartbeat(r.Context(), token)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]bool{"alive": alive})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := h.sessionToken(w, r)
	if !ok {
		return
	}
	closed, err := h.auth.Logout(r.Context(), token)
	if err != nil {
		httpjson.WriteError(w, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, map[string]bool{"closed": closed})
}

func (h *Handler) sessionToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return "", false
	}
	if req.Token == "" {
		httpjson.WriteError(w, dErrors.New(dErrors.CodeValidation, "session token is required"))
		return "", false
	}
	return req.Token, true
}
