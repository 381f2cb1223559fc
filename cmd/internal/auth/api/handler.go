package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tube/cmd/identity"
	"tube/cmd/internal/auth/session"
	"tube/cmd/internal/httpjson"
	"tube/cmd/security/password"
)

// Handler wires HTTP auth endpoints to identity/session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	pw       password.Config

	metrics *Metrics
}

// NewHandler constructs an auth Handler. If users or sessions is nil the
// handlers return 503, mirroring a run without a configured database.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, pw password.Config, metrics *Metrics) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		pw:       pw,
		metrics:  metrics,
	}
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.Handle("/auth/logout", h.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.Handle("/auth/me", h.RequireAuth(http.HandlerFunc(h.handleMe)))
	mux.Handle("/auth/password", h.RequireAuth(http.HandlerFunc(h.handleChangePassword)))
}

func (h *Handler) ready() bool {
	return h != nil && h.users != nil && h.sessions != nil
}

// ---- auth gate ----

type ctxKey int

const userContextKey ctxKey = iota

// UserFromContext returns the authenticated user attached by RequireAuth.
func UserFromContext(ctx context.Context) (identity.User, bool) {
	u, ok := ctx.Value(userContextKey).(identity.User)
	return u, ok
}

// RequireAuth verifies the access token carried in the Authorization header
// or the access cookie and attaches the resolved user to the request
// context. Any failure ends the request with a uniform 401; the wrapped
// handler is never invoked. Token errors never reach the response body, so
// a caller cannot distinguish expired from forged from revoked-subject.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.ready() {
			httpjson.Error(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
			return
		}

		token := bearerToken(r)
		if token == "" {
			if v, ok := h.accessTokenFromCookie(r); ok {
				token = v
			}
		}
		if token == "" {
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
			return
		}

		u, err := h.sessions.Authenticate(r.Context(), token, time.Now().UTC())
		if err != nil {
			if !isAuthError(err) {
				h.log.Error("auth.gate.fail", "err", err)
				httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
				return
			}
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, u)))
	})
}

// OptionalAuth attaches the authenticated user to the request context when
// a valid access token is present and passes the request through untouched
// otherwise. For routes that are public but render more for their owner.
func (h *Handler) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.ready() {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			if v, ok := h.accessTokenFromCookie(r); ok {
				token = v
			}
		}
		if token != "" {
			if u, err := h.sessions.Authenticate(r.Context(), token, time.Now().UTC()); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userContextKey, u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// isAuthError separates taxonomy failures (401) from infrastructure
// failures (5xx). A store outage must never masquerade as a bad token.
func isAuthError(err error) bool {
	return errors.Is(err, session.ErrTokenMalformed) ||
		errors.Is(err, session.ErrTokenExpired) ||
		errors.Is(err, session.ErrTokenReuse) ||
		errors.Is(err, session.ErrUnknownSubject) ||
		errors.Is(err, session.ErrInvalidCredentials)
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.ready() {
		httpjson.Error(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req registerRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" || email == "" || fullName == "" {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "username, email and full_name are required")
		return
	}
	if err := h.pw.Validate(req.Password); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_password", "password does not meet the length policy")
		return
	}

	hash, err := h.pw.Hash(req.Password)
	if err != nil {
		h.log.Error("auth.register.hash.fail", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	ctx := r.Context()
	u, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		AvatarURL:    trimPtr(req.AvatarURL),
		CoverURL:     trimPtr(req.CoverURL),
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			h.metrics.registration("conflict")
			httpjson.Error(w, http.StatusConflict, "conflict", "username or email already exists")
		case identity.IsInvalidInput(err):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.register.fail", "err", err)
			h.metrics.registration("error")
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.metrics.registration("success")
	h.log.Info("auth.register.ok", "user_id", u.ID)
	httpjson.Write(w, http.StatusCreated, registerResponse{User: toUserResponse(u)})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.ready() {
		httpjson.Error(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	login, secret, ok := normalizeLoginRequest(req)
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "username/email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	u, issued, err := h.sessions.Login(ctx, now, login, secret)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.metrics.login("invalid_credentials")
			httpjson.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		h.metrics.login("error")
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.metrics.login("success")
	h.log.Info("auth.login.ok", "user_id", u.ID)

	h.setSessionCookies(w, issued)
	httpjson.Write(w, http.StatusOK, loginResponse{
		User:    toUserResponse(u),
		Session: toSessionResponse(issued),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.ready() {
		httpjson.Error(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured")
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}
	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		if v, ok := h.refreshTokenFromCookie(r); ok {
			refreshToken = v
		}
	}
	if refreshToken == "" {
		// No token in body or cookie is an authentication failure, not a
		// malformed request.
		h.metrics.refresh("invalid_token")
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing refresh token")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	issued, err := h.sessions.Refresh(ctx, now, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTokenReuse):
			// Rotation lost or the token was already superseded. Same
			// uniform response as any other invalid token.
			h.metrics.refresh("reuse_detected")
			h.log.Warn("auth.refresh.reuse_detected")
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		case isAuthError(err):
			h.metrics.refresh("invalid_token")
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			h.metrics.refresh("error")
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.metrics.refresh("success")

	h.setSessionCookies(w, issued)
	httpjson.Write(w, http.StatusOK, refreshResponse{Session: toSessionResponse(issued)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return
	}

	if err := h.sessions.Logout(r.Context(), u.ID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.metrics.logout()
	h.log.Info("auth.logout.ok", "user_id", u.ID)
	h.clearSessionCookies(w)
	httpjson.Write(w, http.StatusOK, struct{}{})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPatch:
		h.handleUpdateAccount(w, r)
		return
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return
	}

	httpjson.Write(w, http.StatusOK, meResponse{User: toUserResponse(u)})
}

// handleUpdateAccount applies partial profile updates to the current user.
// Absent fields are left unchanged; an email change is subject to the same
// uniqueness rule as registration.
func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return
	}

	var req updateAccountRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	in := identity.UpdateProfileInput{
		FullName:  trimPtr(req.FullName),
		Email:     trimPtr(req.Email),
		AvatarURL: trimPtr(req.AvatarURL),
		CoverURL:  trimPtr(req.CoverURL),
		Now:       time.Now().UTC(),
	}
	if in.FullName == nil && in.Email == nil && in.AvatarURL == nil && in.CoverURL == nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "no fields to update")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), u.ID, in)
	if err != nil {
		switch {
		case identity.IsConflict(err):
			httpjson.Error(w, http.StatusConflict, "conflict", "email already exists")
		case identity.IsNotFound(err):
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		case identity.IsInvalidInput(err):
			httpjson.Error(w, http.StatusBadRequest, "invalid_request", "invalid input")
		default:
			h.log.Error("auth.account.update.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("auth.account.updated", "user_id", updated.ID)
	httpjson.Write(w, http.StatusOK, meResponse{User: toUserResponse(updated)})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFromContext(r.Context())
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return
	}

	var req changePasswordRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.OldPassword) == "" {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "old_password is required")
		return
	}
	if err := h.pw.Validate(req.NewPassword); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_password", "password does not meet the length policy")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	if err := h.sessions.ChangePassword(ctx, now, u.ID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, session.ErrInvalidCredentials):
			httpjson.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		case errors.Is(err, session.ErrUnknownSubject):
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		default:
			h.log.Error("auth.password.fail", "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("auth.password.changed", "user_id", u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeLoginRequest(req loginRequest) (login, secret string, ok bool) {
	username := trimPtr(req.Username)
	email := trimPtr(req.Email)
	secret = strings.TrimSpace(req.Password)
	if secret == "" {
		return "", "", false
	}
	if (username == nil && email == nil) || (username != nil && email != nil) {
		return "", "", false
	}
	if username != nil {
		return *username, secret, true
	}
	return *email, secret, true
}
