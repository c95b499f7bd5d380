// Package handlers contains the HTTP handler implementations for the
// riverlog API. Each handler depends on locally defined service interfaces
// so tests can inject fakes without touching the concrete packages.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riverlog/internal/auth"
	"riverlog/internal/core"
	"riverlog/internal/types"
)

// AuthService is the account lifecycle surface the auth handler needs.
// Mirrors the concrete auth.Service methods.
type AuthService interface {
	Signup(ctx context.Context, params auth.SignupParams, ip, userAgent string) (*types.User, *types.Session, string, error)
	Login(ctx context.Context, identifier, password, ip, userAgent string) (*types.User, *types.Session, string, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID, password string) error
}

// AuthUserReader loads the authenticated user's record for GET /auth/me.
type AuthUserReader interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
}

// CookieSettings controls how the session cookie is written.
type CookieSettings struct {
	Secure   bool
	Domain   string
	Duration time.Duration
}

// SignupRequest is the request body for POST /v1/auth/signup.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name,omitempty" validate:"max=100"`
	Location string `json:"location,omitempty" validate:"max=100"`
}

// LoginRequest is the request body for POST /v1/auth/login. Identifier is a
// username or email address.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ChangePasswordRequest is the request body for POST /v1/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// DeleteAccountRequest is the request body for DELETE /v1/auth/account.
// The password confirms intent.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

// SessionResponse is returned by signup and login. The CSRF token must be
// echoed back in the X-CSRF-Token header on mutating requests.
type SessionResponse struct {
	User      *types.User `json:"user"`
	CSRFToken string      `json:"csrf_token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// AuthHandler manages signup, login, logout, and account security endpoints.
type AuthHandler struct {
	service   AuthService
	users     AuthUserReader
	cookies   CookieSettings
	validator *core.Validator
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler with the provided dependencies.
func NewAuthHandler(service AuthService, users AuthUserReader, cookies CookieSettings, v *core.Validator, l *slog.Logger) *AuthHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AuthHandler{
		service:   service,
		users:     users,
		cookies:   cookies,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts auth routes on the provided chi.Router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Post("/change-password", h.ChangePassword)
		r.Delete("/account", h.DeleteAccount)
	})
}

// Signup handles POST /v1/auth/signup. A successful signup logs the user in
// immediately: the response carries the session cookie and CSRF token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, csrfToken, err := h.service.Signup(r.Context(), auth.SignupParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Location: req.Location,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	core.JSON(w, r, http.StatusCreated, SessionResponse{
		User:      user,
		CSRFToken: csrfToken,
		ExpiresAt: session.ExpiresAt,
	})
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, session, csrfToken, err := h.service.Login(r.Context(), req.Identifier, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	core.JSON(w, r, http.StatusOK, SessionResponse{
		User:      user,
		CSRFToken: csrfToken,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout handles POST /v1/auth/logout. Invalidates the current session and
// clears the cookie. Succeeds even if the session was already gone.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	if err := h.service.Logout(r.Context(), actor.SessionID); err != nil {
		h.logger.Warn("logout failed to invalidate session", "error", err)
	}

	h.clearSessionCookie(w)
	core.JSON(w, r, http.StatusOK, map[string]bool{"logged_out": true})
}

// Me handles GET /v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, user)
}

// ChangePassword handles POST /v1/auth/change-password. All sessions are
// invalidated on success, including the current one; the client must log in
// again.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req ChangePasswordRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), actor.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		core.Error(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	core.JSON(w, r, http.StatusOK, map[string]bool{"password_changed": true})
}

// DeleteAccount handles DELETE /v1/auth/account. Requires password
// confirmation; removes the user and all owned data.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req DeleteAccountRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), actor.UserID, req.Password); err != nil {
		core.Error(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	core.JSON(w, r, http.StatusOK, map[string]bool{"account_deleted": true})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, session *types.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     core.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(h.cookies.Duration.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     core.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clientIP extracts the originating client address, preferring the
// X-Forwarded-For header set by the load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
