package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"riverlog/internal/types"
)

// SessionCookieName is the cookie carrying the session ID.
const SessionCookieName = "riverlog_session"

// Authenticator resolves a session cookie value to an authenticated Actor
// and the session's CSRF token.
type Authenticator interface {
	ResolveSession(ctx context.Context, sessionID string) (*types.Actor, string, error)
}

// authPublicPaths lists exact URL paths that are exempt from authentication.
var authPublicPaths = map[string]bool{
	"/health":         true,
	"/v1/auth/signup": true,
	"/v1/auth/login":  true,
}

// authPublicPrefixes lists read-only path prefixes that are exempt from
// authentication: the environment endpoints work without an account.
var authPublicPrefixes = []string{
	"/v1/moon",
	"/v1/weather",
	"/v1/gauges/",
	"/v1/sites/",
}

// isPublicPath reports whether the request path bypasses authentication.
func isPublicPath(path string) bool {
	if authPublicPaths[path] {
		return true
	}
	for _, prefix := range authPublicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthMiddleware wraps handlers requiring authentication.
//
//  1. Extracts the session ID from the session cookie.
//  2. Calls Authenticator.ResolveSession to resolve it to an Actor.
//  3. Injects the Actor into the request context via types.WithActor.
//  4. Injects the session's CSRF token into context via
//     types.WithSessionCSRFToken for downstream CSRF validation.
//  5. Returns 401 Unauthorized on failure with distinct error codes:
//     - auth_session_missing: no session cookie present.
//     - auth_session_invalid: session not found or malformed.
//     - auth_session_expired: session exists but has expired.
//
// If the Authenticator field on Server is nil (e.g., during tests that don't
// inject one), the middleware passes through without authentication.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If no authenticator is configured, pass through.
		if s.Authenticator == nil {
			next.ServeHTTP(w, r)
			return
		}

		// Skip authentication for public paths.
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthSessionMissing, "Authentication required")
			return
		}

		actor, csrfToken, err := s.Authenticator.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}

		if actor == nil {
			s.writeAuthError(w, r, types.ErrCodeAuthSessionInvalid, "Invalid session")
			return
		}

		ctx := types.WithActor(r.Context(), *actor)
		ctx = types.WithSessionCSRFToken(ctx, csrfToken)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFMiddleware validates the X-CSRF-Token header on mutating requests made
// with a session. Safe methods (GET, HEAD, OPTIONS) and unauthenticated
// requests (public paths) pass through.
//
// The comparison is constant-time to prevent timing attacks.
func (s *Server) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		// Only requests carrying an authenticated session are CSRF-checked.
		sessionToken, ok := types.GetSessionCSRFToken(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get("X-CSRF-Token")
		if subtle.ConstantTimeCompare([]byte(sessionToken), []byte(headerToken)) != 1 {
			Error(w, r, types.NewAppError(
				types.ErrCodeAuthCSRFInvalid,
				"Invalid or missing CSRF token",
				nil,
			))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleAuthError inspects the error from Authenticator.ResolveSession and
// writes the appropriate 401 response with the correct error code.
func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeAuthSessionExpired:
			s.Logger.Warn("authentication failed: session expired",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthSessionExpired, "Session has expired")
			return
		case types.ErrCodeAuthSessionInvalid, types.ErrCodeNotFoundUser:
			s.Logger.Warn("authentication failed: session invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error_code", string(appErr.Code)),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthSessionInvalid, "Invalid session")
			return
		}
	}

	// Generic error: log it but don't leak internal details.
	s.Logger.Error("authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthSessionInvalid, "Authentication failed")
}

// writeAuthError writes a 401 Unauthorized JSON response with the given error code.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	requestID := types.GetRequestID(r.Context())
	resp := APIErrorResponse{
		Error: ErrorDetail{
			Code:      string(code),
			Message:   message,
			RequestID: requestID,
		},
	}
	JSON(w, r, http.StatusUnauthorized, resp)
}
