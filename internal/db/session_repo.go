package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// SessionRepository provides data access for the sessions table.
// Session rows are the source of truth for authentication state; expiry
// is enforced in SQL so a stale row can never resolve to a live session.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository backed by the given
// database connection (pool or transaction).
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *types.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, csrf_token, ip_address, user_agent,
		 expires_at, last_activity_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID,
		session.UserID,
		session.CSRFToken,
		nilIfEmpty(session.IPAddress),
		nilIfEmpty(session.UserAgent),
		session.ExpiresAt,
		session.LastActivityAt,
		session.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}
	return nil
}

// GetByID retrieves a non-expired session by its ID. Expired rows are
// treated the same as missing rows: ErrCodeAuthSessionExpired.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*types.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT s.id, s.user_id, s.csrf_token, s.ip_address, s.user_agent,
		 s.expires_at, s.last_activity_at, s.created_at
		 FROM sessions s
		 WHERE s.id = $1 AND s.expires_at > NOW()`,
		id,
	)

	var s types.Session
	var (
		ipAddress *string
		userAgent *string
	)
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.CSRFToken,
		&ipAddress,
		&userAgent,
		&s.ExpiresAt,
		&s.LastActivityAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session not found or expired", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve session", err)
	}
	if ipAddress != nil {
		s.IPAddress = *ipAddress
	}
	if userAgent != nil {
		s.UserAgent = *userAgent
	}
	return &s, nil
}

// Touch refreshes the last_activity_at timestamp on a session. Best effort
// from the caller's perspective; a miss on an already-deleted session is
// not an error worth surfacing.
func (r *SessionRepository) Touch(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET last_activity_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch session", err)
	}
	return nil
}

// DeleteByID removes a single session (logout).
func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete session", err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user. Used on password change
// and account deletion to invalidate every device at once.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete user sessions", err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and returns the
// number of rows removed. Called by the nightly sweep job.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at <= NOW()`,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
