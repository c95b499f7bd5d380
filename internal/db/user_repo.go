package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"riverlog/internal/types"
)

// UserRepository provides data access for the users table.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// userColumns defines the standard set of columns selected for user queries.
// Used consistently across all query methods to avoid column drift.
const userColumns = `u.id, u.username, u.email, u.password_hash, u.full_name, u.location,
	u.phone, u.bio, u.photo_url, u.created_at, u.updated_at, u.last_login_at`

// scanUser scans a single user row into a types.User struct.
// The columns must match the order defined in userColumns.
// Uses nullable scan targets for columns that may be NULL in the database.
func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var (
		fullName *string
		location *string
		phone    *string
		bio      *string
		photoURL *string
	)
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&fullName,
		&location,
		&phone,
		&bio,
		&photoURL,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		u.FullName = *fullName
	}
	if location != nil {
		u.Location = *location
	}
	if phone != nil {
		u.Phone = *phone
	}
	if bio != nil {
		u.Bio = *bio
	}
	if photoURL != nil {
		u.PhotoURL = *photoURL
	}
	return &u, nil
}

// Create inserts a new user row. Returns ErrCodeConflictEmail or
// ErrCodeConflictUsername on the respective unique constraint violations.
func (r *UserRepository) Create(ctx context.Context, user *types.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, full_name, location,
		 phone, bio, photo_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		nilIfEmpty(user.FullName),
		nilIfEmpty(user.Location),
		nilIfEmpty(user.Phone),
		nilIfEmpty(user.Bio),
		nilIfEmpty(user.PhotoURL),
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Two unique indexes exist; distinguish by constraint name so the
			// client knows which field to correct.
			if isConstraint(err, "users_username_key") {
				return types.NewAppError(types.ErrCodeConflictUsername, "username already taken", err)
			}
			return types.NewAppError(types.ErrCodeConflictEmail, "email already registered", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create user", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
// Returns ErrCodeNotFoundUser if no user is found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.id = $1`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// GetByUsernameOrEmail retrieves a user by either their username or their
// canonicalized email address. Used by the login flow, which accepts both.
// Returns ErrCodeNotFoundUser if no user matches.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.username = $1 OR u.email = $1`,
		identifier,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}
	return u, nil
}

// UpdateProfile applies changes to the user's mutable profile fields.
// Username, email, and password are managed by dedicated methods.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *types.User) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET full_name = $1, location = $2, phone = $3, bio = $4,
		 photo_url = $5, updated_at = NOW()
		 WHERE id = $6`,
		nilIfEmpty(user.FullName),
		nilIfEmpty(user.Location),
		nilIfEmpty(user.Phone),
		nilIfEmpty(user.Bio),
		nilIfEmpty(user.PhotoURL),
		user.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// UpdatePassword updates the user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID string, newHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		newHash,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update password", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// UpdateLastLogin updates the last_login_at timestamp for a user.
// Called within the login flow after credentials have been verified.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`,
		userID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}

// Delete removes a user row. Sessions, journal entries, saved rivers,
// licenses, and alert configs cascade via foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return nil
}
