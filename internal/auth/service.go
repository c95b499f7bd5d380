package auth

import (
	"context"
	"errors"
	"log/slog"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"riverlog/internal/types"
)

// defaultBcryptCost is the bcrypt cost factor used for password hashing
// when no cost is configured.
const defaultBcryptCost = 12

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// UserRepo defines the data access methods needed by the AuthService for
// user operations.
type UserRepo interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error)
	UpdatePassword(ctx context.Context, userID string, newHash string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
}

// PasswordHasher abstracts bcrypt operations for testability.
type PasswordHasher interface {
	CompareHashAndPassword(hashedPassword, password string) error
	GenerateFromPassword(password string) (string, error)
}

// bcryptHasher is the production implementation of PasswordHasher.
type bcryptHasher struct {
	cost int
}

func (b *bcryptHasher) CompareHashAndPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func (b *bcryptHasher) GenerateFromPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service implements signup, login, and credential management. All
// credential failures surface as the same generic invalid-credentials
// error so callers cannot probe which accounts exist.
type Service struct {
	userRepo   UserRepo
	sessionSvc *SessionService
	protector  *BruteForceProtector
	hasher     PasswordHasher
	clock      types.Clock
	logger     *slog.Logger
}

// ServiceConfig holds the dependencies for creating a Service.
type ServiceConfig struct {
	UserRepo       UserRepo
	SessionService *SessionService
	Protector      *BruteForceProtector
	Hasher         PasswordHasher
	BcryptCost     int
	Clock          types.Clock
	Logger         *slog.Logger
}

// NewService creates a new auth Service. If Hasher is nil, the production
// bcrypt hasher is used at the configured cost. If Clock is nil, RealClock
// is used. If Logger is nil, slog.Default() is used.
func NewService(cfg ServiceConfig) *Service {
	hasher := cfg.Hasher
	if hasher == nil {
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = defaultBcryptCost
		}
		hasher = &bcryptHasher{cost: cost}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		userRepo:   cfg.UserRepo,
		sessionSvc: cfg.SessionService,
		protector:  cfg.Protector,
		hasher:     hasher,
		clock:      clock,
		logger:     logger,
	}
}

// SignupParams carries the fields collected at registration.
type SignupParams struct {
	Username string
	Email    string
	Password string
	FullName string
	Location string
}

// Signup registers a new user and opens their first session.
//
//  1. Validate password strength.
//  2. Canonicalize the email and hash the password.
//  3. Insert the user; unique violations surface as conflict errors.
//  4. Create a session so the client is logged in immediately.
func (s *Service) Signup(ctx context.Context, params SignupParams, ip, userAgent string) (*types.User, *types.Session, string, error) {
	if err := CheckPasswordStrength(params.Password); err != nil {
		return nil, nil, "", err
	}

	passwordHash, err := s.hasher.GenerateFromPassword(params.Password)
	if err != nil {
		return nil, nil, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	now := s.clock.Now()
	user := &types.User{
		ID:           "user_" + uuid.NewString(),
		Username:     params.Username,
		Email:        CanonicalizeEmail(params.Email),
		PasswordHash: passwordHash,
		FullName:     params.FullName,
		Location:     params.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, "", err
	}

	session, sessionID, err := s.sessionSvc.CreateSession(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, "", err
	}

	s.logger.Info("user signed up",
		"user_id", user.ID,
		"username", user.Username,
	)

	return user, session, sessionID, nil
}

// Login verifies credentials and opens a session.
//
//  1. Check brute force lockout for both identifier and IP.
//  2. Fetch user by username or canonicalized email.
//  3. Verify the password hash.
//  4. Update last_login_at and create a session.
//  5. Record the attempt outcome for lockout tracking.
//
// User-not-found and wrong-password both return the same generic error.
func (s *Service) Login(ctx context.Context, identifier, password, ip, userAgent string) (*types.User, *types.Session, string, error) {
	identifier = CanonicalizeEmail(identifier)

	if s.protector != nil {
		allowed, err := s.protector.CheckLoginAllowed(ctx, identifier, ip)
		if err != nil {
			return nil, nil, "", err
		}
		if !allowed {
			return nil, nil, "", types.NewAppError(types.ErrCodeAuthLocked, "too many failed attempts, try again later", nil)
		}
	}

	user, err := s.userRepo.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeNotFoundUser {
			s.recordLogin(ctx, identifier, ip, false)
			return nil, nil, "", types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid username or password", nil)
		}
		return nil, nil, "", err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, password); err != nil {
		s.recordLogin(ctx, identifier, ip, false)
		return nil, nil, "", types.NewAppError(types.ErrCodeAuthInvalidCreds, "invalid username or password", nil)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	session, sessionID, err := s.sessionSvc.CreateSession(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, nil, "", err
	}

	s.recordLogin(ctx, identifier, ip, true)

	s.logger.Info("user logged in",
		"user_id", user.ID,
		"username", user.Username,
	)

	return user, session, sessionID, nil
}

// Logout invalidates a single session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionSvc.InvalidateSession(ctx, sessionID)
}

// ChangePassword verifies the current password, stores the new hash, and
// revokes every session for the user so stolen cookies stop working.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := CheckPasswordStrength(newPassword); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, currentPassword); err != nil {
		return types.NewAppError(types.ErrCodeAuthInvalidCreds, "current password is incorrect", nil)
	}

	newHash, err := s.hasher.GenerateFromPassword(newPassword)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash password", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	if err := s.sessionSvc.InvalidateAllUserSessions(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate sessions after password change",
			"user_id", userID,
			"error", err,
		)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// DeleteAccount verifies the password and removes the user. Owned rows
// (entries, rivers, licenses, alerts, sessions) cascade in the database.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.CompareHashAndPassword(user.PasswordHash, password); err != nil {
		return types.NewAppError(types.ErrCodeAuthInvalidCreds, "password is incorrect", nil)
	}

	if err := s.sessionSvc.InvalidateAllUserSessions(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate sessions during account deletion",
			"user_id", userID,
			"error", err,
		)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("account deleted", "user_id", userID)
	return nil
}

// ResolveSession validates a session cookie value and returns the acting
// user plus the session's CSRF token. This is the hook the HTTP auth
// middleware calls on every authenticated request.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*types.Actor, string, error) {
	session, err := s.sessionSvc.ValidateSession(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, "", err
	}

	actor := &types.Actor{
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: session.ID,
	}
	return actor, session.CSRFToken, nil
}

func (s *Service) recordLogin(ctx context.Context, identifier, ip string, success bool) {
	if s.protector == nil {
		return
	}
	if err := s.protector.RecordAttempt(ctx, identifier, ip, success); err != nil {
		s.logger.Warn("failed to record login attempt", "identifier", identifier, "error", err)
	}
}

// CheckPasswordStrength enforces the minimum password policy: at least
// eight characters including one letter and one digit.
func CheckPasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return types.NewAppError(types.ErrCodeValidationPasswordWeak, "password must be at least 8 characters", nil)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return types.NewAppError(types.ErrCodeValidationPasswordWeak, "password must contain a letter and a digit", nil)
	}
	return nil
}
