package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

// --- Mock UserRepo ---

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) GetByUsernameOrEmail(ctx context.Context, identifier string) (*types.User, error) {
	args := m.Called(ctx, identifier)
	if u := args.Get(0); u != nil {
		return u.(*types.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID string, newHash string) error {
	args := m.Called(ctx, userID, newHash)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock PasswordHasher ---

type mockPasswordHasher struct {
	mock.Mock
}

func (m *mockPasswordHasher) CompareHashAndPassword(hashedPassword, password string) error {
	args := m.Called(hashedPassword, password)
	return args.Error(0)
}

func (m *mockPasswordHasher) GenerateFromPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// --- Test Fixtures ---

func testUser() *types.User {
	return &types.User{
		ID:           "user_test123",
		Username:     "driftboat",
		Email:        "angler@example.com",
		PasswordHash: "$2a$12$hashedpassword",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(userRepo *mockUserRepo, sessionRepo *mockSessionRepo, hasher *mockPasswordHasher) *Service {
	sessionSvc := NewSessionService(sessionRepo,
		&mockTokenGenerator{sessionID: "sess_new", csrf: "csrf_new"},
		DefaultSessionConfig(),
		&mockClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		nil,
	)
	return NewService(ServiceConfig{
		UserRepo:       userRepo,
		SessionService: sessionSvc,
		Hasher:         hasher,
		Clock:          &mockClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
	})
}

// --- Signup Tests ---

func TestService_Signup_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, sessionRepo, hasher)

	hasher.On("GenerateFromPassword", "trout4ever1").Return("$2a$12$newhash", nil)
	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
		return u.Username == "driftboat" && u.Email == "angler@example.com" &&
			u.PasswordHash == "$2a$12$newhash" && u.ID != ""
	})).Return(nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, session, sessionID, err := svc.Signup(context.Background(), SignupParams{
		Username: "driftboat",
		Email:    "  Angler@Example.COM ",
		Password: "trout4ever1",
	}, "10.0.0.1", "TestBrowser/1.0")

	require.NoError(t, err)
	assert.Equal(t, "angler@example.com", user.Email)
	assert.Equal(t, "sess_new", sessionID)
	assert.Equal(t, user.ID, session.UserID)
	userRepo.AssertExpectations(t)
}

func TestService_Signup_WeakPassword(t *testing.T) {
	svc := newTestService(new(mockUserRepo), new(mockSessionRepo), new(mockPasswordHasher))

	tests := []struct {
		name     string
		password string
	}{
		{"too short", "ab1"},
		{"no digit", "troutforever"},
		{"no letter", "1234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := svc.Signup(context.Background(), SignupParams{
				Username: "driftboat",
				Email:    "angler@example.com",
				Password: tt.password,
			}, "10.0.0.1", "")
			require.Error(t, err)

			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeValidationPasswordWeak, appErr.Code)
		})
	}
}

func TestService_Signup_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, new(mockSessionRepo), hasher)

	hasher.On("GenerateFromPassword", mock.Anything).Return("$2a$12$newhash", nil)
	userRepo.On("Create", mock.Anything, mock.Anything).
		Return(types.NewAppError(types.ErrCodeConflictEmail, "email already registered", nil))

	_, _, _, err := svc.Signup(context.Background(), SignupParams{
		Username: "driftboat",
		Email:    "dup@example.com",
		Password: "trout4ever1",
	}, "10.0.0.1", "")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictEmail, appErr.Code)
}

// --- Login Tests ---

func TestService_Login_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, sessionRepo, hasher)

	userRepo.On("GetByUsernameOrEmail", mock.Anything, "driftboat").Return(testUser(), nil)
	hasher.On("CompareHashAndPassword", "$2a$12$hashedpassword", "trout4ever1").Return(nil)
	userRepo.On("UpdateLastLogin", mock.Anything, "user_test123").Return(nil)
	sessionRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	user, session, sessionID, err := svc.Login(context.Background(), "driftboat", "trout4ever1", "10.0.0.1", "")
	require.NoError(t, err)
	assert.Equal(t, "user_test123", user.ID)
	assert.Equal(t, "sess_new", sessionID)
	assert.Equal(t, "user_test123", session.UserID)
}

func TestService_Login_UnknownUserMasked(t *testing.T) {
	userRepo := new(mockUserRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, new(mockSessionRepo), hasher)

	userRepo.On("GetByUsernameOrEmail", mock.Anything, "nobody").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil))

	_, _, _, err := svc.Login(context.Background(), "nobody", "whatever1", "10.0.0.1", "")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthInvalidCreds, appErr.Code)
}

func TestService_Login_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, new(mockSessionRepo), hasher)

	userRepo.On("GetByUsernameOrEmail", mock.Anything, "driftboat").Return(testUser(), nil)
	hasher.On("CompareHashAndPassword", "$2a$12$hashedpassword", "wrong").
		Return(errors.New("crypto/bcrypt: hashedPassword is not the hash of the given password"))

	_, _, _, err := svc.Login(context.Background(), "driftboat", "wrong", "10.0.0.1", "")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthInvalidCreds, appErr.Code)
}

func TestService_Login_LockedOut(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	hasher := new(mockPasswordHasher)

	secRepo := new(mockSecurityRepo)
	secRepo.On("CountRecentFailuresByIdentifier", mock.Anything, "driftboat", mock.Anything).
		Return(10, nil)
	protector := NewBruteForceProtector(
		NewSecurityService(secRepo, DefaultSecurityConfig(), &mockClock{now: time.Now()}, nil))

	sessionSvc := NewSessionService(sessionRepo, NewCryptoTokenGenerator(), DefaultSessionConfig(), nil, nil)
	svc := NewService(ServiceConfig{
		UserRepo:       userRepo,
		SessionService: sessionSvc,
		Protector:      protector,
		Hasher:         hasher,
	})

	_, _, _, err := svc.Login(context.Background(), "driftboat", "trout4ever1", "10.0.0.1", "")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthLocked, appErr.Code)
	userRepo.AssertNotCalled(t, "GetByUsernameOrEmail", mock.Anything, mock.Anything)
}

// --- ChangePassword Tests ---

func TestService_ChangePassword_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, sessionRepo, hasher)

	userRepo.On("GetByID", mock.Anything, "user_test123").Return(testUser(), nil)
	hasher.On("CompareHashAndPassword", "$2a$12$hashedpassword", "trout4ever1").Return(nil)
	hasher.On("GenerateFromPassword", "newpass123").Return("$2a$12$newhash", nil)
	userRepo.On("UpdatePassword", mock.Anything, "user_test123", "$2a$12$newhash").Return(nil)
	sessionRepo.On("DeleteByUser", mock.Anything, "user_test123").Return(nil)

	err := svc.ChangePassword(context.Background(), "user_test123", "trout4ever1", "newpass123")
	require.NoError(t, err)
	sessionRepo.AssertCalled(t, "DeleteByUser", mock.Anything, "user_test123")
}

func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	userRepo := new(mockUserRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, new(mockSessionRepo), hasher)

	userRepo.On("GetByID", mock.Anything, "user_test123").Return(testUser(), nil)
	hasher.On("CompareHashAndPassword", "$2a$12$hashedpassword", "wrong").
		Return(errors.New("mismatch"))

	err := svc.ChangePassword(context.Background(), "user_test123", "wrong", "newpass123")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthInvalidCreds, appErr.Code)
	userRepo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

// --- DeleteAccount Tests ---

func TestService_DeleteAccount_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	hasher := new(mockPasswordHasher)
	svc := newTestService(userRepo, sessionRepo, hasher)

	userRepo.On("GetByID", mock.Anything, "user_test123").Return(testUser(), nil)
	hasher.On("CompareHashAndPassword", "$2a$12$hashedpassword", "trout4ever1").Return(nil)
	sessionRepo.On("DeleteByUser", mock.Anything, "user_test123").Return(nil)
	userRepo.On("Delete", mock.Anything, "user_test123").Return(nil)

	err := svc.DeleteAccount(context.Background(), "user_test123", "trout4ever1")
	require.NoError(t, err)
	userRepo.AssertExpectations(t)
}

// --- ResolveSession Tests ---

func TestService_ResolveSession_Success(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	svc := newTestService(userRepo, sessionRepo, new(mockPasswordHasher))

	sessionRepo.On("GetByID", mock.Anything, "sess_abc").Return(&types.Session{
		ID:        "sess_abc",
		UserID:    "user_test123",
		CSRFToken: "csrf_xyz",
		ExpiresAt: time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC),
	}, nil)
	sessionRepo.On("Touch", mock.Anything, "sess_abc").Return(nil)
	userRepo.On("GetByID", mock.Anything, "user_test123").Return(testUser(), nil)

	actor, csrf, err := svc.ResolveSession(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, "user_test123", actor.UserID)
	assert.Equal(t, "driftboat", actor.Username)
	assert.Equal(t, "sess_abc", actor.SessionID)
	assert.Equal(t, "csrf_xyz", csrf)
}

func TestService_ResolveSession_Expired(t *testing.T) {
	userRepo := new(mockUserRepo)
	sessionRepo := new(mockSessionRepo)
	svc := newTestService(userRepo, sessionRepo, new(mockPasswordHasher))

	sessionRepo.On("GetByID", mock.Anything, "sess_old").
		Return(nil, types.NewAppError(types.ErrCodeAuthSessionExpired, "session not found or expired", nil))

	_, _, err := svc.ResolveSession(context.Background(), "sess_old")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeAuthSessionExpired, appErr.Code)
}
