package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

type mockProfileRepo struct {
	getByIDFn       func(ctx context.Context, id string) (*types.User, error)
	updateProfileFn func(ctx context.Context, user *types.User) error

	lastUpdated *types.User
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*types.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &types.User{
		ID:       id,
		Username: "driftboat",
		Email:    "angler@example.com",
		FullName: "Marlowe Finch",
		Location: "Bozeman, MT",
		Bio:      "Dry flies only.",
	}, nil
}

func (m *mockProfileRepo) UpdateProfile(ctx context.Context, user *types.User) error {
	m.lastUpdated = user
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, user)
	}
	return nil
}

func TestProfileHandler_Get(t *testing.T) {
	repo := &mockProfileRepo{}
	handler := NewProfileHandler(repo, testValidator(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var user types.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
	assert.Equal(t, "user_1", user.ID)
	assert.Equal(t, "Marlowe Finch", user.FullName)
}

func TestProfileHandler_Get_Unauthenticated(t *testing.T) {
	handler := NewProfileHandler(&mockProfileRepo{}, testValidator(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, string(types.ErrCodeAuthSessionMissing), decodeErrorCode(t, rr))
}

func TestProfileHandler_Update_PartialFields(t *testing.T) {
	repo := &mockProfileRepo{}
	handler := NewProfileHandler(repo, testValidator(), nil)

	location := "Missoula, MT"
	bio := ""
	req := jsonRequest(t, http.MethodPut, "/v1/profile", UpdateProfileRequest{
		Location: &location,
		Bio:      &bio,
	}).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Update(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, repo.lastUpdated)

	// Omitted fields keep their stored values, provided empty strings clear.
	assert.Equal(t, "Missoula, MT", repo.lastUpdated.Location)
	assert.Equal(t, "", repo.lastUpdated.Bio)
	assert.Equal(t, "Marlowe Finch", repo.lastUpdated.FullName)
}

func TestProfileHandler_Update_RepoError(t *testing.T) {
	repo := &mockProfileRepo{
		getByIDFn: func(_ context.Context, _ string) (*types.User, error) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		},
	}
	handler := NewProfileHandler(repo, testValidator(), nil)

	name := "New Name"
	req := jsonRequest(t, http.MethodPut, "/v1/profile", UpdateProfileRequest{
		FullName: &name,
	}).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Update(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
