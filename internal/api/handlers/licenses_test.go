package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riverlog/internal/types"
)

var licenseNow = time.Date(2024, 7, 5, 12, 0, 0, 0, time.UTC)

type handlerClock struct{ now time.Time }

func (c handlerClock) Now() time.Time { return c.now }

type mockLicenseRepo struct {
	createFn     func(ctx context.Context, license *types.FishingLicense) error
	listByUserFn func(ctx context.Context, userID string) ([]*types.FishingLicense, error)
	deleteFn     func(ctx context.Context, id, userID string) error

	lastCreated *types.FishingLicense
	deletedIDs  []string
}

func (m *mockLicenseRepo) Create(ctx context.Context, license *types.FishingLicense) error {
	m.lastCreated = license
	if m.createFn != nil {
		return m.createFn(ctx, license)
	}
	return nil
}

func (m *mockLicenseRepo) ListByUser(ctx context.Context, userID string) ([]*types.FishingLicense, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockLicenseRepo) Delete(ctx context.Context, id, userID string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

func newTestLicenseHandler(repo *mockLicenseRepo) *LicenseHandler {
	return NewLicenseHandler(repo, testValidator(), handlerClock{now: licenseNow}, nil)
}

func licenseExpiring(id string, expires time.Time) *types.FishingLicense {
	return &types.FishingLicense{
		ID:             id,
		UserID:         "user_1",
		LicenseType:    "Resident Annual",
		State:          "MT",
		IssueDate:      expires.AddDate(-1, 0, 0),
		ExpirationDate: expires,
	}
}

func TestLicenseHandler_Create(t *testing.T) {
	repo := &mockLicenseRepo{}
	handler := newTestLicenseHandler(repo)

	req := jsonRequest(t, http.MethodPost, "/v1/licenses", CreateLicenseRequest{
		LicenseType:    "Resident Annual",
		State:          "MT",
		LicenseNumber:  "MT-2024-7781",
		IssueDate:      "2024-03-01",
		ExpirationDate: "2025-02-28",
		CostCents:      3150,
	}).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, repo.lastCreated)
	assert.Equal(t, "user_1", repo.lastCreated.UserID)
	assert.True(t, len(repo.lastCreated.ID) > len("lic_"))
	assert.Equal(t, "lic_", repo.lastCreated.ID[:4])

	var view LicenseView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&view))
	assert.False(t, view.Expired)
	assert.Equal(t, 237, view.DaysLeft)
}

func TestLicenseHandler_Create_ExpirationBeforeIssue(t *testing.T) {
	handler := newTestLicenseHandler(&mockLicenseRepo{})

	req := jsonRequest(t, http.MethodPost, "/v1/licenses", CreateLicenseRequest{
		LicenseType:    "Resident Annual",
		State:          "MT",
		IssueDate:      "2024-03-01",
		ExpirationDate: "2023-03-01",
	}).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidDate), decodeErrorCode(t, rr))
}

func TestLicenseHandler_Create_BadDateForm(t *testing.T) {
	handler := newTestLicenseHandler(&mockLicenseRepo{})

	req := jsonRequest(t, http.MethodPost, "/v1/licenses", CreateLicenseRequest{
		LicenseType:    "Resident Annual",
		State:          "MT",
		IssueDate:      "03/01/2024",
		ExpirationDate: "2025-02-28",
	}).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.Create(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidDate), decodeErrorCode(t, rr))
}

func TestLicenseHandler_List_MarksExpired(t *testing.T) {
	repo := &mockLicenseRepo{
		listByUserFn: func(_ context.Context, _ string) ([]*types.FishingLicense, error) {
			return []*types.FishingLicense{
				licenseExpiring("lic_old", licenseNow.AddDate(0, 0, -10)),
				licenseExpiring("lic_current", licenseNow.AddDate(0, 6, 0)),
			}, nil
		},
	}
	handler := newTestLicenseHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/v1/licenses", nil).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var views []*LicenseView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&views))
	require.Len(t, views, 2)
	assert.True(t, views[0].Expired)
	assert.False(t, views[1].Expired)
}

func TestLicenseHandler_ListExpiring_WindowFilter(t *testing.T) {
	repo := &mockLicenseRepo{
		listByUserFn: func(_ context.Context, _ string) ([]*types.FishingLicense, error) {
			return []*types.FishingLicense{
				licenseExpiring("lic_expired", licenseNow.AddDate(0, 0, -1)),
				licenseExpiring("lic_soon", licenseNow.AddDate(0, 0, 12)),
				licenseExpiring("lic_far", licenseNow.AddDate(0, 0, 90)),
			}, nil
		},
	}
	handler := newTestLicenseHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/v1/licenses/expiring", nil).WithContext(actorContext())
	rr := httptest.NewRecorder()
	handler.ListExpiring(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var views []*LicenseView
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&views))
	require.Len(t, views, 1)
	assert.Equal(t, "lic_soon", views[0].ID)
	assert.Equal(t, 12, views[0].DaysLeft)
}

func TestLicenseHandler_Delete(t *testing.T) {
	repo := &mockLicenseRepo{}
	handler := newTestLicenseHandler(repo)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodDelete, "/licenses/lic_1", nil).WithContext(actorContext())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"lic_1"}, repo.deletedIDs)
}

func TestLicenseHandler_Delete_NotFound(t *testing.T) {
	repo := &mockLicenseRepo{
		deleteFn: func(_ context.Context, _, _ string) error {
			return types.NewAppError(types.ErrCodeNotFoundLicense, "license not found", nil)
		},
	}
	handler := newTestLicenseHandler(repo)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodDelete, "/licenses/lic_missing", nil).WithContext(actorContext())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
