package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"riverlog/internal/core"
	"riverlog/internal/types"
)

// defaultLicenseExpiryWindow is how far ahead GET /licenses/expiring looks
// when the query does not specify a window.
const defaultLicenseExpiryWindow = 30 * 24 * time.Hour

// LicenseRepo is the persistence surface the license handler needs.
type LicenseRepo interface {
	Create(ctx context.Context, license *types.FishingLicense) error
	ListByUser(ctx context.Context, userID string) ([]*types.FishingLicense, error)
	Delete(ctx context.Context, id string, userID string) error
}

// CreateLicenseRequest is the request body for POST /v1/licenses. Dates use
// the "2006-01-02" form.
type CreateLicenseRequest struct {
	LicenseType    string `json:"license_type" validate:"required,max=100"`
	State          string `json:"state" validate:"required,len=2"`
	LicenseNumber  string `json:"license_number,omitempty" validate:"max=50"`
	IssueDate      string `json:"issue_date" validate:"required"`
	ExpirationDate string `json:"expiration_date" validate:"required"`
	CostCents      int64  `json:"cost_cents" validate:"min=0"`
}

// LicenseView wraps a license with derived expiry state for list responses.
type LicenseView struct {
	*types.FishingLicense
	Expired  bool `json:"expired"`
	DaysLeft int  `json:"days_left"`
}

// LicenseHandler manages fishing license records.
type LicenseHandler struct {
	licenses  LicenseRepo
	validator *core.Validator
	clock     types.Clock
	logger    *slog.Logger
}

func NewLicenseHandler(licenses LicenseRepo, v *core.Validator, clock types.Clock, l *slog.Logger) *LicenseHandler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if l == nil {
		l = slog.Default()
	}
	return &LicenseHandler{licenses: licenses, validator: v, clock: clock, logger: l}
}

// RegisterRoutes mounts license routes on the provided chi.Router.
func (h *LicenseHandler) RegisterRoutes(r chi.Router) {
	r.Route("/licenses", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/expiring", h.ListExpiring)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles POST /v1/licenses.
func (h *LicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req CreateLicenseRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	issued, err := parseDate(req.IssueDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	expires, err := parseDate(req.ExpirationDate)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if expires.Before(issued) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidDate, "expiration_date precedes issue_date", nil))
		return
	}

	now := h.clock.Now()
	license := &types.FishingLicense{
		ID:             "lic_" + uuid.NewString(),
		UserID:         actor.UserID,
		LicenseType:    req.LicenseType,
		State:          req.State,
		LicenseNumber:  req.LicenseNumber,
		IssueDate:      issued,
		ExpirationDate: expires,
		CostCents:      req.CostCents,
		CreatedAt:      now,
	}

	if err := h.licenses.Create(r.Context(), license); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, h.view(license))
}

// List handles GET /v1/licenses, soonest expiration first.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	licenses, err := h.licenses.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	views := make([]*LicenseView, len(licenses))
	for i, lic := range licenses {
		views[i] = h.view(lic)
	}
	core.JSON(w, r, http.StatusOK, views)
}

// ListExpiring handles GET /v1/licenses/expiring: the caller's licenses
// expiring within the next 30 days, expired ones excluded.
func (h *LicenseHandler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	licenses, err := h.licenses.ListByUser(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	now := h.clock.Now()
	cutoff := now.Add(defaultLicenseExpiryWindow)
	views := make([]*LicenseView, 0)
	for _, lic := range licenses {
		if lic.ExpirationDate.After(now) && lic.ExpirationDate.Before(cutoff) {
			views = append(views, h.view(lic))
		}
	}
	core.JSON(w, r, http.StatusOK, views)
}

// Delete handles DELETE /v1/licenses/{id}.
func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	if err := h.licenses.Delete(r.Context(), chi.URLParam(r, "id"), actor.UserID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *LicenseHandler) view(lic *types.FishingLicense) *LicenseView {
	now := h.clock.Now()
	return &LicenseView{
		FishingLicense: lic,
		Expired:        lic.ExpirationDate.Before(now),
		DaysLeft:       int(lic.ExpirationDate.Sub(now).Hours() / 24),
	}
}

// parseDate parses a "2006-01-02" date string into a UTC time.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate, "date must use the YYYY-MM-DD form", err)
	}
	return t, nil
}
