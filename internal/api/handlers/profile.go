package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"riverlog/internal/core"
	"riverlog/internal/types"
)

// ProfileRepo is the user persistence surface the profile handler needs.
type ProfileRepo interface {
	GetByID(ctx context.Context, id string) (*types.User, error)
	UpdateProfile(ctx context.Context, user *types.User) error
}

// UpdateProfileRequest is the request body for PUT /v1/profile. All fields
// are optional; an omitted field is left unchanged, an empty string clears it.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=1000"`
	PhotoURL *string `json:"photo_url,omitempty" validate:"omitempty,max=500"`
}

// ProfileHandler manages the authenticated user's profile.
type ProfileHandler struct {
	users     ProfileRepo
	validator *core.Validator
	logger    *slog.Logger
}

func NewProfileHandler(users ProfileRepo, v *core.Validator, l *slog.Logger) *ProfileHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ProfileHandler{users: users, validator: v, logger: l}
}

// RegisterRoutes mounts profile routes on the provided chi.Router.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/profile", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})
}

// Get handles GET /v1/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Update handles PUT /v1/profile. Reads the current record, applies the
// provided fields, and persists.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthSessionMissing, "Authentication required", nil))
		return
	}

	var req UpdateProfileRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Location != nil {
		user.Location = *req.Location
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.PhotoURL != nil {
		user.PhotoURL = *req.PhotoURL
	}

	if err := h.users.UpdateProfile(r.Context(), user); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, user)
}
