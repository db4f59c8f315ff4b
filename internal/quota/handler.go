// AngelaMos | 2026
// handler.go

package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

type Handler struct {
	enforcer  *Enforcer
	validator *validator.Validate
}

func NewHandler(enforcer *Enforcer) *Handler {
	return &Handler{
		enforcer:  enforcer,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

const maxBodyBytes = 4 << 10

// RegisterRoutes exposes the predicate calls to the signed-in user. The
// bookkeeping calls move a user's usage counters and sit behind recorder,
// which admits only the upload and project services.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, recorder func(http.Handler) http.Handler,
) {
	r.Route("/quota", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/storage/check", h.CheckStorage)
		r.Post("/projects/check", h.CheckProjects)

		r.Group(func(r chi.Router) {
			r.Use(recorder)
			r.Post("/storage/usage", h.RecordStorage)
			r.Post("/projects/usage", h.RecordProjects)
		})
	})
}

func (h *Handler) CheckStorage(w http.ResponseWriter, r *http.Request) {
	var req StorageCheckRequest
	if !h.decode(w, r, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	d, err := h.enforcer.RequireStorage(r.Context(), userID, req.Bytes)
	h.writeDecision(w, d, err)
}

func (h *Handler) CheckProjects(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	d, err := h.enforcer.RequireProjectSlot(r.Context(), userID)
	h.writeDecision(w, d, err)
}

func (h *Handler) RecordStorage(w http.ResponseWriter, r *http.Request) {
	var req StorageUsageRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.enforcer.RecordUsage(r.Context(), req.UserID, req.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToUsageResponse(rec))
}

func (h *Handler) RecordProjects(w http.ResponseWriter, r *http.Request) {
	var req ProjectUsageRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.enforcer.RecordProjectDelta(r.Context(), req.UserID, req.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, ToUsageResponse(rec))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}
	return true
}

func (h *Handler) writeDecision(w http.ResponseWriter, d *Decision, err error) {
	if errors.Is(err, ErrQuotaExceeded) {
		core.JSON(w, http.StatusForbidden, core.Response{
			Success: false,
			Data:    d,
			Error: &core.ErrorBody{
				Code: "QUOTA_EXCEEDED",
				Message: fmt.Sprintf(
					"%s quota exceeded: %d of %d used",
					d.Resource, d.Used, d.Limit,
				),
			},
		})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	core.OK(w, d)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "entitlement")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
