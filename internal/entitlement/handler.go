// AngelaMos | 2026
// handler.go

package entitlement

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes exposes the read side only. Writes arrive through the
// billing webhooks.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.With(authenticator).Get("/entitlement", h.GetMine)
}

func (h *Handler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	resp, err := h.service.View(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "authentication required")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "entitlement")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}
