// AngelaMos | 2026
// handler.go

package follow

import (
	"errors"
	"net/http"
	"strconv"

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

// RegisterRoutes mounts under the /users route group.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/{userID}/stats", h.Stats)
	r.Get("/{userID}/followers", h.Followers)
	r.Get("/{userID}/following", h.Following)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/{userID}/follow", h.IsFollowing)
		r.Post("/{userID}/follow", h.Follow)
		r.Delete("/{userID}/follow", h.Unfollow)
	})
}

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	if err := h.service.Follow(r.Context(), followerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	if err := h.service.Unfollow(r.Context(), followerID, targetID); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) IsFollowing(w http.ResponseWriter, r *http.Request) {
	followerID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	following, err := h.service.IsFollowing(r.Context(), followerID, targetID)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, FollowingStatusResponse{Following: following})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToStatsResponse(stats))
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	conns, total, err := h.service.GetFollowers(r.Context(), chi.URLParam(r, "userID"), params)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Paginated(w, ToConnectionResponseList(conns), params.Page, params.PageSize, total)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	conns, total, err := h.service.GetFollowing(r.Context(), chi.URLParam(r, "userID"), params)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Paginated(w, ToConnectionResponseList(conns), params.Page, params.PageSize, total)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAlreadyFollowing):
		core.Error(w, http.StatusConflict, "ALREADY_FOLLOWING", err.Error())
	case errors.Is(err, ErrNotFollowing):
		core.Error(w, http.StatusConflict, "NOT_FOLLOWING", err.Error())
	case errors.Is(err, ErrSelfFollow):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "invalid user id")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	default:
		core.InternalServerError(w, err)
	}
}

func listParams(r *http.Request) ListParams {
	p := ListParams{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	p.Normalize()
	return p
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}
