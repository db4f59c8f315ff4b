// AngelaMos | 2026
// handler.go

package notification

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

type Handler struct {
	service  *Service
	upgrader websocket.Upgrader
	ping     time.Duration
	write    time.Duration
	logger   *slog.Logger
}

func NewHandler(
	service *Service,
	cfg config.NotificationConfig,
	allowedOrigins []string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	write := cfg.WriteTimeout
	if write <= 0 {
		write = 10 * time.Second
	}

	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		ping:   ping,
		write:  write,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.List)
		r.Get("/stream", h.Stream)
		r.Post("/digest/read", h.MarkDigestRead)
		r.Patch("/requests/{requestID}/read", h.MarkRequestRead)
		r.Delete("/{eventID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		core.BadRequest(w, "filter must be one of all, requests, updates, messages")
		return
	}

	feed, err := h.service.Feed(r.Context(), middleware.GetUserID(r.Context()), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToFeedResponse(feed))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "eventID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) MarkDigestRead(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.service.MarkDigestRead(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, DigestReadResponse{Conversations: cleared})
}

func (h *Handler) MarkRequestRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.service.MarkRequestRead(r.Context(), userID, chi.URLParam(r, "requestID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

// Stream upgrades to a websocket and pushes a full feed on connect and after
// every change until either side closes.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		core.BadRequest(w, "filter must be one of all, requests, updates, messages")
		return
	}
	userID := middleware.GetUserID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("notification stream upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var writeMu sync.Mutex
	write := func(msg StreamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(h.write)) //nolint:errcheck // surfaced by WriteJSON
		return conn.WriteJSON(msg)
	}

	ctx := r.Context()
	closed := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() { closeOnce.Do(func() { close(closed) }) }

	unsubscribe, err := h.service.Subscribe(ctx, userID, filter, func(f *Feed) {
		resp := ToFeedResponse(f)
		if err := write(StreamMessage{Type: "feed", Feed: &resp}); err != nil {
			shutdown()
		}
	})
	if err != nil {
		h.logger.Error("notification stream subscribe failed", "user_id", userID, "error", err)
		_ = write(StreamMessage{Type: "error"}) //nolint:errcheck // connection is closing
		return
	}
	defer unsubscribe()

	pongWait := h.ping * 2
	_ = conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // enforced by ReadMessage
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer shutdown()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.write))
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "notification")
	default:
		core.InternalServerError(w, err)
	}
}
