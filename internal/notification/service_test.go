// AngelaMos | 2026
// service_test.go

package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

type memoryRepository struct {
	mu       sync.Mutex
	requests map[string]JoinRequest
	unread   map[string]int
	lastMsg  time.Time
	readAt   map[string]time.Time
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		requests: make(map[string]JoinRequest),
		unread:   make(map[string]int),
		readAt:   make(map[string]time.Time),
	}
}

func (m *memoryRepository) put(jr JoinRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[jr.ID] = jr
}

func (m *memoryRepository) setUnread(conversationID string, n int, last time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unread[conversationID] = n
	m.lastMsg = last
}

func (m *memoryRepository) ListJoinRequests(_ context.Context, ownerID string) ([]JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JoinRequest
	for _, jr := range m.requests {
		if jr.ProjectOwnerID == ownerID && (jr.Status == StatusPending || jr.Status == StatusRead) {
			out = append(out, jr)
		}
	}
	return out, nil
}

func (m *memoryRepository) ListRequestUpdates(_ context.Context, requesterID string) ([]JoinRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []JoinRequest
	for _, jr := range m.requests {
		if jr.RequesterID == requesterID && (jr.Status == StatusAccepted || jr.Status == StatusRejected) {
			out = append(out, jr)
		}
	}
	return out, nil
}

func (m *memoryRepository) GetDigest(context.Context, string) (Digest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var d Digest
	for _, n := range m.unread {
		d.UnreadCount += n
	}
	if d.UnreadCount > 0 {
		last := m.lastMsg
		d.LastMessageAt = &last
	}
	return d, nil
}

func (m *memoryRepository) DeleteRequest(_ context.Context, requestID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	jr, ok := m.requests[requestID]
	if !ok || (jr.ProjectOwnerID != userID && jr.RequesterID != userID) {
		return fmt.Errorf("delete request: %w", core.ErrNotFound)
	}
	delete(m.requests, requestID)
	return nil
}

func (m *memoryRepository) MarkRequestRead(_ context.Context, requestID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	jr, ok := m.requests[requestID]
	if !ok || jr.ProjectOwnerID != ownerID || jr.Status != StatusPending {
		return fmt.Errorf("mark request read: %w", core.ErrNotFound)
	}
	jr.Status = StatusRead
	m.requests[requestID] = jr
	return nil
}

func (m *memoryRepository) MarkDigestRead(_ context.Context, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cleared int64
	for id, n := range m.unread {
		if n > 0 {
			m.unread[id] = 0
			cleared++
		}
	}
	m.readAt[userID] = now
	return cleared, nil
}

type memoryHub struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

func newMemoryHub() *memoryHub {
	return &memoryHub{subs: make(map[string][]chan struct{})}
}

func (h *memoryHub) Publish(_ context.Context, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (h *memoryHub) Subscribe(_ context.Context, userID string) (<-chan struct{}, func(), error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{}, 1)
	h.subs[userID] = append(h.subs[userID], ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.subs[userID]
			for i, c := range subs {
				if c == ch {
					h.subs[userID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
		})
	}, nil
}

func (h *memoryHub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

const (
	owner     = "owner-1"
	requester = "requester-1"
)

func seeded() *memoryRepository {
	repo := newMemoryRepository()
	repo.put(JoinRequest{
		ID: "req-1", ProjectOwnerID: owner, RequesterID: requester,
		Status: StatusPending, CreatedAt: at(10), UpdatedAt: at(10),
	})
	repo.put(JoinRequest{
		ID: "req-2", ProjectOwnerID: owner, RequesterID: requester,
		Status: StatusAccepted, CreatedAt: at(1), UpdatedAt: at(15),
	})
	repo.setUnread("conv-a", 2, at(20))
	repo.setUnread("conv-b", 3, at(25))
	return repo
}

func TestService_Feed(t *testing.T) {
	ctx := context.Background()
	svc := NewService(seeded(), newMemoryHub(), nil)

	ownerFeed, err := svc.Feed(ctx, owner, FilterAll)
	require.NoError(t, err)
	assert.Equal(t, []string{DigestID, "req-1"}, ids(ownerFeed.Unread))
	assert.Equal(t, 5, ownerFeed.Unread[0].UnreadCount)

	requesterFeed, err := svc.Feed(ctx, requester, FilterUpdates)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-2"}, ids(requesterFeed.Unread))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := seeded()
	svc := NewService(repo, newMemoryHub(), nil)

	t.Run("digest delete marks everything read", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, owner, DigestID))

		feed, err := svc.Feed(ctx, owner, FilterAll)
		require.NoError(t, err)
		assert.Equal(t, []string{"req-1"}, ids(feed.Unread))
		assert.Contains(t, repo.readAt, owner)
	})

	t.Run("request update delete removes the request", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, requester, "req-2"))

		feed, err := svc.Feed(ctx, requester, FilterAll)
		require.NoError(t, err)
		assert.Empty(t, feed.Unread)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		err := svc.Delete(ctx, "someone-else", "req-1")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestService_MarkRequestRead(t *testing.T) {
	ctx := context.Background()
	svc := NewService(seeded(), newMemoryHub(), nil)

	require.NoError(t, svc.MarkRequestRead(ctx, owner, "req-1"))
	feed, err := svc.Feed(ctx, owner, FilterRequests)
	require.NoError(t, err)
	assert.Empty(t, feed.Unread)
	assert.Equal(t, []string{"req-1"}, ids(feed.Read))

	assert.ErrorIs(t, svc.MarkRequestRead(ctx, owner, "req-1"), core.ErrNotFound)
}

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()
	repo := seeded()
	hub := newMemoryHub()
	svc := NewService(repo, hub, nil)

	feeds := make(chan *Feed, 8)
	unsubscribe, err := svc.Subscribe(ctx, owner, FilterAll, func(f *Feed) { feeds <- f })
	require.NoError(t, err)

	first := <-feeds
	assert.Equal(t, 2, first.TotalUnread)

	repo.put(JoinRequest{
		ID: "req-3", ProjectOwnerID: owner, RequesterID: requester,
		Status: StatusPending, CreatedAt: at(30), UpdatedAt: at(30),
	})
	require.NoError(t, hub.Publish(ctx, owner))

	select {
	case f := <-feeds:
		assert.Equal(t, 3, f.TotalUnread)
		assert.Equal(t, "req-3", f.Unread[0].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no feed after change")
	}

	unsubscribe()
	unsubscribe()
	assert.Zero(t, hub.count(owner))

	require.NoError(t, hub.Publish(ctx, owner))
	select {
	case <-feeds:
		t.Fatal("feed delivered after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandler_List(t *testing.T) {
	svc := NewService(seeded(), newMemoryHub(), nil)
	h := NewHandler(svc, config.NotificationConfig{}, nil, nil)

	asOwner := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r, asOwner)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{name: "feed", method: http.MethodGet, target: "/notifications?filter=requests", status: http.StatusOK},
		{name: "bad filter", method: http.MethodGet, target: "/notifications?filter=nope", status: http.StatusBadRequest},
		{name: "mark request read", method: http.MethodPatch, target: "/notifications/requests/req-1/read", status: http.StatusNoContent},
		{name: "mark missing read", method: http.MethodPatch, target: "/notifications/requests/nope/read", status: http.StatusNotFound},
		{name: "digest read", method: http.MethodPost, target: "/notifications/digest/read", status: http.StatusOK},
		{name: "delete", method: http.MethodDelete, target: "/notifications/req-1", status: http.StatusNoContent},
		{name: "delete missing", method: http.MethodDelete, target: "/notifications/req-1", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		assert.Equal(t, tt.status, rec.Code, tt.name)
	}
}
