// AngelaMos | 2026
// service_test.go

package follow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/counter"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

// storeRepository reads the follow graph straight out of a counter.MemoryStore.
type storeRepository struct {
	store *counter.MemoryStore
}

func (r *storeRepository) InitStats(_ context.Context, userID string) error {
	r.store.AddCounterRow(statsTable, userID)
	return nil
}

func (r *storeRepository) IsFollowing(_ context.Context, followerID, followingID string) (bool, error) {
	_, ok := r.store.Edges(edgeTable)[EdgeID(followerID, followingID)]
	return ok, nil
}

func (r *storeRepository) GetStats(_ context.Context, userID string) (*Stats, error) {
	return &Stats{
		UserID:         userID,
		FollowersCount: r.store.CounterValue(statsTable, userID, fieldFollowers),
		FollowingCount: r.store.CounterValue(statsTable, userID, fieldFollowing),
	}, nil
}

func (r *storeRepository) ListFollowers(
	_ context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return r.list("following_id", "follower_id", userID, params)
}

func (r *storeRepository) ListFollowing(
	_ context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return r.list("follower_id", "following_id", userID, params)
}

func (r *storeRepository) list(match, other, userID string, params ListParams) ([]Connection, int, error) {
	params.Normalize()
	var all []Connection
	for _, values := range r.store.Edges(edgeTable) {
		if values[match] == userID {
			all = append(all, Connection{UserID: values[other].(string)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })

	start := min(params.Offset(), len(all))
	end := min(start+params.PageSize, len(all))
	return all[start:end], len(all), nil
}

func newTestService(t *testing.T, users ...string) (*Service, *counter.MemoryStore) {
	t.Helper()
	store := counter.NewMemoryStore()
	repo := &storeRepository{store: store}
	for _, u := range users {
		require.NoError(t, repo.InitStats(context.Background(), u))
	}
	return NewService(counter.New(store), repo, nil), store
}

func TestFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("following twice is rejected and counts once", func(t *testing.T) {
		svc, _ := newTestService(t, "a", "b")

		require.NoError(t, svc.Follow(ctx, "a", "b"))
		err := svc.Follow(ctx, "a", "b")
		require.ErrorIs(t, err, ErrAlreadyFollowing)

		a, err := svc.GetStats(ctx, "a")
		require.NoError(t, err)
		b, err := svc.GetStats(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, int64(1), a.FollowingCount)
		assert.Equal(t, int64(0), a.FollowersCount)
		assert.Equal(t, int64(1), b.FollowersCount)
	})

	t.Run("self follow is rejected", func(t *testing.T) {
		svc, store := newTestService(t, "a")

		err := svc.Follow(ctx, "a", "a")
		require.ErrorIs(t, err, ErrSelfFollow)
		assert.Empty(t, store.Edges(edgeTable))
		assert.Zero(t, store.CounterValue(statsTable, "a", fieldFollowing))
	})

	t.Run("unknown target leaves no edge", func(t *testing.T) {
		svc, store := newTestService(t, "a")

		err := svc.Follow(ctx, "a", "ghost")
		require.ErrorIs(t, err, core.ErrNotFound)
		assert.Empty(t, store.Edges(edgeTable))
	})
}

func TestUnfollow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "a", "b")

	err := svc.Unfollow(ctx, "a", "b")
	require.ErrorIs(t, err, ErrNotFollowing)

	require.NoError(t, svc.Follow(ctx, "a", "b"))
	following, err := svc.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, following)

	require.NoError(t, svc.Unfollow(ctx, "a", "b"))
	following, err = svc.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, following)

	stats, err := svc.GetStats(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, stats.FollowersCount)
}

func TestFollow_ConcurrentCountsMatchEdges(t *testing.T) {
	ctx := context.Background()
	users := []string{"a", "b", "c", "d"}
	svc, store := newTestService(t, users...)

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := users[i%len(users)]
			to := users[(i/len(users))%len(users)]
			if i%3 == 0 {
				_ = svc.Unfollow(ctx, from, to) //nolint:errcheck // rejections expected
				return
			}
			_ = svc.Follow(ctx, from, to) //nolint:errcheck // rejections expected
		}(i)
	}
	wg.Wait()

	edges := store.Edges(edgeTable)
	for _, u := range users {
		followers, _, err := svc.GetFollowers(ctx, u, ListParams{PageSize: 100})
		require.NoError(t, err)
		following, _, err := svc.GetFollowing(ctx, u, ListParams{PageSize: 100})
		require.NoError(t, err)

		stats, err := svc.GetStats(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(len(followers)), stats.FollowersCount, u)
		assert.Equal(t, int64(len(following)), stats.FollowingCount, u)
	}

	var total int64
	for _, u := range users {
		total += store.CounterValue(statsTable, u, fieldFollowing)
	}
	assert.Equal(t, int64(len(edges)), total)
}

func TestHandler_FollowStatusCodes(t *testing.T) {
	svc, _ := newTestService(t, "a", "b")
	h := NewHandler(svc)

	asUser := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, "a")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	r := chi.NewRouter()
	r.Route("/users", func(r chi.Router) {
		h.RegisterRoutes(r, asUser)
	})

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "/users/b/follow").Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodPost, "/users/b/follow").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/users/a/follow").Code)

	rec := do(http.MethodGet, "/users/b/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"followers_count":1`)

	assert.Equal(t, http.StatusNoContent, do(http.MethodDelete, "/users/b/follow").Code)
	assert.Equal(t, http.StatusConflict, do(http.MethodDelete, "/users/b/follow").Code)
}
