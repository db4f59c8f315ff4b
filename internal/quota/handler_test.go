// AngelaMos | 2026
// handler_test.go

package quota

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
)

const (
	ownerID   = "8a1f3f0e-6f0c-4c39-9d3b-3f1c2b6e9a10"
	serviceID = "svc-uploads"
)

// headerAuth stands in for the JWT authenticator: it trusts X-User and
// X-Role so tests can choose the caller.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.UserIDKey, r.Header.Get("X-User"))
		ctx = context.WithValue(ctx, middleware.UserRoleKey, r.Header.Get("X-Role"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newQuotaRouter(ledger *fakeLedger) http.Handler {
	r := chi.NewRouter()
	NewHandler(NewEnforcer(ledger)).RegisterRoutes(
		r,
		headerAuth,
		middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin),
	)
	return r
}

func post(t *testing.T, h http.Handler, path, user, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-User", user)
	r.Header.Set("X-Role", role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp core.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestHandler_UsageRoutesRequireServiceRole(t *testing.T) {
	rec := freeRecord(ownerID)
	rec.StorageUsedBytes = 300 * mib
	rec.ProjectCurrentCount = 2
	ledger := newFakeLedger(rec)
	h := newQuotaRouter(ledger)

	storage := map[string]any{"user_id": ownerID, "delta": -300 * mib}
	projects := map[string]any{"user_id": ownerID, "delta": -2}

	for _, role := range []string{"user", ""} {
		res := post(t, h, "/quota/storage/usage", ownerID, role, storage)
		assert.Contains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, res.Code, role)

		res = post(t, h, "/quota/projects/usage", ownerID, role, projects)
		assert.Contains(t, []int{http.StatusUnauthorized, http.StatusForbidden}, res.Code, role)
	}

	got, err := ledger.Get(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, 300*mib, got.StorageUsedBytes)
	assert.Equal(t, 2, got.ProjectCurrentCount)
}

func TestHandler_RecordStorage(t *testing.T) {
	rec := freeRecord(ownerID)
	rec.StorageUsedBytes = 100 * mib
	ledger := newFakeLedger(rec)
	h := newQuotaRouter(ledger)

	res := post(t, h, "/quota/storage/usage", serviceID, middleware.RoleService,
		map[string]any{"user_id": ownerID, "delta": 20 * mib})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var body struct {
		Data UsageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, 120*mib, body.Data.StorageUsedBytes)

	res = post(t, h, "/quota/storage/usage", serviceID, middleware.RoleService,
		map[string]any{"user_id": ownerID, "delta": -1_000 * mib})
	require.Equal(t, http.StatusBadRequest, res.Code)

	res = post(t, h, "/quota/projects/usage", serviceID, middleware.RoleAdmin,
		map[string]any{"user_id": ownerID, "delta": -1})
	require.Equal(t, http.StatusBadRequest, res.Code)

	got, err := ledger.Get(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, 120*mib, got.StorageUsedBytes)
	assert.Equal(t, 0, got.ProjectCurrentCount)
}

func TestHandler_RecordRequiresTargetUser(t *testing.T) {
	h := newQuotaRouter(newFakeLedger(freeRecord(ownerID)))

	res := post(t, h, "/quota/storage/usage", serviceID, middleware.RoleService,
		map[string]any{"delta": 10})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = post(t, h, "/quota/projects/usage", serviceID, middleware.RoleService,
		map[string]any{"user_id": "not-a-uuid", "delta": 1})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandler_CheckStorage(t *testing.T) {
	rec := freeRecord(ownerID)
	rec.StorageUsedBytes = 500 * mib
	h := newQuotaRouter(newFakeLedger(rec))

	res := post(t, h, "/quota/storage/check", ownerID, "user",
		map[string]any{"bytes": 12 * mib})
	assert.Equal(t, http.StatusOK, res.Code)

	res = post(t, h, "/quota/storage/check", ownerID, "user",
		map[string]any{"bytes": int64(math.MaxInt64)})
	require.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", errorCode(t, res))

	res = post(t, h, "/quota/storage/check", "missing", "user",
		map[string]any{"bytes": 1})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	h := newQuotaRouter(newFakeLedger(freeRecord(ownerID)))

	padded := []byte(`{"bytes": 1, "pad": "` + strings.Repeat("x", maxBodyBytes) + `"}`)
	res := post(t, h, "/quota/storage/check", ownerID, "user", padded)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}
