// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type stubVerifier map[string]error

func (s stubVerifier) VerifyAccessToken(_ context.Context, token string) (*AccessTokenClaims, error) {
	if err, ok := s[token]; ok {
		return nil, err
	}
	return &AccessTokenClaims{UserID: "user-" + token, Role: "user", Tier: TierPremium}, nil
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		headers map[string]string
		want    string
	}{
		{name: "bearer header", target: "/", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc"},
		{name: "lowercase scheme", target: "/", headers: map[string]string{"Authorization": "bearer abc "}, want: "abc"},
		{name: "basic scheme", target: "/", headers: map[string]string{"Authorization": "Basic abc"}, want: ""},
		{name: "query ignored on plain request", target: "/?access_token=abc", want: ""},
		{
			name:    "query on websocket upgrade",
			target:  "/?access_token=abc",
			headers: map[string]string{"Upgrade": "websocket"},
			want:    "abc",
		},
		{
			name:    "header wins on upgrade",
			target:  "/?access_token=query",
			headers: map[string]string{"Upgrade": "websocket", "Authorization": "Bearer header"},
			want:    "header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractToken(r))
		})
	}
}

func TestAuthenticator(t *testing.T) {
	verifier := stubVerifier{
		"revoked": core.ErrTokenRevoked,
		"expired": fmt.Errorf("parse: %w", core.ErrTokenExpired),
	}

	var seen string
	var tier string
	h := Authenticator(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
		tier = GetUserTier(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	rec := call("alice")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-alice", seen)
	assert.Equal(t, TierPremium, tier)

	for token, code := range map[string]string{
		"":        "UNAUTHORIZED",
		"revoked": "TOKEN_REVOKED",
		"expired": "TOKEN_EXPIRED",
	} {
		rec := call(token)
		require.Equal(t, http.StatusUnauthorized, rec.Code, token)

		var body core.Response
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, code, body.Error.Code, token)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(role string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if role != "" {
			r = r.WithContext(context.WithValue(r.Context(), UserRoleKey, role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusForbidden, call("user"))
	assert.Equal(t, http.StatusNoContent, call(RoleAdmin))
}

func TestKeyByUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", KeyByUser(r))

	r = r.WithContext(context.WithValue(r.Context(), UserIDKey, "u1"))
	assert.Equal(t, "ratelimit:user:u1", KeyByUser(r))
}
