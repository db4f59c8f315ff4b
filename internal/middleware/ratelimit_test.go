// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierLimits(t *testing.T) {
	tiers := TierLimits(Per(100, 20, time.Minute), 10)

	assert.Equal(t, 100, tiers[TierFree].Rate)
	assert.Equal(t, 1000, tiers[TierPremium].Rate)
	assert.Equal(t, 200, tiers[TierPremium].Burst)
	assert.Equal(t, time.Minute, tiers[TierPremium].Period)

	same := TierLimits(Per(5, 1, 0), 0)
	assert.Equal(t, same[TierFree], same[TierPremium])
	assert.Equal(t, time.Minute, same[TierFree].Period)
}

func TestLimitForTier(t *testing.T) {
	rl := &RateLimiter{config: RateLimitConfig{
		Tiers: TierLimits(Per(10, 2, time.Minute), 5),
	}}

	withTier := func(tier string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), UserTierKey, tier))
	}

	tier, limit := rl.limitFor(withTier(TierPremium))
	assert.Equal(t, TierPremium, tier)
	assert.Equal(t, 50, limit.Rate)

	tier, limit = rl.limitFor(withTier("enterprise"))
	assert.Equal(t, TierFree, tier)
	assert.Equal(t, 10, limit.Rate)

	tier, _ = rl.limitFor(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, TierFree, tier)

	flat := &RateLimiter{config: RateLimitConfig{Limit: Per(3, 1, time.Second)}}
	tier, limit = flat.limitFor(withTier(TierPremium))
	assert.Empty(t, tier)
	assert.Equal(t, 3, limit.Rate)
}

func TestSkipPaths(t *testing.T) {
	skip := SkipPaths("/healthz", "/metrics")

	assert.True(t, skip(httptest.NewRequest(http.MethodGet, "/metrics", nil)))
	assert.False(t, skip(httptest.NewRequest(http.MethodGet, "/metrics/extra", nil)))
	assert.False(t, skip(httptest.NewRequest(http.MethodGet, "/v1/quota", nil)))
}

func TestLocalLimiterDeniesAfterBurst(t *testing.T) {
	l := &localLimiter{}
	limit := Per(1, 2, time.Hour)

	for range 2 {
		res, err := l.allow("k", limit)
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Allowed)
	}

	res, err := l.allow("k", limit)
	assert.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}
