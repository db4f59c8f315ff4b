// AngelaMos | 2026
// metrics.go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "collab"

var (
	// WebhookRequestsTotal counts payment deliveries by provider and outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Payment provider deliveries by provider and outcome.",
	}, []string{"provider", "outcome"})

	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Payment delivery processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider"})

	// ProviderTokenRefreshes counts OAuth token fetches against the order provider.
	ProviderTokenRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "provider_token_refreshes_total",
		Help:      "Client-credentials tokens fetched from the order provider.",
	})

	EntitlementTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "transitions_total",
		Help:      "Entitlement ledger writes by transition.",
	}, []string{"transition"})

	// QuotaDecisions counts quota predicate results.
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "decisions_total",
		Help:      "Quota checks by resource and result.",
	}, []string{"resource", "result"})

	FollowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "follow",
		Name:      "operations_total",
		Help:      "Follow graph writes by operation and result.",
	}, []string{"operation", "result"})

	// NotificationSubscribers tracks live notification feed subscriptions.
	NotificationSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "subscribers",
		Help:      "Live notification feed subscriptions.",
	})

	// RateLimited counts rejected requests by limiter policy and caller tier.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by a rate limit policy.",
	}, []string{"policy", "tier"})

	NotificationChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notification",
		Name:      "changes_total",
		Help:      "Change signals received from the database feed.",
	})
)
