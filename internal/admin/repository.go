// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" //nolint:revive // registers dialect

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type DomainStats struct {
	Users           int `json:"users"`
	PremiumUsers    int `json:"premium_users"`
	WebhooksLastDay int `json:"webhooks_last_day"`
	PendingRequests int `json:"pending_requests"`
}

type StatsReader interface {
	DomainStats(ctx context.Context, since time.Time) (*DomainStats, error)
}

type repository struct {
	db      core.DBTX
	builder goqu.DialectWrapper
}

func NewRepository(db core.DBTX) StatsReader {
	return &repository{db: db, builder: goqu.Dialect("postgres")}
}

func (r *repository) DomainStats(ctx context.Context, since time.Time) (*DomainStats, error) {
	var stats DomainStats
	counts := []struct {
		name string
		dst  *int
		ds   *goqu.SelectDataset
	}{
		{"users", &stats.Users, r.builder.From("users").Where(goqu.C("deleted_at").IsNull())},
		{"premium users", &stats.PremiumUsers, r.builder.From("entitlements").Where(goqu.C("active").IsTrue())},
		{"webhooks", &stats.WebhooksLastDay, r.builder.From("webhook_events").Where(goqu.C("processed_at").Gte(since))},
		{"pending requests", &stats.PendingRequests, r.builder.From("join_requests").Where(goqu.C("status").Eq("pending"))},
	}

	for _, c := range counts {
		query, args, err := c.ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build count %s: %w", c.name, err)
		}
		if err := r.db.GetContext(ctx, c.dst, query, args...); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return &stats, nil
}
