// AngelaMos | 2026
// entity.go

package entitlement

import (
	"fmt"
	"time"

	"github.com/carterperez-dev/templates/collab-backend/internal/config"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

func ParsePlan(s string) (Plan, error) {
	switch Plan(s) {
	case PlanMonthly, PlanYearly:
		return Plan(s), nil
	default:
		return "", fmt.Errorf("parse plan %q: %w", s, core.ErrInvalidInput)
	}
}

// ExpiresFrom returns the end of one billing period starting at from.
func (p Plan) ExpiresFrom(from time.Time) time.Time {
	if p == PlanYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

type Record struct {
	UserID              string     `db:"user_id"`
	Active              bool       `db:"active"`
	Plan                Plan       `db:"plan"`
	StartedAt           *time.Time `db:"started_at"`
	ExpiresAt           *time.Time `db:"expires_at"`
	AutoRenew           bool       `db:"auto_renew"`
	StorageTotalBytes   int64      `db:"storage_total_bytes"`
	StorageUsedBytes    int64      `db:"storage_used_bytes"`
	ProjectMaxCount     int        `db:"project_max_count"`
	ProjectCurrentCount int        `db:"project_current_count"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (r *Record) Tier() string {
	if r.Active {
		return TierPremium
	}
	return TierFree
}

func (r *Record) RenewalDue(now time.Time) bool {
	return r.Active && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type Ceilings struct {
	FreeStorageBytes    int64
	PremiumStorageBytes int64
	FreeProjects        int
	PremiumProjects     int
}

func DefaultCeilings() Ceilings {
	return Ceilings{
		FreeStorageBytes:    512 << 20,
		PremiumStorageBytes: 10 << 30,
		FreeProjects:        3,
		PremiumProjects:     999999,
	}
}

func CeilingsFromConfig(cfg config.QuotaConfig) Ceilings {
	return Ceilings{
		FreeStorageBytes:    cfg.FreeStorageBytes,
		PremiumStorageBytes: cfg.PremiumStorageBytes,
		FreeProjects:        cfg.FreeProjects,
		PremiumProjects:     cfg.PremiumProjects,
	}
}

func NewFreeRecord(userID string, c Ceilings) *Record {
	return &Record{
		UserID:            userID,
		Plan:              PlanMonthly,
		StorageTotalBytes: c.FreeStorageBytes,
		ProjectMaxCount:   c.FreeProjects,
	}
}

// Transition is the set of fields activate/deactivate overwrite. Usage
// counters are never part of it.
type Transition struct {
	Active            bool
	Plan              Plan
	StartedAt         *time.Time
	ExpiresAt         *time.Time
	AutoRenew         bool
	StorageTotalBytes int64
	ProjectMaxCount   int
}
