// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

// Service is the entitlement ledger. It is the only writer of entitlement
// records; quota bookkeeping goes through AddStorageUsed/AddProjectCount.
type Service struct {
	repo     Repository
	ceilings Ceilings
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(repo Repository, ceilings Ceilings, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		ceilings: ceilings,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Ceilings() Ceilings {
	return s.ceilings
}

func (s *Service) Initialize(ctx context.Context, userID string) (*Record, error) {
	rec := NewFreeRecord(userID, s.ceilings)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("get entitlement: %w", core.ErrUnauthorized)
	}
	return s.repo.Get(ctx, userID)
}

// Activate moves the user to premium for one period of plan starting now.
// Repeated calls re-extend from now and never stack.
func (s *Service) Activate(
	ctx context.Context,
	userID string,
	plan Plan,
) (*Record, error) {
	ctx, span := core.StartSpan(ctx, "entitlement.activate",
		attribute.String("user_id", userID),
		attribute.String("plan", string(plan)),
	)
	defer span.End()

	if _, err := ParsePlan(string(plan)); err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	now := s.now().UTC()
	expires := plan.ExpiresFrom(now)

	rec, err := s.repo.ApplyTransition(ctx, userID, Transition{
		Active:            true,
		Plan:              plan,
		StartedAt:         &now,
		ExpiresAt:         &expires,
		AutoRenew:         true,
		StorageTotalBytes: s.ceilings.PremiumStorageBytes,
		ProjectMaxCount:   s.ceilings.PremiumProjects,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("activate: %w", err)
	}

	metrics.EntitlementTransitions.WithLabelValues("activate").Inc()
	s.logger.Info("entitlement activated",
		"user_id", userID,
		"plan", plan,
		"expires_at", expires,
	)

	return rec, nil
}

// Deactivate reverts the user to free-tier ceilings. Usage counters are kept
// as they are, so a user above the free ceiling is blocked only for new writes.
func (s *Service) Deactivate(ctx context.Context, userID string) (*Record, error) {
	ctx, span := core.StartSpan(ctx, "entitlement.deactivate",
		attribute.String("user_id", userID),
	)
	defer span.End()

	rec, err := s.repo.ApplyTransition(ctx, userID, Transition{
		Active:            false,
		Plan:              PlanMonthly,
		StorageTotalBytes: s.ceilings.FreeStorageBytes,
		ProjectMaxCount:   s.ceilings.FreeProjects,
	})
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("deactivate: %w", err)
	}

	metrics.EntitlementTransitions.WithLabelValues("deactivate").Inc()
	s.logger.Info("entitlement deactivated",
		"user_id", userID,
		"storage_used_bytes", rec.StorageUsedBytes,
		"project_current_count", rec.ProjectCurrentCount,
	)

	return rec, nil
}

func (s *Service) AddStorageUsed(
	ctx context.Context,
	userID string,
	delta int64,
) (*Record, error) {
	return s.repo.AddStorageUsed(ctx, userID, delta)
}

func (s *Service) AddProjectCount(
	ctx context.Context,
	userID string,
	delta int,
) (*Record, error) {
	return s.repo.AddProjectCount(ctx, userID, delta)
}

func (s *Service) View(ctx context.Context, userID string) (*EntitlementResponse, error) {
	rec, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToEntitlementResponse(rec, s.now())
	return &resp, nil
}

// WithDB returns a copy of the ledger bound to db, typically a transaction
// shared with another write.
func (s *Service) WithDB(db core.DBTX) *Service {
	clone := *s
	clone.repo = NewRepository(db)
	return &clone
}
