// AngelaMos | 2026
// processor.go

package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

var (
	ErrAlreadyProcessed = errors.New("already processed")
	ErrInFlight         = errors.New("delivery already in flight")
)

// Ledger is the part of the entitlement ledger a payment event can move.
type Ledger interface {
	Activate(ctx context.Context, userID string, plan entitlement.Plan) (*entitlement.Record, error)
	Deactivate(ctx context.Context, userID string) (*entitlement.Record, error)
}

type Journal interface {
	Seen(ctx context.Context, provider, providerID string) (bool, error)
	// Record stores e and runs apply against a ledger bound to the same
	// transaction. It returns ErrAlreadyProcessed if e was journaled before.
	Record(ctx context.Context, e Entry, apply func(ctx context.Context, ledger Ledger) error) error
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Locker marks a delivery as in flight so concurrent retries back off.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type RedisLocker struct {
	redis *core.Redis
}

func NewRedisLocker(redis *core.Redis) *RedisLocker {
	return &RedisLocker{redis: redis}
}

func (l *RedisLocker) Lock(
	ctx context.Context,
	key string,
	ttl time.Duration,
) (func(context.Context) error, error) {
	lock, err := l.redis.Acquire(ctx, key, ttl)
	if errors.Is(err, core.ErrLockHeld) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

type Result struct {
	Outcome Outcome
	UserID  string
}

type Processor struct {
	journal Journal
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewProcessor(
	journal Journal,
	locker Locker,
	lockTTL time.Duration,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		journal: journal,
		locker:  locker,
		lockTTL: lockTTL,
		now:     time.Now,
		logger:  logger,
	}
}

// Handle runs one delivery identified by providerID. resolve turns the
// delivery into an Event and is only called when the id has not been
// processed yet. A nil error means the ledger write, if any, has committed.
func (p *Processor) Handle(
	ctx context.Context,
	provider, providerID string,
	resolve func(ctx context.Context) (Event, error),
) (Result, error) {
	start := time.Now()
	ctx, span := core.StartSpan(ctx, "webhook.handle",
		attribute.String("provider", provider),
		attribute.String("provider_id", providerID),
	)
	defer span.End()

	res, err := p.handle(ctx, provider, providerID, resolve)

	outcome := string(res.Outcome)
	if err != nil {
		outcome = errorOutcome(err)
		if outcome == "error" {
			core.SetSpanError(ctx, err)
		}
	}
	core.AddSpanEvent(ctx, "webhook.outcome", attribute.String("outcome", outcome))
	metrics.WebhookRequestsTotal.WithLabelValues(provider, outcome).Inc()
	metrics.WebhookDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	return res, err
}

func (p *Processor) handle(
	ctx context.Context,
	provider, providerID string,
	resolve func(ctx context.Context) (Event, error),
) (Result, error) {
	if providerID == "" {
		return Result{}, fmt.Errorf("missing provider id: %w", ErrMalformedPayload)
	}

	unlock, err := p.locker.Lock(ctx, lockKey(provider, providerID), p.lockTTL)
	if err != nil {
		return Result{}, fmt.Errorf("lock delivery: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			p.logger.Warn("release delivery lock", "provider", provider, "provider_id", providerID, "error", err)
		}
	}()

	seen, err := p.journal.Seen(ctx, provider, providerID)
	if err != nil {
		return Result{}, fmt.Errorf("check journal: %w", err)
	}
	if seen {
		p.logger.Info("duplicate payment delivery", "provider", provider, "provider_id", providerID)
		return Result{Outcome: OutcomeDuplicate}, nil
	}

	ev, err := resolve(ctx)
	if err != nil {
		return Result{}, err
	}

	if ev.Action == ActionIgnore {
		p.logger.Info("payment event ignored",
			"provider", provider,
			"provider_id", providerID,
			"status", ev.Status,
			"user_id", ev.UserID(),
		)
		return Result{Outcome: OutcomeIgnored, UserID: ev.UserID()}, nil
	}

	entry := Entry{
		ID:          ulid.Make().String(),
		Provider:    provider,
		ProviderID:  providerID,
		UserID:      ev.UserID(),
		Action:      ev.Action,
		Status:      ev.Status,
		Reference:   ev.Reference.String(),
		ProcessedAt: p.now().UTC(),
	}

	err = p.journal.Record(ctx, entry, func(ctx context.Context, ledger Ledger) error {
		if ev.Action == ActionDeactivate {
			_, err := ledger.Deactivate(ctx, ev.UserID())
			return err
		}
		_, err := ledger.Activate(ctx, ev.UserID(), ev.Plan)
		return err
	})
	if errors.Is(err, ErrAlreadyProcessed) {
		p.logger.Info("duplicate payment delivery", "provider", provider, "provider_id", providerID)
		return Result{Outcome: OutcomeDuplicate, UserID: ev.UserID()}, nil
	}
	if err != nil {
		p.logger.Error("apply payment event",
			"provider", provider,
			"provider_id", providerID,
			"user_id", ev.UserID(),
			"action", ev.Action,
			"error", err,
		)
		return Result{}, fmt.Errorf("apply %s: %w", ev.Action, err)
	}

	p.logger.Info("payment event applied",
		"provider", provider,
		"provider_id", providerID,
		"user_id", ev.UserID(),
		"action", ev.Action,
	)

	return Result{Outcome: OutcomeProcessed, UserID: ev.UserID()}, nil
}

func (p *Processor) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return p.journal.ListRecent(ctx, limit)
}

func lockKey(provider, providerID string) string {
	return "webhook:inflight:" + provider + ":" + providerID
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, core.ErrNotFound):
		return "unknown_user"
	case errors.Is(err, ErrInFlight):
		return "in_flight"
	default:
		return "error"
	}
}
