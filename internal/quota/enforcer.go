// AngelaMos | 2026
// enforcer.go

package quota

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/metrics"
)

var ErrQuotaExceeded = core.ErrQuotaExceeded

const (
	ResourceStorage  = "storage"
	ResourceProjects = "projects"
)

// Ledger is the slice of the entitlement ledger the enforcer reads and
// records usage through.
type Ledger interface {
	Get(ctx context.Context, userID string) (*entitlement.Record, error)
	AddStorageUsed(ctx context.Context, userID string, delta int64) (*entitlement.Record, error)
	AddProjectCount(ctx context.Context, userID string, delta int) (*entitlement.Record, error)
}

type Decision struct {
	Resource  string `json:"resource"`
	Allowed   bool   `json:"allowed"`
	Used      int64  `json:"used"`
	Requested int64  `json:"requested"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// Enforcer holds no state of its own. Check and record are separate calls
// and are not atomic with each other: two concurrent callers may both pass a
// check before either records, which can overshoot the ceiling by one write.
type Enforcer struct {
	ledger Ledger
}

func NewEnforcer(ledger Ledger) *Enforcer {
	return &Enforcer{ledger: ledger}
}

func (e *Enforcer) CheckStorage(
	ctx context.Context,
	userID string,
	proposedBytes int64,
) (*Decision, error) {
	if proposedBytes < 0 {
		return nil, fmt.Errorf("check storage: negative size: %w", core.ErrInvalidInput)
	}

	rec, err := e.ledger.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check storage: %w", err)
	}

	// used + proposed <= total, compared on the headroom so a huge
	// proposal cannot wrap around.
	remaining := max(rec.StorageTotalBytes-rec.StorageUsedBytes, 0)
	d := &Decision{
		Resource:  ResourceStorage,
		Allowed:   rec.StorageUsedBytes <= rec.StorageTotalBytes && proposedBytes <= remaining,
		Used:      rec.StorageUsedBytes,
		Requested: proposedBytes,
		Limit:     rec.StorageTotalBytes,
		Remaining: remaining,
	}
	observe(d)

	return d, nil
}

func (e *Enforcer) CheckProjectCount(
	ctx context.Context,
	userID string,
) (*Decision, error) {
	rec, err := e.ledger.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check project count: %w", err)
	}

	used := int64(rec.ProjectCurrentCount)
	limit := int64(rec.ProjectMaxCount)

	d := &Decision{
		Resource:  ResourceProjects,
		Allowed:   used < limit,
		Used:      used,
		Requested: 1,
		Limit:     limit,
		Remaining: max(limit-used, 0),
	}
	observe(d)

	return d, nil
}

// RequireStorage is CheckStorage that reports a denial as ErrQuotaExceeded.
func (e *Enforcer) RequireStorage(
	ctx context.Context,
	userID string,
	proposedBytes int64,
) (*Decision, error) {
	d, err := e.CheckStorage(ctx, userID, proposedBytes)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return d, fmt.Errorf(
			"storage: %d + %d exceeds %d: %w",
			d.Used, d.Requested, d.Limit, ErrQuotaExceeded,
		)
	}
	return d, nil
}

func (e *Enforcer) RequireProjectSlot(
	ctx context.Context,
	userID string,
) (*Decision, error) {
	d, err := e.CheckProjectCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return d, fmt.Errorf(
			"projects: %d of %d in use: %w",
			d.Used, d.Limit, ErrQuotaExceeded,
		)
	}
	return d, nil
}

// RecordUsage applies deltaBytes to the user's used storage. Callers record
// after a successful upload and record the negative size on deletion. A
// delta that would take the counter below zero fails with ErrInvalidInput.
func (e *Enforcer) RecordUsage(
	ctx context.Context,
	userID string,
	deltaBytes int64,
) (*entitlement.Record, error) {
	rec, err := e.ledger.AddStorageUsed(ctx, userID, deltaBytes)
	if err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}
	return rec, nil
}

func (e *Enforcer) RecordProjectDelta(
	ctx context.Context,
	userID string,
	delta int,
) (*entitlement.Record, error) {
	rec, err := e.ledger.AddProjectCount(ctx, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("record project delta: %w", err)
	}
	return rec, nil
}

func observe(d *Decision) {
	result := "allowed"
	if !d.Allowed {
		result = "denied"
	}
	metrics.QuotaDecisions.WithLabelValues(d.Resource, result).Inc()
}
