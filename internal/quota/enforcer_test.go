// AngelaMos | 2026
// enforcer_test.go

package quota

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

const mib = int64(1 << 20)

type fakeLedger struct {
	mu      sync.Mutex
	records map[string]entitlement.Record
}

func newFakeLedger(recs ...entitlement.Record) *fakeLedger {
	l := &fakeLedger{records: make(map[string]entitlement.Record)}
	for _, r := range recs {
		l.records[r.UserID] = r
	}
	return l
}

func (l *fakeLedger) Get(_ context.Context, userID string) (*entitlement.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[userID]
	if !ok {
		return nil, fmt.Errorf("get entitlement: %w", core.ErrNotFound)
	}
	return &r, nil
}

func (l *fakeLedger) AddStorageUsed(
	_ context.Context,
	userID string,
	delta int64,
) (*entitlement.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	if r.StorageUsedBytes+delta < 0 {
		return nil, fmt.Errorf("add storage used: %w", core.ErrInvalidInput)
	}
	r.StorageUsedBytes += delta
	l.records[userID] = r
	return &r, nil
}

func (l *fakeLedger) AddProjectCount(
	_ context.Context,
	userID string,
	delta int,
) (*entitlement.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	if r.ProjectCurrentCount+delta < 0 {
		return nil, fmt.Errorf("add project count: %w", core.ErrInvalidInput)
	}
	r.ProjectCurrentCount += delta
	l.records[userID] = r
	return &r, nil
}

func (l *fakeLedger) setTotals(userID string, storage int64, projects int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.records[userID]
	r.StorageTotalBytes = storage
	r.ProjectMaxCount = projects
	l.records[userID] = r
}

func freeRecord(userID string) entitlement.Record {
	return *entitlement.NewFreeRecord(userID, entitlement.DefaultCeilings())
}

func TestCheckStorage(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		used     int64
		proposed int64
		allowed  bool
	}{
		{name: "fits", used: 100 * mib, proposed: 50 * mib, allowed: true},
		{name: "exactly at ceiling", used: 462 * mib, proposed: 50 * mib, allowed: true},
		{name: "one byte over", used: 462 * mib, proposed: 50*mib + 1, allowed: false},
		{name: "already over ceiling", used: 600 * mib, proposed: 0, allowed: false},
		{name: "full and nothing proposed", used: 512 * mib, proposed: 0, allowed: true},
		{name: "max int64 does not wrap", used: 500 * mib, proposed: math.MaxInt64, allowed: false},
		{name: "max int64 on empty account", used: 0, proposed: math.MaxInt64, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := freeRecord("u1")
			rec.StorageUsedBytes = tt.used
			e := NewEnforcer(newFakeLedger(rec))

			d, err := e.CheckStorage(ctx, "u1", tt.proposed)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
		})
	}
}

func TestCheckStorage_AfterActivation(t *testing.T) {
	ctx := context.Background()
	rec := freeRecord("u1")
	rec.StorageUsedBytes = 500 * mib
	ledger := newFakeLedger(rec)
	e := NewEnforcer(ledger)

	d, err := e.CheckStorage(ctx, "u1", 50*mib)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = e.RequireStorage(ctx, "u1", 50*mib)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	ceilings := entitlement.DefaultCeilings()
	ledger.setTotals("u1", ceilings.PremiumStorageBytes, ceilings.PremiumProjects)

	d, err = e.CheckStorage(ctx, "u1", 50*mib)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckProjectCount(t *testing.T) {
	ctx := context.Background()
	rec := freeRecord("u1")
	rec.ProjectCurrentCount = 2
	e := NewEnforcer(newFakeLedger(rec))

	d, err := e.CheckProjectCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = e.RecordProjectDelta(ctx, "u1", 1)
	require.NoError(t, err)

	_, err = e.RequireProjectSlot(ctx, "u1")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRecordUsage_SumsDeltas(t *testing.T) {
	ctx := context.Background()
	e := NewEnforcer(newFakeLedger(freeRecord("u1")))

	deltas := []int64{10 * mib, 3 * mib, -4 * mib, 7}
	var sum int64
	for _, delta := range deltas {
		before, err := e.CheckStorage(ctx, "u1", 0)
		require.NoError(t, err)
		assert.Equal(t, sum, before.Used)

		rec, err := e.RecordUsage(ctx, "u1", delta)
		require.NoError(t, err)
		sum += delta
		assert.Equal(t, sum, rec.StorageUsedBytes)
	}
}

func TestCheckStorage_Errors(t *testing.T) {
	ctx := context.Background()
	e := NewEnforcer(newFakeLedger(freeRecord("u1")))

	_, err := e.CheckStorage(ctx, "ghost", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.CheckStorage(ctx, "u1", -1)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestRecordUsage_RejectsNegativeBalance(t *testing.T) {
	ctx := context.Background()
	rec := freeRecord("u1")
	rec.StorageUsedBytes = 500 * mib
	rec.ProjectCurrentCount = 1
	ledger := newFakeLedger(rec)
	e := NewEnforcer(ledger)

	_, err := e.RecordUsage(ctx, "u1", -100_000_000_000)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = e.RecordProjectDelta(ctx, "u1", -2)
	require.ErrorIs(t, err, core.ErrInvalidInput)

	d, err := e.CheckStorage(ctx, "u1", 50*1024*mib)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 500*mib, d.Used)
}
