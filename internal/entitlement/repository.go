// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, userID string) (*Record, error)
	ApplyTransition(ctx context.Context, userID string, t Transition) (*Record, error)
	AddStorageUsed(ctx context.Context, userID string, delta int64) (*Record, error)
	AddProjectCount(ctx context.Context, userID string, delta int) (*Record, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const recordColumns = `
	user_id, active, plan, started_at, expires_at, auto_renew,
	storage_total_bytes, storage_used_bytes,
	project_max_count, project_current_count, updated_at`

func (r *repository) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO entitlements (
			user_id, active, plan, started_at, expires_at, auto_renew,
			storage_total_bytes, storage_used_bytes,
			project_max_count, project_current_count
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &rec.UpdatedAt, query,
		rec.UserID,
		rec.Active,
		rec.Plan,
		rec.StartedAt,
		rec.ExpiresAt,
		rec.AutoRenew,
		rec.StorageTotalBytes,
		rec.StorageUsedBytes,
		rec.ProjectMaxCount,
		rec.ProjectCurrentCount,
	)
	if err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("create entitlement: %w", core.ErrDuplicateKey)
		}
		if core.IsForeignKeyViolation(err) {
			return fmt.Errorf("create entitlement: %w", core.ErrNotFound)
		}
		return fmt.Errorf("create entitlement: %w", err)
	}

	return nil
}

func (r *repository) Get(ctx context.Context, userID string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM entitlements WHERE user_id = $1`

	var rec Record
	err := r.db.GetContext(ctx, &rec, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get entitlement: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get entitlement: %w", err)
	}

	return &rec, nil
}

// ApplyTransition is a single-row UPDATE; it never inserts, so an unknown
// user surfaces as ErrNotFound rather than a placeholder row.
func (r *repository) ApplyTransition(
	ctx context.Context,
	userID string,
	t Transition,
) (*Record, error) {
	query := `
		UPDATE entitlements
		SET active = $2,
		    plan = $3,
		    started_at = $4,
		    expires_at = $5,
		    auto_renew = $6,
		    storage_total_bytes = $7,
		    project_max_count = $8,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + recordColumns

	var rec Record
	err := r.db.GetContext(ctx, &rec, query,
		userID,
		t.Active,
		t.Plan,
		t.StartedAt,
		t.ExpiresAt,
		t.AutoRenew,
		t.StorageTotalBytes,
		t.ProjectMaxCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("apply transition: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}

	return &rec, nil
}

func (r *repository) AddStorageUsed(
	ctx context.Context,
	userID string,
	delta int64,
) (*Record, error) {
	query := `
		UPDATE entitlements
		SET storage_used_bytes = storage_used_bytes + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + recordColumns

	var rec Record
	err := r.db.GetContext(ctx, &rec, query, userID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("add storage used: %w", core.ErrNotFound)
	}
	if core.IsCheckViolation(err) {
		return nil, fmt.Errorf("add storage used: counter would drop below zero: %w", core.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("add storage used: %w", err)
	}

	return &rec, nil
}

func (r *repository) AddProjectCount(
	ctx context.Context,
	userID string,
	delta int,
) (*Record, error) {
	query := `
		UPDATE entitlements
		SET project_current_count = project_current_count + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + recordColumns

	var rec Record
	err := r.db.GetContext(ctx, &rec, query, userID, delta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("add project count: %w", core.ErrNotFound)
	}
	if core.IsCheckViolation(err) {
		return nil, fmt.Errorf("add project count: counter would drop below zero: %w", core.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("add project count: %w", err)
	}

	return &rec, nil
}
