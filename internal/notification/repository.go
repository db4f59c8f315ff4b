// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" //nolint:revive // registers dialect
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

const (
	joinRequestsTable = "join_requests"
	membersTable      = "conversation_members"
	readMarkersTable  = "notification_reads"
)

// Repository reads the three feed sources and applies the feed mutations.
type Repository interface {
	ListJoinRequests(ctx context.Context, ownerID string) ([]JoinRequest, error)
	ListRequestUpdates(ctx context.Context, requesterID string) ([]JoinRequest, error)
	GetDigest(ctx context.Context, userID string) (Digest, error)
	DeleteRequest(ctx context.Context, requestID, userID string) error
	MarkRequestRead(ctx context.Context, requestID, ownerID string) error
	MarkDigestRead(ctx context.Context, userID string, now time.Time) (int64, error)
}

type repository struct {
	db      *sqlx.DB
	builder goqu.DialectWrapper
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, builder: goqu.Dialect("postgres")}
}

func (r *repository) requests(where ...exp.Expression) *goqu.SelectDataset {
	return r.builder.
		From(goqu.T(joinRequestsTable).As("jr")).
		Join(
			goqu.T("projects").As("p"),
			goqu.On(goqu.I("p.id").Eq(goqu.I("jr.project_id"))),
		).
		Join(
			goqu.T("users").As("u"),
			goqu.On(goqu.I("u.id").Eq(goqu.I("jr.requester_id"))),
		).
		Select(
			goqu.I("jr.id"),
			goqu.I("jr.project_id"),
			goqu.I("p.title").As("project_title"),
			goqu.I("jr.project_owner_id"),
			goqu.I("jr.requester_id"),
			goqu.I("u.name").As("requester_name"),
			goqu.I("jr.status"),
			goqu.I("jr.message"),
			goqu.I("jr.created_at"),
			goqu.I("jr.updated_at"),
		).
		Where(where...)
}

func (r *repository) ListJoinRequests(ctx context.Context, ownerID string) ([]JoinRequest, error) {
	query, args, err := r.requests(
		goqu.I("jr.project_owner_id").Eq(ownerID),
		goqu.I("jr.status").In(StatusPending, StatusRead),
	).Order(goqu.I("jr.created_at").Desc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list join requests: %w", err)
	}

	var rows []JoinRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return rows, nil
}

func (r *repository) ListRequestUpdates(ctx context.Context, requesterID string) ([]JoinRequest, error) {
	query, args, err := r.requests(
		goqu.I("jr.requester_id").Eq(requesterID),
		goqu.I("jr.status").In(StatusAccepted, StatusRejected),
	).Order(goqu.I("jr.updated_at").Desc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list request updates: %w", err)
	}

	var rows []JoinRequest
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list request updates: %w", err)
	}
	return rows, nil
}

func (r *repository) GetDigest(ctx context.Context, userID string) (Digest, error) {
	query, args, err := r.builder.
		From(membersTable).
		Select(
			goqu.L("COALESCE(SUM(unread_count), 0)").As("unread_count"),
			goqu.L("MAX(last_message_at) FILTER (WHERE unread_count > 0)").As("last_message_at"),
		).
		Where(goqu.C("user_id").Eq(userID)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Digest{}, fmt.Errorf("build get digest: %w", err)
	}

	var d Digest
	if err := r.db.GetContext(ctx, &d, query, args...); err != nil {
		return Digest{}, fmt.Errorf("get digest: %w", err)
	}
	return d, nil
}

// DeleteRequest removes a join request the user owns or submitted.
func (r *repository) DeleteRequest(ctx context.Context, requestID, userID string) error {
	query, args, err := r.builder.
		Delete(joinRequestsTable).
		Where(
			goqu.C("id").Eq(requestID),
			goqu.Or(
				goqu.C("project_owner_id").Eq(userID),
				goqu.C("requester_id").Eq(userID),
			),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete request: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) MarkRequestRead(ctx context.Context, requestID, ownerID string) error {
	query, args, err := r.builder.
		Update(joinRequestsTable).
		Set(goqu.Record{"status": StatusRead, "updated_at": goqu.L("NOW()")}).
		Where(
			goqu.C("id").Eq(requestID),
			goqu.C("project_owner_id").Eq(ownerID),
			goqu.C("status").Eq(StatusPending),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark request read: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark request read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark request read rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark request read: %w", core.ErrNotFound)
	}
	return nil
}

// MarkDigestRead zeroes every unread conversation counter of the user and
// moves the last-read marker, in one transaction.
func (r *repository) MarkDigestRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	zero, zeroArgs, err := r.builder.
		Update(membersTable).
		Set(goqu.Record{"unread_count": 0, "last_read_at": now}).
		Where(
			goqu.C("user_id").Eq(userID),
			goqu.C("unread_count").Gt(0),
		).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build zero counters: %w", err)
	}

	marker, markerArgs, err := r.builder.
		Insert(readMarkersTable).
		Rows(goqu.Record{"user_id": userID, "last_read_at": now}).
		OnConflict(goqu.DoUpdate("user_id", goqu.Record{
			"last_read_at": goqu.I("EXCLUDED.last_read_at"),
		})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build read marker: %w", err)
	}

	var cleared int64
	err = core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, zero, zeroArgs...)
		if err != nil {
			return fmt.Errorf("zero counters: %w", err)
		}
		if cleared, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("zero counters rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, marker, markerArgs...); err != nil {
			return fmt.Errorf("upsert read marker: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("mark digest read: %w", err)
	}
	return cleared, nil
}
