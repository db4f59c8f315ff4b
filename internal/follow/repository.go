// AngelaMos | 2026
// repository.go

package follow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" //nolint:revive // registers dialect

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

// Repository is the read side of the follow graph plus stats row creation.
// Edge and counter writes go through the counter primitive only.
type Repository interface {
	InitStats(ctx context.Context, userID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	GetStats(ctx context.Context, userID string) (*Stats, error)
	ListFollowers(ctx context.Context, userID string, params ListParams) ([]Connection, int, error)
	ListFollowing(ctx context.Context, userID string, params ListParams) ([]Connection, int, error)
}

type repository struct {
	db      core.DBTX
	builder goqu.DialectWrapper
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db, builder: goqu.Dialect("postgres")}
}

func (r *repository) InitStats(ctx context.Context, userID string) error {
	query, args, err := r.builder.
		Insert(statsTable).
		Rows(goqu.Record{"user_id": userID}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build init stats: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("init follow stats: %w", err)
	}
	return nil
}

func (r *repository) IsFollowing(
	ctx context.Context,
	followerID, followingID string,
) (bool, error) {
	query, args, err := r.builder.
		From(edgeTable).
		Select(goqu.COUNT("*")).
		Where(goqu.C("id").Eq(EdgeID(followerID, followingID))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build is following: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return n > 0, nil
}

func (r *repository) GetStats(ctx context.Context, userID string) (*Stats, error) {
	query, args, err := r.builder.
		From(statsTable).
		Select("user_id", fieldFollowers, fieldFollowing).
		Where(goqu.C("user_id").Eq(userID)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get stats: %w", err)
	}

	var stats Stats
	err = r.db.GetContext(ctx, &stats, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get follow stats: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get follow stats: %w", err)
	}
	return &stats, nil
}

func (r *repository) ListFollowers(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return r.list(ctx, "following_id", "follower_id", userID, params)
}

func (r *repository) ListFollowing(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Connection, int, error) {
	return r.list(ctx, "follower_id", "following_id", userID, params)
}

// list pages through edges where matchColumn = userID, returning the user on
// the otherColumn side.
func (r *repository) list(
	ctx context.Context,
	matchColumn, otherColumn, userID string,
	params ListParams,
) ([]Connection, int, error) {
	params.Normalize()

	base := r.builder.
		From(goqu.T(edgeTable).As("f")).
		Join(
			goqu.T("users").As("u"),
			goqu.On(goqu.I("u.id").Eq(goqu.I("f."+otherColumn))),
		).
		Where(
			goqu.I("f."+matchColumn).Eq(userID),
			goqu.I("u.deleted_at").IsNull(),
		)

	countQuery, countArgs, err := base.
		Select(goqu.COUNT("*")).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", otherColumn, err)
	}

	query, args, err := base.
		Select(
			goqu.I("u.id").As("user_id"),
			goqu.I("u.name").As("name"),
			goqu.I("f.created_at").As("followed_at"),
		).
		Order(goqu.I("f.created_at").Desc()).
		Limit(uint(params.PageSize)).   //nolint:gosec // normalized to 1..100
		Offset(uint(params.Offset())). //nolint:gosec // page >= 1
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list: %w", err)
	}

	conns := make([]Connection, 0, params.PageSize)
	if err := r.db.SelectContext(ctx, &conns, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", otherColumn, err)
	}

	return conns, total, nil
}
