// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" //nolint:revive // registers dialect
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

type repository struct {
	db      core.DBTX
	builder goqu.DialectWrapper
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db, builder: goqu.Dialect("postgres")}
}

// tierExpr derives the tier from the joined entitlement row.
var tierExpr = goqu.L(
	"CASE WHEN e.active THEN ? ELSE ? END",
	entitlement.TierPremium,
	entitlement.TierFree,
)

func (r *repository) selectUsers(where ...exp.Expression) *goqu.SelectDataset {
	where = append(where, goqu.I("u.deleted_at").IsNull())
	return r.builder.
		From(goqu.T("users").As("u")).
		LeftJoin(
			goqu.T("entitlements").As("e"),
			goqu.On(goqu.I("e.user_id").Eq(goqu.I("u.id"))),
		).
		Select(
			goqu.I("u.id"),
			goqu.I("u.email"),
			goqu.I("u.password_hash"),
			goqu.I("u.name"),
			goqu.I("u.role"),
			tierExpr.As("tier"),
			goqu.I("u.token_version"),
			goqu.I("u.created_at"),
			goqu.I("u.updated_at"),
			goqu.I("u.deleted_at"),
		).
		Where(where...)
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query, args, err := r.builder.
		Insert("users").
		Rows(goqu.Record{
			"id":            user.ID,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"name":          user.Name,
			"role":          user.Role,
		}).
		Returning("created_at", "updated_at", "token_version").
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build create user: %w", err)
	}

	if err := r.db.GetContext(ctx, user, query, args...); err != nil {
		if core.IsDuplicateKey(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) getOne(ctx context.Context, op string, where exp.Expression) (*User, error) {
	query, args, err := r.selectUsers(where).Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "get user", goqu.I("u.id").Eq(id))
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "get user by email", goqu.I("u.email").Eq(email))
}

func (r *repository) Update(ctx context.Context, user *User) error {
	query, args, err := r.builder.
		Update("users").
		Set(goqu.Record{
			"name":       user.Name,
			"role":       user.Role,
			"updated_at": goqu.L("NOW()"),
		}).
		Where(goqu.C("id").Eq(user.ID), goqu.C("deleted_at").IsNull()).
		Returning("updated_at").
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}

	err = r.db.GetContext(ctx, &user.UpdatedAt, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password", goqu.Record{
		"password_hash": passwordHash,
		"updated_at":    goqu.L("NOW()"),
	}, id)
}

func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.exec(ctx, "increment token version", goqu.Record{
		"token_version": goqu.L("token_version + 1"),
		"updated_at":    goqu.L("NOW()"),
	}, id)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	return r.exec(ctx, "delete user", goqu.Record{
		"deleted_at": goqu.L("NOW()"),
		"updated_at": goqu.L("NOW()"),
	}, id)
}

// exec updates one live user row and reports ErrNotFound when none matched.
func (r *repository) exec(ctx context.Context, op string, set goqu.Record, id string) error {
	query, args, err := r.builder.
		Update("users").
		Set(set).
		Where(goqu.C("id").Eq(id), goqu.C("deleted_at").IsNull()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

func (r *repository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	params.Normalize()

	var where []exp.Expression
	if params.Search != "" {
		pattern := "%" + escapeLike(params.Search) + "%"
		where = append(where, goqu.Or(
			goqu.I("u.email").ILike(pattern),
			goqu.I("u.name").ILike(pattern),
		))
	}
	if params.Role != "" {
		where = append(where, goqu.I("u.role").Eq(params.Role))
	}
	switch params.Tier {
	case entitlement.TierPremium:
		where = append(where, goqu.I("e.active").IsTrue())
	case entitlement.TierFree:
		where = append(where, goqu.L("COALESCE(e.active, FALSE) = FALSE"))
	}

	base := r.selectUsers(where...)

	countQuery, countArgs, err := base.
		ClearSelect().
		Select(goqu.COUNT("*")).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query, args, err := base.
		Order(goqu.I("u.created_at").Desc()).
		Limit(uint(params.PageSize)).   //nolint:gosec // normalized to 1..100
		Offset(uint(params.Offset())). //nolint:gosec // page >= 1
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users: %w", err)
	}

	users := make([]User, 0, params.PageSize)
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
