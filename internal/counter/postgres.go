// AngelaMos | 2026
// postgres.go

package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" //nolint:revive // registers dialect
	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

const dialectPostgres = "postgres"

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	return core.InTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&postgresTx{tx: tx, builder: goqu.Dialect(dialectPostgres)})
	})
}

type postgresTx struct {
	tx      *sqlx.Tx
	builder goqu.DialectWrapper
}

// EdgeExists locks the edge row when present so a concurrent delete of the
// same edge waits for this transaction.
func (t *postgresTx) EdgeExists(ctx context.Context, table, id string) (bool, error) {
	query, args, err := t.builder.
		From(table).
		Select(goqu.L("1")).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(goqu.Wait).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build edge lookup: %w", err)
	}

	var one int
	err = t.tx.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup edge: %w", err)
	}
	return true, nil
}

func (t *postgresTx) InsertEdge(ctx context.Context, table string, values map[string]any) error {
	query, args, err := t.builder.
		Insert(table).
		Rows(goqu.Record(values)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build edge insert: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		if core.IsDuplicateKey(err) {
			return ErrEdgeExists
		}
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

func (t *postgresTx) DeleteEdge(ctx context.Context, table, id string) (int64, error) {
	query, args, err := t.builder.
		Delete(table).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build edge delete: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete edge: %w", err)
	}
	return result.RowsAffected()
}

func (t *postgresTx) AddToCounter(ctx context.Context, c Counter) error {
	query, args, err := t.builder.
		Update(c.Table).
		Set(goqu.Record{c.Field: goqu.L("? + ?", goqu.I(c.Field), c.Delta)}).
		Where(goqu.C(c.KeyColumn).Eq(c.Key)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build counter update: %w", err)
	}

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update counter %s.%s: %w", c.Table, c.Field, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update counter rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update counter %s %s: %w", c.Table, c.Key, core.ErrNotFound)
	}
	return nil
}
