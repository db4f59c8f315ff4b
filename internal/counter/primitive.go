// AngelaMos | 2026
// primitive.go

package counter

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

var (
	ErrEdgeExists  = errors.New("edge already exists")
	ErrEdgeMissing = errors.New("edge does not exist")
)

type EdgeMode int

const (
	CreateEdge EdgeMode = iota
	DeleteEdge
)

func (m EdgeMode) String() string {
	if m == DeleteEdge {
		return "delete"
	}
	return "create"
}

// Edge is the relationship row guarding a paired write. Values are the
// columns inserted on CreateEdge; the id column is always set from ID.
type Edge struct {
	Table  string
	ID     string
	Values map[string]any
	Mode   EdgeMode
}

// Counter addresses one numeric column on one row.
type Counter struct {
	Table     string
	KeyColumn string
	Key       string
	Field     string
	Delta     int64
}

type PairedWrite struct {
	Edge Edge
	A    Counter
	B    Counter
}

type Tx interface {
	EdgeExists(ctx context.Context, table, id string) (bool, error)
	InsertEdge(ctx context.Context, table string, values map[string]any) error
	DeleteEdge(ctx context.Context, table, id string) (int64, error)
	AddToCounter(ctx context.Context, c Counter) error
}

// Store runs fn in a transaction that commits only if fn returns nil.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

type Primitive struct {
	store Store
}

func New(store Store) *Primitive {
	return &Primitive{store: store}
}

// ApplyPaired checks the edge guard, writes or removes the edge and applies
// both counter deltas in one transaction. A guard failure aborts everything.
func (p *Primitive) ApplyPaired(ctx context.Context, w PairedWrite) error {
	if err := w.validate(); err != nil {
		return err
	}

	ctx, span := core.StartSpan(ctx, "counter.apply_paired",
		attribute.String("edge_table", w.Edge.Table),
		attribute.String("edge_id", w.Edge.ID),
		attribute.String("mode", w.Edge.Mode.String()),
	)
	defer span.End()

	err := p.store.RunInTx(ctx, func(tx Tx) error {
		exists, err := tx.EdgeExists(ctx, w.Edge.Table, w.Edge.ID)
		if err != nil {
			return err
		}

		switch w.Edge.Mode {
		case CreateEdge:
			if exists {
				return ErrEdgeExists
			}
			values := make(map[string]any, len(w.Edge.Values)+1)
			for k, v := range w.Edge.Values {
				values[k] = v
			}
			values["id"] = w.Edge.ID
			if err := tx.InsertEdge(ctx, w.Edge.Table, values); err != nil {
				return err
			}
		case DeleteEdge:
			if !exists {
				return ErrEdgeMissing
			}
			n, err := tx.DeleteEdge(ctx, w.Edge.Table, w.Edge.ID)
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrEdgeMissing
			}
		}

		if err := tx.AddToCounter(ctx, w.A); err != nil {
			return err
		}
		return tx.AddToCounter(ctx, w.B)
	})
	if err != nil {
		if !errors.Is(err, ErrEdgeExists) && !errors.Is(err, ErrEdgeMissing) {
			core.SetSpanError(ctx, err)
		}
		return fmt.Errorf("apply paired: %w", err)
	}

	return nil
}

func (w PairedWrite) validate() error {
	if w.Edge.Table == "" || w.Edge.ID == "" {
		return fmt.Errorf("apply paired: edge table and id required: %w", core.ErrInvalidInput)
	}
	if w.Edge.Mode != CreateEdge && w.Edge.Mode != DeleteEdge {
		return fmt.Errorf("apply paired: unknown edge mode: %w", core.ErrInvalidInput)
	}
	for _, c := range []Counter{w.A, w.B} {
		if c.Table == "" || c.KeyColumn == "" || c.Key == "" || c.Field == "" {
			return fmt.Errorf("apply paired: incomplete counter: %w", core.ErrInvalidInput)
		}
	}
	return nil
}
