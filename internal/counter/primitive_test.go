// AngelaMos | 2026
// primitive_test.go

package counter

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

const (
	statsTable = "stats"
	edgeTable  = "links"
)

func link(from, to string, mode EdgeMode) PairedWrite {
	return PairedWrite{
		Edge: Edge{
			Table:  edgeTable,
			ID:     from + "_" + to,
			Values: map[string]any{"from_id": from, "to_id": to},
			Mode:   mode,
		},
		A: Counter{Table: statsTable, KeyColumn: "user_id", Key: from, Field: "out", Delta: delta(mode)},
		B: Counter{Table: statsTable, KeyColumn: "user_id", Key: to, Field: "in", Delta: delta(mode)},
	}
}

func delta(mode EdgeMode) int64 {
	if mode == DeleteEdge {
		return -1
	}
	return 1
}

func newStore(users ...string) *MemoryStore {
	s := NewMemoryStore()
	for _, u := range users {
		s.AddCounterRow(statsTable, u)
	}
	return s
}

func TestApplyPaired_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore("a", "b")
	p := New(store)

	require.NoError(t, p.ApplyPaired(ctx, link("a", "b", CreateEdge)))
	assert.Equal(t, int64(1), store.CounterValue(statsTable, "a", "out"))
	assert.Equal(t, int64(1), store.CounterValue(statsTable, "b", "in"))

	edges := store.Edges(edgeTable)
	require.Contains(t, edges, "a_b")
	assert.Equal(t, "a_b", edges["a_b"]["id"])

	require.NoError(t, p.ApplyPaired(ctx, link("a", "b", DeleteEdge)))
	assert.Zero(t, store.CounterValue(statsTable, "a", "out"))
	assert.Zero(t, store.CounterValue(statsTable, "b", "in"))
	assert.Empty(t, store.Edges(edgeTable))
}

func TestApplyPaired_GuardFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate create leaves counters untouched", func(t *testing.T) {
		store := newStore("a", "b")
		p := New(store)

		require.NoError(t, p.ApplyPaired(ctx, link("a", "b", CreateEdge)))
		err := p.ApplyPaired(ctx, link("a", "b", CreateEdge))

		require.ErrorIs(t, err, ErrEdgeExists)
		assert.Equal(t, int64(1), store.CounterValue(statsTable, "a", "out"))
		assert.Equal(t, int64(1), store.CounterValue(statsTable, "b", "in"))
	})

	t.Run("delete of missing edge", func(t *testing.T) {
		store := newStore("a", "b")
		err := New(store).ApplyPaired(ctx, link("a", "b", DeleteEdge))

		require.ErrorIs(t, err, ErrEdgeMissing)
		assert.Zero(t, store.CounterValue(statsTable, "a", "out"))
	})

	t.Run("missing counter row rolls back the edge", func(t *testing.T) {
		store := newStore("a")
		err := New(store).ApplyPaired(ctx, link("a", "ghost", CreateEdge))

		require.ErrorIs(t, err, core.ErrNotFound)
		assert.Empty(t, store.Edges(edgeTable))
		assert.Zero(t, store.CounterValue(statsTable, "a", "out"))
	})

	t.Run("incomplete write is rejected", func(t *testing.T) {
		w := link("a", "b", CreateEdge)
		w.B.Field = ""
		err := New(newStore("a", "b")).ApplyPaired(ctx, w)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestApplyPaired_ConcurrentInvariant(t *testing.T) {
	ctx := context.Background()
	users := []string{"u0", "u1", "u2", "u3", "u4", "u5"}
	store := newStore(users...)
	p := New(store)

	var wg sync.WaitGroup
	for worker := range 8 {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed*31+7))
			for range 200 {
				from := users[rng.IntN(len(users))]
				to := users[rng.IntN(len(users))]
				if from == to {
					continue
				}
				mode := CreateEdge
				if rng.IntN(2) == 0 {
					mode = DeleteEdge
				}
				_ = p.ApplyPaired(ctx, link(from, to, mode)) //nolint:errcheck // guard failures expected
			}
		}(uint64(worker) + 1)
	}
	wg.Wait()

	outByUser := make(map[string]int64)
	inByUser := make(map[string]int64)
	edges := store.Edges(edgeTable)
	for _, values := range edges {
		outByUser[values["from_id"].(string)]++
		inByUser[values["to_id"].(string)]++
	}

	var outSum, inSum int64
	for _, u := range users {
		out := store.CounterValue(statsTable, u, "out")
		in := store.CounterValue(statsTable, u, "in")
		assert.Equal(t, outByUser[u], out, fmt.Sprintf("out count for %s", u))
		assert.Equal(t, inByUser[u], in, fmt.Sprintf("in count for %s", u))
		outSum += out
		inSum += in
	}
	assert.Equal(t, int64(len(edges)), outSum)
	assert.Equal(t, outSum, inSum)
}
