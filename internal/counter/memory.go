// AngelaMos | 2026
// memory.go

package counter

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/carterperez-dev/templates/collab-backend/internal/core"
)

type memoryState struct {
	edges    map[string]map[string]map[string]any
	counters map[string]map[string]map[string]int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		edges:    make(map[string]map[string]map[string]any, len(s.edges)),
		counters: make(map[string]map[string]map[string]int64, len(s.counters)),
	}
	for table, rows := range s.edges {
		out.edges[table] = maps.Clone(rows)
	}
	for table, rows := range s.counters {
		cp := make(map[string]map[string]int64, len(rows))
		for key, fields := range rows {
			cp[key] = maps.Clone(fields)
		}
		out.counters[table] = cp
	}
	return out
}

// MemoryStore is a Store held in process memory. Transactions run one at a
// time against a copy of the state that replaces it on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			edges:    make(map[string]map[string]map[string]any),
			counters: make(map[string]map[string]map[string]int64),
		},
	}
}

func (m *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.state.clone()
	if err := fn(&memoryTx{state: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// AddCounterRow creates a zeroed counter row, like inserting the stats row
// when an account is created.
func (m *MemoryStore) AddCounterRow(table, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.counters[table] == nil {
		m.state.counters[table] = make(map[string]map[string]int64)
	}
	if _, ok := m.state.counters[table][key]; !ok {
		m.state.counters[table][key] = make(map[string]int64)
	}
}

func (m *MemoryStore) CounterValue(table, key, field string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.counters[table][key][field]
}

func (m *MemoryStore) Edges(table string) map[string]map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]any, len(m.state.edges[table]))
	for id, values := range m.state.edges[table] {
		out[id] = maps.Clone(values)
	}
	return out
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) EdgeExists(_ context.Context, table, id string) (bool, error) {
	_, ok := t.state.edges[table][id]
	return ok, nil
}

func (t *memoryTx) InsertEdge(_ context.Context, table string, values map[string]any) error {
	id, _ := values["id"].(string)
	if t.state.edges[table] == nil {
		t.state.edges[table] = make(map[string]map[string]any)
	}
	if _, ok := t.state.edges[table][id]; ok {
		return ErrEdgeExists
	}
	t.state.edges[table][id] = maps.Clone(values)
	return nil
}

func (t *memoryTx) DeleteEdge(_ context.Context, table, id string) (int64, error) {
	if _, ok := t.state.edges[table][id]; !ok {
		return 0, nil
	}
	delete(t.state.edges[table], id)
	return 1, nil
}

func (t *memoryTx) AddToCounter(_ context.Context, c Counter) error {
	fields, ok := t.state.counters[c.Table][c.Key]
	if !ok {
		return fmt.Errorf("update counter %s %s: %w", c.Table, c.Key, core.ErrNotFound)
	}
	next := fields[c.Field] + c.Delta
	if next < 0 {
		return fmt.Errorf("update counter %s.%s below zero: %w", c.Table, c.Field, core.ErrConflict)
	}
	fields[c.Field] = next
	return nil
}
