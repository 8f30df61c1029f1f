package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/feature-store/pkg/feature"
)

// Memory is a process-local Registry. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	byName map[string]feature.Definition
	nextID int64
	closed bool
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{byName: make(map[string]feature.Definition)}
}

func (m *Memory) FindByName(ctx context.Context, name string) (feature.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx, "catalog find"); err != nil {
		return feature.Definition{}, err
	}
	d, ok := m.byName[name]
	if !ok {
		return feature.Definition{}, feature.NotFoundf("catalog find", "Feature '%s' not found", name)
	}
	return d, nil
}

func (m *Memory) List(ctx context.Context) ([]feature.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx, "catalog list"); err != nil {
		return nil, err
	}
	defs := make([]feature.Definition, 0, len(m.byName))
	for _, d := range m.byName {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

func (m *Memory) Create(ctx context.Context, d feature.Definition) (feature.Definition, error) {
	d, err := prepare(d, time.Now())
	if err != nil {
		return feature.Definition{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, "catalog create"); err != nil {
		return feature.Definition{}, err
	}
	if _, ok := m.byName[d.Name]; ok {
		return feature.Definition{}, duplicate("catalog create", d.Name)
	}
	m.nextID++
	d.ID = m.nextID
	m.byName[d.Name] = d
	return d, nil
}

func (m *Memory) DeleteByID(ctx context.Context, id int64) (feature.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, "catalog delete"); err != nil {
		return feature.Definition{}, err
	}
	for name, d := range m.byName {
		if d.ID == id {
			delete(m.byName, name)
			return d, nil
		}
	}
	return feature.Definition{}, notFound("catalog delete")
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.check(ctx, "catalog ping")
}

// Close marks the registry closed; later calls fail as unavailable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Memory) check(ctx context.Context, op string) error {
	if m.closed {
		return feature.Unavailable(op, errClosed)
	}
	if err := ctx.Err(); err != nil {
		return feature.Unavailable(op, err)
	}
	return nil
}
