package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/trendgate/trendgate/internal/domain"
	"github.com/trendgate/trendgate/internal/position"
)

// NewMemoryStore returns a Store backed by process memory. It satisfies the
// same contracts as the Postgres store, so the watcher runs unchanged when no
// database is configured.
func NewMemoryStore() *Store {
	return &Store{
		Signals:   &memorySignals{byID: make(map[string]domain.Signal)},
		Positions: &memoryPositions{byID: make(map[string]position.Position)},
		Events:    &memoryEvents{byPosition: make(map[string][]position.LifecycleEvent)},
	}
}

type memorySignals struct {
	mu   sync.RWMutex
	byID map[string]domain.Signal
	ids  []string
}

func (m *memorySignals) Insert(_ context.Context, sig *domain.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[sig.ID]; ok {
		return fmt.Errorf("duplicate signal id %s", sig.ID)
	}
	m.byID[sig.ID] = *sig
	m.ids = append(m.ids, sig.ID)
	return nil
}

func (m *memorySignals) ListRecent(_ context.Context, limit int) ([]domain.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Signal, 0, limit)
	for i := len(m.ids) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.byID[m.ids[i]])
	}
	return out, nil
}

type memoryPositions struct {
	mu   sync.RWMutex
	byID map[string]position.Position
}

func (m *memoryPositions) Insert(_ context.Context, p *position.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; ok {
		return fmt.Errorf("duplicate position id %s", p.ID)
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memoryPositions) Update(_ context.Context, p *position.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return fmt.Errorf("unknown position id %s", p.ID)
	}
	m.byID[p.ID] = *p
	return nil
}

func (m *memoryPositions) Get(_ context.Context, id string) (*position.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown position id %s", id)
	}
	return &p, nil
}

func (m *memoryPositions) ListOpen(_ context.Context) ([]*position.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*position.Position
	for _, p := range m.byID {
		if p.Terminal() {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type memoryEvents struct {
	mu         sync.RWMutex
	byPosition map[string][]position.LifecycleEvent
}

func (m *memoryEvents) Append(_ context.Context, ev position.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byPosition[ev.PositionID] = append(m.byPosition[ev.PositionID], ev)
	return nil
}

func (m *memoryEvents) ListByPosition(_ context.Context, positionID string) ([]position.LifecycleEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := m.byPosition[positionID]
	out := make([]position.LifecycleEvent, len(events))
	copy(out, events)
	return out, nil
}
