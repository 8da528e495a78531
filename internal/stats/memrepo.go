package stats

import (
	"context"
	"sync"
)

// memrepo backs the service when no database is configured.
type memrepo struct {
	mu      sync.RWMutex
	stats   map[string]PlayerStats
	results map[string]GameResult
}

func NewMemoryRepository() Repository {
	return &memrepo{
		stats:   make(map[string]PlayerStats),
		results: make(map[string]GameResult),
	}
}

func (m *memrepo) GetStats(_ context.Context, player string) (*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.stats[player]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memrepo) UpsertStats(_ context.Context, p *PlayerStats) error {
	if p == nil {
		return nil
	}
	m.mu.Lock()
	m.stats[p.Player] = *p
	m.mu.Unlock()
	return nil
}

func (m *memrepo) ListStats(_ context.Context) ([]*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*PlayerStats, 0, len(m.stats))
	for _, p := range m.stats {
		if p.TotalGames == 0 {
			continue
		}
		cp := p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memrepo) SaveResult(_ context.Context, g *GameResult) error {
	if g == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[g.GameID]; !ok {
		m.results[g.GameID] = *g
	}
	return nil
}
