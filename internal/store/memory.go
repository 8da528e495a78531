package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anikeaty08/linera-game/internal/game"
)

// MemoryStore is a process-local Store. Records are kept encoded so
// callers never share state with the store.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[string][]byte
	idx  map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string][]byte), idx: make(map[string]map[string]struct{})}
}

func (m *MemoryStore) Create(_ context.Context, rec *game.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	return m.putLocked(rec)
}

func (m *MemoryStore) Load(_ context.Context, id string) (*game.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(rec *game.Record) (bool, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.getLocked(id)
	if err != nil {
		return err
	}
	changed, err := fn(rec)
	if err != nil || !changed {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	return m.putLocked(rec)
}

func (m *MemoryStore) ListBySeat(_ context.Context, actor string) ([]*game.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*game.Record
	for id := range m.idx[actor] {
		rec, err := m.getLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecent(out)
	return out, nil
}

func (m *MemoryStore) getLocked(id string) (*game.Record, error) {
	raw, ok := m.recs[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return decode(raw)
}

func (m *MemoryStore) putLocked(rec *game.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	m.recs[rec.ID] = raw
	for _, seat := range uniqueSeats(rec) {
		if m.idx[seat] == nil {
			m.idx[seat] = make(map[string]struct{})
		}
		m.idx[seat][rec.ID] = struct{}{}
	}
	return nil
}
