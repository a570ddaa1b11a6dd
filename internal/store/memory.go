package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/quizhub/internal/domain"
)

type Memory struct {
	mu    sync.RWMutex
	games map[domain.GameID]domain.GameRecord
}

func NewMemory() *Memory {
	return &Memory{games: make(map[domain.GameID]domain.GameRecord)}
}

func (m *Memory) NewGame(_ context.Context, id domain.GameID, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; ok && !force {
		return domain.ErrGameExists
	}
	m.games[id] = domain.GameRecord{ID: id}
	return nil
}

func (m *Memory) StoreGame(_ context.Context, rec domain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[rec.ID] = rec
	return nil
}

func (m *Memory) RemoveGame(_ context.Context, id domain.GameID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return domain.ErrGameNotFound
	}
	delete(m.games, id)
	return nil
}

func (m *Memory) RetrieveGame(_ context.Context, id domain.GameID) (domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.GameRecord{}, domain.ErrGameNotFound
	}
	return rec, nil
}

// ListGames returns records ordered by id.
func (m *Memory) ListGames(_ context.Context) ([]domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.SortedFunc(maps.Values(m.games), func(a, b domain.GameRecord) int {
		return strings.Compare(string(a.ID), string(b.ID))
	}), nil
}

func (m *Memory) Close(context.Context) error { return nil }
