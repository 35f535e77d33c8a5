package syncing

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/vfg2006/ad-performance-sync/internal/domain"
)

// memoryStore reproduz a semântica transacional de ReplaceWindow do repositório Postgres.
type memoryStore struct {
	mu          sync.Mutex
	records     map[string]map[recordKey]domain.PerformanceRecord
	states      map[string]domain.SyncState
	failOnBatch int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		records:     make(map[string]map[recordKey]domain.PerformanceRecord),
		states:      make(map[string]domain.SyncState),
		failOnBatch: -1,
	}
}

func (s *memoryStore) CountByAccount(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records[accountID])), nil
}

func (s *memoryStore) ReplaceWindow(_ context.Context, accountID string, window domain.DateWindow, batches [][]*domain.PerformanceRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[recordKey]domain.PerformanceRecord)
	for k, v := range s.records[accountID] {
		if !window.Contains(k.date) {
			next[k] = v
		}
	}

	written := 0
	for i, batch := range batches {
		if i == s.failOnBatch {
			return 0, errors.New("falha simulada no lote")
		}
		for _, r := range batch {
			key := recordKey{adID: r.AdID, date: r.Date}
			if _, dup := next[key]; dup {
				return 0, errors.New("chave duplicada")
			}
			next[key] = *r
			written++
		}
	}

	s.records[accountID] = next
	return written, nil
}

func (s *memoryStore) GetSyncState(_ context.Context, accountID string) (*domain.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[accountID]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *memoryStore) SaveSyncState(_ context.Context, state *domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.AccountID] = *state
	return nil
}

func (s *memoryStore) snapshot(accountID string) []domain.PerformanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.PerformanceRecord, 0, len(s.records[accountID]))
	for _, r := range s.records[accountID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AdID != out[j].AdID {
			return out[i].AdID < out[j].AdID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
