// Package memory holds a bounded in-memory history store, used when no
// MongoDB instance is configured. Entries are lost on restart.
package memory

import (
	"container/list"
	"context"
	"sync"

	"clipstream/internal/domain"
)

const defaultMaxEntries = 256

// HistoryStore keeps the most recent finished-task records in memory. The
// oldest entries are evicted once maxEntries is exceeded.
type HistoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*list.Element
	order      *list.List // front = most recent
	maxEntries int
}

func NewHistoryStore(maxEntries int) *HistoryStore {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &HistoryStore{
		byID:       make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (s *HistoryStore) Insert(ctx context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.byID[entry.TaskID]; ok {
		elem.Value = entry
		s.order.MoveToFront(elem)
		return nil
	}

	s.byID[entry.TaskID] = s.order.PushFront(entry)
	for s.order.Len() > s.maxEntries {
		back := s.order.Back()
		if back == nil {
			break
		}
		evicted := back.Value.(domain.HistoryEntry)
		s.order.Remove(back)
		delete(s.byID, evicted.TaskID)
	}
	return nil
}

func (s *HistoryStore) Get(ctx context.Context, taskID string) (domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.byID[taskID]
	if !ok {
		return domain.HistoryEntry{}, domain.ErrNotFound
	}
	return elem.Value.(domain.HistoryEntry), nil
}

func (s *HistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.HistoryEntry, 0, limit)
	for elem := s.order.Front(); elem != nil && len(entries) < limit; elem = elem.Next() {
		entries = append(entries, elem.Value.(domain.HistoryEntry))
	}
	return entries, nil
}
