package storage

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/xaenox/mind-bot/internal/models"
)

// DefaultSeenIDs bounds how many recent exchange ids MemoryStorage remembers for
// deduplication.
const DefaultSeenIDs = 4096

// MemoryStorage keeps only per-tag counts plus a bounded window of recently seen
// exchange ids, so memory stays flat however long the process runs. A duplicate
// id older than the window is counted again.
type MemoryStorage struct {
	mu        sync.RWMutex
	seen      *lru.Cache[string, struct{}]
	tagCounts map[string]int64
}

func NewMemoryStorage() *MemoryStorage {
	s, err := NewMemoryStorageWithWindow(DefaultSeenIDs)
	if err != nil {
		panic(err)
	}
	return s
}

// NewMemoryStorageWithWindow remembers the last window exchange ids.
func NewMemoryStorageWithWindow(window int) (*MemoryStorage, error) {
	seen, err := lru.New[string, struct{}](window)
	if err != nil {
		return nil, fmt.Errorf("create seen-id window: %w", err)
	}
	return &MemoryStorage{
		seen:      seen,
		tagCounts: make(map[string]int64),
	}, nil
}

func (s *MemoryStorage) SaveExchange(ctx context.Context, exchange *models.Exchange) error {
	if err := validateExchange(exchange); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Saving the same id twice must not count it twice
	if found, _ := s.seen.ContainsOrAdd(exchange.ID, struct{}{}); found {
		return nil
	}
	s.tagCounts[exchange.Tag]++
	return nil
}

func (s *MemoryStorage) TagCounts(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.tagCounts))
	for tag, n := range s.tagCounts {
		counts[tag] = n
	}
	return counts, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
