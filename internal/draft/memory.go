package draft

import (
	"context"
	"time"

	"github.com/debemdeboas/feedback-board/internal/cache"
)

type memoryKey struct {
	sessionID string
	key       string
}

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryStore keeps drafts in process memory. Drafts are lost on restart.
type MemoryStore struct {
	entries *cache.Cache[memoryKey, memoryEntry]
	maxAge  time.Duration
	now     func() time.Time
}

func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &MemoryStore{
		entries: cache.NewCache[memoryKey, memoryEntry](),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, bool, error) {
	e, ok := m.entries.Get(memoryKey{sessionID, key})
	if !ok || m.now().Sub(e.updatedAt) > m.maxAge {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.entries.Set(memoryKey{sessionID, key}, memoryEntry{value: value, updatedAt: m.now()})
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, sessionID string, keys ...string) error {
	for _, key := range keys {
		m.entries.Delete(memoryKey{sessionID, key})
	}
	return nil
}

func (m *MemoryStore) Prune(_ context.Context, maxAge time.Duration) (int64, error) {
	cutoff := m.now().Add(-maxAge)
	n := m.entries.DeleteFunc(func(_ memoryKey, e memoryEntry) bool {
		return e.updatedAt.Before(cutoff)
	})
	return int64(n), nil
}

func (m *MemoryStore) Len() int {
	return m.entries.Len()
}
