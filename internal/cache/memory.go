package cache

import (
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the in-process level. Values are held as JSON so readers
// never share memory with the writer.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	tags  map[string]map[string]struct{}
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryEntry),
		tags:  make(map[string]map[string]struct{}),
		now:   time.Now,
	}
}

func (m *MemoryCache) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	m.setRaw(key, data, ttl)
	return nil
}

func (m *MemoryCache) setRaw(key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryEntry{data: data, expiresAt: m.now().Add(ttl)}
}

func (m *MemoryCache) Get(key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(entry.expiresAt) {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return nil
}

func (m *MemoryCache) Delete(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
}

// DeletePattern accepts the same '*' and '?' globs as Redis.
func (m *MemoryCache) DeletePattern(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.items, key)
		}
	}
}

func (m *MemoryCache) Tag(key string, tags ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		members, ok := m.tags[tag]
		if !ok {
			members = make(map[string]struct{})
			m.tags[tag] = members
		}
		members[key] = struct{}{}
	}
}

func (m *MemoryCache) InvalidateTag(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.items, key)
	}
	delete(m.tags, tag)
}

// Cleanup drops expired entries and returns how many were removed.
func (m *MemoryCache) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.items {
		if !now.Before(entry.expiresAt) {
			delete(m.items, key)
			removed++
		}
	}
	for tag, members := range m.tags {
		for key := range members {
			if _, ok := m.items[key]; !ok {
				delete(members, key)
			}
		}
		if len(members) == 0 {
			delete(m.tags, tag)
		}
	}
	return removed
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryCache) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"entries": len(m.items),
		"tags":    len(m.tags),
	}
}
