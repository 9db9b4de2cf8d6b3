package cache

import (
	"strconv"
	"time"

	"fintrack/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Memo caches values derived from a versioned source. A value computed for
// one version is never returned for another, so no explicit invalidation is
// needed when the source changes.
type Memo[T any] struct {
	lru *LRUCache[T]
}

// NewMemo keeps up to size derived values.
func NewMemo[T any](size int, ttl time.Duration) *Memo[T] {
	return &Memo[T]{lru: NewLRUCache[T](size, ttl)}
}

// Get returns the value for key at version, calling compute on a miss.
func (m *Memo[T]) Get(key string, version uint64, compute func() T) T {
	k := key + "@" + strconv.FormatUint(version, 10)
	if v, ok := m.lru.Get(k); ok {
		return v
	}
	v := compute()
	m.lru.Set(k, v)
	return v
}

func (m *Memo[T]) CleanExpired() int { return m.lru.CleanExpired() }

func (m *Memo[T]) Stats() Stats { return m.lru.Stats() }

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanAll runs one cleanup pass and returns the number of removed entries.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop gracefully stops the cleanup routine. It must follow StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
