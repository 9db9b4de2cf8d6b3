package memory

import (
	"context"
	"sort"
	"sync"

	"fintrack/internal/storage"
)

// KV keeps slots in memory.
type KV struct {
	mu     sync.Mutex
	slots  map[string][]byte
	closed bool
}

var _ storage.KV = (*KV)(nil)

func New() *KV {
	return &KV{slots: map[string][]byte{}}
}

// NewWithSlots returns a store pre-filled with raw slot contents.
func NewWithSlots(slots map[string]string) *KV {
	kv := New()
	for k, v := range slots {
		kv.slots[k] = []byte(v)
	}
	return kv
}

func (s *KV) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	v, ok := s.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *KV) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.slots[key] = append([]byte(nil), value...)
	return nil
}

func (s *KV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	delete(s.slots, key)
	return nil
}

// Keys returns the sorted slot keys.
func (s *KV) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *KV) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
