package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var (
	_ ports.TransactionExporter = (*Store)(nil)
	_ ports.ExportedLister      = (*Store)(nil)
)

// Store keeps exported transactions in memory. Exporting an id twice
// overwrites the earlier row, like a redelivered message would.
type Store struct {
	mu    sync.Mutex
	items []core.Transaction
	index map[string]int
}

func New() *Store {
	return &Store{index: map[string]int{}}
}

// Export stores the transaction and returns a synthetic row reference.
func (s *Store) Export(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", fmt.Errorf("export: missing transaction id")
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[t.ID]; ok {
		s.items[i] = t
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.items = append(s.items, t)
	s.index[t.ID] = len(s.items) - 1
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) ListExported(_ context.Context, year int, month int) ([]core.Transaction, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.items {
		if t.Date.Year() == year && t.Date.Month() == time.Month(month) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Exported returns every stored transaction in export order.
func (s *Store) Exported() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}
