package store

import (
	"context"

	"fintrack/internal/core"
)

// Transactions owns the transaction collection.
type Transactions struct {
	*Collection[core.Transaction]
	env env
}

// Add assigns an id and creation time, validates and appends t.
func (s *Transactions) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = s.env.newID()
	t.CreatedAt = s.env.now()
	t.UpdatedAt = nil
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := s.mutate(ctx, OpAdd, t.ID, func(items []core.Transaction) ([]core.Transaction, error) {
		return append(items, t), nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Update applies patch to the transaction with the given id.
func (s *Transactions) Update(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	return s.update(ctx, id, func(t core.Transaction) (core.Transaction, error) {
		next := patch.Apply(t)
		if err := next.Validate(); err != nil {
			return t, err
		}
		now := s.env.now()
		next.UpdatedAt = &now
		return next, nil
	})
}

func (s *Transactions) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}
