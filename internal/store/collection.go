// Package store holds the single source of truth for each persisted
// collection. Every write replaces the whole snapshot in its storage slot and
// then notifies subscribers. Derived statistics are never stored here.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var ErrNotFound = errors.New("record not found")

// ErrFull is returned when an add is refused by its admission check.
var ErrFull = errors.New("collection is full")

// Op names the kind of change that produced a new snapshot.
type Op string

const (
	OpLoad   Op = "load"
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpClear  Op = "clear"
)

// Change is delivered to subscribers after a snapshot was persisted.
type Change struct {
	Key     string
	Op      Op
	ID      string
	Version uint64
}

// notifier fans changes out to subscribers and tracks the version counter.
type notifier struct {
	mu      sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func (n *notifier) subscribe(fn func(Change)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(Change){}
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify(c Change) {
	n.mu.Lock()
	subs := make([]func(Change), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()
	for _, fn := range subs {
		fn(c)
	}
}

// Collection is a persisted, ordered list of records.
type Collection[T any] struct {
	notifier

	mu      sync.RWMutex
	kv      storage.KV
	key     string
	id      func(T) string
	items   []T
	version uint64
	logger  *log.Logger
}

type collectionConfig[T any] struct {
	kv     storage.KV
	key    string
	id     func(T) string
	seed   func() []T
	keep   func(T) bool
	logger *log.Logger
}

// loadCollection reads the slot. An empty slot is seeded and persisted, a
// malformed one falls back to an empty collection. keep, when set, drops
// records on load.
func loadCollection[T any](ctx context.Context, cfg collectionConfig[T]) (*Collection[T], error) {
	c := &Collection[T]{
		kv:     cfg.kv,
		key:    cfg.key,
		id:     cfg.id,
		logger: cfg.logger.With(log.FieldKey, cfg.key),
	}

	raw, ok, err := cfg.kv.Load(ctx, cfg.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.key, err)
	}

	persist := false
	switch {
	case !ok:
		if cfg.seed != nil {
			c.items = cfg.seed()
			persist = len(c.items) > 0
			c.logger.Info("Seeded empty collection", "count", len(c.items))
		}
	default:
		if err := json.Unmarshal(raw, &c.items); err != nil {
			c.logger.Warn("Discarding malformed snapshot", log.FieldError, err)
			c.items = nil
		}
	}

	if cfg.keep != nil {
		before := len(c.items)
		c.items = slices.DeleteFunc(c.items, func(item T) bool { return !cfg.keep(item) })
		if pruned := before - len(c.items); pruned > 0 {
			c.logger.Info("Pruned records on load", "count", pruned)
			persist = true
		}
	}
	if c.items == nil {
		c.items = []T{}
	}

	if persist {
		if err := c.save(ctx, c.items); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// List returns a copy of the current snapshot.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.items)
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Version increases with every persisted change.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribe registers fn for changes and returns a function removing it.
func (c *Collection[T]) Subscribe(fn func(Change)) (unsubscribe func()) {
	return c.subscribe(fn)
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(c.items, id); i >= 0 {
		return c.items[i], nil
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
}

func (c *Collection[T]) indexOf(items []T, id string) int {
	return slices.IndexFunc(items, func(item T) bool { return c.id(item) == id })
}

// mutate hands a copy of the snapshot to fn, persists the result and only
// then makes it current. A failed save leaves the current snapshot untouched.
func (c *Collection[T]) mutate(ctx context.Context, op Op, id string, fn func([]T) ([]T, error)) error {
	c.mu.Lock()
	next, err := fn(slices.Clone(c.items))
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.save(ctx, next); err != nil {
		c.mu.Unlock()
		return err
	}
	c.items = next
	c.version++
	change := Change{Key: c.key, Op: op, ID: id, Version: c.version}
	c.mu.Unlock()

	c.notify(change)
	return nil
}

// update replaces the record with the given id by fn's result.
func (c *Collection[T]) update(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	var updated T
	err := c.mutate(ctx, OpUpdate, id, func(items []T) ([]T, error) {
		i := c.indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
		}
		next, err := fn(items[i])
		if err != nil {
			return nil, err
		}
		items[i] = next
		updated = next
		return items, nil
	})
	return updated, err
}

// insert appends item if admit accepts the current record count. The count
// is read under the write lock, so concurrent adds cannot both pass a check
// meant for one. A nil admit accepts everything.
func (c *Collection[T]) insert(ctx context.Context, id string, item T, admit func(count int) bool) error {
	return c.mutate(ctx, OpAdd, id, func(items []T) ([]T, error) {
		if admit != nil && !admit(len(items)) {
			return nil, fmt.Errorf("%s: %w", c.key, ErrFull)
		}
		return append(items, item), nil
	})
}

func (c *Collection[T]) delete(ctx context.Context, id string) error {
	return c.mutate(ctx, OpDelete, id, func(items []T) ([]T, error) {
		i := c.indexOf(items, id)
		if i < 0 {
			return nil, fmt.Errorf("%s %q: %w", c.key, id, ErrNotFound)
		}
		return slices.Delete(items, i, i+1), nil
	})
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.kv.Save(ctx, c.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}
