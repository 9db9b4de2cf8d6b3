package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Value is a persisted single record such as settings or the theme.
type Value[T any] struct {
	notifier

	mu       sync.RWMutex
	kv       storage.KV
	key      string
	value    T
	version  uint64
	validate func(*T) error
	clone    func(T) T
}

type valueConfig[T any] struct {
	kv       storage.KV
	key      string
	initial  func() T
	validate func(*T) error
	// clone deep-copies values holding maps or slices so callers cannot
	// mutate the current value.
	clone  func(T) T
	logger *log.Logger
}

// loadValue reads the slot, falling back to the initial value when the slot
// is empty or malformed.
func loadValue[T any](ctx context.Context, cfg valueConfig[T]) (*Value[T], error) {
	v := &Value[T]{kv: cfg.kv, key: cfg.key, validate: cfg.validate, clone: cfg.clone, value: cfg.initial()}

	raw, ok, err := cfg.kv.Load(ctx, cfg.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.key, err)
	}
	if ok {
		var decoded T
		err := json.Unmarshal(raw, &decoded)
		if err == nil && cfg.validate != nil {
			err = cfg.validate(&decoded)
		}
		if err != nil {
			cfg.logger.Warn("Discarding malformed snapshot", log.FieldKey, cfg.key, log.FieldError, err)
		} else {
			v.value = decoded
		}
	}
	return v, nil
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.copy(v.value)
}

func (v *Value[T]) copy(t T) T {
	if v.clone == nil {
		return t
	}
	return v.clone(t)
}

func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

func (v *Value[T]) Subscribe(fn func(Change)) (unsubscribe func()) {
	return v.subscribe(fn)
}

// Set validates and persists next, then makes it current.
func (v *Value[T]) Set(ctx context.Context, next T) (T, error) {
	next = v.copy(next)
	if v.validate != nil {
		if err := v.validate(&next); err != nil {
			return next, err
		}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return next, fmt.Errorf("encode %s: %w", v.key, err)
	}

	v.mu.Lock()
	if err := v.kv.Save(ctx, v.key, raw); err != nil {
		v.mu.Unlock()
		return next, fmt.Errorf("save %s: %w", v.key, err)
	}
	v.value = v.copy(next)
	v.version++
	change := Change{Key: v.key, Op: OpUpdate, Version: v.version}
	v.mu.Unlock()

	v.notify(change)
	return next, nil
}
