// Package storage persists collection snapshots in named slots.
//
// Each slot holds the whole serialized collection and is replaced on every
// write, so a slot is always either the previous or the next snapshot.
package storage

import (
	"context"
	"errors"
)

// Slot keys of the persisted collections.
const (
	KeyTransactions  = "transactions"
	KeyGoals         = "goals"
	KeyCryptoAssets  = "crypto_assets"
	KeyNotifications = "notifications"
	KeySettings      = "settings"
	KeyProfile       = "profile"
	KeyTheme         = "theme"
	KeyUsers         = "users"
)

var ErrClosed = errors.New("storage closed")

// KV is a single-writer key-value store with snapshot semantics.
type KV interface {
	// Load returns the slot content. ok is false when the slot is empty.
	Load(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Save replaces the slot content atomically.
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// SubscriptionKey is the slot holding the subscription of one user.
func SubscriptionKey(userID string) string {
	return "subscription:" + userID
}
