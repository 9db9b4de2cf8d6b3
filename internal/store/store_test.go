package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func testOptions(seed bool) Options {
	var n atomic.Int64
	return Options{
		Seed:  seed,
		Now:   func() time.Time { return testNow },
		NewID: func() string { return fmt.Sprintf("id-%d", n.Add(1)) },
	}
}

// flakyKV fails saves while failSaves is set.
type flakyKV struct {
	*memory.KV
	failSaves atomic.Bool
}

func (f *flakyKV) Save(ctx context.Context, key string, value []byte) error {
	if f.failSaves.Load() {
		return errors.New("disk full")
	}
	return f.KV.Save(ctx, key, value)
}

func openEmpty(t *testing.T) (*Set, *memory.KV) {
	t.Helper()
	kv := memory.New()
	set, err := Open(context.Background(), kv, testOptions(false))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return set, kv
}

func TestOpenSeedsEmptySlots(t *testing.T) {
	kv := memory.New()
	set, err := Open(context.Background(), kv, testOptions(true))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if set.Transactions.Len() == 0 || set.Goals.Len() == 0 || set.Crypto.Len() == 0 {
		t.Fatal("expected sample records in every collection")
	}
	if set.Profile.Get().Name == "" {
		t.Fatal("expected sample profile")
	}
	if _, ok, _ := kv.Load(context.Background(), storage.KeyTransactions); !ok {
		t.Fatal("seed should be persisted")
	}

	// A second open reads the persisted seed instead of seeding again.
	again, err := Open(context.Background(), kv, testOptions(true))
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if again.Transactions.List()[0].ID != set.Transactions.List()[0].ID {
		t.Fatal("reopen produced a different snapshot")
	}
}

func TestOpenMalformedSnapshotFallsBack(t *testing.T) {
	kv := memory.NewWithSlots(map[string]string{
		storage.KeyTransactions: `{not json`,
		storage.KeyGoals:        `[{"id": 5}]`,
		storage.KeySettings:     `"oops"`,
		storage.KeyTheme:        `42`,
	})
	set, err := Open(context.Background(), kv, testOptions(true))
	if err != nil {
		t.Fatalf("malformed snapshots must not fail Open: %v", err)
	}
	if set.Transactions.Len() != 0 {
		t.Fatalf("expected empty transactions, got %d", set.Transactions.Len())
	}
	if set.Goals.Len() != 0 {
		t.Fatalf("expected empty goals, got %d", set.Goals.Len())
	}
	if set.Settings.Get().Currency != core.DefaultCurrency {
		t.Fatalf("expected default settings, got %+v", set.Settings.Get())
	}
	if set.Theme.Get() != core.ThemeSystem {
		t.Fatalf("expected default theme, got %q", set.Theme.Get())
	}
}

func TestNotificationRetentionOnLoad(t *testing.T) {
	old := core.Notification{ID: "old", Type: core.NotificationInfo, Title: "old", CreatedAt: testNow.Add(-8 * 24 * time.Hour)}
	edge := core.Notification{ID: "edge", Type: core.NotificationInfo, Title: "edge", CreatedAt: testNow.Add(-NotificationRetention)}
	fresh := core.Notification{ID: "fresh", Type: core.NotificationInfo, Title: "fresh", CreatedAt: testNow.Add(-time.Hour)}
	raw, _ := json.Marshal([]core.Notification{fresh, edge, old})

	kv := memory.NewWithSlots(map[string]string{storage.KeyNotifications: string(raw)})
	set, err := Open(context.Background(), kv, testOptions(false))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	got := set.Notifications.List()
	if len(got) != 2 || got[0].ID != "fresh" || got[1].ID != "edge" {
		t.Fatalf("unexpected notifications after retention: %+v", got)
	}

	persisted, _, _ := kv.Load(context.Background(), storage.KeyNotifications)
	var stored []core.Notification
	if err := json.Unmarshal(persisted, &stored); err != nil || len(stored) != 2 {
		t.Fatalf("pruned snapshot not persisted: %s", persisted)
	}
}

func TestTransactionsCRUD(t *testing.T) {
	ctx := context.Background()
	set, kv := openEmpty(t)
	s := set.Transactions

	added, err := s.Add(ctx, core.Transaction{
		Type: core.Expense, Category: "food", Amount: decimal.NewFromInt(12), Description: "lunch", Date: core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID == "" || !added.CreatedAt.Equal(testNow) {
		t.Fatalf("id/createdAt not assigned: %+v", added)
	}

	desc := "team lunch"
	updated, err := s.Update(ctx, added.ID, core.TransactionPatch{Description: &desc})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Description != desc || updated.UpdatedAt == nil || updated.ID != added.ID {
		t.Fatalf("unexpected update result %+v", updated)
	}

	bad := core.TransactionType("transfer")
	if _, err := s.Update(ctx, added.ID, core.TransactionPatch{Type: &bad}); !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := s.Get(added.ID); got.Type != core.Expense {
		t.Fatal("failed update changed the record")
	}

	if _, err := s.Update(ctx, "missing", core.TransactionPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, added.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, added.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}

	raw, _, _ := kv.Load(ctx, storage.KeyTransactions)
	if string(raw) != "[]" {
		t.Fatalf("persisted snapshot = %s, want []", raw)
	}
}

func TestFailedSaveKeepsState(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{KV: memory.New()}
	set, err := Open(ctx, kv, testOptions(false))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	kv.failSaves.Store(true)
	_, err = set.Transactions.Add(ctx, core.Transaction{
		Type: core.Income, Category: "salary", Amount: decimal.NewFromInt(1), Description: "pay", Date: testNow,
	})
	if err == nil {
		t.Fatal("expected save error")
	}
	if set.Transactions.Len() != 0 || set.Transactions.Version() != 0 {
		t.Fatal("failed save must not change the snapshot")
	}
	if _, err := set.Theme.Set(ctx, core.ThemeDark); err == nil {
		t.Fatal("expected save error for theme")
	}
	if set.Theme.Get() != core.ThemeSystem {
		t.Fatal("failed theme save changed the value")
	}
}

func TestSubscribeAndVersion(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)

	var changes []Change
	unsubscribe := set.Goals.Subscribe(func(c Change) { changes = append(changes, c) })

	g, err := set.Goals.Add(ctx, core.Goal{
		Title: "Car", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.Zero, Deadline: core.NewDate(2025, 1, 1), Category: "savings",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(changes) != 1 || changes[0].Op != OpAdd || changes[0].ID != g.ID || changes[0].Version != 1 {
		t.Fatalf("unexpected changes %+v", changes)
	}

	unsubscribe()
	if err := set.Goals.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(changes) != 1 {
		t.Fatal("unsubscribed callback still invoked")
	}
	if set.Goals.Version() != 2 {
		t.Fatalf("version = %d, want 2", set.Goals.Version())
	}
}

func TestGoalContributions(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)

	g, err := set.Goals.Add(ctx, core.Goal{
		Title: "Trip", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.NewFromInt(100), Deadline: core.NewDate(2025, 1, 1), Category: "travel",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	before, after, err := set.Goals.AddContribution(ctx, g.ID, core.Contribution{Amount: decimal.NewFromInt(150), Note: "bonus"})
	if err != nil {
		t.Fatalf("AddContribution() error = %v", err)
	}
	if !before.CurrentAmount.Equal(decimal.NewFromInt(100)) || !after.CurrentAmount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected amounts before=%s after=%s", before.CurrentAmount, after.CurrentAmount)
	}
	if len(after.Contributions) != 1 || !after.Contributions[0].Date.Equal(testNow) || after.Contributions[0].ID == "" {
		t.Fatalf("unexpected contributions %+v", after.Contributions)
	}
	if len(before.Contributions) != 0 {
		t.Fatal("previous snapshot was mutated")
	}

	if _, _, err := set.Goals.AddContribution(ctx, g.ID, core.Contribution{Amount: decimal.Zero}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, _, err := set.Goals.AddContribution(ctx, "missing", core.Contribution{Amount: decimal.NewFromInt(1)}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationsLifecycle(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)
	s := set.Notifications

	first, _ := s.Add(ctx, core.Notification{Type: core.NotificationInfo, Title: "first"})
	second, _ := s.Add(ctx, core.Notification{Type: core.NotificationSuccess, Title: "second"})
	if list := s.List(); list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatal("expected newest first")
	}
	if s.UnreadCount() != 2 {
		t.Fatalf("unread = %d", s.UnreadCount())
	}
	if _, err := s.MarkRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if s.UnreadCount() != 1 {
		t.Fatalf("unread = %d after MarkRead", s.UnreadCount())
	}
	if err := s.MarkAllRead(ctx); err != nil || s.UnreadCount() != 0 {
		t.Fatalf("MarkAllRead() err=%v unread=%d", err, s.UnreadCount())
	}
	if err := s.Delete(ctx, first.ID); err != nil || s.Len() != 1 {
		t.Fatalf("Delete() err=%v len=%d", err, s.Len())
	}
	if err := s.Clear(ctx); err != nil || s.Len() != 0 {
		t.Fatalf("Clear() err=%v len=%d", err, s.Len())
	}
	if _, err := s.Add(ctx, core.Notification{Type: "loud", Title: "x"}); !errors.Is(err, core.ErrInvalidNotifyType) {
		t.Fatalf("expected ErrInvalidNotifyType, got %v", err)
	}
}

func TestNotificationsCapped(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)
	for i := 0; i < MaxNotifications+5; i++ {
		if _, err := set.Notifications.Add(ctx, core.Notification{Type: core.NotificationInfo, Title: fmt.Sprint(i)}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	list := set.Notifications.List()
	if len(list) != MaxNotifications || list[0].Title != fmt.Sprint(MaxNotifications+4) {
		t.Fatalf("expected the newest %d notifications, got %d starting with %q", MaxNotifications, len(list), list[0].Title)
	}
}

func TestCryptoSymbolsNormalized(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)
	a, err := set.Crypto.Add(ctx, core.CryptoAsset{Symbol: " btc ", Amount: decimal.NewFromInt(1), PurchasePrice: decimal.NewFromInt(10), PurchaseDate: testNow})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if a.Symbol != "BTC" {
		t.Fatalf("symbol = %q", a.Symbol)
	}
	set.Crypto.Add(ctx, core.CryptoAsset{Symbol: "BTC", Amount: decimal.NewFromInt(1), PurchasePrice: decimal.NewFromInt(12), PurchaseDate: testNow})
	if syms := set.Crypto.Symbols(); len(syms) != 1 || syms[0] != "BTC" {
		t.Fatalf("unexpected symbols %v", syms)
	}
}

func TestAddWithinRefusal(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)
	atMostOne := func(n int) bool { return n < 1 }
	goal := core.Goal{Title: "Car", TargetAmount: decimal.NewFromInt(100), Deadline: core.NewDate(2025, 1, 1), Category: "savings"}

	if _, err := set.Goals.AddWithin(ctx, goal, atMostOne); err != nil {
		t.Fatalf("first AddWithin() error = %v", err)
	}
	if _, err := set.Goals.AddWithin(ctx, goal, atMostOne); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if set.Goals.Len() != 1 || set.Goals.Version() != 1 {
		t.Fatalf("refused add changed the snapshot: len=%d version=%d", set.Goals.Len(), set.Goals.Version())
	}

	lot := core.CryptoAsset{Symbol: "btc", Amount: decimal.NewFromInt(1), PurchasePrice: decimal.NewFromInt(10), PurchaseDate: testNow}
	if _, err := set.Crypto.AddWithin(ctx, lot, atMostOne); err != nil {
		t.Fatalf("first AddWithin() error = %v", err)
	}
	if _, err := set.Crypto.AddWithin(ctx, lot, atMostOne); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestSettingsValidation(t *testing.T) {
	ctx := context.Background()
	set, _ := openEmpty(t)

	s := set.Settings.Get()
	s.Currency = "eur"
	saved, err := set.Settings.Set(ctx, s)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if saved.Currency != "EUR" || set.Settings.Get().Currency != "EUR" {
		t.Fatalf("currency not normalized: %+v", saved)
	}

	s.Language = "??"
	if _, err := set.Settings.Set(ctx, s); !errors.Is(err, core.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
	if _, err := set.Theme.Set(ctx, "neon"); !errors.Is(err, core.ErrInvalidTheme) {
		t.Fatalf("expected ErrInvalidTheme, got %v", err)
	}
}
