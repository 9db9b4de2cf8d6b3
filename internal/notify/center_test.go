package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage/memory"
	"fintrack/internal/store"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*store.Set, *Center, *events.Bus) {
	t.Helper()
	set, err := store.Open(context.Background(), memory.New(), store.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	c := NewCenter(set.Notifications, set.Settings, set.Transactions, nil)
	bus := events.NewBus(nil)
	c.Attach(bus)
	return set, c, bus
}

func addTx(t *testing.T, set *store.Set, bus *events.Bus, typ core.TransactionType, amount, desc string) {
	t.Helper()
	ctx := context.Background()
	tx, err := set.Transactions.Add(ctx, core.Transaction{
		Type: typ, Category: "food", Amount: decimal.RequireFromString(amount), Description: desc, Date: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	e, _ := events.NewTransactionCreated(tx, now)
	if err := bus.Publish(ctx, e); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func titles(set *store.Set) []string {
	var out []string
	for _, n := range set.Notifications.List() {
		out = append(out, n.Title)
	}
	return out
}

func TestTransactionAdded(t *testing.T) {
	set, _, bus := setup(t)
	addTx(t, set, bus, core.Expense, "12.5", "lunch")

	list := set.Notifications.List()
	if len(list) != 1 {
		t.Fatalf("got %v", titles(set))
	}
	n := list[0]
	if n.Type != core.NotificationSuccess || n.Category != CategoryTransactions {
		t.Errorf("unexpected notification %+v", n)
	}
	if !strings.Contains(n.Message, "$12.50") {
		t.Errorf("message %q lacks formatted amount", n.Message)
	}
}

func TestLargeExpenseWarning(t *testing.T) {
	set, _, bus := setup(t)
	addTx(t, set, bus, core.Expense, "1500", "laptop")

	got := titles(set)
	if len(got) != 2 || got[0] != "Large expense" {
		t.Fatalf("got %v", got)
	}

	// income never warns
	addTx(t, set, bus, core.Income, "5000", "salary")
	if len(set.Notifications.List()) != 3 {
		t.Fatalf("got %v", titles(set))
	}
}

func TestBudgetExceededOnce(t *testing.T) {
	ctx := context.Background()
	set, _, bus := setup(t)
	s := set.Settings.Get()
	s.MonthlyBudget = decimal.NewFromInt(100)
	s.Notifications[CategoryTransactions] = false
	if _, err := set.Settings.Set(ctx, s); err != nil {
		t.Fatal(err)
	}

	addTx(t, set, bus, core.Expense, "60", "groceries")
	if n := len(set.Notifications.List()); n != 0 {
		t.Fatalf("under budget produced %v", titles(set))
	}
	addTx(t, set, bus, core.Expense, "50", "dinner")
	if got := titles(set); len(got) != 1 || got[0] != "Monthly budget exceeded" {
		t.Fatalf("got %v", got)
	}
	addTx(t, set, bus, core.Expense, "10", "coffee")
	if n := len(set.Notifications.List()); n != 1 {
		t.Fatalf("budget warning repeated: %v", titles(set))
	}
}

func TestTogglesSilenceCategories(t *testing.T) {
	ctx := context.Background()
	set, _, bus := setup(t)
	s := set.Settings.Get()
	s.Notifications[CategoryTransactions] = false
	s.Notifications[CategorySubscription] = false
	set.Settings.Set(ctx, s)

	addTx(t, set, bus, core.Expense, "2000", "rent")
	e, _ := events.NewSubscriptionChanged(events.SubscriptionPayload{UserID: "u1", Previous: core.PlanFree, Current: core.PlanPro}, now)
	bus.Publish(ctx, e)

	if n := len(set.Notifications.List()); n != 0 {
		t.Fatalf("toggled-off categories produced %v", titles(set))
	}
}

func TestGoalMilestones(t *testing.T) {
	goal := func(current string) core.Goal {
		return core.Goal{Title: "Trip", TargetAmount: decimal.NewFromInt(1000), CurrentAmount: decimal.RequireFromString(current)}
	}
	tests := []struct {
		name      string
		before    string
		after     string
		wantOK    bool
		wantTitle string
		wantType  core.NotificationType
	}{
		{"no milestone", "100", "200", false, "", ""},
		{"crosses 25", "200", "250", true, "25% of goal reached", core.NotificationInfo},
		{"skips to 75", "200", "800", true, "75% of goal reached", core.NotificationInfo},
		{"completes", "900", "1000", true, "Goal completed", core.NotificationSuccess},
		{"already past", "1000", "1200", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := milestoneReached(goal(tt.before), goal(tt.after))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (n.Title != tt.wantTitle || n.Type != tt.wantType) {
				t.Errorf("got %q/%s, want %q/%s", n.Title, n.Type, tt.wantTitle, tt.wantType)
			}
		})
	}
}

func TestGoalEvents(t *testing.T) {
	ctx := context.Background()
	set, _, bus := setup(t)

	g := core.Goal{ID: "g1", Title: "Car", TargetAmount: decimal.NewFromInt(100), CurrentAmount: decimal.Zero, Deadline: now.AddDate(1, 0, 0)}
	created, _ := events.NewGoalCreated(g, now)
	bus.Publish(ctx, created)

	after := g
	after.CurrentAmount = decimal.NewFromInt(100)
	contributed, _ := events.NewGoalContributed(g, after, core.Contribution{Amount: decimal.NewFromInt(100)}, now)
	bus.Publish(ctx, contributed)

	got := titles(set)
	if len(got) != 2 || got[0] != "Goal completed" || got[1] != "New goal created" {
		t.Fatalf("got %v", got)
	}
}
