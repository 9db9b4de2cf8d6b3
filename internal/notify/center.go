// Package notify turns domain events into notification-center entries.
package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/stats"
)

// Settings toggles, see core.DefaultSettings.
const (
	CategoryTransactions = "transactions"
	CategoryGoals        = "goals"
	CategoryBudget       = "budget"
	CategorySubscription = "subscription"
)

// DefaultLargeExpense is the amount from which an expense raises a warning.
var DefaultLargeExpense = decimal.NewFromInt(1000)

var milestones = []core.Percent{25, 50, 75, 100}

type (
	Sink interface {
		Add(ctx context.Context, n core.Notification) (core.Notification, error)
	}
	SettingsSource interface {
		Get() core.Settings
	}
	TransactionSource interface {
		List() []core.Transaction
	}
)

type Center struct {
	sink         Sink
	settings     SettingsSource
	transactions TransactionSource
	largeExpense decimal.Decimal
	logger       *log.Logger
}

func NewCenter(sink Sink, settings SettingsSource, txs TransactionSource, logger *log.Logger) *Center {
	if logger == nil {
		logger = log.Discard()
	}
	return &Center{
		sink:         sink,
		settings:     settings,
		transactions: txs,
		largeExpense: DefaultLargeExpense,
		logger:       logger.WithComponent(log.ComponentNotify),
	}
}

// SetLargeExpense overrides DefaultLargeExpense. Zero disables the warning.
func (c *Center) SetLargeExpense(threshold decimal.Decimal) {
	c.largeExpense = threshold
}

// Attach subscribes the center to the events it reacts to.
func (c *Center) Attach(bus *events.Bus) {
	bus.Subscribe(c.Handle,
		events.TransactionCreated,
		events.GoalCreated,
		events.GoalContributed,
		events.SubscriptionChanged)
}

// Handle is an events.Handler.
func (c *Center) Handle(ctx context.Context, e events.Event) error {
	settings := c.settings.Get()

	var out []core.Notification
	switch e.Type {
	case events.TransactionCreated:
		var p events.TransactionPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		out = c.onTransaction(p.Transaction, settings)
	case events.GoalCreated:
		var p events.GoalPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		if settings.NotificationsEnabled(CategoryGoals) {
			out = append(out, goalCreated(p.Goal, settings.Currency))
		}
	case events.GoalContributed:
		var p events.GoalContributionPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		if n, ok := milestoneReached(p.Before, p.After); ok && settings.NotificationsEnabled(CategoryGoals) {
			out = append(out, n)
		}
	case events.SubscriptionChanged:
		var p events.SubscriptionPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		if settings.NotificationsEnabled(CategorySubscription) {
			out = append(out, subscriptionChanged(p))
		}
	}

	for _, n := range out {
		if _, err := c.sink.Add(ctx, n); err != nil {
			return fmt.Errorf("add notification: %w", err)
		}
		c.logger.DebugContext(ctx, "Notification added", log.FieldEventType, e.Type, "title", n.Title)
	}
	return nil
}

func (c *Center) onTransaction(t core.Transaction, s core.Settings) []core.Notification {
	var out []core.Notification
	amount := core.FormatMoney(t.Amount, s.Currency)

	if s.NotificationsEnabled(CategoryTransactions) {
		label := "Income"
		if t.Type == core.Expense {
			label = "Expense"
		}
		out = append(out, core.Notification{
			Type:     core.NotificationSuccess,
			Category: CategoryTransactions,
			Title:    "Transaction added",
			Message:  fmt.Sprintf("%s of %s: %s", label, amount, t.Description),
			Link:     "/transactions",
			Icon:     "check",
		})
	}
	if t.Type != core.Expense {
		return out
	}

	if c.largeExpense.IsPositive() && t.Amount.GreaterThanOrEqual(c.largeExpense) && s.NotificationsEnabled(CategoryTransactions) {
		out = append(out, core.Notification{
			Type:     core.NotificationWarning,
			Category: CategoryTransactions,
			Title:    "Large expense",
			Message:  fmt.Sprintf("You spent %s on %s.", amount, t.Description),
			Link:     "/transactions",
			Icon:     "alert",
		})
	}

	if s.MonthlyBudget.IsPositive() && s.NotificationsEnabled(CategoryBudget) && c.transactions != nil {
		spent := stats.MonthlyTotals(c.transactions.List(), t.Date).TotalExpense
		before := spent.Sub(t.Amount)
		if spent.GreaterThan(s.MonthlyBudget) && before.LessThanOrEqual(s.MonthlyBudget) {
			out = append(out, core.Notification{
				Type:     core.NotificationWarning,
				Category: CategoryBudget,
				Title:    "Monthly budget exceeded",
				Message: fmt.Sprintf("Spending for %s is %s, over your budget of %s.",
					t.Date.Format("January 2006"), core.FormatMoney(spent, s.Currency), core.FormatMoney(s.MonthlyBudget, s.Currency)),
				Link: "/transactions",
				Icon: "alert",
			})
		}
	}
	return out
}

func goalCreated(g core.Goal, currency string) core.Notification {
	return core.Notification{
		Type:     core.NotificationInfo,
		Category: CategoryGoals,
		Title:    "New goal created",
		Message:  fmt.Sprintf("%s: target %s by %s.", g.Title, core.FormatMoney(g.TargetAmount, currency), g.Deadline.Format("2006-01-02")),
		Link:     "/goals",
		Icon:     "target",
	}
}

// milestoneReached reports the highest milestone crossed between before and
// after, if any.
func milestoneReached(before, after core.Goal) (core.Notification, bool) {
	from := core.PercentOf(before.CurrentAmount, before.TargetAmount)
	to := core.PercentOf(after.CurrentAmount, after.TargetAmount)

	var hit core.Percent
	for _, m := range milestones {
		if from < m && to >= m {
			hit = m
		}
	}
	switch {
	case hit == 0:
		return core.Notification{}, false
	case hit >= 100:
		return core.Notification{
			Type:     core.NotificationSuccess,
			Category: CategoryGoals,
			Title:    "Goal completed",
			Message:  fmt.Sprintf("Congratulations, you reached %q.", after.Title),
			Link:     "/goals",
			Icon:     "trophy",
		}, true
	default:
		return core.Notification{
			Type:     core.NotificationInfo,
			Category: CategoryGoals,
			Title:    fmt.Sprintf("%d%% of goal reached", int(hit)),
			Message:  fmt.Sprintf("%q is %s complete.", after.Title, to),
			Link:     "/goals",
			Icon:     "flag",
		}, true
	}
}

func subscriptionChanged(p events.SubscriptionPayload) core.Notification {
	msg := fmt.Sprintf("Your plan changed from %s to %s.", p.Previous, p.Current)
	if p.Trial {
		msg = fmt.Sprintf("Your %s trial has started.", p.Current)
	}
	return core.Notification{
		Type:     core.NotificationSuccess,
		Category: CategorySubscription,
		Title:    "Subscription updated",
		Message:  msg,
		Link:     "/subscription",
		Icon:     "star",
	}
}
