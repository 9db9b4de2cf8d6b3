package store

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// seedData builds the sample records written to empty slots. Dates are
// relative to now so a fresh install shows a populated current month.
type seedData struct {
	now   time.Time
	newID func() string
}

func (s seedData) day(monthOffset, day int) time.Time {
	first := time.Date(s.now.Year(), s.now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, monthOffset, day-1)
}

func (s seedData) transactions() []core.Transaction {
	sample := []struct {
		typ      core.TransactionType
		category string
		amount   string
		desc     string
		month    int
		day      int
	}{
		{core.Income, "salary", "5000", "Monthly salary", 0, 1},
		{core.Expense, "rent", "800", "Apartment rent", 0, 2},
		{core.Expense, "food", "150", "Weekly groceries", 0, 5},
		{core.Expense, "transport", "60", "Metro card", 0, 6},
		{core.Income, "freelance", "1200", "Website project", 0, 8},
		{core.Expense, "utilities", "95.40", "Electricity bill", 0, 10},
		{core.Expense, "entertainment", "45", "Concert tickets", 0, 12},
		{core.Income, "salary", "5000", "Monthly salary", -1, 1},
		{core.Expense, "rent", "800", "Apartment rent", -1, 2},
		{core.Expense, "shopping", "230", "Winter jacket", -1, 14},
		{core.Expense, "health", "80", "Pharmacy", -1, 20},
	}
	out := make([]core.Transaction, 0, len(sample))
	for _, t := range sample {
		out = append(out, core.Transaction{
			ID:          s.newID(),
			Type:        t.typ,
			Category:    t.category,
			Amount:      decimal.RequireFromString(t.amount),
			Description: t.desc,
			Date:        s.day(t.month, t.day),
			CreatedAt:   s.now,
		})
	}
	return out
}

func (s seedData) goals() []core.Goal {
	mk := func(title, category, target, current string, months int) core.Goal {
		g := core.Goal{
			ID:            s.newID(),
			Title:         title,
			TargetAmount:  decimal.RequireFromString(target),
			CurrentAmount: decimal.RequireFromString(current),
			Deadline:      s.day(months, 1),
			Category:      category,
			Contributions: []core.Contribution{},
			CreatedAt:     s.now,
		}
		if g.CurrentAmount.IsPositive() {
			g.Contributions = append(g.Contributions, core.Contribution{
				ID:     s.newID(),
				Amount: g.CurrentAmount,
				Date:   s.day(-1, 15),
				Note:   "Initial deposit",
			})
		}
		return g
	}
	return []core.Goal{
		mk("Emergency fund", "savings", "10000", "3500", 12),
		mk("Summer vacation", "travel", "3000", "1200", 6),
		mk("New laptop", "shopping", "2000", "0", 4),
	}
}

func (s seedData) cryptoAssets() []core.CryptoAsset {
	mk := func(symbol, name, amount, price string) core.CryptoAsset {
		return core.CryptoAsset{
			ID:            s.newID(),
			Symbol:        symbol,
			Name:          name,
			Amount:        decimal.RequireFromString(amount),
			PurchasePrice: decimal.RequireFromString(price),
			PurchaseDate:  s.day(-3, 10),
			CreatedAt:     s.now,
		}
	}
	return []core.CryptoAsset{
		mk("BTC", "Bitcoin", "0.5", "42000"),
		mk("ETH", "Ethereum", "4", "2200"),
		mk("SOL", "Solana", "25", "95"),
	}
}

func (s seedData) notifications() []core.Notification {
	return []core.Notification{
		{
			ID:        s.newID(),
			Type:      core.NotificationInfo,
			Category:  "system",
			Title:     "Welcome to fintrack",
			Message:   "Sample data was added so you can explore the dashboard.",
			CreatedAt: s.now,
			Icon:      "info",
		},
	}
}

func (s seedData) profile() core.Profile {
	return core.Profile{Name: "Demo User", Email: "demo@fintrack.local"}
}
