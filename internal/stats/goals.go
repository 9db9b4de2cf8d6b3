package stats

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Progress is the derived state of a goal at a given instant.
type Progress struct {
	Percentage         core.Percent    `json:"percentage"`
	Remaining          decimal.Decimal `json:"remaining"`
	DaysLeft           int             `json:"daysLeft"`
	DailySavingsNeeded decimal.Decimal `json:"dailySavingsNeeded"`
	IsCompleted        bool            `json:"isCompleted"`
	IsOverdue          bool            `json:"isOverdue"`
}

// GoalsSummary aggregates progress across goals.
type GoalsSummary struct {
	Total       int             `json:"total"`
	Active      int             `json:"active"`
	Completed   int             `json:"completed"`
	Overdue     int             `json:"overdue"`
	TargetTotal decimal.Decimal `json:"targetTotal"`
	SavedTotal  decimal.Decimal `json:"savedTotal"`
	Percentage  core.Percent    `json:"percentage"`
}

// GoalProgress evaluates g at now. Completion takes precedence over being
// past the deadline.
func GoalProgress(g core.Goal, now time.Time) Progress {
	p := Progress{
		Remaining:   decimal.Max(g.TargetAmount.Sub(g.CurrentAmount), decimal.Zero),
		DaysLeft:    daysUntil(g.Deadline, now),
		IsCompleted: g.IsCompleted(),
	}

	p.Percentage = core.PercentOf(g.CurrentAmount, g.TargetAmount)
	if p.Percentage > 100 {
		p.Percentage = 100
	}

	if p.DaysLeft > 0 {
		p.DailySavingsNeeded = p.Remaining.Div(decimal.NewFromInt(int64(p.DaysLeft)))
	} else {
		p.DailySavingsNeeded = p.Remaining
	}

	p.IsOverdue = !p.IsCompleted && g.Deadline.Before(now)
	return p
}

func daysUntil(deadline, now time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// GoalsOverview summarizes a goal collection at now.
func GoalsOverview(goals []core.Goal, now time.Time) GoalsSummary {
	s := GoalsSummary{Total: len(goals), TargetTotal: decimal.Zero, SavedTotal: decimal.Zero}
	for _, g := range goals {
		p := GoalProgress(g, now)
		switch {
		case p.IsCompleted:
			s.Completed++
		case p.IsOverdue:
			s.Overdue++
		default:
			s.Active++
		}
		s.TargetTotal = s.TargetTotal.Add(g.TargetAmount)
		s.SavedTotal = s.SavedTotal.Add(decimal.Min(g.CurrentAmount, g.TargetAmount))
	}
	s.Percentage = core.PercentOf(s.SavedTotal, s.TargetTotal)
	return s
}
