package store

import (
	"context"
	"slices"

	"fintrack/internal/core"
)

// Goals owns the financial goal collection. The saved amount of a goal only
// grows, through AddContribution.
type Goals struct {
	*Collection[core.Goal]
	env env
}

func (s *Goals) Add(ctx context.Context, g core.Goal) (core.Goal, error) {
	return s.AddWithin(ctx, g, nil)
}

// AddWithin adds g if admit accepts the current goal count and returns
// ErrFull otherwise.
func (s *Goals) AddWithin(ctx context.Context, g core.Goal, admit func(count int) bool) (core.Goal, error) {
	g.ID = s.env.newID()
	g.CreatedAt = s.env.now()
	if g.Contributions == nil {
		g.Contributions = []core.Contribution{}
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.insert(ctx, g.ID, g, admit); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (s *Goals) Update(ctx context.Context, id string, patch core.GoalPatch) (core.Goal, error) {
	return s.update(ctx, id, func(g core.Goal) (core.Goal, error) {
		next := patch.Apply(g)
		if err := next.Validate(); err != nil {
			return g, err
		}
		return next, nil
	})
}

func (s *Goals) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// AddContribution appends c to the goal and raises its saved amount.
// It returns the goal before and after the contribution.
func (s *Goals) AddContribution(ctx context.Context, goalID string, c core.Contribution) (before, after core.Goal, err error) {
	c.ID = s.env.newID()
	if c.Date.IsZero() {
		c.Date = s.env.now()
	}
	if err := c.Validate(); err != nil {
		return core.Goal{}, core.Goal{}, err
	}
	after, err = s.update(ctx, goalID, func(g core.Goal) (core.Goal, error) {
		before = g
		g.Contributions = append(slices.Clone(g.Contributions), c)
		g.CurrentAmount = g.CurrentAmount.Add(c.Amount)
		return g, nil
	})
	return before, after, err
}
