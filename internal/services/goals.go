package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/stats"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
)

// GoalView is a goal with its progress evaluated at read time.
type GoalView struct {
	core.Goal
	Progress stats.Progress `json:"progress"`
}

// Goals manages financial goals within the limits of the user's plan.
type Goals struct {
	goals  *store.Goals
	plans  Entitlements
	events publisher
	logger *log.Logger
	now    func() time.Time
}

func NewGoals(goals *store.Goals, plans Entitlements, pub events.Publisher, logger *log.Logger) *Goals {
	if plans == nil {
		plans = FreeTier{}
	}
	logger = componentLogger(logger, log.ComponentGoals)
	return &Goals{
		goals:  goals,
		plans:  plans,
		events: newPublisher(pub, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (s *Goals) List() []GoalView {
	now := s.now()
	goals := s.goals.List()
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, GoalView{Goal: g, Progress: stats.GoalProgress(g, now)})
	}
	return out
}

func (s *Goals) Get(id string) (GoalView, error) {
	g, err := s.goals.Get(id)
	if err != nil {
		return GoalView{}, err
	}
	return GoalView{Goal: g, Progress: stats.GoalProgress(g, s.now())}, nil
}

func (s *Goals) Overview() stats.GoalsSummary {
	return stats.GoalsOverview(s.goals.List(), s.now())
}

// Create adds a goal for userID unless the plan's goal limit is reached.
// A starting saved amount is kept; afterwards money only arrives through
// Contribute.
func (s *Goals) Create(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	f, err := s.plans.Features(ctx, userID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("resolve plan: %w", err)
	}

	g.Title = cleanText(g.Title)
	g.Category = normalizeCategory(g.Category)
	g.Contributions = nil

	created, err := s.goals.AddWithin(ctx, g, func(n int) bool {
		return subscription.Allows(f.MaxGoals, n)
	})
	if errors.Is(err, store.ErrFull) {
		return core.Goal{}, fmt.Errorf("%w: at most %d goals", ErrLimitReached, f.MaxGoals)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Goal created", log.NewFields().WithRecord("goal", created.ID).ToSlice()...)
	s.events.publish(ctx, func(at time.Time) (events.Event, error) {
		return events.NewGoalCreated(created, at)
	})
	return created, nil
}

func (s *Goals) Update(ctx context.Context, id string, patch core.GoalPatch) (core.Goal, error) {
	patch.Title = cleanPtr(patch.Title)
	if patch.Category != nil {
		c := normalizeCategory(*patch.Category)
		patch.Category = &c
	}
	g, err := s.goals.Update(ctx, id, patch)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *Goals) Delete(ctx context.Context, id string) error {
	if err := s.goals.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.logger.InfoContext(ctx, "Goal deleted", log.FieldRecordID, id)
	return nil
}

// Contribute adds money to a goal and announces the change with the goal's
// state before and after, so consumers can detect crossed milestones.
func (s *Goals) Contribute(ctx context.Context, id string, c core.Contribution) (GoalView, error) {
	c.Note = cleanText(c.Note)
	before, after, err := s.goals.AddContribution(ctx, id, c)
	if err != nil {
		return GoalView{}, fmt.Errorf("contribute to goal: %w", err)
	}
	contribution := after.Contributions[len(after.Contributions)-1]
	s.events.publish(ctx, func(at time.Time) (events.Event, error) {
		return events.NewGoalContributed(before, after, contribution, at)
	})
	return GoalView{Goal: after, Progress: stats.GoalProgress(after, s.now())}, nil
}
