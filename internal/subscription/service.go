// Package subscription manages the per-user plan. Checkout is simulated;
// no payment gateway is involved.
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const TrialPeriod = 14 * 24 * time.Hour

var (
	ErrPaidPlanRequired = errors.New("plan must be pro or enterprise")
	ErrTrialUsed        = errors.New("trial already used")
)

type Config struct {
	// CheckoutDelay stands in for the payment round trip.
	CheckoutDelay time.Duration
}

type Service struct {
	kv     storage.KV
	pub    events.Publisher
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewService(kv storage.KV, pub events.Publisher, cfg Config, logger *log.Logger) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{kv: kv, pub: pub, cfg: cfg, logger: logger.WithComponent(log.ComponentSubscription), now: time.Now}
}

// Effective resolves lapsed trials and expired subscriptions to free.
func Effective(s core.Subscription, now time.Time) core.Subscription {
	if s.CurrentPlan == core.PlanFree || !s.CurrentPlan.Valid() {
		return core.Subscription{CurrentPlan: core.PlanFree, TrialEndsAt: s.TrialEndsAt}
	}
	if s.SubscribedAt == nil {
		if s.TrialEndsAt == nil || now.After(*s.TrialEndsAt) {
			return core.Subscription{CurrentPlan: core.PlanFree, TrialEndsAt: s.TrialEndsAt}
		}
		return s
	}
	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return core.Subscription{CurrentPlan: core.PlanFree, TrialEndsAt: s.TrialEndsAt}
	}
	return s
}

// Current returns the effective subscription of userID.
func (s *Service) Current(ctx context.Context, userID string) (core.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.load(ctx, userID)
	if err != nil {
		return core.Subscription{}, err
	}
	return Effective(stored, s.now()), nil
}

// Features is a shortcut for FeaturesFor(Current(...).CurrentPlan).
func (s *Service) Features(ctx context.Context, userID string) (Features, error) {
	sub, err := s.Current(ctx, userID)
	if err != nil {
		return Features{}, err
	}
	return FeaturesFor(sub.CurrentPlan), nil
}

// StartTrial grants plan for TrialPeriod. Each user gets one trial.
func (s *Service) StartTrial(ctx context.Context, userID string, plan core.Plan) (core.Subscription, error) {
	if err := requirePaid(plan); err != nil {
		return core.Subscription{}, err
	}
	return s.change(ctx, userID, true, func(stored core.Subscription, now time.Time) (core.Subscription, error) {
		if stored.TrialEndsAt != nil {
			return stored, ErrTrialUsed
		}
		ends := now.Add(TrialPeriod)
		return core.Subscription{CurrentPlan: plan, TrialEndsAt: &ends}, nil
	})
}

// Checkout subscribes userID to plan for one month after a simulated
// payment delay.
func (s *Service) Checkout(ctx context.Context, userID string, plan core.Plan) (core.Subscription, error) {
	if err := requirePaid(plan); err != nil {
		return core.Subscription{}, err
	}
	if err := s.wait(ctx); err != nil {
		return core.Subscription{}, err
	}
	return s.change(ctx, userID, false, func(stored core.Subscription, now time.Time) (core.Subscription, error) {
		expires := now.AddDate(0, 1, 0)
		return core.Subscription{
			CurrentPlan:  plan,
			TrialEndsAt:  stored.TrialEndsAt,
			SubscribedAt: &now,
			ExpiresAt:    &expires,
		}, nil
	})
}

// Cancel moves userID back to the free plan.
func (s *Service) Cancel(ctx context.Context, userID string) (core.Subscription, error) {
	return s.change(ctx, userID, false, func(stored core.Subscription, _ time.Time) (core.Subscription, error) {
		return core.Subscription{CurrentPlan: core.PlanFree, TrialEndsAt: stored.TrialEndsAt}, nil
	})
}

func (s *Service) change(ctx context.Context, userID string, trial bool, fn func(core.Subscription, time.Time) (core.Subscription, error)) (core.Subscription, error) {
	s.mu.Lock()
	stored, err := s.load(ctx, userID)
	if err != nil {
		s.mu.Unlock()
		return core.Subscription{}, err
	}
	now := s.now()
	previous := Effective(stored, now).CurrentPlan

	next, err := fn(stored, now)
	if err != nil {
		s.mu.Unlock()
		return core.Subscription{}, err
	}
	if err := s.save(ctx, userID, next); err != nil {
		s.mu.Unlock()
		return core.Subscription{}, err
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Subscription changed",
		log.FieldUserID, userID,
		log.FieldPlan, next.CurrentPlan,
		"previous", previous)

	e, err := events.NewSubscriptionChanged(events.SubscriptionPayload{
		UserID: userID, Previous: previous, Current: next.CurrentPlan, Trial: trial,
	}, now)
	if err == nil {
		err = s.pub.Publish(ctx, e)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish subscription change", log.FieldError, err)
	}
	return Effective(next, now), nil
}

func requirePaid(plan core.Plan) error {
	if !plan.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidPlan, plan)
	}
	if plan == core.PlanFree {
		return ErrPaidPlanRequired
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.cfg.CheckoutDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.CheckoutDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) load(ctx context.Context, userID string) (core.Subscription, error) {
	key := storage.SubscriptionKey(userID)
	raw, ok, err := s.kv.Load(ctx, key)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return core.Subscription{CurrentPlan: core.PlanFree}, nil
	}
	var sub core.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed subscription", log.FieldKey, key, log.FieldError, err)
		return core.Subscription{CurrentPlan: core.PlanFree}, nil
	}
	return sub, nil
}

func (s *Service) save(ctx context.Context, userID string, sub core.Subscription) error {
	key := storage.SubscriptionKey(userID)
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Save(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
