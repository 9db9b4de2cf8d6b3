package services

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/query"
	"fintrack/internal/stats"
	"fintrack/internal/store"
)

const (
	recentCount        = 5
	topCategoryCount   = 5
	DefaultTrendMonths = 6
)

// Overview is the dashboard: every figure the landing view shows.
type Overview struct {
	Totals              stats.Summary         `json:"totals"`
	Month               stats.Summary         `json:"month"`
	SavingsRate         core.Percent          `json:"savingsRate"`
	TopCategories       []stats.CategoryShare `json:"topCategories"`
	Recent              []core.Transaction    `json:"recent"`
	Goals               stats.GoalsSummary    `json:"goals"`
	Portfolio           *stats.PortfolioStats `json:"portfolio,omitempty"`
	Trend               []stats.MonthSummary  `json:"trend,omitempty"`
	UnreadNotifications int                   `json:"unreadNotifications"`
	GeneratedAt         time.Time             `json:"generatedAt"`
}

// Dashboard assembles the overview from the other services. Sections behind
// a plan feature are left out for users without it.
type Dashboard struct {
	ledger        *Ledger
	goals         *Goals
	portfolio     *Portfolio
	notifications *store.Notifications
	plans         Entitlements
	logger        *log.Logger
	now           func() time.Time
}

func NewDashboard(ledger *Ledger, goals *Goals, portfolio *Portfolio, notifications *store.Notifications, plans Entitlements, logger *log.Logger) *Dashboard {
	if plans == nil {
		plans = FreeTier{}
	}
	return &Dashboard{
		ledger:        ledger,
		goals:         goals,
		portfolio:     portfolio,
		notifications: notifications,
		plans:         plans,
		logger:        componentLogger(logger, log.ComponentDashboard),
		now:           time.Now,
	}
}

func (d *Dashboard) Overview(ctx context.Context, userID string) (Overview, error) {
	f, err := d.plans.Features(ctx, userID)
	if err != nil {
		return Overview{}, fmt.Errorf("resolve plan: %w", err)
	}

	now := d.now()
	o := Overview{GeneratedAt: now}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.Totals = d.ledger.Totals()
		o.Month = d.ledger.Monthly(now)
		o.SavingsRate = stats.SavingsRate(o.Month)
		return nil
	})
	g.Go(func() error {
		shares := d.ledger.Categories(&now)
		o.TopCategories = slices.Clone(shares[:min(len(shares), topCategoryCount)])
		return nil
	})
	g.Go(func() error {
		o.Recent = d.ledger.List(query.Filter{}, query.DefaultSort(), query.Page{Limit: recentCount}).Items
		return nil
	})
	g.Go(func() error {
		o.Goals = d.goals.Overview()
		return nil
	})
	if f.CryptoPortfolio && d.portfolio != nil {
		g.Go(func() error {
			p, err := d.portfolio.Valuation(ctx, userID)
			if err != nil {
				return err
			}
			o.Portfolio = &p
			return nil
		})
	}
	if f.AdvancedAnalytics {
		g.Go(func() error {
			o.Trend = d.ledger.Trend(now, DefaultTrendMonths)
			return nil
		})
	}
	if d.notifications != nil {
		o.UnreadNotifications = d.notifications.UnreadCount()
	}

	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("build dashboard: %w", err)
	}
	return o, nil
}

// Trend returns the monthly totals of the last months months. It requires
// the advanced analytics feature.
func (d *Dashboard) Trend(ctx context.Context, userID string, months int) ([]stats.MonthSummary, error) {
	f, err := d.plans.Features(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve plan: %w", err)
	}
	if !f.AdvancedAnalytics {
		return nil, fmt.Errorf("analytics: %w", ErrFeatureUnavailable)
	}
	if months <= 0 {
		months = DefaultTrendMonths
	}
	return d.ledger.Trend(d.now(), months), nil
}
