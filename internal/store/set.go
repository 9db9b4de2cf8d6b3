package store

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// Options configures Open.
type Options struct {
	// Seed fills empty slots with sample records.
	Seed   bool
	Now    func() time.Time
	NewID  func() string
	Logger *log.Logger
}

type env struct {
	now   func() time.Time
	newID func() string
}

// Set groups the stores of one dataset.
type Set struct {
	Transactions  *Transactions
	Goals         *Goals
	Crypto        *Crypto
	Notifications *Notifications
	Settings      *Value[core.Settings]
	Profile       *Value[core.Profile]
	Theme         *Value[core.Theme]
}

// Open loads every store from kv concurrently.
func Open(ctx context.Context, kv storage.KV, opts Options) (*Set, error) {
	e := env{now: opts.Now, newID: opts.NewID}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStore)

	seeds := seedData{now: e.now(), newID: e.newID}

	set := &Set{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cfg := collectionConfig[core.Transaction]{kv: kv, key: storage.KeyTransactions, id: func(t core.Transaction) string { return t.ID }, logger: logger}
		if opts.Seed {
			cfg.seed = seeds.transactions
		}
		c, err := loadCollection(ctx, cfg)
		if err != nil {
			return err
		}
		set.Transactions = &Transactions{Collection: c, env: e}
		return nil
	})
	g.Go(func() error {
		cfg := collectionConfig[core.Goal]{kv: kv, key: storage.KeyGoals, id: func(g core.Goal) string { return g.ID }, logger: logger}
		if opts.Seed {
			cfg.seed = seeds.goals
		}
		c, err := loadCollection(ctx, cfg)
		if err != nil {
			return err
		}
		set.Goals = &Goals{Collection: c, env: e}
		return nil
	})
	g.Go(func() error {
		cfg := collectionConfig[core.CryptoAsset]{kv: kv, key: storage.KeyCryptoAssets, id: func(a core.CryptoAsset) string { return a.ID }, logger: logger}
		if opts.Seed {
			cfg.seed = seeds.cryptoAssets
		}
		c, err := loadCollection(ctx, cfg)
		if err != nil {
			return err
		}
		set.Crypto = &Crypto{Collection: c, env: e}
		return nil
	})
	g.Go(func() error {
		cfg := collectionConfig[core.Notification]{
			kv: kv, key: storage.KeyNotifications,
			id:     func(n core.Notification) string { return n.ID },
			keep:   retained(e.now()),
			logger: logger,
		}
		if opts.Seed {
			cfg.seed = seeds.notifications
		}
		c, err := loadCollection(ctx, cfg)
		if err != nil {
			return err
		}
		set.Notifications = &Notifications{Collection: c, env: e}
		return nil
	})
	g.Go(func() error {
		v, err := loadValue(ctx, valueConfig[core.Settings]{
			kv: kv, key: storage.KeySettings,
			initial:  core.DefaultSettings,
			validate: func(s *core.Settings) error { return s.Validate() },
			clone: func(s core.Settings) core.Settings {
				s.Notifications = maps.Clone(s.Notifications)
				return s
			},
			logger: logger,
		})
		set.Settings = v
		return err
	})
	g.Go(func() error {
		initial := func() core.Profile { return core.Profile{} }
		if opts.Seed {
			initial = seeds.profile
		}
		v, err := loadValue(ctx, valueConfig[core.Profile]{
			kv: kv, key: storage.KeyProfile,
			initial:  initial,
			validate: func(p *core.Profile) error { return p.Validate() },
			logger:   logger,
		})
		set.Profile = v
		return err
	})
	g.Go(func() error {
		v, err := loadValue(ctx, valueConfig[core.Theme]{
			kv: kv, key: storage.KeyTheme,
			initial: func() core.Theme { return core.ThemeSystem },
			validate: func(t *core.Theme) error {
				if !t.Valid() {
					return fmt.Errorf("%w: %q", core.ErrInvalidTheme, *t)
				}
				return nil
			},
			logger: logger,
		})
		set.Theme = v
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	return set, nil
}
