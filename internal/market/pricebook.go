package market

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/log"
)

// Source is anything that can return a page of market data.
type Source interface {
	Markets(ctx context.Context, q Query) ([]Coin, error)
}

// PriceBook holds the most recent successful market response. A failed
// refresh keeps the previous book.
type PriceBook struct {
	mu        sync.RWMutex
	coins     []Coin
	prices    map[string]decimal.Decimal
	updatedAt time.Time
	now       func() time.Time
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: map[string]decimal.Decimal{}, now: time.Now}
}

// Update replaces the book. When several coins share a symbol the first one,
// the larger by market cap, wins.
func (b *PriceBook) Update(coins []Coin) {
	prices := make(map[string]decimal.Decimal, len(coins))
	for _, c := range coins {
		sym := strings.ToUpper(strings.TrimSpace(c.Symbol))
		if _, seen := prices[sym]; seen || sym == "" {
			continue
		}
		prices[sym] = c.CurrentPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.coins = slices.Clone(coins)
	b.prices = prices
	b.updatedAt = b.now()
}

// Refresh fetches q from src and updates the book on success.
func (b *PriceBook) Refresh(ctx context.Context, src Source, q Query) error {
	coins, err := src.Markets(ctx, q)
	if err != nil {
		return err
	}
	b.Update(coins)
	return nil
}

// Run refreshes the book immediately and then every interval until ctx is
// done. Failures are logged and the previous book is kept.
func (b *PriceBook) Run(ctx context.Context, src Source, q Query, every time.Duration, logger *log.Logger) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentMarket)

	refresh := func() {
		if err := b.Refresh(ctx, src, q); err != nil && ctx.Err() == nil {
			logger.WarnContext(ctx, "Market refresh failed, keeping previous prices", log.FieldError, err)
		}
	}
	refresh()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// Price returns the current price for symbol, matched case-insensitively.
func (b *PriceBook) Price(symbol string) (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[strings.ToUpper(strings.TrimSpace(symbol))]
	return p, ok
}

func (b *PriceBook) Coins() []Coin {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.coins)
}

// UpdatedAt is zero until the first successful update.
func (b *PriceBook) UpdatedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.updatedAt
}
