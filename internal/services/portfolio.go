package services

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/market"
	"fintrack/internal/stats"
	"fintrack/internal/store"
	"fintrack/internal/subscription"
)

// ErrMarketUnavailable is returned when no market data could be obtained.
var ErrMarketUnavailable = errors.New("market data unavailable")

// Portfolio manages crypto purchase lots and values them with the current
// prices.
type Portfolio struct {
	crypto *store.Crypto
	plans  Entitlements
	book   *market.PriceBook
	source market.Source
	logger *log.Logger
}

// NewPortfolio values lots with book. source, when not nil, serves market
// listings; the book's last snapshot is used when it fails.
func NewPortfolio(crypto *store.Crypto, plans Entitlements, book *market.PriceBook, source market.Source, logger *log.Logger) *Portfolio {
	if plans == nil {
		plans = FreeTier{}
	}
	if book == nil {
		book = market.NewPriceBook()
	}
	return &Portfolio{
		crypto: crypto,
		plans:  plans,
		book:   book,
		source: source,
		logger: componentLogger(logger, log.ComponentPortfolio),
	}
}

func (p *Portfolio) List() []core.CryptoAsset {
	return p.crypto.List()
}

// Add records a purchase lot unless the plan's asset limit is reached.
func (p *Portfolio) Add(ctx context.Context, userID string, a core.CryptoAsset) (core.CryptoAsset, error) {
	f, err := p.plans.Features(ctx, userID)
	if err != nil {
		return core.CryptoAsset{}, fmt.Errorf("resolve plan: %w", err)
	}

	a.Name = cleanText(a.Name)
	a.Symbol = cleanText(a.Symbol)
	created, err := p.crypto.AddWithin(ctx, a, func(n int) bool {
		return subscription.Allows(f.MaxCryptoAssets, n)
	})
	if errors.Is(err, store.ErrFull) {
		return core.CryptoAsset{}, fmt.Errorf("%w: at most %d crypto assets", ErrLimitReached, f.MaxCryptoAssets)
	}
	if err != nil {
		return core.CryptoAsset{}, fmt.Errorf("add crypto asset: %w", err)
	}
	p.logger.InfoContext(ctx, "Crypto asset added",
		log.FieldRecordID, created.ID,
		log.FieldSymbol, created.Symbol)
	return created, nil
}

func (p *Portfolio) Update(ctx context.Context, id string, patch core.CryptoAssetPatch) (core.CryptoAsset, error) {
	patch.Name = cleanPtr(patch.Name)
	patch.Symbol = cleanPtr(patch.Symbol)
	a, err := p.crypto.Update(ctx, id, patch)
	if err != nil {
		return core.CryptoAsset{}, fmt.Errorf("update crypto asset: %w", err)
	}
	return a, nil
}

func (p *Portfolio) Delete(ctx context.Context, id string) error {
	if err := p.crypto.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete crypto asset: %w", err)
	}
	return nil
}

// Valuation values every lot at the current prices. It requires the crypto
// portfolio feature.
func (p *Portfolio) Valuation(ctx context.Context, userID string) (stats.PortfolioStats, error) {
	if err := p.require(ctx, userID); err != nil {
		return stats.PortfolioStats{}, err
	}
	return stats.Portfolio(p.crypto.List(), p.book), nil
}

// Holdings groups lots by symbol. It requires the crypto portfolio feature.
func (p *Portfolio) Holdings(ctx context.Context, userID string) ([]stats.Holding, error) {
	if err := p.require(ctx, userID); err != nil {
		return nil, err
	}
	return stats.Holdings(p.crypto.List(), p.book), nil
}

// Market lists coins from the market source, or from the last snapshot held
// by the price book when the source is missing or failing.
func (p *Portfolio) Market(ctx context.Context, q market.Query) ([]market.Coin, error) {
	if p.source != nil {
		coins, err := p.source.Markets(ctx, q)
		if err == nil {
			return coins, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.WarnContext(ctx, "Market request failed, serving cached prices", log.FieldError, err)
	}
	coins := p.book.Coins()
	if len(coins) == 0 {
		return nil, ErrMarketUnavailable
	}
	return coins, nil
}

func (p *Portfolio) require(ctx context.Context, userID string) error {
	f, err := p.plans.Features(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}
	if !f.CryptoPortfolio {
		return fmt.Errorf("crypto portfolio: %w", ErrFeatureUnavailable)
	}
	return nil
}
