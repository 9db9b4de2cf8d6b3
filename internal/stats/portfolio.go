package stats

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// PriceLookup resolves the current price of a symbol. ok is false when the
// symbol has no known price.
type PriceLookup interface {
	Price(symbol string) (price decimal.Decimal, ok bool)
}

// PriceMap is a static PriceLookup keyed by upper-case symbol.
type PriceMap map[string]decimal.Decimal

func (m PriceMap) Price(symbol string) (decimal.Decimal, bool) {
	p, ok := m[strings.ToUpper(symbol)]
	return p, ok
}

// AssetValuation is one purchase lot valued at the current price.
type AssetValuation struct {
	Asset         core.CryptoAsset `json:"asset"`
	CurrentPrice  decimal.Decimal  `json:"currentPrice"`
	Priced        bool             `json:"priced"`
	Invested      decimal.Decimal  `json:"invested"`
	CurrentValue  decimal.Decimal  `json:"currentValue"`
	ProfitLoss    decimal.Decimal  `json:"profitLoss"`
	ProfitLossPct core.Percent     `json:"profitLossPercentage"`
}

// PortfolioStats totals the valuations of all lots.
//
// Lots whose symbol has no price count with a current price of zero. Their
// symbols are listed in UnpricedSymbols so callers can tell "worthless"
// apart from "price unavailable".
type PortfolioStats struct {
	Assets               []AssetValuation `json:"assets"`
	TotalInvested        decimal.Decimal  `json:"totalInvested"`
	TotalCurrentValue    decimal.Decimal  `json:"totalCurrentValue"`
	TotalProfitLoss      decimal.Decimal  `json:"totalProfitLoss"`
	ProfitLossPercentage core.Percent     `json:"profitLossPercentage"`
	UnpricedSymbols      []string         `json:"unpricedSymbols"`
}

// Holding aggregates the lots of one symbol.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Lots         int             `json:"lots"`
	AverageCost  decimal.Decimal `json:"averageCost"`
	Invested     decimal.Decimal `json:"invested"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	ProfitLoss   decimal.Decimal `json:"profitLoss"`
	Priced       bool            `json:"priced"`
}

// Value values a single lot.
func Value(a core.CryptoAsset, prices PriceLookup) AssetValuation {
	price, ok := lookup(prices, a.Symbol)
	v := AssetValuation{
		Asset:        a,
		CurrentPrice: price,
		Priced:       ok,
		Invested:     a.Amount.Mul(a.PurchasePrice),
		CurrentValue: a.Amount.Mul(price),
	}
	v.ProfitLoss = v.CurrentValue.Sub(v.Invested)
	v.ProfitLossPct = core.PercentOf(v.ProfitLoss, v.Invested)
	return v
}

func Portfolio(assets []core.CryptoAsset, prices PriceLookup) PortfolioStats {
	s := PortfolioStats{
		Assets:            make([]AssetValuation, 0, len(assets)),
		TotalInvested:     decimal.Zero,
		TotalCurrentValue: decimal.Zero,
		UnpricedSymbols:   []string{},
	}
	unpriced := map[string]bool{}
	for _, a := range assets {
		v := Value(a, prices)
		s.Assets = append(s.Assets, v)
		s.TotalInvested = s.TotalInvested.Add(v.Invested)
		s.TotalCurrentValue = s.TotalCurrentValue.Add(v.CurrentValue)
		sym := strings.ToUpper(a.Symbol)
		if !v.Priced && !unpriced[sym] {
			unpriced[sym] = true
			s.UnpricedSymbols = append(s.UnpricedSymbols, sym)
		}
	}
	s.TotalProfitLoss = s.TotalCurrentValue.Sub(s.TotalInvested)
	s.ProfitLossPercentage = core.PercentOf(s.TotalProfitLoss, s.TotalInvested)
	slices.Sort(s.UnpricedSymbols)
	return s
}

// Holdings groups lots by case-insensitive symbol, largest value first.
func Holdings(assets []core.CryptoAsset, prices PriceLookup) []Holding {
	index := map[string]int{}
	out := []Holding{}
	for _, a := range assets {
		sym := strings.ToUpper(a.Symbol)
		i, ok := index[sym]
		if !ok {
			price, priced := lookup(prices, sym)
			i = len(out)
			index[sym] = i
			out = append(out, Holding{
				Symbol:       sym,
				Name:         a.Name,
				Amount:       decimal.Zero,
				Invested:     decimal.Zero,
				CurrentPrice: price,
				Priced:       priced,
			})
		}
		h := &out[i]
		h.Amount = h.Amount.Add(a.Amount)
		h.Invested = h.Invested.Add(a.Amount.Mul(a.PurchasePrice))
		h.Lots++
	}
	for i := range out {
		h := &out[i]
		h.CurrentValue = h.Amount.Mul(h.CurrentPrice)
		h.ProfitLoss = h.CurrentValue.Sub(h.Invested)
		if h.Amount.IsPositive() {
			h.AverageCost = h.Invested.Div(h.Amount)
		}
	}
	slices.SortStableFunc(out, func(a, b Holding) int {
		if c := b.CurrentValue.Cmp(a.CurrentValue); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return out
}

func lookup(prices PriceLookup, symbol string) (decimal.Decimal, bool) {
	if prices == nil {
		return decimal.Zero, false
	}
	p, ok := prices.Price(symbol)
	if !ok {
		return decimal.Zero, false
	}
	return p, true
}
