package store

import (
	"context"
	"strings"

	"fintrack/internal/core"
)

// Crypto owns the crypto purchase lots.
type Crypto struct {
	*Collection[core.CryptoAsset]
	env env
}

func (s *Crypto) Add(ctx context.Context, a core.CryptoAsset) (core.CryptoAsset, error) {
	return s.AddWithin(ctx, a, nil)
}

// AddWithin records a if admit accepts the current lot count and returns
// ErrFull otherwise.
func (s *Crypto) AddWithin(ctx context.Context, a core.CryptoAsset, admit func(count int) bool) (core.CryptoAsset, error) {
	a.ID = s.env.newID()
	a.CreatedAt = s.env.now()
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if err := a.Validate(); err != nil {
		return core.CryptoAsset{}, err
	}
	if err := s.insert(ctx, a.ID, a, admit); err != nil {
		return core.CryptoAsset{}, err
	}
	return a, nil
}

func (s *Crypto) Update(ctx context.Context, id string, patch core.CryptoAssetPatch) (core.CryptoAsset, error) {
	return s.update(ctx, id, func(a core.CryptoAsset) (core.CryptoAsset, error) {
		next := patch.Apply(a)
		next.Symbol = strings.ToUpper(strings.TrimSpace(next.Symbol))
		if err := next.Validate(); err != nil {
			return a, err
		}
		return next, nil
	})
}

func (s *Crypto) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// Symbols returns the distinct upper-case symbols held.
func (s *Crypto) Symbols() []string {
	seen := map[string]bool{}
	var out []string
	for _, a := range s.List() {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			out = append(out, a.Symbol)
		}
	}
	return out
}
