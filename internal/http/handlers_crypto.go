package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/market"
)

type cryptoRequest struct {
	Symbol        string     `json:"symbol"`
	Name          string     `json:"name"`
	Amount        jsonAmount `json:"amount"`
	PurchasePrice jsonAmount `json:"purchasePrice"`
	PurchaseDate  jsonDate   `json:"purchaseDate"`
}

type cryptoPatchRequest struct {
	Symbol        *string     `json:"symbol"`
	Name          *string     `json:"name"`
	Amount        *jsonAmount `json:"amount"`
	PurchasePrice *jsonAmount `json:"purchasePrice"`
	PurchaseDate  *jsonDate   `json:"purchaseDate"`
}

type portfolioResponse struct {
	Summary  any `json:"summary"`
	Holdings any `json:"holdings"`
}

func (s *Server) handleListCrypto(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Portfolio.List())
}

func (s *Server) handleAddCrypto(w http.ResponseWriter, r *http.Request) {
	var req cryptoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Portfolio.Add(r.Context(), userIDFrom(r.Context()), core.CryptoAsset{
		Symbol:        req.Symbol,
		Name:          req.Name,
		Amount:        req.Amount.Decimal,
		PurchasePrice: req.PurchasePrice.Decimal,
		PurchaseDate:  req.PurchaseDate.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCrypto(w http.ResponseWriter, r *http.Request) {
	var req cryptoPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Portfolio.Update(r.Context(), chi.URLParam(r, "id"), core.CryptoAssetPatch{
		Symbol:        req.Symbol,
		Name:          req.Name,
		Amount:        req.Amount.ptr(),
		PurchasePrice: req.PurchasePrice.ptr(),
		PurchaseDate:  req.PurchaseDate.ptr(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCrypto(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Portfolio.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := s.svc.Portfolio.Valuation(ctx, userIDFrom(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	holdings, err := s.svc.Portfolio.Holdings(ctx, userIDFrom(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolioResponse{Summary: summary, Holdings: holdings})
}

// handleMarket lists market coins. Query: currency, page, perPage, ids
// (comma separated).
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	page, err := parseIntParam(v, "page", 1, 100)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perPage, err := parseIntParam(v, "perPage", 50, 250)
	if err != nil {
		writeError(w, r, err)
		return
	}
	currency := strings.ToLower(strings.TrimSpace(v.Get("currency")))
	if currency != "" && !core.IsKnownCurrency(currency) {
		writeError(w, r, fmt.Errorf("%w: %q", core.ErrInvalidCurrency, currency))
		return
	}

	var ids []string
	for _, id := range strings.Split(v.Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	coins, err := s.svc.Portfolio.Market(r.Context(), market.Query{
		VsCurrency: currency,
		Page:       page,
		PerPage:    perPage,
		IDs:        ids,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coins)
}
