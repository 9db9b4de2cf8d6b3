package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/query"
	"fintrack/internal/services"
)

type transactionRequest struct {
	Type        core.TransactionType `json:"type"`
	Category    string               `json:"category"`
	Amount      jsonAmount           `json:"amount"`
	Description string               `json:"description"`
	Date        jsonDate             `json:"date"`
}

type transactionPatchRequest struct {
	Type        *core.TransactionType `json:"type"`
	Category    *string               `json:"category"`
	Amount      *jsonAmount           `json:"amount"`
	Description *string               `json:"description"`
	Date        *jsonDate             `json:"date"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := query.ParseFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := query.ParsePage(q, maxPageLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Ledger.List(filter, query.ParseSort(q), page))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Ledger.Create(r.Context(), core.Transaction{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount.Decimal,
		Description: req.Description,
		Date:        req.Date.Time,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.appMetrics.transactionsCreated.Add(1)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Ledger.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Ledger.Update(r.Context(), chi.URLParam(r, "id"), core.TransactionPatch{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount.ptr(),
		Description: req.Description,
		Date:        req.Date.ptr(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Ledger.Totals())
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.URL.Query(), "month", time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Ledger.Monthly(month))
}

// handleCategoryBreakdown covers all time, or one month with ?month=YYYY-MM.
func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	var month *time.Time
	if r.URL.Query().Has("month") {
		m, err := parseMonth(r.URL.Query(), "month", time.Time{})
		if err != nil {
			writeError(w, r, err)
			return
		}
		month = &m
	}
	writeJSON(w, http.StatusOK, s.svc.Ledger.Categories(month))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months, err := parseIntParam(r.URL.Query(), "months", services.DefaultTrendMonths, 24)
	if err != nil {
		writeError(w, r, err)
		return
	}
	trend, err := s.svc.Dashboard.Trend(r.Context(), userIDFrom(r.Context()), months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := s.svc.Dashboard.Overview(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// handleExport pushes one month (default: current) to the spreadsheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Export == nil {
		writeError(w, r, services.ErrExportDisabled)
		return
	}
	month, err := parseMonth(r.URL.Query(), "month", time.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Export.Month(r.Context(), userIDFrom(r.Context()), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.appMetrics.exports.Add(1)
	writeJSON(w, http.StatusOK, res)
}
