package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type goalRequest struct {
	Title         string      `json:"title"`
	TargetAmount  jsonAmount  `json:"targetAmount"`
	CurrentAmount *jsonAmount `json:"currentAmount"`
	Deadline      jsonDate    `json:"deadline"`
	Category      string      `json:"category"`
}

type goalPatchRequest struct {
	Title        *string     `json:"title"`
	TargetAmount *jsonAmount `json:"targetAmount"`
	Deadline     *jsonDate   `json:"deadline"`
	Category     *string     `json:"category"`
}

type contributionRequest struct {
	Amount jsonAmount `json:"amount"`
	Date   *jsonDate  `json:"date"`
	Note   string     `json:"note"`
}

type goalsResponse struct {
	Goals   any `json:"goals"`
	Summary any `json:"summary"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, goalsResponse{
		Goals:   s.svc.Goals.List(),
		Summary: s.svc.Goals.Overview(),
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	current := decimal.Zero
	if req.CurrentAmount != nil {
		current = req.CurrentAmount.Decimal
	}
	created, err := s.svc.Goals.Create(r.Context(), userIDFrom(r.Context()), core.Goal{
		Title:         req.Title,
		TargetAmount:  req.TargetAmount.Decimal,
		CurrentAmount: current,
		Deadline:      req.Deadline.Time,
		Category:      req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Goals.Update(r.Context(), chi.URLParam(r, "id"), core.GoalPatch{
		Title:        req.Title,
		TargetAmount: req.TargetAmount.ptr(),
		Deadline:     req.Deadline.ptr(),
		Category:     req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

// handleContribute adds money to a goal. The date defaults to now.
func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date := time.Now()
	if req.Date != nil {
		date = req.Date.Time
	}
	view, err := s.svc.Goals.Contribute(r.Context(), chi.URLParam(r, "id"), core.Contribution{
		Amount: req.Amount.Decimal,
		Date:   date,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Goals.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Progress)
}
