package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/subscription"
)

type planRequest struct {
	Plan core.Plan `json:"plan"`
}

type themeRequest struct {
	Theme core.Theme `json:"theme"`
}

type notificationsResponse struct {
	Items       []core.Notification `json:"items"`
	UnreadCount int                 `json:"unreadCount"`
}

type subscriptionResponse struct {
	core.Subscription
	Features subscription.Features `json:"features"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	n := s.svc.Stores.Notifications
	writeJSON(w, http.StatusOK, notificationsResponse{Items: n.List(), UnreadCount: n.UnreadCount()})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Stores.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Stores.Notifications.MarkAllRead(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Stores.Notifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Stores.Notifications.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}

func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Current(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Subscription: sub,
		Features:     subscription.FeaturesFor(sub.CurrentPlan),
	})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, subscription.Plans())
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s.changePlan(w, r, s.svc.Subscriptions.Checkout)
}

func (s *Server) handleTrial(w http.ResponseWriter, r *http.Request) {
	s.changePlan(w, r, s.svc.Subscriptions.StartTrial)
}

func (s *Server) changePlan(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, userID string, plan core.Plan) (core.Subscription, error)) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := change(r.Context(), userIDFrom(r.Context()), req.Plan)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Subscription: sub,
		Features:     subscription.FeaturesFor(sub.CurrentPlan),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sub, err := s.svc.Subscriptions.Cancel(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Subscription: sub,
		Features:     subscription.FeaturesFor(sub.CurrentPlan),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stores.Settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req core.Settings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Stores.Settings.Set(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stores.Profile.Get())
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req core.Profile
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Stores.Profile.Set(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeRequest{Theme: s.svc.Stores.Theme.Get()})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Stores.Theme.Set(r.Context(), req.Theme)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themeRequest{Theme: saved})
}
