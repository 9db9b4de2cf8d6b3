package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// requireAuth accepts a Bearer session token and puts the user ID into the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			writeError(w, r, errUnauthenticated)
			return
		}
		userID, err := s.svc.Auth.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := auth.WithUserID(r.Context(), userID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(ctx context.Context) string {
	return auth.UserIDFrom(ctx)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).String(),
	})
}

// handleReady reports whether the stores are loaded and the services wired.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.svc.Stores == nil {
		checks["stores"] = "not_loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["stores"] = map[string]any{
			"transactions":  s.svc.Stores.Transactions.Len(),
			"goals":         s.svc.Stores.Goals.Len(),
			"crypto_assets": s.svc.Stores.Crypto.Len(),
			"status":        "ok",
		}
	}
	if s.svc.Auth == nil || s.svc.Subscriptions == nil {
		checks["accounts"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["accounts"] = "ok"
	}
	if s.svc.Export == nil {
		checks["export"] = "disabled"
	} else {
		checks["export"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := time.Since(s.appMetrics.started)

	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_microseconds", "gauge", "Average request duration", traceMetrics.AverageResponseTime)
	metric("transactions_created_total", "counter", "Transactions created through the API", s.appMetrics.transactionsCreated.Load())
	metric("exports_total", "counter", "Monthly exports run through the API", s.appMetrics.exports.Load())
	metric("rate_limit_allowed_total", "counter", "Requests admitted by the rate limiter", rateLimitMetrics.Allowed)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.Rejected)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Requests rejected for their method", securityMetrics.BlockedRequests)
	if s.svc.Stores != nil {
		metric("unread_notifications", "gauge", "Unread notifications", s.svc.Stores.Notifications.UnreadCount())
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", uptime.Seconds()))
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.Auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user.Public())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.User(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user.Public())
}

// handleCategories lists the registry, optionally narrowed by ?kind= and
// labelled in ?lang=.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.CategoryKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	switch kind {
	case "":
		kind = core.KindAny
	case core.KindIncome, core.KindExpense, core.KindAny:
	default:
		writeError(w, r, fmt.Errorf("%w: kind must be income, expense or any", errBadRequest))
		return
	}
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = "en"
	}

	type category struct {
		core.CategoryInfo
		Label string `json:"label"`
	}
	infos := core.Categories(kind)
	out := make([]category, 0, len(infos))
	for _, c := range infos {
		out = append(out, category{CategoryInfo: c, Label: c.Name(lang)})
	}
	writeJSON(w, http.StatusOK, out)
}
