package stubserver

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atdata/ishare/internal/wallet"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletstub_http_requests_total",
		Help: "Requests handled by the stub backend.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "walletstub_http_request_duration_seconds",
		Help:    "Latency of stub backend requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

type ctxKey int

const accountKey ctxKey = 0

// BasePath is where the API route table is mounted, matching the backend's
// public base URL. Health and metrics stay at the root.
const BasePath = "/api/v1"

// Router builds the full route table. Authenticated routes accept either a
// bearer token or an X-API-Key header; admin routes additionally require the
// admin role.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)

			r.Get("/user/profile", s.handleProfile)
			r.Get("/user/balance", s.handleBalance)
			r.Post("/user/regenerate-api-key", s.handleRegenerateAPIKey)
			r.Post("/transfer/send", s.handleSendTransfer)
			r.Get("/transfers", s.handleTransfers)
			r.Post("/use-data", s.handleUseData)
			r.Get("/usage-history", s.handleUsageHistory)
			r.Get("/loads", s.handleLoads)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/admin/dashboard", s.handleDashboard)
				r.Get("/admin/users", s.handleUsers)
				r.Get("/admin/transactions", s.handleTransactions)
				r.Post("/admin/credit-ishare", s.handleCredit)
				r.Post("/admin/debit-ishare", s.handleDebit)
				r.Post("/admin/bulk-credit-ishare", s.handleBulkCredit)
				r.Put("/admin/users/{userId}", s.handleUpdateUser)
				r.Delete("/admin/users/{userId}", s.handleDeactivateUser)
			})
		})
	})

	return r
}

// withAuth resolves the caller from Authorization: Bearer or X-API-Key and
// rejects inactive accounts.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct, ok := s.resolveAccount(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
			return
		}

		if !acct.IsActive {
			writeError(w, http.StatusUnauthorized, "account is inactive")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey, acct)))
	})
}

func (s *Server) resolveAccount(r *http.Request) (wallet.Account, bool) {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		userID, err := s.parseToken(strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			return wallet.Account{}, false
		}

		acct, err := s.store.Get(userID)
		if err != nil {
			return wallet.Account{}, false
		}

		return acct, true
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		acct, err := s.store.GetByAPIKey(key)
		if err != nil {
			return wallet.Account{}, false
		}

		return acct, true
	}

	return wallet.Account{}, false
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acct := accountFrom(r)
		if acct.Role != wallet.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func accountFrom(r *http.Request) wallet.Account {
	acct, _ := r.Context().Value(accountKey).(wallet.Account)

	return acct
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
