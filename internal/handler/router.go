// Package handler exposes the read-only dashboard API over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/tallyhq/tally/internal/infra/observability"
	"github.com/tallyhq/tally/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware. The API
// is strictly read-only: balances only ever enter the store through a fetch
// run.
func NewRouter(wealth *service.Wealth, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Get("/healthz", healthzHandler(wealth))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/net-wealth", netWealthHandler(wealth, logger))
		r.Get("/balances", balancesHandler(wealth, logger))
		r.Get("/data-issues", dataIssuesHandler(wealth, logger))
	})

	return r
}

// healthzHandler reports liveness plus whether the store answers queries.
func healthzHandler(wealth *service.Wealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if _, err := wealth.NetWealth(r.Context()); err != nil {
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func netWealthHandler(wealth *service.Wealth, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/net-wealth")
		defer span.End()

		value, err := wealth.NetWealth(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, netWealthResponse{
			NetWealth: value.StringFixed(2),
			AsOf:      time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func balancesHandler(wealth *service.Wealth, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/balances")
		defer span.End()

		records, err := wealth.Balances(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		resp := make([]balanceResponse, 0, len(records))
		for _, rec := range records {
			resp = append(resp, balanceResponse{
				Date:          rec.Date.Format(time.DateOnly),
				Institution:   rec.Institution,
				AccountName:   rec.AccountName,
				AccountNumber: rec.AccountNumber,
				Balance:       rec.Balance.StringFixed(2),
				ValueType:     string(rec.ValueType),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"balances": resp})
	}
}

func dataIssuesHandler(wealth *service.Wealth, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/data-issues")
		defer span.End()

		count, err := wealth.DataIssues(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int{"dataIssues": count})
	}
}

type netWealthResponse struct {
	NetWealth string `json:"netWealth"`
	AsOf      string `json:"asOf"`
}

type balanceResponse struct {
	Date          string `json:"date"`
	Institution   string `json:"institution"`
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	Balance       string `json:"balance"`
	ValueType     string `json:"valueType"`
}
