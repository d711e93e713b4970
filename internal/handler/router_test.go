package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/handler"
	"github.com/tallyhq/tally/internal/infra/cache"
	"github.com/tallyhq/tally/internal/infra/observability"
	"github.com/tallyhq/tally/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type stubStore struct {
	records   []domain.BalanceRecord
	netWealth decimal.Decimal
	queryErr  error
}

func (s *stubStore) Open(context.Context) error { return nil }
func (s *stubStore) Close() error               { return nil }
func (s *stubStore) AddBalance(context.Context, domain.AccountBalance) error {
	return nil
}
func (s *stubStore) AddHistoricalBalance(context.Context, domain.HistoricalAccountBalance) error {
	return nil
}
func (s *stubStore) AllBalances(context.Context, string) ([]domain.BalanceRecord, error) {
	return s.records, s.queryErr
}
func (s *stubStore) NetWealth(context.Context) (decimal.Decimal, error) {
	return s.netWealth, s.queryErr
}

func newTestRouter(store *stubStore) http.Handler {
	metrics := observability.NewMetrics()
	wealth := service.NewWealth(store, cache.New[any](time.Minute), metrics, zap.NewNop())
	return handler.NewRouter(wealth, metrics, zap.NewNop())
}

func doRequest(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestNetWealthEndpoint(t *testing.T) {
	store := &stubStore{netWealth: decimal.RequireFromString("1234.50")}
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/api/net-wealth")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		NetWealth string `json:"netWealth"`
		AsOf      string `json:"asOf"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.NetWealth != "1234.50" {
		t.Errorf("expected netWealth 1234.50, got %q", resp.NetWealth)
	}
	if _, err := time.Parse(time.RFC3339, resp.AsOf); err != nil {
		t.Errorf("asOf is not RFC3339: %q", resp.AsOf)
	}
}

func TestBalancesEndpoint(t *testing.T) {
	day, _ := time.Parse(time.DateOnly, "2024-03-01")
	store := &stubStore{records: []domain.BalanceRecord{
		{
			Date:          day,
			Institution:   "Example Bank",
			AccountName:   "Everyday",
			AccountNumber: "123456",
			Balance:       decimal.RequireFromString("42.00"),
			ValueType:     domain.ValueTypeCash,
		},
	}}
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/api/balances")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Balances []struct {
			Date        string `json:"date"`
			Institution string `json:"institution"`
			Balance     string `json:"balance"`
			ValueType   string `json:"valueType"`
		} `json:"balances"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Balances) != 1 {
		t.Fatalf("expected 1 balance, got %d", len(resp.Balances))
	}
	b := resp.Balances[0]
	if b.Date != "2024-03-01" || b.Institution != "Example Bank" || b.Balance != "42.00" || b.ValueType != "Cash" {
		t.Errorf("unexpected balance row: %+v", b)
	}
}

func TestBalancesEndpoint_EmptyStoreReturnsEmptyList(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/api/balances")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if string(resp["balances"]) != "[]" {
		t.Errorf("expected empty JSON array, got %s", resp["balances"])
	}
}

func TestDataIssuesEndpoint(t *testing.T) {
	stale := time.Now().UTC().AddDate(0, 0, -10)
	store := &stubStore{records: []domain.BalanceRecord{
		{
			Date:          stale,
			Institution:   "Quiet Bank",
			AccountNumber: "1",
			Balance:       decimal.RequireFromString("500.00"),
			ValueType:     domain.ValueTypeCash,
		},
		{
			Date:          time.Now().UTC(),
			Institution:   "Active Bank",
			AccountNumber: "2",
			Balance:       decimal.RequireFromString("10.00"),
			ValueType:     domain.ValueTypeCash,
		},
	}}
	router := newTestRouter(store)

	rec := doRequest(t, router, http.MethodGet, "/api/data-issues")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		DataIssues int `json:"dataIssues"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.DataIssues != 1 {
		t.Errorf("expected 1 data issue, got %d", resp.DataIssues)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %q", resp["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/metrics")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPingEndpoint(t *testing.T) {
	router := newTestRouter(&stubStore{})

	rec := doRequest(t, router, http.MethodGet, "/ping")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
