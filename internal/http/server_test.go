package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func newTestServer(t *testing.T, store storage.Store) *Server {
	t.Helper()
	if store == nil {
		store = memory.NewSeeded()
	}
	logger := quietLogger()
	txs := services.NewTransactionService(store, nil, cache.NewLRUCache[[]core.Transaction](4, time.Minute), logger)
	srv := NewServer(":0", Deps{
		Transactions:       txs,
		Budgets:            services.NewBudgetService(store, txs),
		Categories:         services.NewCategoryService(store),
		Store:              store,
		Logger:             logger,
		RateLimitPerMinute: 1000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type txBody struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s missing request id", path)
		}
	}
}

type downStore struct{ storage.Store }

func (downStore) Ping(context.Context) error {
	return &core.ConnectivityError{Backend: "postgres", Err: errors.New("connection refused")}
}

func (downStore) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, &core.StorageError{Op: "list transactions", Err: errors.New("pq: relation does not exist")}
}

func TestReadyFailsWhenStoreDown(t *testing.T) {
	srv := newTestServer(t, downStore{memory.NewSeeded()})
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestStorageFailureIsGeneric500(t *testing.T) {
	srv := newTestServer(t, downStore{memory.NewSeeded()})
	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if body.Message != "Error fetching transactions" {
		t.Errorf("message = %q", body.Message)
	}
	if strings.Contains(rr.Body.String(), "relation") {
		t.Errorf("storage detail leaked: %s", rr.Body.String())
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty list: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/transactions", `{"amount":12.5,"date":"2025-04-03","description":"Groceries","category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[txBody](t, rr)
	if created.ID == "" || created.Amount != 12.5 || created.Date != "2025-04-03" || created.Category != "Food" {
		t.Fatalf("created = %+v", created)
	}
	if rr.Header().Get("Location") != "/transactions/"+created.ID {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}

	rr = do(t, srv, http.MethodPost, "/transactions", `{"amount":"40","date":"2025-05-01","description":"Bus pass","category":"Transportation"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("second create status=%d", rr.Code)
	}
	second := decode[txBody](t, rr)

	rr = do(t, srv, http.MethodGet, "/transactions/"+created.ID, "")
	if rr.Code != http.StatusOK || decode[txBody](t, rr).Description != "Groceries" {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPut, "/transactions/"+created.ID, `{"amount":15,"date":"2025-04-04","description":"Market","category":"Food"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decode[txBody](t, rr)
	if updated.ID != created.ID || updated.Amount != 15 || updated.Description != "Market" || updated.Date != "2025-04-04" {
		t.Fatalf("updated = %+v", updated)
	}

	list := decode[[]txBody](t, do(t, srv, http.MethodGet, "/transactions", ""))
	if len(list) != 2 || list[0].ID != created.ID || list[1].ID != second.ID {
		t.Fatalf("list order = %+v", list)
	}

	rr = do(t, srv, http.MethodDelete, "/transactions/"+created.ID, "")
	if rr.Code != http.StatusOK || decode[errorBody](t, rr).Message != "Transaction deleted" {
		t.Fatalf("delete status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/transactions/"+created.ID, "")
	if rr.Code != http.StatusNotFound || decode[errorBody](t, rr).Message != "Transaction not found" {
		t.Fatalf("second delete status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "every field invalid",
			body:       `{"amount":-3,"date":"not a date","description":"","category":""}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"amount", "date", "description", "category"},
		},
		{
			name:       "zero amount",
			body:       `{"amount":0,"date":"2025-04-03","description":"x","category":"Food"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"amount"},
		},
		{
			name:       "impossible calendar date",
			body:       `{"amount":1,"date":"2025-02-30","description":"x","category":"Food"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"date"},
		},
		{
			name:       "wrong json types",
			body:       `{"amount":-1,"date":20250101,"description":"","category":""}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"amount", "date", "description", "category"},
		},
		{
			name:       "non string text fields",
			body:       `{"amount":"2","date":"2025-04-03","description":5,"category":["Food"]}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"description", "category"},
		},
		{
			name:       "huge exponent",
			body:       `{"amount":"1e5000000","date":"2025-04-03","description":"x","category":"Food"}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"amount"},
		},
		{
			name:       "malformed json",
			body:       `{"amount":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an object",
			body:       `[1,2]`,
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/transactions", tt.body)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			body := decode[errorBody](t, rr)
			if len(body.Errors) != len(tt.wantFields) {
				t.Fatalf("errors = %+v, want fields %v", body.Errors, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if body.Errors[i].Field != f {
					t.Errorf("errors[%d].field = %q, want %q", i, body.Errors[i].Field, f)
				}
			}
			if len(tt.wantFields) > 0 && body.Message != "Validation failed" {
				t.Errorf("message = %q", body.Message)
			}
		})
	}

	if list := decode[[]txBody](t, do(t, srv, http.MethodGet, "/transactions", "")); len(list) != 0 {
		t.Fatalf("rejected requests must not persist, got %d", len(list))
	}
}

func TestUpdateTransaction(t *testing.T) {
	srv := newTestServer(t, nil)
	valid := `{"amount":1,"date":"2025-04-03","description":"x","category":"Food"}`

	rr := do(t, srv, http.MethodPut, "/transactions/missing", valid)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPut, "/transactions/missing", `{"amount":"abc","date":"2025-04-03","description":"x","category":"Food"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid body status=%d", rr.Code)
	}
}

func TestBudgets(t *testing.T) {
	srv := newTestServer(t, nil)

	budgets := decode[[]map[string]any](t, do(t, srv, http.MethodGet, "/budgets", ""))
	if len(budgets) != 2 {
		t.Fatalf("seeded budgets = %v", budgets)
	}

	rr := do(t, srv, http.MethodPost, "/budgets", `{"category":"Food","amount":200,"month":"April 2025"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if len(body.Errors) != 1 || body.Errors[0].Field != "month" || body.Errors[0].Message != "Month must be in the format YYYY-MM" {
		t.Fatalf("errors = %+v", body.Errors)
	}

	rr = do(t, srv, http.MethodPost, "/budgets", `{"category":"","amount":"x"}`)
	if rr.Code != http.StatusBadRequest || len(decode[errorBody](t, rr).Errors) != 3 {
		t.Fatalf("all invalid status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/budgets", `{"category":7,"amount":200,"month":202304}`)
	body = decode[errorBody](t, rr)
	if rr.Code != http.StatusBadRequest || len(body.Errors) != 2 || body.Errors[0].Field != "category" || body.Errors[1].Message != "Month must be a string" {
		t.Fatalf("wrong types status=%d body=%s", rr.Code, rr.Body.String())
	}

	for i := 0; i < 2; i++ {
		rr = do(t, srv, http.MethodPost, "/budgets", `{"category":"Food","amount":250,"month":"2023-04"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create #%d status=%d body=%s", i, rr.Code, rr.Body.String())
		}
	}

	do(t, srv, http.MethodPost, "/transactions", `{"amount":120,"date":"2023-04-10","description":"Shop","category":"food"}`)
	do(t, srv, http.MethodPost, "/transactions", `{"amount":80,"date":"2023-05-10","description":"Shop","category":"Food"}`)

	rr = do(t, srv, http.MethodGet, "/budgets/comparison?month=2023-04", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("comparison status=%d", rr.Code)
	}
	rows := decode[[]struct {
		Category string  `json:"category"`
		Budget   float64 `json:"budget"`
		Actual   float64 `json:"actual"`
	}](t, rr)
	if len(rows) != 2 || rows[0].Category != "Food" || rows[0].Budget != 1000 || rows[0].Actual != 120 {
		t.Fatalf("comparison = %+v", rows)
	}

	rr = do(t, srv, http.MethodGet, "/budgets/comparison?month=2023-4", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad comparison month status=%d", rr.Code)
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t, nil)

	cats := decode[[]string](t, do(t, srv, http.MethodGet, "/categories", ""))
	if strings.Join(cats, ",") != "Food,Rent,Utilities,Transportation,Entertainment" {
		t.Fatalf("categories = %v", cats)
	}

	rr := do(t, srv, http.MethodPost, "/categories", `{"category":"  Travel "}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add status=%d", rr.Code)
	}
	if got := decode[map[string]string](t, rr)["category"]; got != "Travel" {
		t.Fatalf("category = %q", got)
	}

	rr = do(t, srv, http.MethodPost, "/categories", `{"category":"travel"}`)
	if rr.Code != http.StatusConflict || decode[errorBody](t, rr).Message != "Category already exists" {
		t.Fatalf("duplicate status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/categories", `{}`)
	if rr.Code != http.StatusBadRequest || decode[errorBody](t, rr).Message != "Category is required" {
		t.Fatalf("empty status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodPost, "/categories", `{"category":42}`)
	body := decode[errorBody](t, rr)
	if rr.Code != http.StatusBadRequest || len(body.Errors) != 1 || body.Errors[0].Message != "Category must be a string" {
		t.Fatalf("wrong type status=%d body=%s", rr.Code, rr.Body.String())
	}

	cats = decode[[]string](t, do(t, srv, http.MethodGet, "/categories", ""))
	if len(cats) != 6 || cats[5] != "Travel" {
		t.Fatalf("categories after add = %v", cats)
	}
}

func TestSummaries(t *testing.T) {
	srv := newTestServer(t, nil)

	if rr := do(t, srv, http.MethodGet, "/summary/categories", ""); strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty summary = %s", rr.Body.String())
	}

	do(t, srv, http.MethodPost, "/transactions", `{"amount":10,"date":"2025-01-05","description":"a","category":"Food"}`)
	do(t, srv, http.MethodPost, "/transactions", `{"amount":5,"date":"2025-02-05","description":"b","category":"Rent"}`)
	do(t, srv, http.MethodPost, "/transactions", `{"amount":2.5,"date":"2025-01-20","description":"c","category":"Food"}`)

	byCat := decode[[]struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}](t, do(t, srv, http.MethodGet, "/summary/categories", ""))
	if len(byCat) != 2 || byCat[0].Category != "Food" || byCat[0].Total != 12.5 || byCat[1].Total != 5 {
		t.Fatalf("by category = %+v", byCat)
	}

	byMonth := decode[[]struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}](t, do(t, srv, http.MethodGet, "/summary/monthly", ""))
	if len(byMonth) != 2 || byMonth[0].Month != "Jan 2025" || byMonth[0].Total != 12.5 || byMonth[1].Month != "Feb 2025" {
		t.Fatalf("by month = %+v", byMonth)
	}
}

func TestRoutingErrors(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("unknown route status=%d type=%q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = do(t, srv, http.MethodPatch, "/transactions", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method status=%d", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	store := memory.NewSeeded()
	logger := quietLogger()
	txs := services.NewTransactionService(store, nil, nil, logger)
	srv := NewServer(":0", Deps{
		Transactions:       txs,
		Budgets:            services.NewBudgetService(store, txs),
		Categories:         services.NewCategoryService(store),
		Logger:             logger,
		RateLimitPerMinute: 1,
	})
	defer srv.Shutdown(context.Background())

	if rr := do(t, srv, http.MethodPost, "/categories", `{"category":"A"}`); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/categories", `{"category":"B"}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/categories", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, status=%d", rr.Code)
	}
}

func TestTrustedProxyClientsLimitedSeparately(t *testing.T) {
	store := memory.NewSeeded()
	logger := quietLogger()
	srv := NewServer(":0", Deps{
		Categories:         services.NewCategoryService(store),
		Logger:             logger,
		RateLimitPerMinute: 1,
		TrustedProxies:     []string{"203.0.113.0/24", "bogus"},
	})
	defer srv.Shutdown(context.Background())

	post := func(client, category string) int {
		req := httptest.NewRequest(http.MethodPost, "/categories", strings.NewReader(`{"category":"`+category+`"}`))
		req.RemoteAddr = "203.0.113.10:4000"
		req.Header.Set("X-Forwarded-For", client)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := post("198.51.100.1", "A"); code != http.StatusCreated {
		t.Fatalf("first client status=%d", code)
	}
	if code := post("198.51.100.2", "B"); code != http.StatusCreated {
		t.Fatalf("second client behind proxy status=%d", code)
	}
	if code := post("198.51.100.1", "C"); code != http.StatusTooManyRequests {
		t.Fatalf("repeat client status=%d", code)
	}
}
