package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"conti/internal/adapters"
	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "conti.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := services.NewExpenseService(repo, nil)
	t.Cleanup(func() { _ = svc.Close() })

	return NewServer(":0", adapters.NewSQLiteAdapter(repo, svc))
}

func postForm(t *testing.T, srv *Server, path, form string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Conti di casa") {
		t.Fatalf("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	cases := []struct {
		name string
		form string
	}{
		{"invalid amount", "date=2025-07-01&paid_by=Alice&amount=abc"},
		{"negative amount", "date=2025-07-01&paid_by=Alice&amount=-3.50"},
		{"missing payer", "date=2025-07-01&paid_by=&amount=1.23"},
		{"bad date", "date=not-a-date&paid_by=Alice&amount=1.23"},
		{"comment too long", "date=2025-07-01&paid_by=Alice&amount=1.23&comment=" + strings.Repeat("x", 141)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postForm(t, srv, "/expenses", tc.form)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rr.Code, rr.Body.String())
			}
		})
	}

	rr = postForm(t, srv, "/expenses", "date=2025-07-01&paid_by=Alice&amount=12,34&comment=spesa")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"expense:created"`, `"form:reset"`, `"ledger:refresh"`} {
		if !strings.Contains(trigger, part) {
			t.Fatalf("HX-Trigger missing %s: %s", part, trigger)
		}
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ui/expense-table", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("table status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Alice") || !strings.Contains(body, "€12,34") {
		t.Fatalf("table missing created row: %s", body)
	}
}

func TestUpdateExpense(t *testing.T) {
	srv := newTestServer(t)

	id, err := srv.ledger.CreateExpense(context.Background(), core.Expense{
		Date:   core.NewDate(2025, 7, 1),
		PaidBy: "Bob",
		Amount: core.Money{Cents: 500},
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	rr := postForm(t, srv, "/expenses/update",
		"id="+itoa(id)+"&date=2025-07-02&paid_by=Bob&amount=7.50&comment=aggiornata")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	got, err := srv.ledger.GetExpense(context.Background(), id)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Amount.Cents != 750 || got.Date.ISO() != "2025-07-02" || got.Comment != "aggiornata" {
		t.Fatalf("update not applied: %+v", got)
	}

	// Unknown ID answers 404.
	rr = postForm(t, srv, "/expenses/update", "id=99999&date=2025-07-02&paid_by=Bob&amount=7.50")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteExpenseIdempotent(t *testing.T) {
	srv := newTestServer(t)

	id, err := srv.ledger.CreateExpense(context.Background(), core.Expense{
		Date:   core.NewDate(2025, 7, 1),
		PaidBy: "Chuck",
		Amount: core.Money{Cents: 300},
	})
	if err != nil {
		t.Fatalf("seed expense: %v", err)
	}

	// JSON body, like htmx hx-vals issues it.
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/expenses/delete",
			strings.NewReader(`{"id": `+itoa(id)+`}`))
		req.Header.Set("Content-Type", "application/json")
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("delete attempt %d status=%d: %s", i+1, rr.Code, rr.Body.String())
		}
	}

	if _, err := srv.ledger.GetExpense(context.Background(), id); err == nil {
		t.Fatal("expense should be gone")
	}

	// Query-parameter form works too.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/expenses/delete?id="+itoa(id), nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("query delete status=%d", rr.Code)
	}
}

func TestExpenseTableFilters(t *testing.T) {
	srv := newTestServer(t)
	seed := []core.Expense{
		{Date: core.NewDate(2025, 7, 1), PaidBy: "Alice", Amount: core.Money{Cents: 100}},
		{Date: core.NewDate(2025, 7, 5), PaidBy: "Bob", Amount: core.Money{Cents: 200}},
		{Date: core.NewDate(2025, 7, 9), PaidBy: "Alice", Amount: core.Money{Cents: 300}},
	}
	for _, e := range seed {
		if _, err := srv.ledger.CreateExpense(context.Background(), e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/expense-table?from=2025-07-02&to=2025-07-09&paid_by=Alice", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("table status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "Bob") {
		t.Fatalf("payer filter leaked Bob: %s", body)
	}
	if !strings.Contains(body, "€3,00") {
		t.Fatalf("expected filtered row: %s", body)
	}
	if strings.Contains(body, "€1,00") {
		t.Fatalf("date filter leaked 2025-07-01 row: %s", body)
	}

	// Broken dates are rejected instead of silently widening the range.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ui/expense-table?from=garbage", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}
}

func TestChartEndpoints(t *testing.T) {
	srv := newTestServer(t)
	seed := []core.Expense{
		{Date: core.NewDate(2025, 7, 1), PaidBy: "Alice", Amount: core.Money{Cents: 1000}},
		{Date: core.NewDate(2025, 7, 3), PaidBy: "Bob", Amount: core.Money{Cents: 3000}},
	}
	for _, e := range seed {
		if _, err := srv.ledger.CreateExpense(context.Background(), e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	getJSON := func(t *testing.T, path string, into interface{}) {
		t.Helper()
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d: %s", path, rr.Code, rr.Body.String())
		}
		if err := json.Unmarshal(rr.Body.Bytes(), into); err != nil {
			t.Fatalf("%s decode: %v", path, err)
		}
	}

	var daily chartPayload
	getJSON(t, "/api/charts/daily?from=2025-07-01&to=2025-07-03", &daily)
	if len(daily.Labels) != 3 {
		t.Fatalf("expected gap-filled 3 day labels, got %v", daily.Labels)
	}
	if daily.Labels[1] != "2025-07-02" {
		t.Fatalf("middle day missing: %v", daily.Labels)
	}
	// Alice, Bob, Totale
	if len(daily.Series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(daily.Series))
	}
	for _, series := range daily.Series {
		if series.Name == "Totale" {
			want := []float64{10, 0, 30}
			for i, v := range want {
				if series.Values[i] != v {
					t.Fatalf("total series = %v, want %v", series.Values, want)
				}
			}
		}
	}

	var cum chartPayload
	getJSON(t, "/api/charts/cumulative?from=2025-07-01&to=2025-07-03", &cum)
	for _, series := range cum.Series {
		if series.Name == "Alice" {
			want := []float64{10, 10, 10}
			for i, v := range want {
				if series.Values[i] != v {
					t.Fatalf("alice cumulative = %v, want %v", series.Values, want)
				}
			}
		}
	}

	var share chartPayload
	getJSON(t, "/api/charts/share?from=2025-07-01&to=2025-07-03", &share)
	for _, series := range share.Series {
		if series.Name == "Alice" {
			// Day 1: Alice alone. Day 3: 10 of 40 spent.
			if series.Values[0] != 100 || series.Values[2] != 25 {
				t.Fatalf("alice share = %v", series.Values)
			}
		}
	}

	var totals struct {
		Totals []struct {
			Name  string  `json:"name"`
			Euros float64 `json:"euros"`
		} `json:"totals"`
		Total float64 `json:"total"`
	}
	getJSON(t, "/api/charts/totals", &totals)
	if totals.Total != 40 {
		t.Fatalf("grand total = %v, want 40", totals.Total)
	}
	if len(totals.Totals) != 2 {
		t.Fatalf("expected 2 payer totals, got %d", len(totals.Totals))
	}
}

func TestBalancePage(t *testing.T) {
	srv := newTestServer(t)
	seed := []core.Expense{
		{Date: core.NewDate(2025, 7, 1), PaidBy: "Alice", Amount: core.Money{Cents: 3000}},
		{Date: core.NewDate(2025, 7, 2), PaidBy: "Bob", Amount: core.Money{Cents: 1000}},
	}
	for _, e := range seed {
		if _, err := srv.ledger.CreateExpense(context.Background(), e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance status=%d", rr.Code)
	}
	body := rr.Body.String()
	// Total 40.00, fair share 20.00: Alice is up 10.00, Bob down 10.00.
	for _, want := range []string{"€40,00", "€10,00", "-€10,00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("balance body missing %s: %s", want, body)
		}
	}
}

func TestRecurringPageAndCreate(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(t, srv, "/recurring/create",
		"start_date=2025-01-01&every=monthly&paid_by=Alice&amount=650&comment=affitto")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create recurring status=%d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/recurring", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("recurring page status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "affitto") || !strings.Contains(body, "monthly") {
		t.Fatalf("recurring page missing template row: %s", body)
	}

	// Bad repetition type is rejected.
	rr = postForm(t, srv, "/recurring/create",
		"start_date=2025-01-01&every=fortnightly&paid_by=Alice&amount=650")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad repetition, got %d", rr.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
