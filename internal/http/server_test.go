package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/config"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/cycle"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/storage"
)

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	resolver := cycle.NewResolverAt(store, fixedClock)
	svc := Services{
		Accounts:     services.NewAccountService(store),
		Transactions: services.NewTransactionService(store, nil),
		Transfers:    services.NewTransferService(store, nil),
		Ledger:       services.NewLedgerService(store, resolver),
		Budgets:      services.NewBudgetService(store, resolver, nil, 1000),
		Payday:       services.NewPaydayService(store),
		Audit:        services.NewAuditService(store),
	}

	cfg := &config.Config{
		Port:             "8080",
		LedgerCacheTTL:   time.Minute,
		SummaryCacheTTL:  time.Minute,
		AnalysisCacheTTL: time.Minute,
		CacheSize:        16,
	}
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentHTTP})

	srv := NewServer(cfg, svc, logger, nil)
	srv.now = fixedClock
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set(authHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createAccount(t *testing.T, srv *Server, user, name string, opening int64) accountDTO {
	t.Helper()

	rec := doRequest(t, srv, http.MethodPost, "/api/accounts", user, accountBody{
		Name: name, OpeningBalance: opening, Profile: "dynamic_spending",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account status = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[accountDTO](t, rec)
}

func TestHealthEndpointsSkipAuth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/ledger", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	resp := decodeBody[errorResponse](t, rec)
	if resp.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	account := createAccount(t, srv, "alice", "Cash", 500000)
	if account.ID == "" || account.Name != "Cash" {
		t.Fatalf("created account = %+v", account)
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/accounts", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if accounts := decodeBody[[]accountDTO](t, rec); len(accounts) != 1 {
		t.Errorf("list returned %d accounts, want 1", len(accounts))
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/accounts/"+account.ID, "alice", accountBody{
		Name: "Wallet", OpeningBalance: 600000, Profile: "dynamic_spending",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[accountDTO](t, rec); got.Name != "Wallet" {
		t.Errorf("updated name = %q, want Wallet", got.Name)
	}

	// Another user never sees it
	rec = doRequest(t, srv, http.MethodGet, "/api/accounts/"+account.ID, "bob", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign get status = %d, want 403", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/accounts/"+account.ID, "alice", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
}

func TestTransactionEndpointsAndLedger(t *testing.T) {
	srv := newTestServer(t)
	account := createAccount(t, srv, "alice", "Cash", 500000)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions", "alice", createTransactionBody{
		AccountID: account.ID, Type: "debit", Name: "Cycle top-up", Amount: 35000, Date: "2026-06-01", IsCycleTopup: true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	topup := decodeBody[transactionDTO](t, rec)

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", "alice", createTransactionBody{
		AccountID: account.ID, Type: "credit", Name: "Groceries", Amount: 20000, Date: "2026-06-03",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/ledger?month=2026-06&account_id="+account.ID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger status = %d: %s", rec.Code, rec.Body.String())
	}
	page := decodeBody[ledgerPageDTO](t, rec)
	if len(page.Entries) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(page.Entries))
	}
	if page.Entries[0].Balance != 535000 || page.Entries[1].Balance != 515000 {
		t.Errorf("running balances = %d/%d, want 535000/515000",
			page.Entries[0].Balance, page.Entries[1].Balance)
	}
	if page.ClosingBalance != 515000 {
		t.Errorf("closing = %d, want 515000", page.ClosingBalance)
	}

	// Validation errors map to 400
	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", "alice", createTransactionBody{
		AccountID: account.ID, Type: "debit", Name: "", Amount: 100,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid create status = %d, want 400", rec.Code)
	}

	// Soft delete, then repeat maps to 409
	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+topup.ID, "alice", deleteBody{Reason: "typo"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+topup.ID, "alice", deleteBody{Reason: "again"})
	if rec.Code != http.StatusConflict {
		t.Errorf("second delete status = %d, want 409", rec.Code)
	}

	// Audit trail has exactly one record for the deleted transaction
	rec = doRequest(t, srv, http.MethodGet, "/api/transactions/"+topup.ID+"/audit", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d", rec.Code)
	}
	if records := decodeBody[[]auditDTO](t, rec); len(records) != 1 {
		t.Errorf("audit records = %d, want 1", len(records))
	}
}

func TestLedgerCacheDropsOnWrite(t *testing.T) {
	srv := newTestServer(t)
	account := createAccount(t, srv, "alice", "Cash", 100000)

	path := "/api/ledger?month=2026-06&account_id=" + account.ID
	rec := doRequest(t, srv, http.MethodGet, path, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger status = %d", rec.Code)
	}
	if page := decodeBody[ledgerPageDTO](t, rec); len(page.Entries) != 0 {
		t.Fatalf("fresh ledger entries = %d, want 0", len(page.Entries))
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", "alice", createTransactionBody{
		AccountID: account.ID, Type: "credit", Name: "Coffee", Amount: 15000, Date: "2026-06-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, path, "alice", nil)
	if page := decodeBody[ledgerPageDTO](t, rec); len(page.Entries) != 1 {
		t.Errorf("ledger entries after write = %d, want 1", len(page.Entries))
	}
}

func TestSwitchEndpoints(t *testing.T) {
	srv := newTestServer(t)
	from := createAccount(t, srv, "alice", "Cash", 300000)
	to := createAccount(t, srv, "alice", "Bank", 50000)

	rec := doRequest(t, srv, http.MethodPost, "/api/switches", "alice", createSwitchBody{
		FromAccountID: from.ID, ToAccountID: to.ID, Amount: 100000, Date: "2026-06-05",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create switch status = %d: %s", rec.Code, rec.Body.String())
	}
	sw := decodeBody[switchDTO](t, rec)
	if sw.TransferID == "" {
		t.Fatal("missing transfer id")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/switches/"+sw.TransferID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get switch status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/balances/recompute", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recompute status = %d", rec.Code)
	}
	report := decodeBody[recomputeReportDTO](t, rec)
	if report.TotalAssets != 350000 {
		t.Errorf("total assets = %d, want 350000", report.TotalAssets)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/switches/"+sw.TransferID, "alice", deleteBody{Reason: "oops"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete switch status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/switches/"+sw.TransferID, "alice", nil)
	if got := decodeBody[switchDTO](t, rec); !got.Deleted {
		t.Error("switch not marked deleted after delete")
	}

	// Other users cannot touch the pair
	rec = doRequest(t, srv, http.MethodGet, "/api/switches/"+sw.TransferID, "bob", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign get status = %d, want 403", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/switches/unknown", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown switch status = %d, want 404", rec.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t)
	account := createAccount(t, srv, "alice", "Groceries", 3000000)

	rec := doRequest(t, srv, http.MethodPut, "/api/budgets", "alice", upsertBudgetBody{
		AccountID: account.ID, Month: "2026-06", Amount: 2000000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/transactions", "alice", createTransactionBody{
		AccountID: account.ID, Type: "credit", Name: "Monthly shop", Amount: 1800000, Date: "2026-06-03",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/budgets/reconcile?month=2026-06", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile status = %d: %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[budgetReportDTO](t, rec)
	if len(report.Accounts) != 1 {
		t.Fatalf("report accounts = %d, want 1", len(report.Accounts))
	}
	line := report.Accounts[0]
	if line.Gap == nil || *line.Gap != 200000 {
		t.Errorf("gap = %v, want 200000", line.Gap)
	}
	if line.Status != "under_budget" {
		t.Errorf("status = %q, want under_budget", line.Status)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/budgets/reconcile?month=2026-06&mode=bogus", "alice", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus mode status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, fmt.Sprintf("/api/budgets/%s?month=2026-06", account.ID), "alice", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete budget status = %d, want 204", rec.Code)
	}
}

func TestPaydayEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/api/payday/default", "alice", paydayDayBody{Day: 28})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set default status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(t, srv, http.MethodPut, "/api/payday/overrides/2026-06", "alice", paydayDayBody{Day: 20})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set override status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/payday", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings status = %d", rec.Code)
	}
	settings := decodeBody[paydaySettingsDTO](t, rec)
	if settings.DefaultDay != 28 {
		t.Errorf("default day = %d, want 28", settings.DefaultDay)
	}
	if len(settings.Overrides) != 1 || settings.Overrides[0].Day != 20 {
		t.Errorf("overrides = %+v, want one override on day 20", settings.Overrides)
	}

	rec = doRequest(t, srv, http.MethodPut, "/api/payday/default", "alice", paydayDayBody{Day: 40})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid day status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/payday/overrides/2026-06", "alice", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("clear override status = %d, want 204", rec.Code)
	}
}
