package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/alfonsusenrico/cash-flow-tracker/internal/cache"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/config"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/log"
	"github.com/alfonsusenrico/cash-flow-tracker/internal/services"
)

// mutating requests per client per minute
const writeRateLimit = 60

// Services bundles everything the handlers call into.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Transfers    *services.TransferService
	Ledger       *services.LedgerService
	Budgets      *services.BudgetService
	Payday       *services.PaydayService
	Audit        *services.AuditService
}

// Server exposes the ledger API over JSON. Read endpoints for the
// heavy views (ledger, summary, analysis) sit behind per-user LRU
// caches with singleflight fills; every mutation drops the caller's
// cached views.
type Server struct {
	http.Server

	svc    Services
	logger *log.Logger

	rateLimiter *rateLimiter
	fills       singleflight.Group

	ledgerCache   *cache.LRUCache[services.LedgerPage]
	summaryCache  *cache.LRUCache[services.MonthSummary]
	analysisCache *cache.LRUCache[services.CashFlowAnalysis]

	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and view caches, returning a
// ready-to-run server. Caches register with the manager for periodic
// expiry cleanup.
func NewServer(cfg *config.Config, svc Services, logger *log.Logger, caches *cache.Manager) *Server {
	s := &Server{
		svc:           svc,
		logger:        logger.WithComponent(log.ComponentHTTP),
		rateLimiter:   newRateLimiter(writeRateLimit),
		ledgerCache:   cache.NewLRUCache[services.LedgerPage](cfg.CacheSize, cfg.LedgerCacheTTL),
		summaryCache:  cache.NewLRUCache[services.MonthSummary](cfg.CacheSize, cfg.SummaryCacheTTL),
		analysisCache: cache.NewLRUCache[services.CashFlowAnalysis](cfg.CacheSize, cfg.AnalysisCacheTTL),
		now:           time.Now,
	}
	if caches != nil {
		caches.Register(s.ledgerCache)
		caches.Register(s.summaryCache)
		caches.Register(s.analysisCache)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/ledger", s.handleLedger)
	api.HandleFunc("GET /api/summary", s.handleSummary)
	api.HandleFunc("GET /api/analysis", s.handleAnalysis)
	api.HandleFunc("POST /api/balances/recompute", s.handleRecomputeBalances)

	api.HandleFunc("GET /api/accounts", s.handleListAccounts)
	api.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	api.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	api.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	api.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/transactions/{id}/audit", s.handleTransactionAudit)

	api.HandleFunc("POST /api/switches", s.handleCreateSwitch)
	api.HandleFunc("GET /api/switches/{transferID}", s.handleGetSwitch)
	api.HandleFunc("PUT /api/switches/{transferID}", s.handleUpdateSwitch)
	api.HandleFunc("DELETE /api/switches/{transferID}", s.handleDeleteSwitch)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("PUT /api/budgets", s.handleUpsertBudget)
	api.HandleFunc("DELETE /api/budgets/{accountID}", s.handleDeleteBudget)
	api.HandleFunc("GET /api/budgets/reconcile", s.handleReconcile)

	api.HandleFunc("GET /api/payday", s.handlePaydaySettings)
	api.HandleFunc("PUT /api/payday/default", s.handleSetDefaultPayday)
	api.HandleFunc("PUT /api/payday/overrides/{month}", s.handleSetPaydayOverride)
	api.HandleFunc("DELETE /api/payday/overrides/{month}", s.handleClearPaydayOverride)

	api.HandleFunc("GET /api/audit", s.handleListAudit)

	mux.Handle("/api/", s.withAuth(api))

	handler := log.Middleware(logger)(
		log.RequestIDMiddleware(requestID)(
			s.withObservability(mux)))

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// withAuth rejects API requests without a caller identity.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username(r) == "" {
			writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: "missing " + authHeader + " header"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withObservability adds security headers, rate limiting on writes,
// and the access log.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ip,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, r, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger := log.FromContext(r.Context())
		log.LogHTTPEnd(r.Context(), logger, r, rw.statusCode, time.Since(start).Milliseconds())
	})
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestID(r *http.Request) string {
	if v := r.Header.Get("X-Request-ID"); v != "" {
		return v
	}
	return uuid.NewString()
}

// invalidateViews drops every cached view for one user. Called after
// each mutation so reads never serve stale balances.
func (s *Server) invalidateViews(username string) {
	s.ledgerCache.DeletePrefix("ledger:" + username + ":")
	s.summaryCache.DeletePrefix("summary:" + username + ":")
	s.analysisCache.DeletePrefix("analysis:" + username + ":")
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
