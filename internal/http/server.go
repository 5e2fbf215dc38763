// Package http serves the ledger UI: server-rendered pages progressively
// enhanced with htmx, plus JSON endpoints feeding the spending charts.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"conti/internal/backend"
	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/stats"
	appweb "conti/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	ledger      backend.Backend
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Derived aggregates are cheap to rebuild but hit on every chart
	// request, so both caches are purged wholesale on any write.
	pivotCache   *cache.LRUCache[*stats.Table]
	listCache    *cache.LRUCache[[]core.Expense]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, be backend.Backend) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:       be,
		rateLimiter:  newRateLimiter(),
		metrics:      &securityMetrics{},
		pivotCache:   cache.NewLRUCache[*stats.Table](100, 5*time.Minute),
		listCache:    cache.NewLRUCache[[]core.Expense](200, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.pivotCache)
	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	// Expense CRUD
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("/expenses/update", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("/expenses/delete", s.withSecurityHeaders(s.handleDeleteExpense))

	// UI partials
	mux.HandleFunc("/ui/expense-table", s.withSecurityHeaders(s.handleExpenseTable))
	mux.HandleFunc("/ui/expense-edit", s.withSecurityHeaders(s.handleExpenseEditForm))

	// Pages
	mux.HandleFunc("/charts", s.withSecurityHeaders(s.handleChartsPage))
	mux.HandleFunc("/balance", s.withSecurityHeaders(s.handleBalancePage))
	mux.HandleFunc("/recurring", s.withSecurityHeaders(s.handleRecurringPage))
	mux.HandleFunc("/recurring/create", s.withSecurityHeaders(s.handleCreateRecurring))
	mux.HandleFunc("/recurring/delete", s.withSecurityHeaders(s.handleDeleteRecurring))

	// Chart data
	mux.HandleFunc("/api/charts/totals", s.withSecurityHeaders(s.handleChartTotals))
	mux.HandleFunc("/api/charts/daily", s.withSecurityHeaders(s.handleChartDaily))
	mux.HandleFunc("/api/charts/cumulative", s.withSecurityHeaders(s.handleChartCumulative))
	mux.HandleFunc("/api/charts/rolling-sum", s.withSecurityHeaders(s.handleChartRollingSum))
	mux.HandleFunc("/api/charts/rolling-max", s.withSecurityHeaders(s.handleChartRollingMax))
	mux.HandleFunc("/api/charts/share", s.withSecurityHeaders(s.handleChartShare))

	return s
}

// invalidateCaches drops every cached aggregate. Any write can shift any
// chart, so there is no per-key invalidation.
func (s *Server) invalidateCaches() {
	s.pivotCache.Purge()
	s.listCache.Purge()
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging around a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if detectSuspiciousRequest(r, s.metrics) {
			slog.WarnContext(ctx, "Suspicious request",
				"request_id", requestID,
				"method", r.Method,
				"url", r.URL.Path,
				"client_ip", clientIP)
		}

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit mutations only; chart polling stays unthrottled.
		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com https://cdn.jsdelivr.net 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.ledger.ListPurchasers(ctx); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
