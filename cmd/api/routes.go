package main

import (
	"log"
	"net/http"

	"finanzas/internal/shared/config"
	"finanzas/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
// metrics is mounted on /metrics when non-nil.
func SetupRoutes(deps *Dependencies, cfg *config.Config, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", deps.HealthHandler.HandleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	// Public auth routes
	mux.HandleFunc("POST /api/auth/register", deps.SessionHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.SessionHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/anonymous", deps.SessionHandler.HandleAnonymous)
	mux.HandleFunc("POST /api/auth/logout", deps.SessionHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Sessions)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}

	mux.Handle("GET /api/auth/session", protect(deps.SessionHandler.HandleSession))
	mux.Handle("GET /api/entries", protect(deps.LedgerHandler.HandleListEntries))
	mux.Handle("POST /api/entries", protect(deps.LedgerHandler.HandleCreateEntry))
	mux.Handle("GET /api/entries/export", protect(deps.LedgerHandler.HandleExportEntries))
	mux.Handle("DELETE /api/entries/{id}", protect(deps.LedgerHandler.HandleDeleteEntry))
	mux.Handle("POST /api/entries/{id}/settle", protect(deps.LedgerHandler.HandleSettleEntry))
	mux.Handle("GET /api/summary", protect(deps.LedgerHandler.HandleSummary))
	mux.Handle("GET /api/obligations", protect(deps.LedgerHandler.HandleObligations))
	mux.Handle("GET /api/categories", protect(deps.LedgerHandler.HandleCategories))

	// Apply global middleware
	var handler http.Handler = mux
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(middleware.Tracing(handler))
	}
	handler = middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(handler))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.Secure(handler)
		log.Println("TLS hardening enabled")
	}

	return handler
}
