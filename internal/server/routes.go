package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /api/criteria", s.handleCriteria)
	mux.HandleFunc("GET /api/symbols/{symbol}", s.handleSymbol)
	mux.HandleFunc("GET /api/news", s.handleNews)

	mux.HandleFunc("GET /api/portfolio", s.handlePortfolioList)
	mux.HandleFunc("POST /api/portfolio", s.handlePortfolioAdd)
	mux.HandleFunc("DELETE /api/portfolio", s.handlePortfolioClear)
	mux.HandleFunc("DELETE /api/portfolio/{id}", s.handlePortfolioRemove)

	mux.HandleFunc("POST /api/alerts/test", s.handleAlertTest)
	mux.HandleFunc("POST /api/alerts/enabled", s.handleAlertEnabled)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /ws", s.hub.ServeWS)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "the requested endpoint does not exist")
}
