package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/model"
	"DayScreener/internal/portfolio"
)

// requestTimeout bounds handlers that reach upstream providers.
const requestTimeout = 2 * time.Minute

type errorResponse struct {
	Error string `json:"error"`
}

type portfolioResponse struct {
	Entries []model.PortfolioEntry `json:"entries"`
	Summary model.PortfolioSummary `json:"summary"`
}

type addEntryRequest struct {
	Symbol     string  `json:"symbol"`
	Shares     float64 `json:"shares"`
	EntryPrice float64 `json:"entry_price"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if view, ok := s.pipeline.Latest(); ok {
		writeJSON(w, http.StatusOK, view)
		return
	}
	s.runCycle(w, r)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Invalidate(r.Context()); err != nil {
		s.log.Warn("cache invalidation failed", zap.Error(err))
	}
	s.runCycle(w, r)
}

func (s *Server) runCycle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	view, err := s.pipeline.RunCycle(ctx)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCriteria(w http.ResponseWriter, r *http.Request) {
	var c model.FilterCriteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "malformed criteria: "+err.Error())
		return
	}
	if err := s.pipeline.SetCriteria(c); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.runCycle(w, r)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	detail, err := s.pipeline.Detail(ctx, r.PathValue("symbol"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	articles, err := s.pipeline.News(ctx, q.Get("symbol"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	l := s.pipeline.Ledger()
	writeJSON(w, http.StatusOK, portfolioResponse{Entries: l.Entries(), Summary: l.Summary()})
}

func (s *Server) handlePortfolioAdd(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed entry: "+err.Error())
		return
	}
	entry, err := s.pipeline.Ledger().AddEntry(req.Symbol, req.Shares, req.EntryPrice)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handlePortfolioClear(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Ledger().Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePortfolioRemove(w http.ResponseWriter, r *http.Request) {
	if !s.pipeline.Ledger().Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "no such portfolio entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAlertTest(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.SendTestAlert(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleAlertEnabled(w http.ResponseWriter, r *http.Request) {
	d := s.pipeline.Dispatcher()
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, "alerting is not configured")
		return
	}
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	d.SetEnabled(*req.Enabled)
	s.log.Info("daily alert toggled", zap.Bool("enabled", *req.Enabled))
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":        d.Enabled(),
		"last_sent_date": d.State().LastSentDate,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	})
}

// writeDomainError maps sentinel errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrInvalidCriteria), errors.Is(err, portfolio.ErrInvalidEntry):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrDataUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrNotificationFailure):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
