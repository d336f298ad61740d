package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	budgetledger "clipcash/contexts/finance-core/budget-ledger"
	"clipcash/contexts/finance-core/budget-ledger/domain/earnings"
	budgeterrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/domain/ledger"
	budgethttp "clipcash/contexts/finance-core/budget-ledger/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "clipcash/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	budget budgetledger.Module
}

func New(budget budgetledger.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		budget: budget,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/budget/v1/campaigns/{campaign_id}/reserve", s.handleReserveBudget)
	s.mux.HandleFunc("POST /api/budget/v1/campaigns/{campaign_id}/spend", s.handleSpendBudget)
	s.mux.HandleFunc("POST /api/budget/v1/campaigns/{campaign_id}/view-increase", s.handleViewIncrease)
	s.mux.HandleFunc("POST /api/budget/v1/campaigns/{campaign_id}/release", s.handleReleaseBudget)
	s.mux.HandleFunc("POST /api/budget/v1/campaigns/{campaign_id}/complete", s.handleCompleteCampaign)
	s.mux.HandleFunc("GET /api/budget/v1/campaigns/{campaign_id}/budget", s.handleGetBudget)
	s.mux.HandleFunc("GET /api/budget/v1/campaigns/{campaign_id}/budget/log", s.handleListBudgetLog)
}

func (s *Server) handleReserveBudget(w http.ResponseWriter, r *http.Request) {
	var req budgethttp.ReserveBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBudgetError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.ReserveBudgetHandler(r.Context(), campaignID, req)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpendBudget(w http.ResponseWriter, r *http.Request) {
	var req budgethttp.SpendBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBudgetError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.SpendBudgetHandler(r.Context(), campaignID, req)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleViewIncrease(w http.ResponseWriter, r *http.Request) {
	var req budgethttp.ViewIncreaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBudgetError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.ViewIncreaseHandler(r.Context(), campaignID, req)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReleaseBudget(w http.ResponseWriter, r *http.Request) {
	var req budgethttp.ReleaseBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBudgetError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.ReleaseBudgetHandler(r.Context(), campaignID, req)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteCampaign(w http.ResponseWriter, r *http.Request) {
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if actorID == "" {
		writeBudgetError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return
	}

	var req budgethttp.CompleteCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBudgetError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.CompleteCampaignHandler(r.Context(), actorID, campaignID, req)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")
	resp, err := s.budget.Handler.GetBudgetHandler(r.Context(), campaignID)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListBudgetLog(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")

	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeBudgetError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.budget.Handler.ListBudgetLogHandler(r.Context(), campaignID, limit)
	if err != nil {
		writeBudgetDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeBudgetDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, budgeterrors.ErrCampaignNotFound):
		writeBudgetError(w, http.StatusNotFound, "campaign_not_found", err.Error())
	case errors.Is(err, budgeterrors.ErrSubmissionNotFound):
		writeBudgetError(w, http.StatusNotFound, "submission_not_found", err.Error())
	case errors.Is(err, budgeterrors.ErrNotAuthorized):
		writeBudgetError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, budgeterrors.ErrConcurrencyConflict):
		writeBudgetError(w, http.StatusConflict, "concurrency_conflict", err.Error())
	case errors.Is(err, budgeterrors.ErrInvalidStatusTransition):
		writeBudgetError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, budgeterrors.ErrSubmissionAlreadyPaid):
		writeBudgetError(w, http.StatusConflict, "submission_already_paid", err.Error())
	case errors.Is(err, budgeterrors.ErrAlreadyReserved):
		writeBudgetError(w, http.StatusConflict, "already_reserved", err.Error())
	case errors.Is(err, budgeterrors.ErrNothingReserved):
		writeBudgetError(w, http.StatusConflict, "nothing_reserved", err.Error())
	case errors.Is(err, ledger.ErrInsufficientBudget):
		writeBudgetError(w, http.StatusUnprocessableEntity, "insufficient_budget", err.Error())
	case errors.Is(err, ledger.ErrInsufficientReserve),
		errors.Is(err, ledger.ErrOverRelease):
		writeBudgetError(w, http.StatusUnprocessableEntity, "insufficient_reserve", err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, earnings.ErrInvalidInput),
		errors.Is(err, budgeterrors.ErrInvalidInput):
		writeBudgetError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeBudgetError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeBudgetError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, budgethttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
